package domain

import (
	"fmt"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is a registered source file. The raw bytes live in object storage;
// the chunk corpus derived from it lives in the vector store.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Source      string         `json:"source"`
	Type        string         `json:"type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ChunkID is deterministic for a given source and chunk position, so
// re-ingesting the same document with the same chunking configuration
// upserts the same points instead of duplicating them.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", source, index)
}
