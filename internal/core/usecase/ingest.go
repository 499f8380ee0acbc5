package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the raw file, registers the document, and publishes the
// processing event. The sanitized filename doubles as the retrieval source
// id, keeping chunk ids stable across re-uploads of the same file.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	id := uuid.NewString()
	source := sanitizeFilename(filename)
	storageKey := fmt.Sprintf("%s_%s", id, source)
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		Source:      source,
		Type:        documentType(filename, mimeType),
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

func documentType(filename, mimeType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".xlsx":
		return "xlsx"
	case ".md":
		return "markdown"
	case ".txt":
		return "text"
	}
	if mimeType != "" {
		return mimeType
	}
	return "unknown"
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
