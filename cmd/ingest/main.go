package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tawandam/policy-assistant/internal/bootstrap"
	"github.com/tawandam/policy-assistant/internal/config"
	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
	"github.com/tawandam/policy-assistant/internal/infrastructure/chunking"
	"github.com/tawandam/policy-assistant/internal/infrastructure/extractor"
	"github.com/tawandam/policy-assistant/internal/infrastructure/storage/localfs"
	"github.com/tawandam/policy-assistant/internal/observability/logging"
)

const service = "ingest"

// Offline batch loader: extracts text from every file in a directory, chunks
// it and upserts the chunks into the vector store. Deterministic chunk ids
// make a rerun over the same files an upsert, not a duplication.
func main() {
	dir := flag.String("dir", "./documents", "directory of policy documents to index")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.NewVectorStore(cfg, bootstrap.NewQueryEmbedder(cfg))
	if err != nil {
		logger.Error("init vector store failed", "error", err)
		os.Exit(1)
	}

	storage, err := localfs.New(*dir)
	if err != nil {
		logger.Error("open document directory failed", "dir", *dir, "error", err)
		os.Exit(1)
	}
	docExtractor := extractor.New(storage)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Error("read document directory failed", "dir", *dir, "error", err)
		os.Exit(1)
	}

	var succeeded, failed int
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		chunkCount, err := indexFile(ctx, docExtractor, chunker, store, entry.Name())
		if err != nil {
			failed++
			logger.Error("index failed", "file", entry.Name(), "error", err)
			continue
		}
		succeeded++
		logger.Info("indexed", "file", entry.Name(), "chunks", chunkCount)
	}

	logger.Info("ingestion finished", "succeeded", succeeded, "failed", failed)
	if succeeded == 0 && failed > 0 {
		os.Exit(1)
	}
}

func indexFile(
	ctx context.Context,
	docExtractor *extractor.Extractor,
	chunker *chunking.Splitter,
	store ports.VectorStore,
	filename string,
) (int, error) {
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          filename,
		Filename:    filename,
		Source:      filename,
		Type:        strings.TrimPrefix(filepath.Ext(filename), "."),
		StoragePath: filename,
		Status:      domain.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	text, err := docExtractor.Extract(ctx, doc)
	if err != nil {
		return 0, err
	}

	chunks := chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk file", os.ErrInvalid)
	}

	if err := store.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
