package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	vectorDB  ports.VectorStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	vectorDB ports.VectorStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		vectorDB:  vectorDB,
	}
}

// ProcessByID extracts, chunks and indexes one uploaded document, flipping the
// registry status to processing, then ready or failed.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetChunkCount(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set chunk count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
