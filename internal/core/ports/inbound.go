package ports

import (
	"context"
	"io"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

// ChatService is the inbound contract for the question-answering pipeline.
type ChatService interface {
	Answer(ctx context.Context, question string, history []domain.ConversationTurn) (*domain.ChatAnswer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
