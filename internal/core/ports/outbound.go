package ports

import (
	"context"
	"io"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document registry state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-uploaded events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into retrieval units.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text. Optional: when absent,
// the vector store embeds server-side.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore owns the chunk corpus. Query results come back in ascending
// distance order (closest first).
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string) error
	Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error)
}

// QuestionClassifier labels a question as policy-scoped or general.
type QuestionClassifier interface {
	Classify(ctx context.Context, question string) (domain.QuestionLabel, error)
}

// WebSearcher returns formatted web context, or empty when the provider is
// unavailable. It never fails the request.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) (string, error)
}

// AnswerGenerator invokes the chat-completion API.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemPrompt string, history []domain.ConversationTurn, question string, temperature float64) (string, error)
	Configured() bool
}
