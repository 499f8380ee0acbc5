package chromem

import (
	"context"
	"fmt"
	"math"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
)

// Store is an embedded vector store for local development and tests. It keeps
// the same contract as the Chroma client without a running server.
type Store struct {
	collection *chromemgo.Collection
}

func New(collectionName string, embedder ports.Embedder) (*Store, error) {
	db := chromemgo.NewDB()

	embedFunc := localEmbedding
	if embedder != nil {
		embedFunc = func(ctx context.Context, text string) ([]float32, error) {
			return embedder.EmbedQuery(ctx, text)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, chromemgo.EmbeddingFunc(embedFunc))
	if err != nil {
		return nil, fmt.Errorf("create chromem collection: %w", err)
	}
	return &Store{collection: collection}, nil
}

func (s *Store) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromemgo.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromemgo.Document{
			ID:      domain.ChunkID(doc.Source, i),
			Content: chunk,
			Metadata: map[string]string{
				"source":      doc.Source,
				"type":        doc.Type,
				"chunk_index": fmt.Sprintf("%d", i),
				"timestamp":   doc.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "index chunks", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 5
	}
	// chromem rejects nResults above the collection size.
	if count := s.collection.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query chunks", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(results))
	for _, r := range results {
		var index int
		fmt.Sscanf(r.Metadata["chunk_index"], "%d", &index)
		out = append(out, domain.RetrievedChunk{
			Source: r.Metadata["source"],
			Index:  index,
			Text:   r.Content,
			// chromem reports cosine similarity; the pipeline works in
			// cosine distance, lower is closer.
			Distance: 1 - float64(r.Similarity),
		})
	}
	return out, nil
}

// localEmbedding is a deterministic character-trigram embedding used when no
// provider is configured. It is not semantically meaningful, but it gives the
// embedded backend stable nearest-neighbour behaviour offline.
func localEmbedding(_ context.Context, text string) ([]float32, error) {
	const dims = 256

	vec := make([]float32, dims)
	runes := []rune(text)
	for i := 0; i+2 < len(runes); i++ {
		h := uint32(17)
		for _, r := range runes[i : i+3] {
			h = h*31 + uint32(r)
		}
		vec[h%dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
