package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
)

// Client owns the chunk corpus in a Chroma collection, either a local server
// or Chroma Cloud (tenant/database plus API key). When an embedder is
// supplied, vectors are computed client-side; otherwise the store embeds
// server-side with its collection embedding function.
type Client struct {
	baseURL    string
	apiKey     string
	tenant     string
	database   string
	collection string
	embedder   ports.Embedder
	httpClient *http.Client

	ensureMu     sync.Mutex
	collectionID string
}

type Options struct {
	BaseURL    string
	APIKey     string
	Tenant     string
	Database   string
	Collection string
	Embedder   ports.Embedder
}

func New(opts Options) *Client {
	tenant := opts.Tenant
	if tenant == "" {
		tenant = "default_tenant"
	}
	database := opts.Database
	if database == "" {
		database = "default_database"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		tenant:     tenant,
		database:   database,
		collection: opts.Collection,
		embedder:   opts.Embedder,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.Document, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	collectionID, err := c.ensureCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(chunks))
	metadatas := make([]map[string]any, 0, len(chunks))
	for i := range chunks {
		ids = append(ids, domain.ChunkID(doc.Source, i))
		metadatas = append(metadatas, map[string]any{
			"source":      doc.Source,
			"type":        doc.Type,
			"chunk_index": i,
			"timestamp":   doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	payload := map[string]any{
		"ids":       ids,
		"documents": chunks,
		"metadatas": metadatas,
	}
	if c.embedder != nil {
		vectors, err := c.embedder.Embed(ctx, chunks)
		if err != nil {
			return err
		}
		if len(vectors) != len(chunks) {
			return domain.WrapError(
				domain.ErrEmbeddingUnavailable,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
			)
		}
		payload["embeddings"] = vectors
	}

	// Upsert keeps re-ingestion idempotent: deterministic ids overwrite the
	// previous points for the same source.
	path := fmt.Sprintf("%s/upsert", c.collectionPath(collectionID))
	if err := c.postJSON(ctx, path, payload, nil, "upsert"); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "index chunks", err)
	}
	return nil
}

func (c *Client) Query(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 5
	}

	collectionID, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"n_results": k,
		"include":   []string{"documents", "metadatas", "distances"},
	}
	if c.embedder != nil {
		vector, err := c.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		payload["query_embeddings"] = [][]float32{vector}
	} else {
		payload["query_texts"] = []string{text}
	}

	var response struct {
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]*float64       `json:"distances"`
	}
	path := fmt.Sprintf("%s/query", c.collectionPath(collectionID))
	if err := c.postJSON(ctx, path, payload, &response, "query"); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "query chunks", err)
	}

	if len(response.Documents) == 0 {
		return nil, nil
	}
	docs := response.Documents[0]
	var distances []*float64
	if len(response.Distances) > 0 {
		distances = response.Distances[0]
	}
	var metadatas []map[string]any
	if len(response.Metadatas) > 0 {
		metadatas = response.Metadatas[0]
	}

	// Chroma returns hits closest first; order is preserved.
	out := make([]domain.RetrievedChunk, 0, len(docs))
	for i, docText := range docs {
		// Chroma may return null or omit the distance for a hit. A score
		// we never received must not pass the relevance gate, so it maps
		// to NaN rather than zero.
		chunk := domain.RetrievedChunk{Text: docText, Distance: math.NaN()}
		if i < len(distances) && distances[i] != nil {
			chunk.Distance = *distances[i]
		}
		if i < len(metadatas) {
			chunk.Source = getStringMeta(metadatas[i], "source")
			chunk.Index = getIntMeta(metadatas[i], "chunk_index")
		}
		out = append(out, chunk)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context) (string, error) {
	c.ensureMu.Lock()
	if c.collectionID != "" {
		id := c.collectionID
		c.ensureMu.Unlock()
		return id, nil
	}
	c.ensureMu.Unlock()

	payload := map[string]any{
		"name":          c.collection,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
		"get_or_create": true,
	}
	var response struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
	if err := c.postJSON(ctx, path, payload, &response, "ensure collection"); err != nil {
		return "", domain.WrapError(domain.ErrStoreUnavailable, "ensure collection", err)
	}
	if response.ID == "" {
		return "", domain.WrapError(domain.ErrStoreUnavailable, "ensure collection", fmt.Errorf("empty collection id"))
	}

	c.ensureMu.Lock()
	c.collectionID = response.ID
	c.ensureMu.Unlock()
	return response.ID, nil
}

func (c *Client) collectionPath(collectionID string) string {
	return fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s/collections/%s", c.baseURL, c.tenant, c.database, collectionID)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Chroma-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("chroma %s status: %s: %s", operation, resp.Status, msg)
		}
		return fmt.Errorf("chroma %s status: %s", operation, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringMeta(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntMeta(meta map[string]any, key string) int {
	v, ok := meta[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}
