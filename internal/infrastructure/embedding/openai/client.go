package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

// Client computes embeddings through an OpenAI-compatible embeddings
// endpoint. It is optional: when no provider is configured, the vector store
// embeds server-side instead.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": c.model,
		"input": texts,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed request",
			fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(raw))),
		)
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed request",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Data), len(texts)),
		)
	}

	// Providers are allowed to reorder; index is authoritative.
	out := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embed response index out of range: %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}
