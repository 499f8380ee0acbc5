package tavily

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

// Client wraps the Tavily search API. It is the fallback context source for
// questions outside the policy corpus; callers treat its output as best
// effort and the pipeline keeps going when it is empty.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type searchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Search returns web results formatted as title + body pairs in provider
// relevance order, separated by blank lines. A missing key surfaces as
// ErrConfigurationMissing, provider failures as ErrWebSearchUnavailable;
// the caller is expected to absorb both.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (string, error) {
	if c.apiKey == "" {
		return "", domain.WrapError(domain.ErrConfigurationMissing, "web search", fmt.Errorf("tavily api key is not set"))
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	payload := map[string]any{
		"query":       query,
		"max_results": maxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.WrapError(domain.ErrWebSearchUnavailable, "web search", fmt.Errorf("tavily search request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", domain.WrapError(domain.ErrWebSearchUnavailable, "web search", fmt.Errorf("tavily search status: %s: %s", resp.Status, strings.TrimSpace(string(raw))))
	}

	var response struct {
		Results []searchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", domain.WrapError(domain.ErrWebSearchUnavailable, "web search", fmt.Errorf("decode search response: %w", err))
	}

	return formatResults(response.Results, maxResults), nil
}

func formatResults(results []searchResult, maxResults int) string {
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		content := strings.TrimSpace(r.Content)
		switch {
		case title == "" && content == "":
			continue
		case title == "":
			parts = append(parts, content)
		case content == "":
			parts = append(parts, title)
		default:
			parts = append(parts, title+"\n"+content)
		}
	}
	return strings.Join(parts, "\n\n")
}
