// File: internal/search/tavily.go
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/config"
)

// TavilyClient implements schemas.SearchClient against the Tavily REST API.
// An empty API key puts the client in the unconfigured state, which callers
// treat as a degraded result rather than a failure.
type TavilyClient struct {
	apiKey     string
	endpoint   string
	depth      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// NewTavilyClient creates a search client from configuration.
func NewTavilyClient(cfg config.SearchConfig, logger *zap.Logger) *TavilyClient {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 2.0
	}

	return &TavilyClient{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		depth:    cfg.Depth,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		logger:  logger.Named("search.tavily"),
	}
}

// Configured reports whether the provider has credentials.
func (c *TavilyClient) Configured() bool {
	return c.apiKey != ""
}

// Search queries the provider and returns up to maxResults ranked hits.
// Returns schemas.ErrSearchNotConfigured when no API key was supplied.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]schemas.SearchHit, error) {
	if !c.Configured() {
		return nil, schemas.ErrSearchNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		SearchDepth: c.depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Search provider returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(respBody)))
		return nil, fmt.Errorf("search provider error: status %d", resp.StatusCode)
	}

	var payload tavilyResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]schemas.SearchHit, 0, len(payload.Results))
	for _, r := range payload.Results {
		hits = append(hits, schemas.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}

	c.logger.Info("Search complete", zap.String("query", query), zap.Int("hits", len(hits)))
	return hits, nil
}
