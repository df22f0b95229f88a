package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/config"
)

func testSearchConfig(apiKey, endpoint string) config.SearchConfig {
	return config.SearchConfig{
		APIKey:     apiKey,
		Endpoint:   endpoint,
		Depth:      "advanced",
		MaxResults: 5,
		Timeout:    5 * time.Second,
		RateLimit:  100, // Effectively unlimited for tests.
	}
}

func TestTavilyClient_Unconfigured(t *testing.T) {
	client := NewTavilyClient(testSearchConfig("", "http://unused"), zaptest.NewLogger(t))

	assert.False(t, client.Configured())

	_, err := client.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrSearchNotConfigured)
}

func TestTavilyClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{
            "results": [
                {"title": "Go docs", "url": "https://go.dev", "content": "The Go programming language", "score": 0.9},
                {"title": "Go wiki", "url": "https://go.dev/wiki", "content": "Community wiki", "score": 0.7}
            ]
        }`)
	}))
	defer server.Close()

	client := NewTavilyClient(testSearchConfig("test-key", server.URL), zaptest.NewLogger(t))
	require.True(t, client.Configured())

	hits, err := client.Search(context.Background(), "golang", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Go docs", hits[0].Title)
	assert.Equal(t, "https://go.dev", hits[0].URL)
	assert.Equal(t, "The Go programming language", hits[0].Content)
}

func TestTavilyClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewTavilyClient(testSearchConfig("bad-key", server.URL), zaptest.NewLogger(t))

	_, err := client.Search(context.Background(), "golang", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.NotErrorIs(t, err, schemas.ErrSearchNotConfigured)
}

func TestTavilyClient_RateLimiterRespectsContext(t *testing.T) {
	cfg := testSearchConfig("key", "http://unused")
	cfg.RateLimit = 0.001 // Force a long wait.
	client := NewTavilyClient(cfg, zaptest.NewLogger(t))

	// Burn the single burst token.
	client.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, "golang", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
