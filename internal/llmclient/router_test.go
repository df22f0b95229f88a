package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

// recordingClient remembers which requests reached it.
type recordingClient struct {
	name     string
	requests []schemas.GenerationRequest
	closed   bool
}

func (c *recordingClient) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	c.requests = append(c.requests, req)
	return c.name, nil
}

func (c *recordingClient) GenerateStream(_ context.Context, req schemas.GenerationRequest, onChunk func(string)) (string, error) {
	c.requests = append(c.requests, req)
	onChunk(c.name)
	return c.name, nil
}

func (c *recordingClient) Close() error {
	c.closed = true
	return nil
}

func TestTierRouter_DispatchByTier(t *testing.T) {
	analysis := &recordingClient{name: "analysis"}
	coder := &recordingClient{name: "coder"}

	router, err := NewTierRouter(setupTestLogger(t), analysis, coder)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: schemas.TierCoder})
	require.NoError(t, err)
	assert.Equal(t, "coder", out)
	assert.Len(t, coder.requests, 1)
	assert.Empty(t, analysis.requests)
}

func TestTierRouter_EmptyTierDefaultsToAnalysis(t *testing.T) {
	analysis := &recordingClient{name: "analysis"}
	coder := &recordingClient{name: "coder"}

	router, err := NewTierRouter(setupTestLogger(t), analysis, coder)
	require.NoError(t, err)

	out, err := router.Generate(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "analysis", out)
}

func TestTierRouter_StreamDispatch(t *testing.T) {
	analysis := &recordingClient{name: "analysis"}
	coder := &recordingClient{name: "coder"}

	router, err := NewTierRouter(setupTestLogger(t), analysis, coder)
	require.NoError(t, err)

	var chunks []string
	out, err := router.GenerateStream(context.Background(), schemas.GenerationRequest{Tier: schemas.TierAnalysis}, func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis", out)
	assert.Equal(t, []string{"analysis"}, chunks)
}

func TestTierRouter_CloseClosesAll(t *testing.T) {
	analysis := &recordingClient{name: "analysis"}
	coder := &recordingClient{name: "coder"}

	router, err := NewTierRouter(setupTestLogger(t), analysis, coder)
	require.NoError(t, err)

	require.NoError(t, router.Close())
	assert.True(t, analysis.closed)
	assert.True(t, coder.closed)
}

func TestTierRouter_RequiresBothClients(t *testing.T) {
	_, err := NewTierRouter(setupTestLogger(t), nil, &recordingClient{})
	assert.Error(t, err)
}

func TestNewRouterFromConfig(t *testing.T) {
	t.Run("builds both tiers", func(t *testing.T) {
		cfg := validLLMConfig()
		router, err := NewRouterFromConfig(cfg, setupTestLogger(t))
		require.NoError(t, err)
		require.NotNil(t, router)
	})

	t.Run("fails without coder key", func(t *testing.T) {
		cfg := validLLMConfig()
		cfg.Coder.APIKey = ""
		_, err := NewRouterFromConfig(cfg, setupTestLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "coder tier")
	})
}
