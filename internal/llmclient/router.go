package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

// TierRouter implements schemas.LLMClient and dispatches each request to the
// client configured for its model tier.
type TierRouter struct {
	logger  *zap.Logger
	clients map[schemas.ModelTier]schemas.LLMClient
}

// NewTierRouter creates a router over the analysis- and coder-tier clients.
func NewTierRouter(logger *zap.Logger, analysisClient, coderClient schemas.LLMClient) (*TierRouter, error) {
	if analysisClient == nil || coderClient == nil {
		return nil, fmt.Errorf("both analysis and coder tier clients must be provided")
	}

	return &TierRouter{
		logger: logger.Named("llm_router"),
		clients: map[schemas.ModelTier]schemas.LLMClient{
			schemas.TierAnalysis: analysisClient,
			schemas.TierCoder:    coderClient,
		},
	}, nil
}

func (r *TierRouter) pick(tier schemas.ModelTier) (schemas.LLMClient, error) {
	if tier == "" {
		tier = schemas.TierAnalysis // Default to the analysis tier if unspecified.
	}
	client, ok := r.clients[tier]
	if !ok {
		return nil, fmt.Errorf("no LLM client configured for tier: %s", tier)
	}
	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))
	return client, nil
}

// Generate dispatches a blocking generation request by tier.
func (r *TierRouter) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	client, err := r.pick(req.Tier)
	if err != nil {
		return "", err
	}
	return client.Generate(ctx, req)
}

// GenerateStream dispatches a streaming generation request by tier.
func (r *TierRouter) GenerateStream(ctx context.Context, req schemas.GenerationRequest, onChunk func(string)) (string, error) {
	client, err := r.pick(req.Tier)
	if err != nil {
		return "", err
	}
	return client.GenerateStream(ctx, req, onChunk)
}

// Close closes every underlying client, returning the first error seen.
func (r *TierRouter) Close() error {
	var firstErr error
	for _, client := range r.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
