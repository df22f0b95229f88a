// -- internal/llmclient/factory.go --
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/config"
)

// NewRouterFromConfig builds the two tier clients from configuration and
// wires them behind a TierRouter.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	analysisClient, err := NewGoogleClient(cfg.Analysis, logger)
	if err != nil {
		return nil, fmt.Errorf("analysis tier: %w", err)
	}

	coderClient, err := NewGoogleClient(cfg.Coder, logger)
	if err != nil {
		return nil, fmt.Errorf("coder tier: %w", err)
	}

	return NewTierRouter(logger, analysisClient, coderClient)
}
