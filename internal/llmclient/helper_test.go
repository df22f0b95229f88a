package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sage-cli/internal/config"
)

// setupTestLogger returns a logger wired to the test's output.
func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// validModelConfig returns a minimal working model configuration.
func validModelConfig() config.LLMModelConfig {
	return config.LLMModelConfig{
		Model:       "gemini-2.5-pro",
		APIKey:      "test-api-key",
		APITimeout:  5 * time.Second,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// validLLMConfig returns a two-tier configuration built on validModelConfig.
func validLLMConfig() config.LLMConfig {
	coder := validModelConfig()
	coder.Model = "gemini-2.5-flash"
	return config.LLMConfig{
		Analysis: validModelConfig(),
		Coder:    coder,
	}
}
