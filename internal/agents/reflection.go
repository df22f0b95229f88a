// File: internal/agents/reflection.go
package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/llmutil"
	"github.com/xkilldash9x/sage-cli/internal/styles"
)

const reflectionInstruction = `

Perform self-reflection on your initial analysis. Critically evaluate:
1. Strengths of this analysis
2. Potential weaknesses or gaps
3. Improvements that can be made
4. Provide a refined, improved answer

Output JSON with: strengths (list), weaknesses (list), improvements (list), refined_answer (string)`

// ReflectionAgent critiques the initial analysis in deep-thinking mode. The
// refined answer supersedes the initial analysis for presentation but never
// overwrites it. Failures leave the state untouched.
type ReflectionAgent struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewReflectionAgent creates the stage.
func NewReflectionAgent(llm schemas.LLMClient, logger *zap.Logger) *ReflectionAgent {
	return &ReflectionAgent{
		llm:    llm,
		logger: logger.Named("agent.reflection"),
	}
}

// Reflect is a no-op outside deep-thinking mode or when there is nothing to
// reflect on.
func (a *ReflectionAgent) Reflect(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	if state.ProcessingMode != schemas.ModeDeepThinking {
		a.logger.Info("Reflection skipped")
		return state
	}
	if state.InitialAnalysis == "" {
		return state
	}

	response, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: styles.For(state.Language).SystemBase + reflectionInstruction,
		UserPrompt:   fmt.Sprintf("Initial Analysis:\n%s\n\nPerform critical self-reflection.", state.InitialAnalysis),
		Tier:         schemas.TierAnalysis,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		a.logger.Error("Reflection failed", zap.Error(err))
		return state
	}

	result, err := llmutil.ParseJSONResponse[schemas.ReflectionResult](response)
	if err != nil {
		a.logger.Error("Reflection output unparseable", zap.Error(err))
		return state
	}

	state.Reflection = result
	a.logger.Info("Reflection complete",
		zap.Int("strengths", len(result.Strengths)),
		zap.Int("weaknesses", len(result.Weaknesses)))
	return state
}
