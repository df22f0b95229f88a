// File: internal/agents/analysis.go
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/llmutil"
	"github.com/xkilldash9x/sage-cli/internal/styles"
)

// InitialAnalysisAgent produces the free-text first-pass analysis. It is a
// critical stage: a collaborator failure sets state.Err and short-circuits
// the rest of the run.
type InitialAnalysisAgent struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewInitialAnalysisAgent creates the stage.
func NewInitialAnalysisAgent(llm schemas.LLMClient, logger *zap.Logger) *InitialAnalysisAgent {
	return &InitialAnalysisAgent{
		llm:    llm,
		logger: logger.Named("agent.analysis"),
	}
}

// buildContext assembles the analysis context in fixed order: query, prior
// conversation, understanding, then search summary. Both execution forms use
// this so their information content is identical.
func buildContext(state *schemas.PipelineState) string {
	parts := []string{fmt.Sprintf("User Query: %s", state.Query)}

	if state.ConversationHistory != "" {
		parts = append(parts, fmt.Sprintf("\nConversation History:\n%s", state.ConversationHistory))
	}

	if u := state.Understanding; u != nil {
		parts = append(parts, fmt.Sprintf("\nIntent: %s", u.Intent))
		parts = append(parts, fmt.Sprintf("Key Concepts: %s", strings.Join(u.KeyConcepts, ", ")))
	}

	if w := state.WebSearchResults; w != nil && len(w.Results) > 0 {
		parts = append(parts, fmt.Sprintf("\nWeb Search Results:\n%s", w.Summary))
	}

	return strings.Join(parts, "\n")
}

func analysisSystemPrompt(language string) string {
	return styles.For(language).SystemBase +
		"\n\nProvide comprehensive initial analysis based on the query and available information. " +
		"Remember the conversation context to provide coherent responses."
}

// Analyze is the blocking form: one call, full text into state.
func (a *InitialAnalysisAgent) Analyze(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	result, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: analysisSystemPrompt(state.Language),
		UserPrompt:   buildContext(state),
		Tier:         schemas.TierAnalysis,
	})
	if err != nil {
		a.logger.Error("Analysis failed", zap.Error(err))
		state.Err = fmt.Sprintf("Analysis error: %v", err)
		return state
	}

	state.InitialAnalysis = result
	a.logger.Info("Initial analysis complete", zap.Int("chars", len(result)))
	return state
}

// AnalyzeStreaming is the incremental form: fragments are forwarded to
// onFragment in generation order and the concatenated text lands in the
// state, exactly as the blocking form would have written it. A failure sets
// state.Err instead of propagating.
func (a *InitialAnalysisAgent) AnalyzeStreaming(ctx context.Context, state *schemas.PipelineState, onFragment func(string)) *schemas.PipelineState {
	full, err := a.llm.GenerateStream(ctx, schemas.GenerationRequest{
		SystemPrompt: analysisSystemPrompt(state.Language),
		UserPrompt:   buildContext(state),
		Tier:         schemas.TierAnalysis,
	}, onFragment)
	if err != nil {
		a.logger.Error("Streaming analysis failed", zap.Error(err))
		state.Err = fmt.Sprintf("Analysis error: %v", err)
		return state
	}

	state.InitialAnalysis = full
	a.logger.Info("Streaming analysis complete", zap.Int("chars", len(full)))
	return state
}

const detailedAnalysisInstruction = `

Provide detailed technical analysis for Arch/DEV tasks.

Output JSON with:
- requirements: Detailed requirements list
- architecture: Architecture description
- tech_stack: Recommended technologies
- clarifications: Questions needing clarification
- needs_code: true if code generation needed
- detailed_explanation: In-depth technical explanation`

// DetailedAnalysisAgent produces the structured technical breakdown for
// queries that need code. Failures are swallowed: the stage is best-effort
// enrichment, not a required step.
type DetailedAnalysisAgent struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewDetailedAnalysisAgent creates the stage.
func NewDetailedAnalysisAgent(llm schemas.LLMClient, logger *zap.Logger) *DetailedAnalysisAgent {
	return &DetailedAnalysisAgent{
		llm:    llm,
		logger: logger.Named("agent.detailed_analysis"),
	}
}

// Analyze runs only when the understanding asked for code; otherwise it is a
// pass-through. On any failure the state is left unchanged.
func (a *DetailedAnalysisAgent) Analyze(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	understanding := state.Understanding
	if understanding == nil || !understanding.RequiresCode {
		a.logger.Info("Detailed analysis skipped")
		return state
	}

	contextStr := fmt.Sprintf("Query: %s\n\nInitial Analysis: %s", state.Query, state.InitialAnalysis)
	if state.ConversationHistory != "" {
		contextStr = fmt.Sprintf("Conversation History:\n%s\n\n%s", state.ConversationHistory, contextStr)
	}

	response, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: styles.For(state.Language).SystemBase + detailedAnalysisInstruction,
		UserPrompt:   contextStr,
		Tier:         schemas.TierAnalysis,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		a.logger.Error("Detailed analysis failed", zap.Error(err))
		return state
	}

	result, err := llmutil.ParseJSONResponse[schemas.AnalysisResult](response)
	if err != nil {
		a.logger.Error("Detailed analysis output unparseable", zap.Error(err))
		return state
	}

	state.FinalAnalysis = result
	a.logger.Info("Detailed analysis complete", zap.Bool("needs_code", result.NeedsCode))
	return state
}
