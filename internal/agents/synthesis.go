// File: internal/agents/synthesis.go
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/styles"
)

// errorAnswerPrefix opens the final answer when the run failed.
const errorAnswerPrefix = "Error: "

// SynthesisAgent deterministically composes the final answer from whatever
// the earlier stages produced. It calls no collaborator, always runs, is
// idempotent for a given state, and is the only writer of FinalAnswer.
type SynthesisAgent struct {
	logger *zap.Logger
}

// NewSynthesisAgent creates the stage.
func NewSynthesisAgent(logger *zap.Logger) *SynthesisAgent {
	return &SynthesisAgent{logger: logger.Named("agent.synthesis")}
}

// Synthesize assembles the answer in fixed section order. An error state
// short-circuits to a bare error message.
func (a *SynthesisAgent) Synthesize(_ context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	if state.Failed() {
		state.FinalAnswer = errorAnswerPrefix + state.Err
		return state
	}

	var parts []string

	if u := state.Understanding; u != nil {
		parts = append(parts, "### 需求理解 / Understanding\n")
		parts = append(parts, fmt.Sprintf("**意图:** %s", u.Intent))
		parts = append(parts, fmt.Sprintf("**领域:** %s", u.Domain))
		parts = append(parts, fmt.Sprintf("**关键概念:** %s\n", strings.Join(u.KeyConcepts, ", ")))
	}

	if w := state.WebSearchResults; w != nil && len(w.Results) > 0 {
		parts = append(parts, "\n### 网络搜索结果 / Web Search Results\n")
		for i, hit := range w.Results {
			if i >= 3 {
				break
			}
			title := hit.Title
			if title == "" {
				title = "Untitled"
			}
			parts = append(parts, fmt.Sprintf("%d. **%s**", i+1, title))
			parts = append(parts, fmt.Sprintf("   %s", hit.URL))
			parts = append(parts, fmt.Sprintf("   %s...\n", firstRunes(hit.Content, snippetLen)))
		}
	}

	// The refined answer supersedes the initial analysis when present.
	if r := state.Reflection; r != nil {
		parts = append(parts, "\n### 深度分析（经过反思优化）/ Deep Analysis (Refined)\n")
		parts = append(parts, "\n**反思过程:**")
		parts = append(parts, fmt.Sprintf("- ✅ **优势:** %s", strings.Join(headOf(r.Strengths, 2), ", ")))
		parts = append(parts, fmt.Sprintf("- ⚠️ **改进点:** %s", strings.Join(headOf(r.Weaknesses, 2), ", ")))
		parts = append(parts, "\n**最终分析结果:**\n")
		parts = append(parts, r.RefinedAnswer)
	} else if state.InitialAnalysis != "" {
		parts = append(parts, "\n### 分析结果 / Analysis\n")
		parts = append(parts, state.InitialAnalysis)
	}

	if fa := state.FinalAnalysis; fa != nil {
		parts = append(parts, "\n---\n")
		parts = append(parts, "\n### 技术方案 / Technical Solution\n")
		parts = append(parts, "**需求清单:**")
		for _, req := range fa.Requirements {
			parts = append(parts, fmt.Sprintf("- %s", req))
		}
		if fa.Architecture != "" {
			parts = append(parts, fmt.Sprintf("\n**系统架构:**\n%s", fa.Architecture))
		}
		if len(fa.TechStack) > 0 {
			parts = append(parts, fmt.Sprintf("\n**技术栈:** %s", strings.Join(fa.TechStack, ", ")))
		}
		if fa.DetailedExplanation != "" {
			parts = append(parts, fmt.Sprintf("\n**详细说明:**\n%s", fa.DetailedExplanation))
		}
	}

	if len(state.Artifacts) > 0 {
		parts = append(parts, "\n---\n")
		parts = append(parts, "\n### 代码实现 / Code Implementation\n")
		for i, artifact := range state.Artifacts {
			parts = append(parts, fmt.Sprintf("\n**%d. %s**\n", i+1, artifact.Title))
			parts = append(parts, fmt.Sprintf("```%s\n%s\n```\n", artifact.Language, artifact.Code))
			if artifact.Explanation != "" {
				parts = append(parts, fmt.Sprintf("**说明:** %s\n", artifact.Explanation))
			}
			if len(artifact.Dependencies) > 0 {
				parts = append(parts, fmt.Sprintf("**依赖项:** `%s`\n", strings.Join(artifact.Dependencies, " | ")))
			}
		}
	}

	// Regulated domains always close with their disclaimer.
	if disclaimer := styles.Disclaimer(state.Language, state.Domain); disclaimer != "" {
		parts = append(parts, disclaimer)
	}

	state.FinalAnswer = strings.Join(parts, "\n")
	a.logger.Info("Synthesis complete", zap.Int("answer_chars", len(state.FinalAnswer)))
	return state
}

// headOf returns the first n elements of items, fewer if not available.
func headOf(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
