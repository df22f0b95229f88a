// File: internal/workflow/routers.go
package workflow

import "github.com/xkilldash9x/sage-cli/api/schemas"

// Node names of the pipeline graph.
const (
	NodeUnderstand       = "understand"
	NodeWebSearch        = "web_search"
	NodeInitialAnalysis  = "initial_analysis"
	NodeReflection       = "reflection"
	NodeDetailedAnalysis = "detailed_analysis"
	NodeCodeGeneration   = "code_generation"
	NodeSynthesis        = "synthesis"
)

// The routers below are the single source of truth for stage ordering. Both
// the compiled graph walk and the streaming step-by-step walk consult them,
// which is what keeps the two execution modes equivalent.

// RouteAfterUnderstanding picks the stage after intent classification.
// Medical and legal queries are always grounded with a web search, even when
// the caller disabled it.
func RouteAfterUnderstanding(state *schemas.PipelineState) string {
	understanding := state.Understanding
	if understanding == nil {
		return NodeSynthesis
	}

	if understanding.Domain.IsRegulated() {
		return NodeWebSearch
	}

	if state.ProcessingMode == schemas.ModeWebSearch || understanding.RequiresWebSearch {
		return NodeWebSearch
	}
	return NodeInitialAnalysis
}

// RouteAfterSearch always continues to the initial analysis.
func RouteAfterSearch(_ *schemas.PipelineState) string {
	return NodeInitialAnalysis
}

// RouteAfterInitialAnalysis branches into reflection for deep-thinking mode,
// detailed analysis for code-bearing queries, otherwise straight to
// synthesis. A fatal analysis error skips everything but synthesis.
func RouteAfterInitialAnalysis(state *schemas.PipelineState) string {
	if state.Failed() {
		return NodeSynthesis
	}
	if state.ProcessingMode == schemas.ModeDeepThinking {
		return NodeReflection
	}
	if u := state.Understanding; u != nil && u.RequiresCode {
		return NodeDetailedAnalysis
	}
	return NodeSynthesis
}

// RouteAfterReflection continues into detailed analysis when the query needs
// code, otherwise to synthesis.
func RouteAfterReflection(state *schemas.PipelineState) string {
	if u := state.Understanding; u != nil && u.RequiresCode {
		return NodeDetailedAnalysis
	}
	return NodeSynthesis
}

// RouteAfterDetailedAnalysis gates code generation on the structured
// analysis's own verdict.
func RouteAfterDetailedAnalysis(state *schemas.PipelineState) string {
	if fa := state.FinalAnalysis; fa != nil && fa.NeedsCode {
		return NodeCodeGeneration
	}
	return NodeSynthesis
}
