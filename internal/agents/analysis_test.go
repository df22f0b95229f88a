package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

func TestBuildContext_FixedOrder(t *testing.T) {
	state := newState("how do goroutines work", schemas.ModeBasic)
	state.ConversationHistory = "用户: previous question"
	state.Understanding = &schemas.UnderstandingResult{
		Intent:      "explain concurrency",
		KeyConcepts: []string{"goroutines", "scheduler"},
	}
	state.WebSearchResults = &schemas.WebSearchResult{
		Results: []schemas.SearchHit{{Title: "t"}},
		Summary: "1. t: snippet...",
	}

	ctx := buildContext(state)

	queryIdx := strings.Index(ctx, "User Query:")
	historyIdx := strings.Index(ctx, "Conversation History:")
	intentIdx := strings.Index(ctx, "Intent:")
	searchIdx := strings.Index(ctx, "Web Search Results:")

	require.NotEqual(t, -1, queryIdx)
	require.NotEqual(t, -1, historyIdx)
	require.NotEqual(t, -1, intentIdx)
	require.NotEqual(t, -1, searchIdx)
	assert.Less(t, queryIdx, historyIdx)
	assert.Less(t, historyIdx, intentIdx)
	assert.Less(t, intentIdx, searchIdx)
}

func TestBuildContext_OmitsEmptySections(t *testing.T) {
	state := newState("hello", schemas.ModeBasic)

	ctx := buildContext(state)

	assert.Contains(t, ctx, "User Query: hello")
	assert.NotContains(t, ctx, "Conversation History")
	assert.NotContains(t, ctx, "Web Search Results")
}

func TestAnalyze_WritesInitialAnalysis(t *testing.T) {
	llm := &stubLLM{response: "a thorough analysis"}
	agent := NewInitialAnalysisAgent(llm, testLogger(t))

	state := agent.Analyze(context.Background(), newState("q", schemas.ModeBasic))

	require.False(t, state.Failed())
	assert.Equal(t, "a thorough analysis", state.InitialAnalysis)
	require.Len(t, llm.requests, 1)
	assert.Equal(t, schemas.TierAnalysis, llm.requests[0].Tier)
}

func TestAnalyze_FailureIsFatal(t *testing.T) {
	llm := &stubLLM{err: errors.New("timeout")}
	agent := NewInitialAnalysisAgent(llm, testLogger(t))

	state := agent.Analyze(context.Background(), newState("q", schemas.ModeBasic))

	require.True(t, state.Failed())
	assert.Contains(t, state.Err, "Analysis error")
	assert.Empty(t, state.InitialAnalysis)
}

func TestAnalyzeStreaming_MatchesBlockingForm(t *testing.T) {
	state1 := newState("q", schemas.ModeBasic)
	state2 := newState("q", schemas.ModeBasic)

	blocking := NewInitialAnalysisAgent(&stubLLM{response: "same text"}, testLogger(t))
	streaming := NewInitialAnalysisAgent(&stubLLM{response: "same text"}, testLogger(t))

	blocking.Analyze(context.Background(), state1)

	var fragments []string
	streaming.AnalyzeStreaming(context.Background(), state2, func(f string) {
		fragments = append(fragments, f)
	})

	assert.Equal(t, state1.InitialAnalysis, state2.InitialAnalysis)
	assert.Equal(t, state2.InitialAnalysis, strings.Join(fragments, ""))
}

func TestAnalyzeStreaming_FailureIsFatal(t *testing.T) {
	agent := NewInitialAnalysisAgent(&stubLLM{err: errors.New("stream cut")}, testLogger(t))

	state := newState("q", schemas.ModeBasic)
	agent.AnalyzeStreaming(context.Background(), state, func(string) {})

	require.True(t, state.Failed())
	assert.Contains(t, state.Err, "Analysis error")
}

func TestDetailedAnalyze_SkippedWithoutCodeRequirement(t *testing.T) {
	llm := &stubLLM{response: "{}"}
	agent := NewDetailedAnalysisAgent(llm, testLogger(t))

	state := newState("q", schemas.ModeBasic)
	state.Understanding = &schemas.UnderstandingResult{RequiresCode: false}
	agent.Analyze(context.Background(), state)

	assert.Nil(t, state.FinalAnalysis)
	assert.Empty(t, llm.requests)
}

func TestDetailedAnalyze_ParsesStructuredBreakdown(t *testing.T) {
	llm := &stubLLM{response: `{
        "requirements": ["parse html", "rate limit"],
        "architecture": "worker pool",
        "tech_stack": ["go", "colly"],
        "needs_code": true,
        "detailed_explanation": "details"
    }`}
	agent := NewDetailedAnalysisAgent(llm, testLogger(t))

	state := newState("build a scraper", schemas.ModeBasic)
	state.Understanding = &schemas.UnderstandingResult{RequiresCode: true}
	state.InitialAnalysis = "initial take"
	agent.Analyze(context.Background(), state)

	require.NotNil(t, state.FinalAnalysis)
	assert.True(t, state.FinalAnalysis.NeedsCode)
	assert.Equal(t, []string{"parse html", "rate limit"}, state.FinalAnalysis.Requirements)

	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].UserPrompt, "Initial Analysis: initial take")
	assert.True(t, llm.requests[0].Options.ForceJSONFormat)
}

func TestDetailedAnalyze_FailureSwallowed(t *testing.T) {
	agent := NewDetailedAnalysisAgent(&stubLLM{err: errors.New("boom")}, testLogger(t))

	state := newState("q", schemas.ModeBasic)
	state.Understanding = &schemas.UnderstandingResult{RequiresCode: true}
	agent.Analyze(context.Background(), state)

	assert.Nil(t, state.FinalAnalysis)
	assert.False(t, state.Failed(), "detailed analysis failures never abort the run")
}

func TestDetailedAnalyze_UnparseableOutputSwallowed(t *testing.T) {
	agent := NewDetailedAnalysisAgent(&stubLLM{response: "not json at all"}, testLogger(t))

	state := newState("q", schemas.ModeBasic)
	state.Understanding = &schemas.UnderstandingResult{RequiresCode: true}
	agent.Analyze(context.Background(), state)

	assert.Nil(t, state.FinalAnalysis)
	assert.False(t, state.Failed())
}
