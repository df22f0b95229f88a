package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/config"
	"github.com/xkilldash9x/sage-cli/internal/store"
	"github.com/xkilldash9x/sage-cli/internal/workflow"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

func testHistoryConfig() config.HistoryConfig {
	return config.HistoryConfig{WindowMessages: 10, CharBudget: 200}
}

// scriptedLLM dispatches on instruction markers in the system prompt so one
// stub serves every stage deterministically. It records which stages it
// served, in order.
type scriptedLLM struct {
	mu sync.Mutex

	understanding string
	analysis      string
	reflection    string
	detailed      string
	code          string

	understandingErr error
	analysisErr      error

	served []string
}

func (s *scriptedLLM) dispatch(req schemas.GenerationRequest) (string, string, error) {
	switch {
	case strings.Contains(req.SystemPrompt, "Output ONLY a valid JSON object"):
		return "understanding", s.understanding, s.understandingErr
	case strings.Contains(req.SystemPrompt, "Provide comprehensive initial analysis"):
		return "analysis", s.analysis, s.analysisErr
	case strings.Contains(req.SystemPrompt, "Perform self-reflection"):
		return "reflection", s.reflection, nil
	case strings.Contains(req.SystemPrompt, "Provide detailed technical analysis"):
		return "detailed", s.detailed, nil
	case strings.Contains(req.SystemPrompt, "production-ready code"):
		return "code", s.code, nil
	default:
		return "unknown", "", fmt.Errorf("unscripted request: %s", req.SystemPrompt)
	}
}

func (s *scriptedLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	stage, response, err := s.dispatch(req)
	s.mu.Lock()
	s.served = append(s.served, stage)
	s.mu.Unlock()
	return response, err
}

func (s *scriptedLLM) GenerateStream(_ context.Context, req schemas.GenerationRequest, onChunk func(string)) (string, error) {
	stage, response, err := s.dispatch(req)
	s.mu.Lock()
	s.served = append(s.served, stage)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	// Split into two fragments so consumers see genuinely incremental output.
	runes := []rune(response)
	mid := len(runes) / 2
	if mid > 0 {
		onChunk(string(runes[:mid]))
	}
	onChunk(string(runes[mid:]))
	return response, nil
}

func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) servedStages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.served))
	copy(out, s.served)
	return out
}

func understandingJSON(domain schemas.Domain, requiresSearch, requiresCode bool) string {
	return fmt.Sprintf(`{
        "intent": "test intent",
        "domain": %q,
        "requires_web_search": %t,
        "requires_code": %t,
        "key_concepts": ["concept"],
        "summary": "test summary"
    }`, domain, requiresSearch, requiresCode)
}

func defaultScript(domain schemas.Domain, requiresSearch, requiresCode bool) *scriptedLLM {
	return &scriptedLLM{
		understanding: understandingJSON(domain, requiresSearch, requiresCode),
		analysis:      "the initial analysis body",
		reflection:    `{"strengths": ["clear"], "weaknesses": ["short"], "improvements": ["expand"], "refined_answer": "the refined body"}`,
		detailed:      `{"requirements": ["req-1"], "architecture": "layered", "tech_stack": ["go"], "needs_code": true, "detailed_explanation": "because"}`,
		code:          "TITLE: Widget\nLANGUAGE: go\nCODE:\n```go\npackage widget\n```\nEXPLANATION:\nA widget.\n",
	}
}

type fixedSearch struct {
	hits []schemas.SearchHit
	err  error
}

func (s fixedSearch) Search(context.Context, string, int) ([]schemas.SearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s fixedSearch) Configured() bool { return s.err == nil }

// newTestPipeline assembles a pipeline over stubs and an in-memory store.
func newTestPipeline(t *testing.T, llm schemas.LLMClient, search schemas.SearchClient) (*Pipeline, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	stages := workflow.NewStages(llm, search, testLogger(t))
	p, err := New(stages, repo, testHistoryConfig(), testLogger(t))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return p, repo
}

// drain collects every event from a streaming run.
func drain(events <-chan schemas.StreamEvent) []schemas.StreamEvent {
	var out []schemas.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}
