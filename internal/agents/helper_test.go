package agents

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// stubLLM returns a canned response (or error) and records the requests it
// saw.
type stubLLM struct {
	response string
	err      error
	requests []schemas.GenerationRequest
}

func (s *stubLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) GenerateStream(_ context.Context, req schemas.GenerationRequest, onChunk func(string)) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	onChunk(s.response)
	return s.response, nil
}

func (s *stubLLM) Close() error { return nil }

// stubSearch returns canned hits or an error.
type stubSearch struct {
	hits []schemas.SearchHit
	err  error
}

func (s *stubSearch) Search(_ context.Context, _ string, _ int) ([]schemas.SearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s *stubSearch) Configured() bool { return s.err == nil }

func newState(query string, mode schemas.ProcessingMode) *schemas.PipelineState {
	return schemas.NewPipelineState("session-1", query, mode)
}
