package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

func TestRunStreaming_EventProtocol(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, false, false)
	p, repo := newTestPipeline(t, llm, fixedSearch{})
	sessionID := newSession(t, repo)

	events := drain(p.RunStreaming(context.Background(), "hello", sessionID, "", false, false))
	require.NotEmpty(t, events)

	// The first event narrates the understanding stage.
	assert.Equal(t, schemas.EventStatus, events[0].Type)
	assert.Equal(t, schemas.StepUnderstanding, events[0].Step)

	// Exactly one terminal event, and it is the last one.
	var terminals int
	for _, ev := range events {
		if ev.Type == schemas.EventFinal || ev.Type == schemas.EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)

	last := events[len(events)-1]
	require.Equal(t, schemas.EventFinal, last.Type)
	require.NotNil(t, last.Metadata)
	assert.NotEmpty(t, last.Metadata.TraceID)
	assert.NotNil(t, last.Metadata.Understanding)
}

func TestRunStreaming_ContentFragmentsConcatenate(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, false, false)
	p, repo := newTestPipeline(t, llm, fixedSearch{})
	sessionID := newSession(t, repo)

	events := drain(p.RunStreaming(context.Background(), "hello", sessionID, "", false, false))

	var fragments []string
	for _, ev := range events {
		if ev.Type == schemas.EventContent {
			fragments = append(fragments, ev.Content)
		}
	}
	require.NotEmpty(t, fragments)
	assert.Equal(t, "the initial analysis body", strings.Join(fragments, ""))
}

func TestRunStreaming_MatchesSynchronousRun(t *testing.T) {
	cases := []struct {
		name         string
		domain       schemas.Domain
		search       bool
		code         bool
		deepThinking bool
	}{
		{"basic general", schemas.DomainGeneral, false, false, false},
		{"basic with code", schemas.DomainArchDev, false, true, false},
		{"deep thinking", schemas.DomainGeneral, false, false, true},
		{"deep thinking with code", schemas.DomainArchDev, false, true, true},
		{"medical forced search", schemas.DomainMedical, true, false, false},
	}

	searchClient := fixedSearch{hits: []schemas.SearchHit{{Title: "Hit", URL: "https://h", Content: "content"}}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syncLLM := defaultScript(tc.domain, tc.search, tc.code)
			syncPipe, syncRepo := newTestPipeline(t, syncLLM, searchClient)
			syncResult := syncPipe.Run(context.Background(), "the query", newSession(t, syncRepo), "", tc.deepThinking, false)

			streamLLM := defaultScript(tc.domain, tc.search, tc.code)
			streamPipe, streamRepo := newTestPipeline(t, streamLLM, searchClient)
			events := drain(streamPipe.RunStreaming(context.Background(), "the query", newSession(t, streamRepo), "", tc.deepThinking, false))

			require.Empty(t, syncResult.Err)
			last := events[len(events)-1]
			require.Equal(t, schemas.EventFinal, last.Type)

			// Identical final answer and identical stage sequence.
			assert.Equal(t, syncResult.Answer, last.Content)
			assert.Equal(t, syncLLM.servedStages(), streamLLM.servedStages())
			assert.Equal(t, len(syncResult.Artifacts), len(last.Metadata.Artifacts))
		})
	}
}

func TestRunStreaming_FatalUnderstandingEmitsError(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, false, false)
	llm.understandingErr = errors.New("model unreachable")
	p, repo := newTestPipeline(t, llm, fixedSearch{})
	sessionID := newSession(t, repo)

	events := drain(p.RunStreaming(context.Background(), "q", sessionID, "", false, false))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, schemas.EventError, last.Type)
	assert.Contains(t, last.Content, "理解分析错误")

	for _, ev := range events {
		assert.NotEqual(t, schemas.EventFinal, ev.Type, "no final event after a fatal error")
	}

	// The failed turn was still recorded.
	msgs, err := repo.GetMessages(context.Background(), sessionID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Error: "))
}

func TestRunStreaming_FatalAnalysisEmitsError(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, false, false)
	llm.analysisErr = errors.New("stream cut")
	p, repo := newTestPipeline(t, llm, fixedSearch{})
	sessionID := newSession(t, repo)

	events := drain(p.RunStreaming(context.Background(), "q", sessionID, "", false, false))

	last := events[len(events)-1]
	require.Equal(t, schemas.EventError, last.Type)
	assert.Contains(t, last.Content, "Analysis error")
}

func TestRunStreaming_SearchStatusNarration(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, true, false)
	searchClient := fixedSearch{hits: []schemas.SearchHit{{Title: "A"}, {Title: "B"}}}
	p, repo := newTestPipeline(t, llm, searchClient)
	sessionID := newSession(t, repo)

	events := drain(p.RunStreaming(context.Background(), "q", sessionID, "", false, true))

	var steps []string
	for _, ev := range events {
		if ev.Type == schemas.EventStatus {
			steps = append(steps, ev.Step)
		}
	}
	assert.Contains(t, steps, schemas.StepSearching)
	assert.Contains(t, steps, schemas.StepSearchDone)
}

func TestRunStreaming_CancelledConsumer(t *testing.T) {
	llm := defaultScript(schemas.DomainGeneral, false, false)
	p, repo := newTestPipeline(t, llm, fixedSearch{})
	sessionID := newSession(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	events := p.RunStreaming(ctx, "q", sessionID, "", false, false)

	// Read one event, then walk away.
	<-events
	cancel()

	// The producer goroutine must close the channel rather than block.
	for range events {
	}
}
