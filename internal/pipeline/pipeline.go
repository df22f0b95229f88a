// File: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/config"
	"github.com/xkilldash9x/sage-cli/internal/workflow"
)

// maxGraphIterations bounds a single walk. The graph has seven nodes and no
// cycles; anything past this is a topology bug.
const maxGraphIterations = 20

// Pipeline owns the compiled workflow graph and the persistence collaborator.
// It exposes the synchronous Run and the event-streaming RunStreaming; both
// walk the same routers, so their stage sequences are identical by
// construction.
type Pipeline struct {
	graph   *workflow.Graph[*schemas.PipelineState]
	stages  *workflow.Stages
	repo    schemas.Repository
	history config.HistoryConfig
	logger  *zap.Logger
}

// New builds a pipeline over the given collaborators.
func New(stages *workflow.Stages, repo schemas.Repository, history config.HistoryConfig, logger *zap.Logger) (*Pipeline, error) {
	graph, err := workflow.NewPipelineGraph(stages, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline graph: %w", err)
	}

	return &Pipeline{
		graph:   graph,
		stages:  stages,
		repo:    repo,
		history: history,
		logger:  logger.Named("pipeline"),
	}, nil
}

// Run executes one user turn synchronously and returns the composed result.
// Any unexpected failure is converted into an error-shaped result; the caller
// never sees a panic or an unhandled fault.
func (p *Pipeline) Run(ctx context.Context, query, sessionID, language string, deepThinking, webSearch bool) *schemas.RunResult {
	traceID := uuid.NewString()
	start := time.Now()
	mode := schemas.ResolveMode(deepThinking, webSearch)

	log := p.logger.With(zap.String("trace_id", traceID), zap.String("session_id", sessionID))
	log.Info("Pipeline started", zap.String("mode", string(mode)))

	if err := p.repo.AppendMessage(ctx, sessionID, "user", query, nil); err != nil {
		log.Warn("Failed to persist user message", zap.Error(err))
	}

	state := schemas.NewPipelineState(sessionID, query, mode).
		WithLanguage(language).
		WithHistory(p.conversationContext(ctx, sessionID, language))

	finalState, err := p.graph.Execute(ctx, state, maxGraphIterations)
	if err != nil {
		log.Error("Pipeline failed", zap.Error(err))
		errMsg := fmt.Sprintf("Error: %v", err)
		if persistErr := p.repo.AppendMessage(ctx, sessionID, "assistant", errMsg, nil); persistErr != nil {
			log.Warn("Failed to persist error message", zap.Error(persistErr))
		}
		return &schemas.RunResult{
			TraceID:        traceID,
			Answer:         errMsg,
			Err:            err.Error(),
			ProcessingMode: mode,
			Elapsed:        time.Since(start).Seconds(),
		}
	}

	p.persistOutputs(ctx, log, finalState, traceID, mode)

	elapsed := time.Since(start).Seconds()
	log.Info("Pipeline completed", zap.Float64("elapsed_s", elapsed))

	return &schemas.RunResult{
		TraceID:          traceID,
		Answer:           finalState.FinalAnswer,
		Understanding:    finalState.Understanding,
		WebSearchResults: finalState.WebSearchResults,
		Reflection:       finalState.Reflection,
		FinalAnalysis:    finalState.FinalAnalysis,
		Artifacts:        finalState.Artifacts,
		Elapsed:          elapsed,
		ProcessingMode:   mode,
		Err:              finalState.Err,
	}
}

// persistOutputs hands artifacts and the assistant turn to the store.
// Persistence failures are logged, never fatal: the answer already exists.
func (p *Pipeline) persistOutputs(ctx context.Context, log *zap.Logger, state *schemas.PipelineState, traceID string, mode schemas.ProcessingMode) {
	for _, artifact := range state.Artifacts {
		if err := p.repo.SaveArtifact(ctx, state.SessionID, artifact); err != nil {
			log.Warn("Failed to persist artifact", zap.String("title", artifact.Title), zap.Error(err))
		}
	}

	answer := state.FinalAnswer
	if answer == "" {
		answer = "No response generated."
	}
	metadata := map[string]string{"trace_id": traceID, "mode": string(mode)}
	if err := p.repo.AppendMessage(ctx, state.SessionID, "assistant", answer, metadata); err != nil {
		log.Warn("Failed to persist assistant message", zap.Error(err))
	}
}
