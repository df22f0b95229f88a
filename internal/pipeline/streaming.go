// File: internal/pipeline/streaming.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/workflow"
)

// RunStreaming executes one user turn as a cooperative walk that yields
// events on the returned channel: status narration, analysis fragments, and
// exactly one terminal event (final, or error with no final after it). The
// channel is closed when the run finishes or ctx is cancelled.
//
// The walker steps node by node but resolves every transition through
// graph.Next, i.e. through the same router functions the synchronous walk
// uses. The stage sequence of the two modes therefore cannot drift.
func (p *Pipeline) RunStreaming(ctx context.Context, query, sessionID, language string, deepThinking, webSearch bool) <-chan schemas.StreamEvent {
	events := make(chan schemas.StreamEvent)

	go func() {
		defer close(events)
		p.streamRun(ctx, events, query, sessionID, language, deepThinking, webSearch)
	}()

	return events
}

// emit sends one event, abandoning the run if the consumer is gone.
func emit(ctx context.Context, events chan<- schemas.StreamEvent, ev schemas.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func status(ctx context.Context, events chan<- schemas.StreamEvent, step, content string) bool {
	return emit(ctx, events, schemas.StreamEvent{Type: schemas.EventStatus, Step: step, Content: content})
}

func (p *Pipeline) streamRun(ctx context.Context, events chan<- schemas.StreamEvent, query, sessionID, language string, deepThinking, webSearch bool) {
	traceID := uuid.NewString()
	start := time.Now()
	mode := schemas.ResolveMode(deepThinking, webSearch)

	log := p.logger.With(zap.String("trace_id", traceID), zap.String("session_id", sessionID))
	log.Info("Pipeline streaming started", zap.String("mode", string(mode)))

	if err := p.repo.AppendMessage(ctx, sessionID, "user", query, nil); err != nil {
		log.Warn("Failed to persist user message", zap.Error(err))
	}

	state := schemas.NewPipelineState(sessionID, query, mode).
		WithLanguage(language).
		WithHistory(p.conversationContext(ctx, sessionID, language))

	current := workflow.NodeUnderstand
	for i := 0; current != workflow.GraphEnd && i < maxGraphIterations; i++ {
		if ctx.Err() != nil {
			return
		}

		if !p.runStreamingNode(ctx, events, current, state) {
			// Terminal error event already emitted; persist the failure turn.
			if state.Err != "" {
				if err := p.repo.AppendMessage(ctx, sessionID, "assistant", "Error: "+state.Err, nil); err != nil {
					log.Warn("Failed to persist error message", zap.Error(err))
				}
			}
			return
		}

		next, err := p.graph.Next(current, state)
		if err != nil {
			log.Error("Pipeline streaming failed", zap.Error(err))
			emit(ctx, events, schemas.StreamEvent{Type: schemas.EventError, Content: fmt.Sprintf("处理出错: %v", err)})
			return
		}
		current = next
	}

	p.persistOutputs(ctx, log, state, traceID, mode)

	answer := state.FinalAnswer
	if answer == "" {
		answer = "No response generated."
	}

	elapsed := time.Since(start).Seconds()
	log.Info("Pipeline streaming completed", zap.Float64("elapsed_s", elapsed))

	emit(ctx, events, schemas.StreamEvent{
		Type:    schemas.EventFinal,
		Content: answer,
		Metadata: &schemas.RunMetadata{
			TraceID:       traceID,
			Elapsed:       elapsed,
			Understanding: state.Understanding,
			Artifacts:     state.Artifacts,
		},
	})
}

// runStreamingNode executes one node with its status narration. Returns false
// when the run must stop (fatal stage error or lost consumer).
func (p *Pipeline) runStreamingNode(ctx context.Context, events chan<- schemas.StreamEvent, node string, state *schemas.PipelineState) bool {
	switch node {
	case workflow.NodeUnderstand:
		if !status(ctx, events, schemas.StepUnderstanding, "🤔 正在理解您的问题...") {
			return false
		}
		p.stages.Understanding.Understand(ctx, state)
		if state.Failed() {
			return emitFatal(ctx, events, state)
		}
		return status(ctx, events, schemas.StepUnderstandingDone, fmt.Sprintf("✅ 已识别为 **%s** 领域", state.Domain))

	case workflow.NodeWebSearch:
		if !status(ctx, events, schemas.StepSearching, "🌐 正在搜索相关信息...") {
			return false
		}
		p.stages.WebSearch.Search(ctx, state)
		if w := state.WebSearchResults; w != nil && len(w.Results) > 0 {
			return status(ctx, events, schemas.StepSearchDone, fmt.Sprintf("✅ 找到 %d 条相关信息", len(w.Results)))
		}
		return true

	case workflow.NodeInitialAnalysis:
		if !status(ctx, events, schemas.StepAnalyzing, "📝 正在分析...") {
			return false
		}
		p.stages.InitialAnalysis.AnalyzeStreaming(ctx, state, func(fragment string) {
			emit(ctx, events, schemas.StreamEvent{Type: schemas.EventContent, Content: fragment})
		})
		if state.Failed() {
			return emitFatal(ctx, events, state)
		}
		return true

	case workflow.NodeReflection:
		if !status(ctx, events, schemas.StepReflecting, "🧠 正在深度反思...") {
			return false
		}
		p.stages.Reflection.Reflect(ctx, state)
		if state.Reflection != nil {
			return status(ctx, events, schemas.StepReflectionDone, "✅ 反思完成，正在优化答案...")
		}
		return true

	case workflow.NodeDetailedAnalysis:
		if !status(ctx, events, schemas.StepCoding, "💻 正在生成代码...") {
			return false
		}
		p.stages.DetailedAnalysis.Analyze(ctx, state)
		return true

	case workflow.NodeCodeGeneration:
		p.stages.CodeGeneration.Generate(ctx, state)
		if n := len(state.Artifacts); n > 0 {
			return status(ctx, events, schemas.StepCodeDone, fmt.Sprintf("✅ 已生成 %d 个代码文件", n))
		}
		return true

	case workflow.NodeSynthesis:
		if !status(ctx, events, schemas.StepSynthesizing, "📋 正在整理最终答案...") {
			return false
		}
		p.stages.Synthesis.Synthesize(ctx, state)
		return true

	default:
		emit(ctx, events, schemas.StreamEvent{Type: schemas.EventError, Content: fmt.Sprintf("处理出错: unknown node %q", node)})
		return false
	}
}

// emitFatal reports a fatal stage error as the terminal event.
func emitFatal(ctx context.Context, events chan<- schemas.StreamEvent, state *schemas.PipelineState) bool {
	emit(ctx, events, schemas.StreamEvent{Type: schemas.EventError, Content: state.Err})
	return false
}
