// File: internal/workflow/builder.go
package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/agents"
)

// Stages bundles the seven stage agents the graph executes.
type Stages struct {
	Understanding    *agents.UnderstandingAgent
	WebSearch        *agents.WebSearchAgent
	InitialAnalysis  *agents.InitialAnalysisAgent
	Reflection       *agents.ReflectionAgent
	DetailedAnalysis *agents.DetailedAnalysisAgent
	CodeGeneration   *agents.CodeGenerationAgent
	Synthesis        *agents.SynthesisAgent
}

// NewStages wires the agents against the shared collaborators.
func NewStages(llm schemas.LLMClient, searchClient schemas.SearchClient, logger *zap.Logger) *Stages {
	return &Stages{
		Understanding:    agents.NewUnderstandingAgent(llm, logger),
		WebSearch:        agents.NewWebSearchAgent(searchClient, logger),
		InitialAnalysis:  agents.NewInitialAnalysisAgent(llm, logger),
		Reflection:       agents.NewReflectionAgent(llm, logger),
		DetailedAnalysis: agents.NewDetailedAnalysisAgent(llm, logger),
		CodeGeneration:   agents.NewCodeGenerationAgent(llm, logger),
		Synthesis:        agents.NewSynthesisAgent(logger),
	}
}

// NewPipelineGraph composes the stages and routers into the compiled
// seven-node graph: one entry (understand), one terminal (synthesis).
func NewPipelineGraph(stages *Stages, logger *zap.Logger) (*Graph[*schemas.PipelineState], error) {
	g := NewGraph[*schemas.PipelineState](logger)

	g.AddNode(NodeUnderstand, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.Understanding.Understand(ctx, s)
	})
	g.AddNode(NodeWebSearch, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.WebSearch.Search(ctx, s)
	})
	g.AddNode(NodeInitialAnalysis, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.InitialAnalysis.Analyze(ctx, s)
	})
	g.AddNode(NodeReflection, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.Reflection.Reflect(ctx, s)
	})
	g.AddNode(NodeDetailedAnalysis, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.DetailedAnalysis.Analyze(ctx, s)
	})
	g.AddNode(NodeCodeGeneration, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.CodeGeneration.Generate(ctx, s)
	})
	g.AddNode(NodeSynthesis, func(ctx context.Context, s *schemas.PipelineState) *schemas.PipelineState {
		return stages.Synthesis.Synthesize(ctx, s)
	})

	g.SetEntryPoint(NodeUnderstand)

	g.AddConditionalEdges(NodeUnderstand, RouteAfterUnderstanding, map[string]string{
		NodeWebSearch:       NodeWebSearch,
		NodeInitialAnalysis: NodeInitialAnalysis,
		NodeSynthesis:       NodeSynthesis,
	})
	g.AddConditionalEdges(NodeWebSearch, RouteAfterSearch, map[string]string{
		NodeInitialAnalysis: NodeInitialAnalysis,
	})
	g.AddConditionalEdges(NodeInitialAnalysis, RouteAfterInitialAnalysis, map[string]string{
		NodeReflection:       NodeReflection,
		NodeDetailedAnalysis: NodeDetailedAnalysis,
		NodeSynthesis:        NodeSynthesis,
	})
	g.AddConditionalEdges(NodeReflection, RouteAfterReflection, map[string]string{
		NodeDetailedAnalysis: NodeDetailedAnalysis,
		NodeSynthesis:        NodeSynthesis,
	})
	g.AddConditionalEdges(NodeDetailedAnalysis, RouteAfterDetailedAnalysis, map[string]string{
		NodeCodeGeneration: NodeCodeGeneration,
		NodeSynthesis:      NodeSynthesis,
	})
	// Unconditional edges, not router decisions.
	g.AddEdge(NodeCodeGeneration, NodeSynthesis)
	g.AddEdge(NodeSynthesis, GraphEnd)

	return g.Compile()
}
