// File: internal/agents/codegen.go
package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/llmutil"
	"github.com/xkilldash9x/sage-cli/internal/styles"
)

// Defaults when the model omits the corresponding marker.
const (
	defaultArtifactTitle    = "Generated Code"
	defaultArtifactLanguage = "python"
)

var (
	titleMarkerRegex    = regexp.MustCompile(`TITLE:\s*(.+)`)
	languageMarkerRegex = regexp.MustCompile(`LANGUAGE:\s*(\w+)`)
	explanationRegex    = regexp.MustCompile(`(?s)EXPLANATION:\s*(.+?)(?:DEPENDENCIES:|$)`)
	dependenciesRegex   = regexp.MustCompile(`(?s)DEPENDENCIES:\s*(.+)`)
)

// CodeGenerationAgent asks the coder-tier model for a single artifact in the
// TITLE/LANGUAGE/CODE/EXPLANATION/DEPENDENCIES format and parses it
// leniently. Failures and unparseable responses are swallowed; a response
// with no code block appends nothing.
type CodeGenerationAgent struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewCodeGenerationAgent creates the stage.
func NewCodeGenerationAgent(llm schemas.LLMClient, logger *zap.Logger) *CodeGenerationAgent {
	return &CodeGenerationAgent{
		llm:    llm,
		logger: logger.Named("agent.codegen"),
	}
}

// Generate runs only when the detailed analysis asked for code. Each
// invocation appends at most one artifact, never replacing earlier ones.
func (a *CodeGenerationAgent) Generate(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	analysis := state.FinalAnalysis
	if analysis == nil || !analysis.NeedsCode {
		a.logger.Info("Code generation skipped")
		return state
	}

	response, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: styles.For(state.Language).SystemBase + "\n\nGenerate comprehensive, production-ready code with detailed comments.",
		UserPrompt:   buildCodePrompt(analysis),
		Tier:         schemas.TierCoder,
	})
	if err != nil {
		a.logger.Error("Code generation failed", zap.Error(err))
		return state
	}

	artifact, ok := ParseCodeResponse(response)
	if !ok {
		// No fenced code block in the response. Silent no-op by contract.
		a.logger.Warn("Code response contained no code block")
		return state
	}

	state.Artifacts = append(state.Artifacts, artifact)
	a.logger.Info("Code generated", zap.String("title", artifact.Title), zap.String("language", artifact.Language))
	return state
}

// buildCodePrompt renders the generation request from the detailed analysis.
func buildCodePrompt(analysis *schemas.AnalysisResult) string {
	var reqs strings.Builder
	for _, r := range analysis.Requirements {
		fmt.Fprintf(&reqs, "- %s\n", r)
	}

	architecture := analysis.Architecture
	if architecture == "" {
		architecture = "Not specified"
	}

	return fmt.Sprintf(`Generate code based on:

Requirements:
%s
Architecture:
%s

Tech Stack:
%s

Format:
TITLE: [title]
LANGUAGE: [language]
CODE:
`+"```"+`
[code]
`+"```"+`
EXPLANATION:
[explanation]
DEPENDENCIES:
[dependencies]
`, reqs.String(), architecture, strings.Join(analysis.TechStack, ", "))
}

// ParseCodeResponse extracts one CodeArtifact from semi-structured model
// output. The grammar: TITLE and LANGUAGE markers with defaults, the first
// fenced block wins as the code body, EXPLANATION runs until a DEPENDENCIES
// marker or end of text, dependencies are one per line. Returns false when
// the response holds no code block.
func ParseCodeResponse(response string) (schemas.CodeArtifact, bool) {
	code, found := llmutil.FirstFencedBlock(response)
	if !found || code == "" {
		return schemas.CodeArtifact{}, false
	}

	title := defaultArtifactTitle
	if m := titleMarkerRegex.FindStringSubmatch(response); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}

	language := defaultArtifactLanguage
	if m := languageMarkerRegex.FindStringSubmatch(response); len(m) > 1 {
		language = strings.ToLower(strings.TrimSpace(m[1]))
	}

	explanation := ""
	if m := explanationRegex.FindStringSubmatch(response); len(m) > 1 {
		explanation = strings.TrimSpace(m[1])
	}

	var dependencies []string
	if m := dependenciesRegex.FindStringSubmatch(response); len(m) > 1 {
		for _, line := range strings.Split(m[1], "\n") {
			if dep := strings.TrimSpace(line); dep != "" {
				dependencies = append(dependencies, dep)
			}
		}
	}

	return schemas.CodeArtifact{
		Title:        title,
		Language:     language,
		Code:         code,
		Explanation:  explanation,
		Dependencies: dependencies,
	}, true
}
