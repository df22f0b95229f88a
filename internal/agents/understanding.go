// File: internal/agents/understanding.go
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
	"github.com/xkilldash9x/sage-cli/internal/llmutil"
	"github.com/xkilldash9x/sage-cli/internal/styles"
)

// User-facing message when the provider rejects a query under its content
// safety policy. Distinct from the generic failure message on purpose.
const policyRejectionMessage = "您的请求触发了内容安全策略。请调整您的问题后重试。如果您认为这是误判，请联系管理员。"

const understandingInstruction = `

Analyze user queries professionally to understand intent and requirements.

**CRITICAL**: Output ONLY a valid JSON object with these exact fields:
- intent: string (main user intention)
- domain: string (one of: "general", "Arch/DEV", "medical", "legal")
- requires_web_search: boolean (true if needs current/real-time information)
- requires_code: boolean (true if needs code generation)
- key_concepts: array of strings (key technical concepts)
- summary: string (brief professional summary)

**Rules**:
1. For medical/legal domains: ALWAYS set requires_web_search=true
2. For Arch/DEV with coding tasks: Set requires_code=true
3. DO NOT include any text before or after the JSON
4. Output MUST be valid, parseable JSON

**Domain Selection**:
- "general": General questions, conversations, information requests
- "Arch/DEV": Software architecture, coding, development tasks
- "medical": Health, medical, clinical questions
- "legal": Law, regulations, legal matters`

// UnderstandingAgent classifies the query's intent and domain. It is the
// first stage of every run; its failure is fatal for the run.
type UnderstandingAgent struct {
	llm    schemas.LLMClient
	logger *zap.Logger
}

// NewUnderstandingAgent creates the stage.
func NewUnderstandingAgent(llm schemas.LLMClient, logger *zap.Logger) *UnderstandingAgent {
	return &UnderstandingAgent{
		llm:    llm,
		logger: logger.Named("agent.understanding"),
	}
}

// Understand calls the analysis-tier model once, parses the structured
// classification and records it on the state. A collaborator failure sets
// state.Err; malformed output never fails the stage thanks to the extraction
// fallback chain.
func (a *UnderstandingAgent) Understand(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	style := styles.For(state.Language)

	response, err := a.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: style.SystemBase + understandingInstruction,
		UserPrompt:   state.Query,
		Tier:         schemas.TierAnalysis,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true},
	})
	if err != nil {
		a.logger.Error("Understanding failed", zap.Error(err))
		if errors.Is(err, schemas.ErrContentBlocked) {
			state.Err = policyRejectionMessage
		} else {
			state.Err = fmt.Sprintf("理解分析错误: %v", err)
		}
		return state
	}

	result := a.parseUnderstanding(response)
	result.Domain = schemas.NormalizeDomain(string(result.Domain))

	state.Understanding = result
	state.Domain = result.Domain

	a.logger.Info("Understanding complete",
		zap.String("domain", string(state.Domain)),
		zap.Bool("requires_web_search", result.RequiresWebSearch),
		zap.Bool("requires_code", result.RequiresCode))
	return state
}

// parseUnderstanding runs the extraction fallback chain and, when every
// strategy fails, degrades to a keyword-based best-guess classification so
// the stage never fails on malformed model output.
func (a *UnderstandingAgent) parseUnderstanding(response string) *schemas.UnderstandingResult {
	result, err := llmutil.ParseJSONResponse[schemas.UnderstandingResult](response)
	if err == nil {
		return result
	}

	a.logger.Warn("All JSON extraction strategies failed, falling back to keyword classification",
		zap.Error(err))
	return classifyByKeywords(response)
}

var domainKeywords = []struct {
	domain   schemas.Domain
	keywords []string
}{
	{schemas.DomainArchDev, []string{"code", "代码", "开发", "架构", "dev", "arch"}},
	{schemas.DomainMedical, []string{"medical", "health", "医疗", "健康"}},
	{schemas.DomainLegal, []string{"legal", "law", "法律", "法规"}},
}

// classifyByKeywords builds a default understanding from the raw model text.
// Regulated domains imply a web search; Arch/DEV implies code generation.
func classifyByKeywords(text string) *schemas.UnderstandingResult {
	lower := strings.ToLower(text)

	domain := schemas.DomainGeneral
	for _, entry := range domainKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				domain = entry.domain
				break
			}
		}
		if domain != schemas.DomainGeneral {
			break
		}
	}

	return &schemas.UnderstandingResult{
		Intent:            "用户咨询",
		Domain:            domain,
		RequiresWebSearch: domain.IsRegulated(),
		RequiresCode:      domain == schemas.DomainArchDev,
		KeyConcepts:       []string{},
		Summary:           truncateRunes(text, 150),
	}
}

// truncateRunes shortens s to at most max runes, appending an ellipsis when
// truncation happened. Rune-based because queries are frequently CJK.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
