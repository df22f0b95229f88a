// File: internal/agents/websearch.go
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

const (
	// maxSearchResults caps how many hits are requested from the provider.
	maxSearchResults = 5
	// summaryHits caps how many hits feed the human-readable summary,
	// independent of how many the provider returned.
	summaryHits = 5
	// snippetLen is the per-hit content budget in the summary.
	snippetLen = 200
)

// WebSearchAgent grounds the query with fresh web results. The stage is
// non-critical: an unconfigured or failing provider yields a placeholder
// result and the run continues.
type WebSearchAgent struct {
	client schemas.SearchClient
	logger *zap.Logger
}

// NewWebSearchAgent creates the stage.
func NewWebSearchAgent(client schemas.SearchClient, logger *zap.Logger) *WebSearchAgent {
	return &WebSearchAgent{
		client: client,
		logger: logger.Named("agent.websearch"),
	}
}

// Search runs the provider query and records results plus a numbered summary
// on the state. Never sets state.Err.
func (a *WebSearchAgent) Search(ctx context.Context, state *schemas.PipelineState) *schemas.PipelineState {
	understanding := state.Understanding
	if understanding == nil || !understanding.RequiresWebSearch {
		a.logger.Info("Web search skipped")
		return state
	}

	hits, err := a.client.Search(ctx, state.Query, maxSearchResults)
	if err != nil {
		if errors.Is(err, schemas.ErrSearchNotConfigured) {
			a.logger.Warn("Search provider not configured")
			state.WebSearchResults = &schemas.WebSearchResult{
				Query:   state.Query,
				Results: []schemas.SearchHit{},
				Summary: "Web search unavailable",
			}
			return state
		}

		a.logger.Error("Web search failed", zap.Error(err))
		state.WebSearchResults = &schemas.WebSearchResult{
			Query:   state.Query,
			Results: []schemas.SearchHit{},
			Summary: fmt.Sprintf("Search error: %v", err),
		}
		return state
	}

	state.WebSearchResults = &schemas.WebSearchResult{
		Query:   state.Query,
		Results: hits,
		Summary: summarizeHits(hits),
	}

	a.logger.Info("Web search complete", zap.Int("hits", len(hits)))
	return state
}

// summarizeHits builds the numbered title+snippet summary from the top hits.
func summarizeHits(hits []schemas.SearchHit) string {
	if len(hits) == 0 {
		return "No results"
	}

	var parts []string
	for i, hit := range hits {
		if i >= summaryHits {
			break
		}
		title := hit.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("%d. %s: %s...", i+1, title, firstRunes(hit.Content, snippetLen)))
	}
	return strings.Join(parts, "\n")
}

// firstRunes returns at most max runes of s, no ellipsis.
func firstRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
