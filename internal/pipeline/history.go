// File: internal/pipeline/history.go
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/internal/styles"
)

// conversationContext builds the immutable prior-turn snapshot for a run: the
// most recent N messages, each truncated to the per-message character budget
// and prefixed with a localized role label. Returns "" for a fresh session or
// when the store is unreachable; history is context, not a hard dependency.
func (p *Pipeline) conversationContext(ctx context.Context, sessionID, language string) string {
	messages, err := p.repo.GetMessages(ctx, sessionID, p.history.WindowMessages)
	if err != nil {
		p.logger.Warn("Failed to load conversation history", zap.Error(err))
		return ""
	}
	if len(messages) == 0 {
		return ""
	}

	// The store may return more than the window when the limit is advisory;
	// keep only the most recent ones.
	if len(messages) > p.history.WindowMessages {
		messages = messages[len(messages)-p.history.WindowMessages:]
	}

	style := styles.For(language)

	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := style.AssistantLabel
		if msg.Role == "user" {
			label = style.UserLabel
		}

		content := msg.Content
		if runes := []rune(content); len(runes) > p.history.CharBudget {
			content = string(runes[:p.history.CharBudget])
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, content))
	}

	return strings.Join(parts, "\n")
}
