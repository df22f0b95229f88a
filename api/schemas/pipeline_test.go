package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	testCases := []struct {
		raw  string
		want Domain
	}{
		{"general", DomainGeneral},
		{"Arch/DEV", DomainArchDev},
		{"medical", DomainMedical},
		{"legal", DomainLegal},
		{"", DomainGeneral},
		{"finance", DomainGeneral},
		{"MEDICAL", DomainGeneral},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, NormalizeDomain(tc.raw), "raw=%q", tc.raw)
	}
}

func TestDomainIsRegulated(t *testing.T) {
	assert.True(t, DomainMedical.IsRegulated())
	assert.True(t, DomainLegal.IsRegulated())
	assert.False(t, DomainGeneral.IsRegulated())
	assert.False(t, DomainArchDev.IsRegulated())
}

func TestResolveMode(t *testing.T) {
	assert.Equal(t, ModeBasic, ResolveMode(false, false))
	assert.Equal(t, ModeWebSearch, ResolveMode(false, true))
	assert.Equal(t, ModeDeepThinking, ResolveMode(true, false))
	// Deep thinking takes precedence when both flags are set.
	assert.Equal(t, ModeDeepThinking, ResolveMode(true, true))
}

func TestPipelineStateBuilders(t *testing.T) {
	state := NewPipelineState("sess-1", "how do goroutines work", ModeBasic).
		WithLanguage("English").
		WithHistory("User: hi\nAssistant: hello")

	assert.Equal(t, "sess-1", state.SessionID)
	assert.Equal(t, DomainGeneral, state.Domain)
	assert.Equal(t, "English", state.Language)
	assert.Equal(t, "User: hi\nAssistant: hello", state.ConversationHistory)
	assert.False(t, state.Failed())

	state.Err = "理解分析错误: boom"
	assert.True(t, state.Failed())
}
