package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classification struct {
	Intent string `json:"intent"`
	Domain string `json:"domain"`
}

func TestExtractJSONObject_DirectParse(t *testing.T) {
	var out classification
	err := ExtractJSONObject(`{"intent": "ask", "domain": "general"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "ask", out.Intent)
	assert.Equal(t, "general", out.Domain)
}

func TestExtractJSONObject_JSONFence(t *testing.T) {
	response := "Here is the result:\n```json\n{\"intent\": \"fence\", \"domain\": \"legal\"}\n```\nDone."

	var out classification
	err := ExtractJSONObject(response, &out)
	require.NoError(t, err)
	assert.Equal(t, "fence", out.Intent)
	assert.Equal(t, "legal", out.Domain)
}

func TestExtractJSONObject_AnyFence(t *testing.T) {
	// The model labelled the fence with the wrong language tag.
	response := "```text\n{\"intent\": \"anyfence\", \"domain\": \"medical\"}\n```"

	var out classification
	err := ExtractJSONObject(response, &out)
	require.NoError(t, err)
	assert.Equal(t, "anyfence", out.Intent)
}

func TestExtractJSONObject_BalancedBraceScan(t *testing.T) {
	// No fences at all; the object is buried in prose.
	response := `Sure! The classification is {"intent": "buried", "domain": "general"} as requested.`

	var out classification
	err := ExtractJSONObject(response, &out)
	require.NoError(t, err)
	assert.Equal(t, "buried", out.Intent)
}

func TestExtractJSONObject_NestedObject(t *testing.T) {
	response := `prefix {"intent": "nested", "domain": "general", "extra": {"a": 1}} suffix`

	var out map[string]any
	err := ExtractJSONObject(response, &out)
	require.NoError(t, err)
	assert.Equal(t, "nested", out["intent"])
}

func TestExtractJSONObject_AllStrategiesFail(t *testing.T) {
	var out classification
	err := ExtractJSONObject("no json here at all", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parseable JSON object")
}

func TestParseJSONResponse_Typed(t *testing.T) {
	out, err := ParseJSONResponse[classification](`{"intent": "typed", "domain": "Arch/DEV"}`)
	require.NoError(t, err)
	assert.Equal(t, "typed", out.Intent)
	assert.Equal(t, "Arch/DEV", out.Domain)
}

func TestFirstFencedBlock(t *testing.T) {
	t.Run("returns first fence when several exist", func(t *testing.T) {
		text := "```python\nprint('one')\n```\ntext\n```go\nfmt.Println(\"two\")\n```"
		body, ok := FirstFencedBlock(text)
		require.True(t, ok)
		assert.Equal(t, "print('one')", body)
	})

	t.Run("reports absence", func(t *testing.T) {
		_, ok := FirstFencedBlock("plain text, no code")
		assert.False(t, ok)
	})
}
