package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywordMap(t *testing.T) {
	raw := "```json\n" + `{
		"Subject matter": ["lighthouse", "wave", "Lighthouse"],
		"Action & pose": ["standing still"],
		"Theme & mood": ["serene", ""],
		"Style": ["watercolor"]
	}` + "\n```"

	keywords, err := parseKeywordMap(raw)
	require.NoError(t, err)

	byType := map[string][]string{}
	for _, kw := range keywords {
		byType[kw.Type] = append(byType[kw.Type], kw.Keyword)
	}

	assert.ElementsMatch(t, []string{"lighthouse", "wave"}, byType["Subject matter"], "duplicates collapse case-insensitively")
	assert.Equal(t, []string{"standing still"}, byType["Action & pose"])
	assert.Equal(t, []string{"serene"}, byType["Theme & mood"], "empty entries dropped")
	assert.NotContains(t, byType, "Style", "unknown categories dropped")
}

func TestParseKeywordMapRejectsGarbage(t *testing.T) {
	_, err := parseKeywordMap("the model rambled instead of emitting JSON")
	assert.Error(t, err)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("{\"a\":1}"))
	assert.Equal(t, `["p1","p2"]`, stripFence("```\n[\"p1\",\"p2\"]\n```"))
}

func TestDisabledLLM(t *testing.T) {
	l := &LLM{enabled: false}
	assert.False(t, l.Enabled())

	_, err := l.GenerateImage(t.Context(), "a lighthouse")
	assert.Error(t, err)
}
