package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummaryPrompt(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		style := StyleConfig{Tone: "formal", Format: FormatParagraph, MaxWords: 120, Focus: []string{"budget", "deadlines"}}

		first := BuildSummaryPrompt("Some source text.", style)
		second := BuildSummaryPrompt("Some source text.", style)

		assert.Equal(t, first, second)
	})

	t.Run("encodes_tone_and_word_limit", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{Tone: "casual", MaxWords: 50})

		assert.Contains(t, prompt, "Tone: casual.")
		assert.Contains(t, prompt, "at most 50 words")
	})

	t.Run("no_word_limit_line_when_unset", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{})

		assert.NotContains(t, prompt, "at most")
	})

	t.Run("language_instruction_always_present", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{})

		assert.Contains(t, prompt, "same language as the source text")
		assert.Contains(t, prompt, "Do not translate")
	})

	t.Run("json_format_includes_schema_hint", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{Format: FormatJSON})

		assert.Contains(t, prompt, `"summary"`)
		assert.Contains(t, prompt, `"key_points"`)
	})

	t.Run("bullets_format", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{Format: FormatBullets})

		assert.Contains(t, prompt, "bulleted list")
	})

	t.Run("focus_terms_joined", func(t *testing.T) {
		prompt := BuildSummaryPrompt("text", StyleConfig{Focus: []string{"costs", "risks"}})

		assert.Contains(t, prompt, "costs, risks")
	})

	t.Run("source_text_at_end", func(t *testing.T) {
		prompt := BuildSummaryPrompt("the source body", StyleConfig{})

		assert.True(t, strings.HasSuffix(prompt, "the source body"))
	})
}
