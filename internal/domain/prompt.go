package domain

import (
	"fmt"
	"strings"
)

// BuildSummaryPrompt renders the generation prompt for a source document
// under the given style. It is a pure function: deterministic, no I/O, safe
// to call unboundedly for previews.
func BuildSummaryPrompt(sourceText string, style StyleConfig) string {
	var b strings.Builder

	b.WriteString("Summarize the following text.\n\n")

	if style.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", style.Tone)
	}

	switch style.Format {
	case FormatBullets:
		b.WriteString("Format: a bulleted list of the key points.\n")
	case FormatJSON:
		b.WriteString("Format: respond with a single JSON object containing a \"summary\" field (string) and a \"key_points\" field (list of strings). No text outside the JSON object.\n")
	default:
		b.WriteString("Format: a single coherent paragraph.\n")
	}

	if style.MaxWords > 0 {
		fmt.Fprintf(&b, "Hard limit: at most %d words.\n", style.MaxWords)
	}

	if len(style.Focus) > 0 {
		fmt.Fprintf(&b, "Give particular attention to: %s.\n", strings.Join(style.Focus, ", "))
	}

	b.WriteString("Write the summary in the same language as the source text. Do not translate.\n")
	b.WriteString("\nText:\n")
	b.WriteString(sourceText)

	return b.String()
}
