package judge

import (
	"fmt"
	"strings"

	"github.com/mgmancho/sumjudge/internal/domain"
)

// systemPrompt is the judge's fixed system instruction. The strict JSON
// demand is what makes the defensive parser's job tractable.
const systemPrompt = "You are a strict evaluation judge. Respond with a single JSON object and nothing else: no prose, no code fences."

// BuildJudgePrompt renders the rubric prompt for one generated summary.
// Pure function: deterministic, no I/O.
func BuildJudgePrompt(sourceText, generatedText, referenceText string, criteria []domain.JudgeCriterion) string {
	var b strings.Builder

	b.WriteString("Evaluate the quality of a generated summary against the original text.\n\n")
	b.WriteString("Original text:\n---\n")
	b.WriteString(sourceText)
	b.WriteString("\n---\n\nGenerated summary:\n---\n")
	b.WriteString(generatedText)
	b.WriteString("\n---\n")

	if referenceText != "" {
		b.WriteString("\nReference summary (gold standard). Benchmark the generated summary against it:\n---\n")
		b.WriteString(referenceText)
		b.WriteString("\n---\n")
	}

	b.WriteString("\nScore each criterion from 0 to 10:\n")
	for _, c := range criteria {
		fmt.Fprintf(&b, "- %s (weight %d): %s\n", c.Name, c.Weight, c.Description)
	}

	b.WriteString("\nRespond with exactly this JSON shape:\n")
	b.WriteString(`{"score": <overall 0-10>, "note": "<short rationale>", "criteriaScores": {`)
	for i, c := range criteria {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: <0-10>", c.Name)
	}
	b.WriteString("}}\n")

	return b.String()
}
