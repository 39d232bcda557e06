package judge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// verdict is the wire shape the judge is instructed to produce.
type verdict struct {
	Score          float64            `json:"score"`
	Note           string             `json:"note"`
	CriteriaScores map[string]float64 `json:"criteriaScores"`
}

// parseVerdict decodes the judge's response defensively. Models routinely
// wrap the JSON in markdown fences or leading prose despite the system
// instruction, so the payload is located between the outermost braces after
// fence stripping. Scores are returned raw; the caller clamps.
func parseVerdict(content string) (*verdict, error) {
	cleaned := stripFences(content)

	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("judge response is not valid JSON: %w", err)
	}
	return &v, nil
}

// stripFences removes surrounding markdown code-fence markers.
func stripFences(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
