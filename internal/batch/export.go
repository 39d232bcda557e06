package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mgmancho/sumjudge/internal/domain"
)

// ExportRecord is one exported (item, configuration) line.
type ExportRecord struct {
	ItemID        string             `json:"item_id"`
	Configuration string             `json:"configuration"`
	SourceText    string             `json:"source_text"`
	ReferenceText string             `json:"reference_text,omitempty"`
	Output        string             `json:"output"`
	Score         *float64           `json:"score,omitempty"`
	Note          string             `json:"note,omitempty"`
	CriteriaScore map[string]float64 `json:"criteria_scores,omitempty"`
	GroundTruth   bool               `json:"ground_truth,omitempty"`
}

// ExportJSONL writes one JSON line per successful (item, configuration)
// result. Error markers and empty results are skipped; items without
// results contribute nothing.
func ExportJSONL(w io.Writer, items []domain.WorkItem, configs []domain.RunConfiguration) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		for _, cfg := range configs {
			output, ok := item.Results[cfg.ID]
			if !ok || output == "" || domain.IsErrorResult(output) {
				continue
			}

			rec := ExportRecord{
				ItemID:        item.ID,
				Configuration: cfg.Name,
				SourceText:    item.SourceText,
				ReferenceText: item.ReferenceText,
				Output:        output,
			}
			if eval, ok := item.Evaluations[cfg.ID]; ok {
				score := eval.Score
				rec.Score = &score
				rec.Note = eval.Note
				rec.CriteriaScore = eval.CriteriaScores
				rec.GroundTruth = eval.IsGroundTruth
			}

			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("failed to encode export record: %w", err)
			}
		}
	}
	return nil
}
