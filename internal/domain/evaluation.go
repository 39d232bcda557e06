package domain

import "time"

// Score bounds for judge verdicts. Out-of-range values from the judge are
// saturated, never rejected.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Evaluation is the judge's scored verdict on one (item, configuration)
// pair. A zero-score evaluation with a diagnostic note stands in for the
// verdict when judging could not run or its response could not be parsed.
type Evaluation struct {
	// Score is the overall verdict, clamped to [MinScore, MaxScore].
	Score float64 `json:"score"`

	// Note is the judge's free-text rationale, or a diagnostic message
	// for synthetic zero-score evaluations.
	Note string `json:"note"`

	// CriteriaScores maps criterion name to its sub-score, each clamped
	// independently of the total.
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`

	// IsGroundTruth flags the evaluation as the preferred output for its
	// item. At most one evaluation per item carries true; the collection
	// layer enforces the exclusivity, not this type.
	IsGroundTruth bool `json:"is_ground_truth,omitempty"`

	// ComparedToReference records whether a reference text was available
	// when the judge ran. It records intent, not judge fidelity.
	ComparedToReference bool `json:"compared_to_reference"`

	// JudgedAt records when the verdict was produced.
	JudgedAt time.Time `json:"judged_at"`
}

// ClampScore saturates a raw judge score into [MinScore, MaxScore].
func ClampScore(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// NewEvaluation builds a verdict from raw judge output, clamping the total
// and every criteria sub-score independently.
func NewEvaluation(score float64, note string, criteriaScores map[string]float64, comparedToReference bool) Evaluation {
	var clamped map[string]float64
	if len(criteriaScores) > 0 {
		clamped = make(map[string]float64, len(criteriaScores))
		for name, value := range criteriaScores {
			clamped[name] = ClampScore(value)
		}
	}
	return Evaluation{
		Score:               ClampScore(score),
		Note:                note,
		CriteriaScores:      clamped,
		ComparedToReference: comparedToReference,
		JudgedAt:            time.Now(),
	}
}

// FailedEvaluation builds the synthetic zero-score verdict recorded when
// judging fails or cannot run. The note explains why.
func FailedEvaluation(note string, comparedToReference bool) Evaluation {
	return Evaluation{
		Score:               MinScore,
		Note:                note,
		ComparedToReference: comparedToReference,
		JudgedAt:            time.Now(),
	}
}
