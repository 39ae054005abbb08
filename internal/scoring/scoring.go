// Package scoring implements the weighted scoring calculator and the
// criterion weight validator. Both are pure: identical inputs always produce
// identical outputs, which lets reports re-derive scores instead of trusting
// stored snapshots.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/opetse/peereval-api/internal/models"
)

// weightTolerance is the accepted deviation of a weight sum from 100.
const weightTolerance = 0.01

var (
	// ErrInvalidWeightConfiguration is returned when a form's criteria do not
	// form a valid percentage partition.
	ErrInvalidWeightConfiguration = errors.New("invalid weight configuration")
	// ErrScoreMissing is returned when a criterion has no raw score in the
	// submission.
	ErrScoreMissing = errors.New("score missing for criterion")
	// ErrScoreOutOfRange is returned when a raw score lies outside
	// [0, criterion.max_points].
	ErrScoreOutOfRange = errors.New("score out of range")
)

// CriterionScore is the per-criterion slice of a scoring result.
type CriterionScore struct {
	CriterionID  uint    `json:"criterion_id"`
	Text         string  `json:"criterion_text"`
	RawScore     int     `json:"raw_score"`
	MaxPoints    int     `json:"max_points"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"weighted_score"`
}

// Result is the outcome of scoring one submission against a form.
type Result struct {
	WeightedTotal    float64          `json:"weighted_total"`
	Percentage       float64          `json:"percentage"`
	MaxScore         int              `json:"max_score"`
	WeightingEnabled bool             `json:"weighting_enabled"`
	Breakdown        []CriterionScore `json:"breakdown"`
}

// ValidateWeights checks that the criteria weights form a valid partition: a
// form is either unweighted (no criterion carries a weight) or fully weighted
// (every criterion carries one, each within [0,100], summing to 100 within
// tolerance). Called at form creation and update time, never at submission
// time.
func ValidateWeights(criteria []models.FormCriterion) error {
	if len(criteria) == 0 {
		return fmt.Errorf("%w: form has no criteria", ErrInvalidWeightConfiguration)
	}

	weighted := 0
	for _, criterion := range criteria {
		if criterion.HasWeight() {
			weighted++
		}
	}

	if weighted == 0 {
		return nil
	}

	if weighted != len(criteria) {
		return fmt.Errorf("%w: %d of %d criteria carry a weight, expected all or none",
			ErrInvalidWeightConfiguration, weighted, len(criteria))
	}

	sum := 0.0
	for _, criterion := range criteria {
		weight := *criterion.Weight
		if weight < 0 || weight > 100 {
			return fmt.Errorf("%w: criterion %d weight %.2f outside [0,100]",
				ErrInvalidWeightConfiguration, criterion.ID, weight)
		}
		sum += weight
	}

	if math.Abs(sum-100) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.2f, expected 100", ErrInvalidWeightConfiguration, sum)
	}

	return nil
}

// Calculate converts raw per-criterion scores into a normalized weighted
// total scaled to maxScore. Every criterion contributes
// (raw/max_points) * share * maxScore where share is weight/100 for fully
// weighted forms and 1/len(criteria) otherwise. Totals are rounded to two
// decimals using round-half-to-even.
func Calculate(criteria []models.FormCriterion, maxScore int, rawScores map[uint]int) (Result, error) {
	if len(criteria) == 0 {
		return Result{}, fmt.Errorf("%w: form has no criteria", ErrInvalidWeightConfiguration)
	}

	weighting := true
	for _, criterion := range criteria {
		if !criterion.HasWeight() {
			weighting = false
			break
		}
	}

	equalShare := 1.0 / float64(len(criteria))
	breakdown := make([]CriterionScore, 0, len(criteria))
	total := 0.0

	for _, criterion := range criteria {
		raw, ok := rawScores[criterion.ID]
		if !ok {
			return Result{}, fmt.Errorf("%w %d (%q)", ErrScoreMissing, criterion.ID, criterion.Text)
		}
		if raw < 0 || raw > criterion.MaxPoints {
			return Result{}, fmt.Errorf("%w: criterion %d scored %d, allowed range [0,%d]",
				ErrScoreOutOfRange, criterion.ID, raw, criterion.MaxPoints)
		}

		// max_points of zero cannot be normalized; such a criterion contributes nothing.
		normalized := 0.0
		if criterion.MaxPoints > 0 {
			normalized = float64(raw) / float64(criterion.MaxPoints)
		}

		share := equalShare
		weight := 0.0
		if weighting {
			weight = *criterion.Weight
			share = weight / 100
		}

		contribution := normalized * share * float64(maxScore)
		total += contribution

		breakdown = append(breakdown, CriterionScore{
			CriterionID:  criterion.ID,
			Text:         criterion.Text,
			RawScore:     raw,
			MaxPoints:    criterion.MaxPoints,
			Weight:       weight,
			Contribution: Round2(contribution),
		})
	}

	result := Result{
		WeightedTotal:    Round2(total),
		MaxScore:         maxScore,
		WeightingEnabled: weighting,
		Breakdown:        breakdown,
	}
	if maxScore > 0 {
		result.Percentage = Round2(result.WeightedTotal / float64(maxScore) * 100)
	}

	return result, nil
}

// Round2 rounds to two decimals with banker's rounding so the submission path
// and the report path agree bit-for-bit.
func Round2(value float64) float64 {
	return math.RoundToEven(value*100) / 100
}
