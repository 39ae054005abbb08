package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opetse/peereval-api/internal/models"
)

func weight(value float64) *float64 {
	return &value
}

func TestValidateWeightsUnweighted(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10},
		{ID: 2, MaxPoints: 10, Weight: weight(0)},
	}

	require.NoError(t, ValidateWeights(criteria))
}

func TestValidateWeightsFullyWeighted(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 25, Weight: weight(40)},
		{ID: 2, MaxPoints: 20, Weight: weight(25)},
		{ID: 3, MaxPoints: 30, Weight: weight(35)},
	}

	require.NoError(t, ValidateWeights(criteria))
}

func TestValidateWeightsWithinTolerance(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10, Weight: weight(33.33)},
		{ID: 2, MaxPoints: 10, Weight: weight(33.33)},
		{ID: 3, MaxPoints: 10, Weight: weight(33.34)},
	}

	require.NoError(t, ValidateWeights(criteria))
}

func TestValidateWeightsPartialIsInvalid(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10, Weight: weight(60)},
		{ID: 2, MaxPoints: 10},
	}

	err := ValidateWeights(criteria)
	require.ErrorIs(t, err, ErrInvalidWeightConfiguration)
}

func TestValidateWeightsSumOutsideTolerance(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10, Weight: weight(50)},
		{ID: 2, MaxPoints: 10, Weight: weight(49.9)},
	}

	err := ValidateWeights(criteria)
	require.ErrorIs(t, err, ErrInvalidWeightConfiguration)
}

func TestValidateWeightsOutOfRange(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10, Weight: weight(150)},
		{ID: 2, MaxPoints: 10, Weight: weight(-50)},
	}

	err := ValidateWeights(criteria)
	require.ErrorIs(t, err, ErrInvalidWeightConfiguration)
}

func TestValidateWeightsEmptyCriteria(t *testing.T) {
	err := ValidateWeights(nil)
	require.ErrorIs(t, err, ErrInvalidWeightConfiguration)
}

func TestCalculateWeighted(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, Text: "Communication", MaxPoints: 25, Weight: weight(40)},
		{ID: 2, Text: "Reliability", MaxPoints: 20, Weight: weight(25)},
		{ID: 3, Text: "Contribution", MaxPoints: 30, Weight: weight(35)},
	}
	raw := map[uint]int{1: 20, 2: 15, 3: 25}

	result, err := Calculate(criteria, 100, raw)
	require.NoError(t, err)
	require.True(t, result.WeightingEnabled)
	require.InDelta(t, 79.92, result.WeightedTotal, 0.01)
	require.InDelta(t, 79.92, result.Percentage, 0.01)

	require.Len(t, result.Breakdown, 3)
	require.InDelta(t, 32.0, result.Breakdown[0].Contribution, 0.001)
	require.InDelta(t, 18.75, result.Breakdown[1].Contribution, 0.001)
	require.InDelta(t, 29.17, result.Breakdown[2].Contribution, 0.001)
}

func TestCalculateUnweightedEqualShare(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, Text: "Effort", MaxPoints: 10},
		{ID: 2, Text: "Quality", MaxPoints: 10},
	}
	raw := map[uint]int{1: 10, 2: 5}

	result, err := Calculate(criteria, 100, raw)
	require.NoError(t, err)
	require.False(t, result.WeightingEnabled)
	require.Equal(t, 75.0, result.WeightedTotal)
	require.Equal(t, 75.0, result.Percentage)
	require.Equal(t, 50.0, result.Breakdown[0].Contribution)
	require.Equal(t, 25.0, result.Breakdown[1].Contribution)
}

func TestCalculateDeterministic(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 25, Weight: weight(40)},
		{ID: 2, MaxPoints: 20, Weight: weight(25)},
		{ID: 3, MaxPoints: 30, Weight: weight(35)},
	}
	raw := map[uint]int{1: 13, 2: 7, 3: 19}

	first, err := Calculate(criteria, 100, raw)
	require.NoError(t, err)
	second, err := Calculate(criteria, 100, raw)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestCalculateMissingScore(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 10},
		{ID: 2, MaxPoints: 10},
	}
	raw := map[uint]int{1: 5}

	_, err := Calculate(criteria, 100, raw)
	require.ErrorIs(t, err, ErrScoreMissing)
	require.Contains(t, err.Error(), "2")
}

func TestCalculateScoreOutOfRange(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 7, MaxPoints: 10},
	}

	_, err := Calculate(criteria, 100, map[uint]int{7: -1})
	require.ErrorIs(t, err, ErrScoreOutOfRange)
	require.Contains(t, err.Error(), "criterion 7")

	_, err = Calculate(criteria, 100, map[uint]int{7: 11})
	require.ErrorIs(t, err, ErrScoreOutOfRange)
}

func TestCalculateZeroMaxPointsContributesNothing(t *testing.T) {
	criteria := []models.FormCriterion{
		{ID: 1, MaxPoints: 0},
		{ID: 2, MaxPoints: 10},
	}
	raw := map[uint]int{1: 0, 2: 10}

	result, err := Calculate(criteria, 100, raw)
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Breakdown[0].Contribution)
	require.Equal(t, 50.0, result.WeightedTotal)
}

func TestRound2HalfToEven(t *testing.T) {
	require.Equal(t, 0.12, Round2(0.125))
	require.Equal(t, 0.14, Round2(0.135))
	require.Equal(t, 79.92, Round2(79.9166666))
}
