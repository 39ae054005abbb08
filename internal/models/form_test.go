package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestDeadlinePassedBoundary(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	form := EvaluationForm{Deadline: &deadline}

	require.False(t, form.DeadlinePassed(deadline.Add(-time.Second)))
	// The deadline instant itself is closed.
	require.True(t, form.DeadlinePassed(deadline))
	require.True(t, form.DeadlinePassed(deadline.Add(time.Second)))
}

func TestDeadlinePassedComparesInUTC(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	form := EvaluationForm{Deadline: &deadline}

	jakarta := time.FixedZone("WIB", 7*3600)
	sameInstant := deadline.In(jakarta)
	require.True(t, form.DeadlinePassed(sameInstant))
	require.False(t, form.DeadlinePassed(sameInstant.Add(-time.Minute)))
}

func TestDeadlinePassedNilDeadline(t *testing.T) {
	form := EvaluationForm{}
	require.False(t, form.DeadlinePassed(time.Now()))
	require.False(t, form.DeadlinePassed(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWeightingEnabled(t *testing.T) {
	form := EvaluationForm{Criteria: []FormCriterion{
		{Weight: floatPtr(60)},
		{Weight: floatPtr(40)},
	}}
	require.True(t, form.WeightingEnabled())

	form.Criteria[1].Weight = nil
	require.False(t, form.WeightingEnabled())

	form.Criteria[1].Weight = floatPtr(0)
	require.False(t, form.WeightingEnabled())

	require.False(t, EvaluationForm{}.WeightingEnabled())
}

func TestLatePermissionAdmits(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	permission := LateSubmissionPermission{AllowedUntil: now.Add(time.Hour), Active: true}
	require.True(t, permission.Admits(now))

	permission.Active = false
	require.False(t, permission.Admits(now))

	permission.Active = true
	permission.AllowedUntil = now
	require.False(t, permission.Admits(now))
}
