package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the submission pipeline and its surrounding surfaces.
// Handlers map these to HTTP statuses; none of them is retryable except
// ErrStoreUnavailable.
var (
	ErrSelfEvaluation         = errors.New("evaluator cannot evaluate themselves")
	ErrFormNotFound           = errors.New("evaluation form not found")
	ErrTeamNotFound           = errors.New("team not found")
	ErrProjectNotFound        = errors.New("project not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrEvaluatorNotFound      = errors.New("evaluator not found")
	ErrEvaluateeNotFound      = errors.New("evaluatee not found")
	ErrEvaluationNotFound     = errors.New("evaluation not found")
	ErrCriterionNotFound      = errors.New("criterion does not belong to this form")
	ErrRepeatedCriterionScore = errors.New("criterion scored more than once in submission")
	ErrNotATeamMember         = errors.New("user is not a member of this team")
	ErrDuplicateEvaluation    = errors.New("evaluation already submitted for this team member")
	ErrFormLocked             = errors.New("form is referenced by evaluations and can only have its deadline extended")
	ErrDeadlineNotExtended    = errors.New("new deadline must be later than the current one")
	ErrCriteriaPointsMismatch = errors.New("criteria max points must sum to the form max score")
	ErrStoreUnavailable       = errors.New("datastore unavailable")
)

// DeadlinePassedError rejects a submission after the form deadline and
// carries the deadline for user-facing messaging.
type DeadlinePassedError struct {
	Deadline time.Time
}

func (e *DeadlinePassedError) Error() string {
	return fmt.Sprintf("evaluation deadline has passed, deadline was %s",
		e.Deadline.UTC().Format("2006-01-02 15:04:05 UTC"))
}

// Viewer is the authenticated caller on whose behalf an operation runs. Role
// is sourced from the verified token context, never from client parameters,
// so the anonymity filter can trust it.
type Viewer struct {
	ID   uint
	Role string
}

// storeErr classifies datastore failures: timeouts and cancellations become
// the retryable ErrStoreUnavailable, everything else passes through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
