package exam

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of an availability check.
type Decision struct {
	Allowed      bool
	Reason       DenyReason // set when !Allowed
	AttemptsUsed int
	Policy       AttemptPolicy
}

// Err returns a *DeniedError for a denied decision, nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason, Policy: d.Policy, Used: d.AttemptsUsed}
}

// Evaluator gates access to an exam. The enrollment lookup is its only I/O.
type Evaluator struct {
	Enrollments EnrollmentRepository
	Both        BothVisibilityPolicy
}

func NewEvaluator(enrollments EnrollmentRepository, both BothVisibilityPolicy) *Evaluator {
	if both == "" {
		both = BothEnrollmentOptional
	}
	return &Evaluator{Enrollments: enrollments, Both: both}
}

// Evaluate runs the checks in order and stops at the first failure:
// active flag, start date, end date, enrollment, attempt cap.
func (e *Evaluator) Evaluate(ctx context.Context, ex Exam, studentID string, priorAttempts int, now time.Time) (Decision, error) {
	d := Decision{AttemptsUsed: priorAttempts, Policy: ex.Policy()}
	deny := func(r DenyReason) (Decision, error) {
		d.Reason = r
		return d, nil
	}

	if !ex.IsActive {
		return deny(DenyNotActive)
	}
	if ex.StartDate != nil && now.Before(*ex.StartDate) {
		return deny(DenyNotStarted)
	}
	if ex.EndDate != nil && now.After(*ex.EndDate) {
		return deny(DenyEnded)
	}

	if needsEnrollmentLookup(ex) {
		paid, err := e.Enrollments.IsPaid(ctx, studentID, ex.CourseID)
		if err != nil {
			return Decision{}, fmt.Errorf("enrollment lookup: %w", err)
		}
		if !paid && e.enrollmentRequired(ex) {
			return deny(DenyNotEnrolled)
		}
	}

	if d.Policy.Exhausted(priorAttempts) {
		return deny(DenyAttemptsExhausted)
	}
	d.Allowed = true
	return d, nil
}

func needsEnrollmentLookup(ex Exam) bool {
	return ex.Visibility == VisibilityCourseOnly ||
		(ex.Visibility == VisibilityBoth && ex.CourseID != "")
}

func (e *Evaluator) enrollmentRequired(ex Exam) bool {
	switch ex.Visibility {
	case VisibilityCourseOnly:
		return true
	case VisibilityBoth:
		return e.Both == BothEnrollmentRequired
	}
	return false
}
