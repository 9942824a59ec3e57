package exam

import "fmt"

// AttemptPolicy is unlimited, or limited with a cap. A limited policy
// whose cap is not positive is uncapped: it never denies but still
// reports itself as limited.
type AttemptPolicy struct {
	limited bool
	limit   int
}

func Unlimited() AttemptPolicy { return AttemptPolicy{} }

// Limited returns a policy capped at n attempts.
func Limited(n int) AttemptPolicy { return AttemptPolicy{limited: true, limit: n} }

// PolicyFromLegacy reads the stored maxAttempts/isUnlimitedAttempts pair.
// Exams written before the flag existed have isUnlimited == nil and fall
// back to maxAttempts == -1.
func PolicyFromLegacy(maxAttempts int, isUnlimited *bool) AttemptPolicy {
	flagFalse := isUnlimited != nil && !*isUnlimited
	flagTrue := isUnlimited != nil && *isUnlimited
	if !flagFalse && (flagTrue || maxAttempts == -1) {
		return Unlimited()
	}
	return Limited(maxAttempts)
}

func (p AttemptPolicy) IsUnlimited() bool { return !p.limited }

func (p AttemptPolicy) capped() bool { return p.limited && p.limit > 0 }

// Cap returns the stored cap; 0 for unlimited.
func (p AttemptPolicy) Cap() int { return p.limit }

// Exhausted reports whether used attempts reach a positive cap.
func (p AttemptPolicy) Exhausted(used int) bool {
	return p.capped() && used >= p.limit
}

// Remaining returns the attempts left and false, or (0, true) when no cap
// applies.
func (p AttemptPolicy) Remaining(used int) (int, bool) {
	if !p.capped() {
		return 0, true
	}
	if used >= p.limit {
		return 0, false
	}
	return p.limit - used, false
}

func (p AttemptPolicy) String() string {
	switch {
	case p.IsUnlimited():
		return "unlimited"
	case !p.capped():
		return "limited(uncapped)"
	}
	return fmt.Sprintf("limited(%d)", p.limit)
}

// BothVisibilityPolicy decides whether exams with visibility "both" and an
// attached course require a paid enrollment.
type BothVisibilityPolicy string

const (
	BothEnrollmentOptional BothVisibilityPolicy = "enrollment_optional"
	BothEnrollmentRequired BothVisibilityPolicy = "enrollment_required"
)
