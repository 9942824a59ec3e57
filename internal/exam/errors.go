package exam

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrTransient  = errors.New("temporarily unavailable")
)

type DenyReason string

const (
	DenyNotActive         DenyReason = "exam not active"
	DenyNotStarted        DenyReason = "not yet started"
	DenyEnded             DenyReason = "already ended"
	DenyNotEnrolled       DenyReason = "not enrolled"
	DenyAttemptsExhausted DenyReason = "attempts exhausted"
)

// Message is the human-readable text shown to students.
func (r DenyReason) Message() string {
	switch r {
	case DenyNotActive:
		return "This exam is not active at the moment"
	case DenyNotStarted:
		return "The exam has not started yet"
	case DenyEnded:
		return "The exam period has ended"
	case DenyNotEnrolled:
		return "You must be enrolled in the course to take this exam"
	case DenyAttemptsExhausted:
		return "You have used all allowed attempts"
	}
	return string(r)
}

// DeniedError reports a failed availability check. It matches ErrForbidden.
type DeniedError struct {
	Reason DenyReason
	Policy AttemptPolicy
	Used   int
}

func (e *DeniedError) Error() string { return "exam unavailable: " + string(e.Reason) }

func (e *DeniedError) Is(target error) bool { return target == ErrForbidden }

// Message includes the cap for exhausted attempts.
func (e *DeniedError) Message() string {
	if e.Reason == DenyAttemptsExhausted && !e.Policy.IsUnlimited() {
		return fmt.Sprintf("%s (%d)", e.Reason.Message(), e.Policy.Cap())
	}
	return e.Reason.Message()
}

// Validationf returns an ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
