package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/mind-engage/studentexam/internal/grading"
)

// Recorder appends attempt records, retrying once when a concurrent
// submission claimed the same attempt number.
type Recorder struct {
	Ledger     AttemptLedger
	Attempts   uint
	RetryDelay time.Duration
}

func NewRecorder(l AttemptLedger) *Recorder {
	return &Recorder{Ledger: l, Attempts: 2, RetryDelay: 20 * time.Millisecond}
}

// Recorded is the stored record together with its ledger id.
type Recorded struct {
	Record   AttemptRecord
	LedgerID string
}

func (r *Recorder) Record(ctx context.Context, studentID string, ex Exam, res grading.Result, timeSpentSec int, at time.Time) (Recorded, error) {
	in := AppendInput{
		StudentID:      studentID,
		ExamID:         ex.ID,
		ExamTitle:      ex.Title,
		Policy:         ex.Policy(),
		TotalQuestions: res.Total,
		CorrectAnswers: res.Score,
		TimeSpentSec:   timeSpentSec,
		SubmittedAt:    at,
	}

	var out Recorded
	err := retry.Do(
		func() error {
			rec, ledgerID, err := r.Ledger.AppendAttempt(ctx, in)
			if err != nil {
				return err
			}
			out = Recorded{Record: rec, LedgerID: ledgerID}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.Attempts),
		retry.Delay(r.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrConflict) }),
	)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ErrConflict):
		return Recorded{}, fmt.Errorf("%w: attempt numbering contended, retry the submission", ErrTransient)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Recorded{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return Recorded{}, fmt.Errorf("record attempt: %w", err)
}
