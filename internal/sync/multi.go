package syncx

import (
	"context"
	"errors"

	"github.com/mind-engage/studentexam/internal/exam"
)

// Multi fans an event out to every sink and joins their errors.
type Multi []exam.EventSink

func (m Multi) AttemptRecorded(ctx context.Context, ev exam.AttemptRecorded) error {
	var errs []error
	for _, s := range m {
		if err := s.AttemptRecorded(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
