package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendIn(studentID, examID string, p AttemptPolicy) AppendInput {
	return AppendInput{
		StudentID:      studentID,
		ExamID:         examID,
		ExamTitle:      "Exam " + examID,
		Policy:         p,
		TotalQuestions: 5,
		CorrectAnswers: 3,
		SubmittedAt:    testNow,
	}
}

// ledgerContract runs the same checks against every Store implementation.
func ledgerContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("numbers attempts contiguously per exam", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			rec, _, err := s.AppendAttempt(ctx, appendIn("s1", "e1", Unlimited()))
			require.NoError(t, err)
			assert.Equal(t, i, rec.AttemptNumber)
		}
		rec, _, err := s.AppendAttempt(ctx, appendIn("s1", "e2", Unlimited()))
		require.NoError(t, err)
		assert.Equal(t, 1, rec.AttemptNumber, "other exam starts at 1")

		n, err := s.CountAttempts(ctx, "s1", "e1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hist, err := s.ExamHistory(ctx, "s1", "e1")
		require.NoError(t, err)
		require.Len(t, hist, 3)
		for i, r := range hist {
			assert.Equal(t, i+1, r.AttemptNumber)
		}
	})

	t.Run("one ledger per student", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, id1, err := s.AppendAttempt(ctx, appendIn("s1", "e1", Unlimited()))
		require.NoError(t, err)
		_, id2, err := s.AppendAttempt(ctx, appendIn("s1", "e2", Unlimited()))
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		l, err := s.Ledger(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, id1, l.ID)
		assert.Len(t, l.Results, 2)

		_, err = s.Ledger(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := s.AllLedgers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("cap is re-checked on append", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, _, err := s.AppendAttempt(ctx, appendIn("s1", "e1", Limited(1)))
		require.NoError(t, err)
		_, _, err = s.AppendAttempt(ctx, appendIn("s1", "e1", Limited(1)))
		var denied *DeniedError
		require.True(t, errors.As(err, &denied))
		assert.Equal(t, DenyAttemptsExhausted, denied.Reason)

		n, err := s.CountAttempts(ctx, "s1", "e1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("concurrent submissions with a cap of one record once", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.AppendAttempt(ctx, appendIn("s1", "e1", Limited(1)))
				if err == nil {
					mu.Lock()
					success++
					mu.Unlock()
					return
				}
				assert.True(t, errors.Is(err, ErrForbidden) || errors.Is(err, ErrConflict), "unexpected error: %v", err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, success)
		n, err := s.CountAttempts(ctx, "s1", "e1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("enrollments", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutEnrollment(ctx, Enrollment{StudentID: "s1", CourseID: "c1", PaymentStatus: PaymentPaid}))
		require.NoError(t, s.PutEnrollment(ctx, Enrollment{StudentID: "s1", CourseID: "c2", PaymentStatus: "pending"}))

		ok, err := s.IsPaid(ctx, "s1", "c1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.IsPaid(ctx, "s1", "c2")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = s.IsPaid(ctx, "s2", "c1")
		require.NoError(t, err)
		assert.False(t, ok)

		ids, err := s.PaidCourseIDs(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids)

		require.NoError(t, s.PutEnrollment(ctx, Enrollment{StudentID: "s1", CourseID: "c2", PaymentStatus: PaymentPaid}))
		ids, err = s.PaidCourseIDs(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, ids)
	})

	t.Run("exams round trip and list available", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		older := sampleExam("old")
		newer := sampleExam("new", func(e *Exam) {
			e.CreatedAt = testNow.Add(-time.Hour)
			e.IsUnlimitedAttempts = boolPtr(false)
			e.MaxAttempts = 2
			e.StartDate = timePtr(testNow.Add(-2 * time.Hour))
		})
		course := sampleExam("course", func(e *Exam) {
			e.Visibility = VisibilityCourseOnly
			e.CourseID = "c1"
		})
		inactive := sampleExam("inactive", func(e *Exam) { e.IsActive = false })
		ended := sampleExam("ended", func(e *Exam) { e.EndDate = timePtr(testNow.Add(-time.Hour)) })
		for _, e := range []Exam{older, newer, course, inactive, ended} {
			require.NoError(t, s.PutExam(ctx, e))
		}

		got, err := s.GetExam(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, newer.Title, got.Title)
		assert.Equal(t, Limited(2), got.Policy())
		require.Len(t, got.Questions, 5)
		assert.Equal(t, "d", got.Questions[3].CorrectAnswer)
		require.NotNil(t, got.StartDate)
		assert.True(t, newer.StartDate.Equal(*got.StartDate))

		_, err = s.GetExam(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		list, total, err := s.ListAvailable(ctx, AvailableOpts{Now: testNow, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, list, 2)
		assert.Equal(t, "new", list[0].ID)
		assert.Equal(t, "old", list[1].ID)

		list, total, err = s.ListAvailable(ctx, AvailableOpts{Now: testNow, PaidCourseIDs: []string{"c1"}, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, list, 1)
	})
}

func TestMemoryStore(t *testing.T) {
	ledgerContract(t, func(*testing.T) Store { return NewInMemoryStore() })
}
