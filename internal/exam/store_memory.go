package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu          sync.RWMutex
	exams       map[string]Exam
	enrollments map[string]Enrollment // studentID|courseID
	ledgers     map[string]*Ledger    // studentID
}

// NewInMemoryStore returns a Store kept in process memory, for offline
// development and tests.
func NewInMemoryStore() Store {
	return &memoryStore{
		exams:       map[string]Exam{},
		enrollments: map[string]Enrollment{},
		ledgers:     map[string]*Ledger{},
	}
}

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	if e.ID == "" {
		return Validationf("exam id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = e
	return nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	return e, nil
}

func (m *memoryStore) ListAvailable(_ context.Context, opts AvailableOpts) ([]Exam, int, error) {
	paid := map[string]bool{}
	for _, c := range opts.PaidCourseIDs {
		paid[c] = true
	}
	m.mu.RLock()
	var out []Exam
	for _, e := range m.exams {
		if !e.IsActive {
			continue
		}
		if e.StartDate != nil && e.StartDate.After(opts.Now) {
			continue
		}
		if e.EndDate != nil && e.EndDate.Before(opts.Now) {
			continue
		}
		switch e.Visibility {
		case VisibilityPublic, VisibilityBoth:
		case VisibilityCourseOnly:
			if !paid[e.CourseID] {
				continue
			}
		default:
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if opts.Offset >= total {
		return []Exam{}, total, nil
	}
	end := total
	if opts.Limit > 0 && opts.Offset+opts.Limit < total {
		end = opts.Offset + opts.Limit
	}
	return out[opts.Offset:end], total, nil
}

func (m *memoryStore) PutEnrollment(_ context.Context, en Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[en.StudentID+"|"+en.CourseID] = en
	return nil
}

func (m *memoryStore) IsPaid(_ context.Context, studentID, courseID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	en, ok := m.enrollments[studentID+"|"+courseID]
	return ok && en.PaymentStatus == PaymentPaid, nil
}

func (m *memoryStore) PaidCourseIDs(_ context.Context, studentID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, en := range m.enrollments {
		if en.StudentID == studentID && en.PaymentStatus == PaymentPaid {
			out = append(out, en.CourseID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) CountAttempts(_ context.Context, studentID, examID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked(studentID, examID), nil
}

func (m *memoryStore) countLocked(studentID, examID string) int {
	l, ok := m.ledgers[studentID]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range l.Results {
		if r.ExamID == examID {
			n++
		}
	}
	return n
}

// AppendAttempt counts and appends under the write lock, so numbering
// cannot race.
func (m *memoryStore) AppendAttempt(_ context.Context, in AppendInput) (AttemptRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior := m.countLocked(in.StudentID, in.ExamID)
	if in.Policy.Exhausted(prior) {
		return AttemptRecord{}, "", &DeniedError{Reason: DenyAttemptsExhausted, Policy: in.Policy, Used: prior}
	}
	l, ok := m.ledgers[in.StudentID]
	if !ok {
		l = &Ledger{ID: uuid.NewString(), StudentID: in.StudentID, CreatedAt: in.SubmittedAt}
		m.ledgers[in.StudentID] = l
	}
	rec := AttemptRecord{
		ID:             uuid.NewString(),
		ExamID:         in.ExamID,
		ExamTitle:      in.ExamTitle,
		TotalQuestions: in.TotalQuestions,
		CorrectAnswers: in.CorrectAnswers,
		ExamDate:       in.SubmittedAt,
		AttemptNumber:  prior + 1,
		TimeSpentSec:   in.TimeSpentSec,
	}
	l.Results = append(l.Results, rec)
	return rec, l.ID, nil
}

func (m *memoryStore) Ledger(_ context.Context, studentID string) (Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[studentID]
	if !ok {
		return Ledger{}, fmt.Errorf("ledger for %q: %w", studentID, ErrNotFound)
	}
	return copyLedger(l), nil
}

func (m *memoryStore) ExamHistory(_ context.Context, studentID, examID string) ([]AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[studentID]
	if !ok {
		return []AttemptRecord{}, nil
	}
	out := []AttemptRecord{}
	for _, r := range l.Results {
		if r.ExamID == examID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) AllLedgers(_ context.Context) ([]Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Ledger, 0, len(m.ledgers))
	for _, l := range m.ledgers {
		out = append(out, copyLedger(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyLedger(l *Ledger) Ledger {
	c := *l
	c.Results = append([]AttemptRecord{}, l.Results...)
	return c
}
