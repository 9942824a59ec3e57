package exam

import (
	"context"
	"time"
)

type ExamRepository interface {
	// GetExam returns the full exam, answer keys included.
	GetExam(ctx context.Context, id string) (Exam, error)
	// ListAvailable returns a page of exams open to a student and the total count.
	ListAvailable(ctx context.Context, opts AvailableOpts) ([]Exam, int, error)
}

type EnrollmentRepository interface {
	IsPaid(ctx context.Context, studentID, courseID string) (bool, error)
	PaidCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

// AppendInput describes one attempt to write. Policy is re-checked against
// the count read in the same unit of work.
type AppendInput struct {
	StudentID      string
	ExamID         string
	ExamTitle      string
	Policy         AttemptPolicy
	TotalQuestions int
	CorrectAnswers int
	TimeSpentSec   int
	SubmittedAt    time.Time
}

type AttemptLedger interface {
	CountAttempts(ctx context.Context, studentID, examID string) (int, error)
	// AppendAttempt numbers and writes one record atomically. It returns
	// ErrConflict when a concurrent writer took the same number and a
	// *DeniedError when the policy cap is already reached.
	AppendAttempt(ctx context.Context, in AppendInput) (AttemptRecord, string, error)
	// Ledger returns the student's ledger; ErrNotFound if none exists.
	Ledger(ctx context.Context, studentID string) (Ledger, error)
	ExamHistory(ctx context.Context, studentID, examID string) ([]AttemptRecord, error)
	AllLedgers(ctx context.Context) ([]Ledger, error)
}

// Store is everything the HTTP layer needs from persistence.
type Store interface {
	ExamRepository
	EnrollmentRepository
	AttemptLedger

	PutExam(ctx context.Context, e Exam) error
	PutEnrollment(ctx context.Context, en Enrollment) error
}

// AttemptRecorded is emitted after a record is written.
type AttemptRecorded struct {
	AttemptID     string    `json:"attemptId"`
	LedgerID      string    `json:"ledgerId"`
	StudentID     string    `json:"studentId"`
	ExamID        string    `json:"examId"`
	AttemptNumber int       `json:"attemptNumber"`
	Score         int       `json:"score"`
	Total         int       `json:"totalQuestions"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

type EventSink interface {
	AttemptRecorded(ctx context.Context, ev AttemptRecorded) error
}

// StudentProfile is the directory entry used by result reports.
type StudentProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type StudentDirectory interface {
	Profiles(ctx context.Context, ids []string) (map[string]StudentProfile, error)
}
