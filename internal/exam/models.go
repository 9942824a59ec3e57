package exam

import (
	"encoding/json"
	"time"
)

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityCourseOnly Visibility = "course_only"
	VisibilityBoth       Visibility = "both"
)

const PaymentPaid = "paid"

// Choices holds the four labeled options of a question.
type Choices struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

type Question struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Options       Choices `json:"options"`
	CorrectAnswer string  `json:"correctAnswer"` // a|b|c|d, never sent to students
	ImageURL      string  `json:"imageUrl,omitempty"`
}

type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DurationMin int        `json:"duration"`
	Questions   []Question `json:"questions"`
	Visibility  Visibility `json:"visibility"`
	CourseID    string     `json:"courseId,omitempty"`

	PassingScore int `json:"passingScore"`
	// Legacy attempt encoding; read through Policy().
	MaxAttempts         int   `json:"maxAttempts"`
	IsUnlimitedAttempts *bool `json:"isUnlimitedAttempts,omitempty"`

	ShowResultsImmediately bool       `json:"showResultsImmediately"`
	ShuffleQuestions       bool       `json:"shuffleQuestions"`
	IsActive               bool       `json:"isActive"`
	StartDate              *time.Time `json:"startDate,omitempty"`
	EndDate                *time.Time `json:"endDate,omitempty"`
	Instructions           string     `json:"instructions"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewExam returns an exam carrying the model defaults: public, active,
// passing score 60, legacy unlimited attempts, results shown immediately.
func NewExam() Exam {
	return Exam{
		Visibility:             VisibilityPublic,
		PassingScore:           60,
		MaxAttempts:            -1,
		ShowResultsImmediately: true,
		IsActive:               true,
	}
}

// UnmarshalJSON fills fields absent from the document with NewExam's
// defaults. IsUnlimitedAttempts stays nil when absent so the legacy
// maxAttempts fallback still applies.
func (e *Exam) UnmarshalJSON(b []byte) error {
	type plain Exam
	p := plain(NewExam())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Exam(p)
	return nil
}

// Policy converts the stored legacy fields into an AttemptPolicy.
func (e Exam) Policy() AttemptPolicy {
	return PolicyFromLegacy(e.MaxAttempts, e.IsUnlimitedAttempts)
}

// StudentQuestion is a Question with the answer key removed.
type StudentQuestion struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Options  Choices `json:"options"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

// StudentExam is the student-safe view of an exam.
type StudentExam struct {
	ID                     string            `json:"id"`
	Title                  string            `json:"title"`
	DurationMin            int               `json:"duration"`
	Questions              []StudentQuestion `json:"questions"`
	Visibility             Visibility        `json:"visibility"`
	CourseID               string            `json:"courseId,omitempty"`
	PassingScore           int               `json:"passingScore"`
	ShowResultsImmediately bool              `json:"showResultsImmediately"`
	StartDate              *time.Time        `json:"startDate,omitempty"`
	EndDate                *time.Time        `json:"endDate,omitempty"`
	Instructions           string            `json:"instructions"`
	// AttemptsRemaining is an int, or "unlimited".
	AttemptsRemaining any `json:"attemptsRemaining,omitempty"`
}

// ForStudent strips the answer key from every question.
func (e Exam) ForStudent() StudentExam {
	qs := make([]StudentQuestion, len(e.Questions))
	for i, q := range e.Questions {
		qs[i] = StudentQuestion{ID: q.ID, Title: q.Title, Options: q.Options, ImageURL: q.ImageURL}
	}
	return StudentExam{
		ID:                     e.ID,
		Title:                  e.Title,
		DurationMin:            e.DurationMin,
		Questions:              qs,
		Visibility:             e.Visibility,
		CourseID:               e.CourseID,
		PassingScore:           e.PassingScore,
		ShowResultsImmediately: e.ShowResultsImmediately,
		StartDate:              e.StartDate,
		EndDate:                e.EndDate,
		Instructions:           e.Instructions,
	}
}

type Enrollment struct {
	StudentID     string `json:"studentId"`
	CourseID      string `json:"courseId"`
	PaymentStatus string `json:"paymentStatus"`
}

// AttemptRecord is one accepted submission. ExamID is empty only on
// legacy records that have not been migrated yet.
type AttemptRecord struct {
	ID             string    `json:"id"`
	ExamID         string    `json:"examId,omitempty"`
	ExamTitle      string    `json:"examTitle"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	ExamDate       time.Time `json:"examDate"`
	AttemptNumber  int       `json:"attemptNumber"`
	TimeSpentSec   int       `json:"timeSpent"`
}

// Ledger is a student's chronological list of attempt records.
type Ledger struct {
	ID        string          `json:"id"`
	StudentID string          `json:"studentId"`
	CreatedAt time.Time       `json:"createdAt"`
	Results   []AttemptRecord `json:"results"`
}

type AvailableOpts struct {
	Now           time.Time
	PaidCourseIDs []string
	Limit         int
	Offset        int
}
