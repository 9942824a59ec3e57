package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mind-engage/studentexam/internal/grading"
)

// Service runs the student exam workflow: availability gate, scoring,
// recording and response assembly.
type Service struct {
	exams       ExamRepository
	enrollments EnrollmentRepository
	ledger      AttemptLedger
	evaluator   *Evaluator
	recorder    *Recorder
	events      EventSink
	directory   StudentDirectory
	now         func() time.Time
}

type Options struct {
	// Exams overrides exam reads from the store, e.g. with a cache.
	Exams     ExamRepository
	Both      BothVisibilityPolicy
	Events    EventSink
	Directory StudentDirectory
	Now       func() time.Time
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		exams:       store,
		enrollments: store,
		ledger:      store,
		evaluator:   NewEvaluator(store, opts.Both),
		recorder:    NewRecorder(store),
		events:      opts.Events,
		directory:   opts.Directory,
		now:         opts.Now,
	}
	if opts.Exams != nil {
		s.exams = opts.Exams
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submission is a student's answer sheet. Answers maps question id to a
// choice label; unanswered questions may be omitted or empty. TimeSpent
// is in seconds and is rounded to the nearest whole second when recorded.
type Submission struct {
	Answers   map[string]string `json:"answers" validate:"required,dive,keys,required,endkeys,omitempty,oneof=a b c d"`
	TimeSpent float64           `json:"timeSpent" validate:"gte=0"`
}

func (s *Service) evaluate(ctx context.Context, studentID, examID string) (Exam, Decision, error) {
	ex, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, Decision{}, err
	}
	used, err := s.ledger.CountAttempts(ctx, studentID, ex.ID)
	if err != nil {
		return Exam{}, Decision{}, fmt.Errorf("count attempts: %w", err)
	}
	d, err := s.evaluator.Evaluate(ctx, ex, studentID, used, s.now())
	if err != nil {
		return Exam{}, Decision{}, err
	}
	return ex, d, nil
}

// CheckAvailability never turns a denial into an error.
func (s *Service) CheckAvailability(ctx context.Context, studentID, examID string) (Decision, error) {
	_, d, err := s.evaluate(ctx, studentID, examID)
	return d, err
}

// ExamForStudent returns the exam without answer keys, or a *DeniedError.
func (s *Service) ExamForStudent(ctx context.Context, studentID, examID string) (StudentExam, error) {
	ex, d, err := s.evaluate(ctx, studentID, examID)
	if err != nil {
		return StudentExam{}, err
	}
	if !d.Allowed {
		return StudentExam{}, d.Err()
	}
	out := ex.ForStudent()
	out.AttemptsRemaining = remainingValue(d.Policy, d.AttemptsUsed)
	return out, nil
}

// Submit gates, scores and records one attempt. Nothing is written when
// the gate denies.
func (s *Service) Submit(ctx context.Context, studentID, examID string, sub Submission) (Outcome, error) {
	if sub.Answers == nil {
		return Outcome{}, Validationf("answers are required")
	}
	if sub.TimeSpent < 0 {
		return Outcome{}, Validationf("timeSpent must not be negative")
	}

	ex, d, err := s.evaluate(ctx, studentID, examID)
	if err != nil {
		return Outcome{}, err
	}
	if !d.Allowed {
		return Outcome{}, d.Err()
	}

	res := grading.Score(gradingQuestions(ex.Questions), sub.Answers, ex.PassingScore)
	at := s.now()
	rec, err := s.recorder.Record(ctx, studentID, ex, res, int(math.Round(sub.TimeSpent)), at)
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("[exam] student=%s exam=%s attempt=%d score=%d/%d passed=%t",
		studentID, ex.ID, rec.Record.AttemptNumber, res.Score, res.Total, res.Passed)

	s.publish(ctx, AttemptRecorded{
		AttemptID:     rec.Record.ID,
		LedgerID:      rec.LedgerID,
		StudentID:     studentID,
		ExamID:        ex.ID,
		AttemptNumber: rec.Record.AttemptNumber,
		Score:         res.Score,
		Total:         res.Total,
		Percentage:    res.Percentage,
		Passed:        res.Passed,
		SubmittedAt:   at,
	})
	return Outcome{Exam: ex, Result: res, Recorded: rec}, nil
}

func (s *Service) publish(ctx context.Context, ev AttemptRecorded) {
	if s.events == nil {
		return
	}
	if err := s.events.AttemptRecorded(ctx, ev); err != nil {
		log.Printf("[exam] publish attempt %s: %v", ev.AttemptID, err)
	}
}

func gradingQuestions(qs []Question) []grading.Q {
	out := make([]grading.Q, len(qs))
	for i, q := range qs {
		out[i] = grading.Q{ID: q.ID, Title: q.Title, Correct: q.CorrectAnswer}
	}
	return out
}

// ResultScope selects which records Results returns.
type ResultScope string

const (
	ScopeAll  ResultScope = "all"
	ScopeExam ResultScope = "exam"
)

// Results returns the student's history. The exam must exist and the
// selected history must not be empty.
func (s *Service) Results(ctx context.Context, studentID, examID string, scope ResultScope) ([]ResultSummary, error) {
	ex, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	var recs []AttemptRecord
	if scope == ScopeExam {
		recs, err = s.ledger.ExamHistory(ctx, studentID, ex.ID)
		if err != nil {
			return nil, err
		}
	} else {
		l, err := s.ledger.Ledger(ctx, studentID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		recs = l.Results
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no results for exam %q: %w", ex.ID, ErrNotFound)
	}
	return summarize(recs), nil
}

// Page is one page of available exams.
type Page struct {
	Exams       []StudentExam `json:"exams"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalExams  int           `json:"totalExams"`
}

// Available lists exams the student may open now, newest first.
func (s *Service) Available(ctx context.Context, studentID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	paid, err := s.enrollments.PaidCourseIDs(ctx, studentID)
	if err != nil {
		return Page{}, fmt.Errorf("enrollment lookup: %w", err)
	}
	exams, total, err := s.exams.ListAvailable(ctx, AvailableOpts{
		Now:           s.now(),
		PaidCourseIDs: paid,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		return Page{}, err
	}
	out := Page{
		Exams:       make([]StudentExam, 0, len(exams)),
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
		TotalExams:  total,
	}
	for _, e := range exams {
		out.Exams = append(out.Exams, e.ForStudent())
	}
	return out, nil
}
