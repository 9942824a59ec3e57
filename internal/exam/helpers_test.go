package exam

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

// sampleExam has five questions keyed a, b, c, d, a.
func sampleExam(id string, mutate ...func(*Exam)) Exam {
	keys := []string{"a", "b", "c", "d", "a"}
	qs := make([]Question, len(keys))
	for i, k := range keys {
		qs[i] = Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Title:         fmt.Sprintf("Question %d", i+1),
			Options:       Choices{A: "one", B: "two", C: "three", D: "four"},
			CorrectAnswer: k,
		}
	}
	e := Exam{
		ID:                     id,
		Title:                  "Exam " + id,
		DurationMin:            30,
		Questions:              qs,
		Visibility:             VisibilityPublic,
		PassingScore:           60,
		MaxAttempts:            -1,
		ShowResultsImmediately: true,
		IsActive:               true,
		CreatedAt:              testNow.Add(-24 * time.Hour),
	}
	for _, m := range mutate {
		m(&e)
	}
	return e
}

// threeCorrect answers q1..q3 correctly and q4, q5 wrongly.
func threeCorrect() map[string]string {
	return map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "a", "q5": "b"}
}

type recordingSink struct {
	mu     sync.Mutex
	events []AttemptRecorded
	err    error
}

func (s *recordingSink) AttemptRecorded(_ context.Context, ev AttemptRecorded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

type staticDirectory map[string]StudentProfile

func (d staticDirectory) Profiles(_ context.Context, ids []string) (map[string]StudentProfile, error) {
	out := map[string]StudentProfile{}
	for _, id := range ids {
		if p, ok := d[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
