package grading

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fiveQuestions() []Q {
	return []Q{
		{ID: "q1", Title: "one", Correct: "a"},
		{ID: "q2", Title: "two", Correct: "b"},
		{ID: "q3", Title: "three", Correct: "c"},
		{ID: "q4", Title: "four", Correct: "d"},
		{ID: "q5", Title: "five", Correct: "a"},
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		qs          []Q
		answers     map[string]string
		passing     int
		wantScore   int
		wantPercent int
		wantPassed  bool
	}{
		{
			name:        "three of five at passing 60",
			qs:          fiveQuestions(),
			answers:     map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "a", "q5": "b"},
			passing:     60,
			wantScore:   3,
			wantPercent: 60,
			wantPassed:  true,
		},
		{
			name:        "all correct",
			qs:          fiveQuestions(),
			answers:     map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "d", "q5": "a"},
			passing:     100,
			wantScore:   5,
			wantPercent: 100,
			wantPassed:  true,
		},
		{
			name:        "missing answers count as wrong",
			qs:          fiveQuestions(),
			answers:     map[string]string{"q1": "a"},
			passing:     60,
			wantScore:   1,
			wantPercent: 20,
			wantPassed:  false,
		},
		{
			name:        "nil answers",
			qs:          fiveQuestions(),
			answers:     nil,
			passing:     0,
			wantScore:   0,
			wantPercent: 0,
			wantPassed:  true,
		},
		{
			name:        "no questions",
			qs:          nil,
			answers:     map[string]string{"q1": "a"},
			passing:     60,
			wantScore:   0,
			wantPercent: 0,
			wantPassed:  false,
		},
		{
			name:        "labels are case sensitive",
			qs:          []Q{{ID: "q1", Correct: "a"}},
			answers:     map[string]string{"q1": "A"},
			passing:     50,
			wantScore:   0,
			wantPercent: 0,
			wantPassed:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.qs, tt.answers, tt.passing)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, len(tt.qs), got.Total)
			assert.Equal(t, tt.wantPercent, got.Percentage)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Len(t, got.Items, len(tt.qs))
		})
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	qs := fiveQuestions()
	answers := map[string]string{"q1": "a", "q3": "b", "q4": "d", "q5": "c"}
	base := Score(qs, answers, 50)

	reversed := make([]Q, len(qs))
	for i := range qs {
		reversed[len(qs)-1-i] = qs[i]
	}
	rotated := append(append([]Q{}, qs[2:]...), qs[:2]...)

	for _, perm := range [][]Q{reversed, rotated} {
		got := Score(perm, answers, 50)
		assert.Equal(t, base.Score, got.Score)
		assert.Equal(t, base.Percentage, got.Percentage)
		assert.Equal(t, base.Passed, got.Passed)
	}
}

func TestScore_ItemsRevealCorrectAnswer(t *testing.T) {
	got := Score([]Q{{ID: "q1", Title: "2+2", Correct: "c"}}, map[string]string{"q1": "a"}, 60)
	assert.Equal(t, ItemResult{
		QuestionID:    "q1",
		QuestionTitle: "2+2",
		StudentAnswer: "a",
		CorrectAnswer: "c",
		IsCorrect:     false,
	}, got.Items[0])
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half up
		{3, 5, 60},
		{7, 7, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.correct, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.correct, tt.total))
		})
	}
}
