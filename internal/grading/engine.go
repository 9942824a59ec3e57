package grading

// Q is a minimal view of a question needed for grading.
// Keep this in sync with exam.Question.
type Q struct {
	ID      string
	Title   string
	Correct string // choice label: a|b|c|d
}

// ItemResult is the outcome of grading a single question response.
type ItemResult struct {
	QuestionID    string `json:"questionId"`
	QuestionTitle string `json:"questionTitle"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

// Result is the aggregate of a graded submission.
type Result struct {
	Score        int          `json:"score"`
	Total        int          `json:"totalQuestions"`
	Percentage   int          `json:"percentage"`
	PassingScore int          `json:"passingScore"`
	Passed       bool         `json:"passed"`
	Items        []ItemResult `json:"questionResults"`
}

// Score grades answers (questionID -> choice label) against qs.
// An unanswered question is simply incorrect.
func Score(qs []Q, answers map[string]string, passingScore int) Result {
	res := Result{
		Total:        len(qs),
		PassingScore: passingScore,
		Items:        make([]ItemResult, 0, len(qs)),
	}
	for _, q := range qs {
		ans := answers[q.ID]
		ok := ans != "" && ans == q.Correct
		if ok {
			res.Score++
		}
		res.Items = append(res.Items, ItemResult{
			QuestionID:    q.ID,
			QuestionTitle: q.Title,
			StudentAnswer: ans,
			CorrectAnswer: q.Correct,
			IsCorrect:     ok,
		})
	}
	res.Percentage = Percentage(res.Score, res.Total)
	res.Passed = res.Percentage >= passingScore
	return res
}

// Percentage returns round-half-up(correct/total*100), or 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
