package exam

import (
	"time"

	"github.com/mind-engage/studentexam/internal/grading"
)

const unlimitedLabel = "unlimited"

// AvailabilityView is the body of the check-availability endpoint.
type AvailabilityView struct {
	Available           bool   `json:"available"`
	Message             string `json:"message"`
	AttemptsUsed        *int   `json:"attemptsUsed,omitempty"`
	MaxAttempts         any    `json:"maxAttempts,omitempty"`
	RemainingAttempts   any    `json:"remainingAttempts,omitempty"`
	IsUnlimitedAttempts *bool  `json:"isUnlimitedAttempts,omitempty"`
}

// View renders a decision. Denials before the attempt check carry only a
// message; an exhausted cap reports the counts.
func (d Decision) View() AvailabilityView {
	used := d.AttemptsUsed
	unlimited := d.Policy.IsUnlimited()
	if !d.Allowed {
		v := AvailabilityView{Message: d.Err().(*DeniedError).Message()}
		if d.Reason == DenyAttemptsExhausted {
			v.AttemptsUsed = &used
			v.MaxAttempts = d.Policy.Cap()
			v.IsUnlimitedAttempts = &unlimited
		}
		return v
	}
	v := AvailabilityView{
		Available:           true,
		Message:             "The exam is available",
		AttemptsUsed:        &used,
		IsUnlimitedAttempts: &unlimited,
	}
	if unlimited {
		v.MaxAttempts = unlimitedLabel
		v.RemainingAttempts = unlimitedLabel
	} else {
		v.MaxAttempts = d.Policy.Cap()
		v.RemainingAttempts = remainingValue(d.Policy, used)
	}
	return v
}

// remainingValue is an int, or "unlimited".
func remainingValue(p AttemptPolicy, used int) any {
	rem, unlimited := p.Remaining(used)
	if unlimited {
		return unlimitedLabel
	}
	return rem
}

// SubmitResponse is the body returned for an accepted submission. Results
// is present only when the exam shows results immediately.
type SubmitResponse struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	ResultID      string          `json:"resultId"`
	AttemptID     string          `json:"attemptId"`
	AttemptNumber int             `json:"attemptNumber"`
	Passed        bool            `json:"passed"`
	Results       *grading.Result `json:"results,omitempty"`
}

// Outcome is a recorded, scored submission.
type Outcome struct {
	Exam     Exam
	Result   grading.Result
	Recorded Recorded
}

func (o Outcome) Response() SubmitResponse {
	resp := SubmitResponse{
		Success:       true,
		ResultID:      o.Recorded.LedgerID,
		AttemptID:     o.Recorded.Record.ID,
		AttemptNumber: o.Recorded.Record.AttemptNumber,
		Passed:        o.Result.Passed,
	}
	if o.Result.Passed {
		resp.Message = "Congratulations! You passed the exam"
	} else {
		resp.Message = "Unfortunately, you did not reach the passing score"
	}
	if o.Exam.ShowResultsImmediately {
		r := o.Result
		resp.Results = &r
	}
	return resp
}

// ResultSummary is one row of a student's result history.
type ResultSummary struct {
	ID             string    `json:"_id"`
	ExamID         string    `json:"examId,omitempty"`
	ExamTitle      string    `json:"examTitle"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	ExamDate       time.Time `json:"examDate"`
	AttemptNumber  int       `json:"attemptNumber"`
}

func summarize(recs []AttemptRecord) []ResultSummary {
	out := make([]ResultSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, ResultSummary{
			ID:             r.ID,
			ExamID:         r.ExamID,
			ExamTitle:      r.ExamTitle,
			Score:          r.CorrectAnswers,
			TotalQuestions: r.TotalQuestions,
			Percentage:     grading.Percentage(r.CorrectAnswers, r.TotalQuestions),
			ExamDate:       r.ExamDate,
			AttemptNumber:  r.AttemptNumber,
		})
	}
	return out
}
