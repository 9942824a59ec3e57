package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/studentexam/internal/auth/middleware"
	"github.com/mind-engage/studentexam/internal/exam"
)

// GET /studentExam/available?page=&limit=
func AvailableExamsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := parseIntDefault(r.URL.Query().Get("page"), 1)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 10)
		out, err := svc.Available(r.Context(), authmw.SubjectFromContext(r.Context()), page, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GET /studentExam/check-availability/{id}. Denials are 200 with available=false.
func CheckAvailabilityHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.CheckAvailability(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, d.View())
	}
}

// GET /studentExam/exam/{id}
func StudentExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex, err := svc.ExamForStudent(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, ex)
	}
}

// POST /studentExam/submit/{id}  { "answers": {"q1": "a"}, "timeSpent": 120 }
func SubmitExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub exam.Submission
		if err := decodeBody(r.Body, &sub); err != nil {
			writeError(w, err)
			return
		}
		if err := validateBody(sub); err != nil {
			writeError(w, err)
			return
		}
		out, err := svc.Submit(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "id"), sub)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, out.Response())
	}
}

// GET /studentExam/{id}/results?scope=all|exam
func ExamResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := exam.ScopeAll
		if r.URL.Query().Get("scope") == string(exam.ScopeExam) {
			scope = exam.ScopeExam
		}
		res, err := svc.Results(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "id"), scope)
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"results": res})
	}
}
