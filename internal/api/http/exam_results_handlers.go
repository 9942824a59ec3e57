package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/studentexam/internal/auth/middleware"
	"github.com/mind-engage/studentexam/internal/exam"
)

func MyResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lv, err := svc.LedgerFor(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, lv)
	}
}

func AllResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := svc.AllLedgers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, all)
	}
}

func StudentResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lv, err := svc.LedgerFor(r.Context(), chi.URLParam(r, "studentId"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, lv)
	}
}

func StudentHistoryHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := svc.History(r.Context(), chi.URLParam(r, "studentId"), chi.URLParam(r, "examId"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"results": recs})
	}
}

// GET /examResult/by-exam/{examId}
func ResultsByExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.StudentsByExam(r.Context(), chi.URLParam(r, "examId"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"students": ps})
	}
}

func RankingsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := svc.Rankings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rs)
	}
}

// GET /examResult/top-performers?limit=3
func TopPerformersHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := svc.TopPerformers(r.Context(), parseIntDefault(r.URL.Query().Get("limit"), 3))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rs)
	}
}

func StudentRankHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rv, err := svc.StudentRank(r.Context(), chi.URLParam(r, "studentId"))
		if err != nil {
			writeError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rv)
	}
}
