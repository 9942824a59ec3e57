package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/mind-engage/studentexam/internal/exam"
	"github.com/mind-engage/studentexam/internal/users"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var denied *exam.DeniedError
	switch {
	case errors.As(err, &denied):
		respondJSON(w, http.StatusForbidden, map[string]any{
			"message": denied.Message(),
			"reason":  denied.Reason,
		})
	case errors.Is(err, exam.ErrForbidden):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, exam.ErrNotFound), errors.Is(err, users.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exam.ErrValidation), errors.Is(err, users.ErrInvalid):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		writeMessage(w, http.StatusForbidden, "incorrect old password")
	case errors.Is(err, exam.ErrConflict), errors.Is(err, exam.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		w.Header().Set("Retry-After", "1")
		writeMessage(w, http.StatusServiceUnavailable, "temporarily unavailable, please retry")
	default:
		log.Printf("[http] internal error: %v", err)
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
