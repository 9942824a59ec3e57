package http

import (
	"encoding/json"
	"net/http"

	authmw "github.com/mind-engage/studentexam/internal/auth/middleware"
	"github.com/mind-engage/studentexam/internal/users"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// POST /users/change-password
func ChangePasswordHandler(repo users.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		if err := validateBody(req); err != nil {
			writeError(w, err)
			return
		}
		if err := users.ChangePassword(r.Context(), repo, userID, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
