package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/studentexam/internal/rbac"
	"github.com/mind-engage/studentexam/internal/users"
)

// AttachRole replaces the token's role with the one stored for the user.
// Tokens for users missing from the directory keep their claimed role only
// when allowClaimFallback is set (offline deployments).
func AttachRole(repo users.Repo, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			u, err := repo.Find(ctx, sub)
			switch {
			case err == nil && u.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, users.ErrNotFound) && allowClaimFallback && claimRole != "":
				next.ServeHTTP(w, r)
			case err != nil && !errors.Is(err, users.ErrNotFound):
				log.Printf("[auth] role lookup %s: %v", sub, err)
				writeJSONError(w, http.StatusServiceUnavailable, "role lookup failed")
			default:
				writeJSONError(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}
