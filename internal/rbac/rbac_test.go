package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_Has(t *testing.T) {
	c := NewChecker(map[string][]string{
		"student": {"exam:view", "result:*"},
		"admin":   {"*"},
	})
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"student", "exam:view", true},
		{"student", "exam:take", false},
		{"student", "result:view-own", true},
		{"admin", "anything:at-all", true},
		{"guest", "exam:view", false},
		{"", "exam:view", false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.perm, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Has(tt.role, tt.perm))
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has("student", "attempt:submit"))
	assert.False(t, c.Has("student", "result:view-all"))
	assert.True(t, c.Has("instructor", "result:view-all"))
	assert.False(t, c.Has("instructor", "attempt:submit"))
	assert.True(t, c.Has("admin", "users:bulk_upsert"))
}

func serve(h http.Handler, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithRole(req.Context(), role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("attempt:submit")(ok)

	assert.Equal(t, http.StatusNoContent, serve(h, "student").Code)
	rec := serve(h, "instructor")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"forbidden"}`, rec.Body.String())
	assert.Equal(t, http.StatusForbidden, serve(h, "").Code)
}

func TestRequireOwnerOr(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	owner := RequireOwnerOr("result:view-all", func(*http.Request) bool { return true })(ok)
	stranger := RequireOwnerOr("result:view-all", func(*http.Request) bool { return false })(ok)

	assert.Equal(t, http.StatusNoContent, serve(owner, "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(owner, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(stranger, "student").Code)
	assert.Equal(t, http.StatusNoContent, serve(stranger, "instructor").Code)
}
