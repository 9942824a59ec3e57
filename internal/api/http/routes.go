package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/studentexam/internal/auth/middleware"
	"github.com/mind-engage/studentexam/internal/exam"
	"github.com/mind-engage/studentexam/internal/rbac"
	"github.com/mind-engage/studentexam/internal/users"
)

type Deps struct {
	Exams *exam.Service
	Users users.Repo
	Auth  *authmw.AuthService
	// LocalLogin mounts POST /auth/login.
	LocalLogin bool
	// AllowClaimRole keeps the token's role for users missing from Users.
	AllowClaimRole bool
	// Events mounts GET /events when set.
	Events EventFeed
}

// Mount registers the API on r. Everything but login requires a JWT.
func Mount(r chi.Router, d Deps) {
	if d.LocalLogin {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachRole(d.Users, d.AllowClaimRole))

		pr.Route("/studentExam", func(sr chi.Router) {
			sr.With(rbac.Require("exam:view")).Get("/available", AvailableExamsHandler(d.Exams))
			sr.With(rbac.Require("exam:take")).Get("/check-availability/{id}", CheckAvailabilityHandler(d.Exams))
			sr.With(rbac.Require("exam:take")).Get("/exam/{id}", StudentExamHandler(d.Exams))
			sr.With(rbac.Require("attempt:submit")).Post("/submit/{id}", SubmitExamHandler(d.Exams))
			sr.With(rbac.Require("result:view-own")).Get("/{id}/results", ExamResultsHandler(d.Exams))
		})

		pr.Route("/examResult", func(er chi.Router) {
			ownerOrStaff := rbac.RequireOwnerOr("result:view-all", isSubject("studentId"))

			er.With(rbac.Require("result:view-own")).Get("/getMe", MyResultsHandler(d.Exams))
			er.With(rbac.Require("result:view-all")).Get("/all", AllResultsHandler(d.Exams))
			er.With(rbac.Require("result:view-all")).Get("/rankings", RankingsHandler(d.Exams))
			er.With(rbac.Require("result:view-all")).Get("/top-performers", TopPerformersHandler(d.Exams))
			er.With(rbac.Require("result:view-all")).Get("/by-exam/{examId}", ResultsByExamHandler(d.Exams))
			er.With(ownerOrStaff).Get("/rank/{studentId}", StudentRankHandler(d.Exams))
			er.With(ownerOrStaff).Get("/{studentId}", StudentResultsHandler(d.Exams))
			er.With(ownerOrStaff).Get("/{studentId}/history/{examId}", StudentHistoryHandler(d.Exams))
		})

		pr.With(rbac.Require("users:bulk_upsert")).Post("/users/bulk", BulkUpsertUsersHandler(d.Users))
		pr.With(rbac.Require("users:list")).Get("/users", ListUsersHandler(d.Users))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", ChangePasswordHandler(d.Users))

		if d.Events != nil {
			pr.With(rbac.Require("events:read")).Get("/events", EventsHandler(d.Events))
		}
	})
}

// isSubject reports whether the URL parameter names the caller.
func isSubject(param string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		sub := authmw.SubjectFromContext(r.Context())
		return sub != "" && chi.URLParam(r, param) == sub
	}
}
