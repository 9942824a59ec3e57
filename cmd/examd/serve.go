package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	api "github.com/mind-engage/studentexam/internal/api/http"
	auth "github.com/mind-engage/studentexam/internal/auth/middleware"
	"github.com/mind-engage/studentexam/internal/config"
	"github.com/mind-engage/studentexam/internal/exam"
	syncx "github.com/mind-engage/studentexam/internal/sync"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	a, err := openApp(openCtx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := exam.Options{
		Both:      exam.BothVisibilityPolicy(cfg.Exam.BothVisibilityPolicy),
		Directory: a.users,
	}

	// --- Exam cache ---
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		opts.Exams = exam.NewCachedExams(a.store, rdb, cfg.Redis.TTL)
		log.Printf("exam cache: redis %s (ttl=%s)", cfg.Redis.Addr, cfg.Redis.TTL)
	}

	// --- Events ---
	var sinks syncx.Multi
	if a.conn != nil {
		sinks = append(sinks, syncx.NewEventRepo(a.conn, ""))
	}
	if cfg.AMQP.URL != "" {
		pub, err := syncx.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer func() { _ = pub.Close() }()
		sinks = append(sinks, pub)
	}
	if len(sinks) > 0 {
		opts.Events = sinks
	}

	svc := exam.NewService(a.store, opts)
	authSvc := auth.NewAuthService(cfg.Auth.HMACSecret, cfg.Auth.TokenTTL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, a, svc, authSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, a *app, svc *exam.Service, authSvc *auth.AuthService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	deps := api.Deps{
		Exams:          svc,
		Users:          a.users,
		Auth:           authSvc,
		LocalLogin:     cfg.Auth.EnableLocalLogin,
		AllowClaimRole: cfg.Auth.AllowClaimRole,
	}
	if a.conn != nil {
		deps.Events = syncx.NewEventRepo(a.conn, "")
	}
	api.Mount(r, deps)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.conn != nil {
			if err := a.conn.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
