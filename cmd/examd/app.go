package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go"
	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/studentexam/internal/config"
	"github.com/mind-engage/studentexam/internal/db"
	"github.com/mind-engage/studentexam/internal/exam"
	"github.com/mind-engage/studentexam/internal/users"
)

// app holds the storage shared by every command. conn is nil for the
// in-memory driver.
type app struct {
	cfg   *config.Config
	conn  *sqlx.DB
	store exam.Store
	users users.Repo
}

var errNeedsSQL = errors.New("this command needs a SQL database (db.driver is memory)")

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.DB.Driver == "memory" {
		log.Printf("using in-memory store; data is lost on exit")
		a.store = exam.NewInMemoryStore()
		a.users = users.NewMemoryRepo()
		return a, nil
	}

	pool := db.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}
	// The database container may still be starting.
	err := retry.Do(
		func() error {
			conn, err := db.Open(ctx, db.Driver(cfg.DB.Driver), cfg.DB.DSN, pool)
			if err != nil {
				return err
			}
			a.conn = conn
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("db open attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.store = exam.NewSQLStore(a.conn)
	a.users = users.NewSQLRepo(a.conn)
	return a, nil
}

func (a *app) sqlStore() (*exam.SQLStore, error) {
	s, ok := a.store.(*exam.SQLStore)
	if !ok {
		return nil, errNeedsSQL
	}
	return s, nil
}

func (a *app) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
