package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mind-engage/studentexam/internal/exam"
	"github.com/mind-engage/studentexam/internal/users"
)

// fixtures is the seed file format. Ledgers carry historical records,
// including legacy ones without an exam id.
type fixtures struct {
	Users       []users.Input     `json:"users"`
	Exams       []exam.Exam       `json:"exams"`
	Enrollments []exam.Enrollment `json:"enrollments"`
	Ledgers     []exam.Ledger     `json:"ledgers"`
}

type seedSummary struct {
	UsersInserted, UsersUpdated int
	Exams, Enrollments, Ledgers int
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, exams, enrollments and ledgers from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			fx, err := readFixtures(f)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			store, err := a.sqlStore()
			if err != nil {
				return err
			}

			sum, err := seed(ctx, store, a.users, fx)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr != "" && len(fx.Exams) > 0 {
				if err := invalidateExams(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, store, fx.Exams); err != nil {
					fmt.Fprintf(os.Stderr, "warning: exam cache not invalidated: %v\n", err)
				}
			}
			fmt.Printf("seeded: users %d new, %d updated; %d exams; %d enrollments; %d ledgers\n",
				sum.UsersInserted, sum.UsersUpdated, sum.Exams, sum.Enrollments, sum.Ledgers)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.json", "fixture file")
	return cmd
}

func readFixtures(r io.Reader) (fixtures, error) {
	var fx fixtures
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return fx, nil
}

func seed(ctx context.Context, store *exam.SQLStore, repo users.Repo, fx fixtures) (seedSummary, error) {
	var sum seedSummary
	var err error
	if len(fx.Users) > 0 {
		if sum.UsersInserted, sum.UsersUpdated, err = repo.Upsert(ctx, fx.Users); err != nil {
			return sum, fmt.Errorf("users: %w", err)
		}
	}
	for _, e := range fx.Exams {
		if err := store.PutExam(ctx, e); err != nil {
			return sum, fmt.Errorf("exam %s: %w", e.ID, err)
		}
		sum.Exams++
	}
	for _, en := range fx.Enrollments {
		if err := store.PutEnrollment(ctx, en); err != nil {
			return sum, fmt.Errorf("enrollment %s/%s: %w", en.StudentID, en.CourseID, err)
		}
		sum.Enrollments++
	}
	for _, l := range fx.Ledgers {
		if err := store.ImportLedger(ctx, l); err != nil {
			return sum, fmt.Errorf("ledger for %s: %w", l.StudentID, err)
		}
		sum.Ledgers++
	}
	return sum, nil
}

// invalidateExams drops rewritten exams from a running server's cache.
func invalidateExams(ctx context.Context, addr, password string, db int, store exam.ExamRepository, exams []exam.Exam) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	defer func() { _ = rdb.Close() }()
	ids := make([]string, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	return exam.NewCachedExams(store, rdb, 0).Invalidate(ctx, ids...)
}
