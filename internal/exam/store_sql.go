package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/studentexam/internal/db"
)

// SQLStore is the Store backed by sqlite, postgres or mysql. Queries are
// written with ? placeholders and rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(conn *sqlx.DB) *SQLStore {
	return &SQLStore{db: conn}
}

type examRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	DurationMin   int            `db:"duration_min"`
	QuestionsJSON string         `db:"questions_json"`
	Visibility    string         `db:"visibility"`
	CourseID      sql.NullString `db:"course_id"`
	PassingScore  int            `db:"passing_score"`
	MaxAttempts   int            `db:"max_attempts"`
	IsUnlimited   sql.NullInt64  `db:"is_unlimited_attempts"`
	ShowResults   int            `db:"show_results_immediately"`
	Shuffle       int            `db:"shuffle_questions"`
	IsActive      int            `db:"is_active"`
	StartAt       sql.NullInt64  `db:"start_at"`
	EndAt         sql.NullInt64  `db:"end_at"`
	Instructions  string         `db:"instructions"`
	CreatedAt     int64          `db:"created_at"`
}

const examColumns = `id, title, duration_min, questions_json, visibility, course_id, passing_score,
	max_attempts, is_unlimited_attempts, show_results_immediately, shuffle_questions, is_active,
	start_at, end_at, instructions, created_at`

func (r examRow) toExam() (Exam, error) {
	e := Exam{
		ID:                     r.ID,
		Title:                  r.Title,
		DurationMin:            r.DurationMin,
		Visibility:             Visibility(r.Visibility),
		CourseID:               r.CourseID.String,
		PassingScore:           r.PassingScore,
		MaxAttempts:            r.MaxAttempts,
		ShowResultsImmediately: r.ShowResults != 0,
		ShuffleQuestions:       r.Shuffle != 0,
		IsActive:               r.IsActive != 0,
		Instructions:           r.Instructions,
		CreatedAt:              time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.IsUnlimited.Valid {
		v := r.IsUnlimited.Int64 != 0
		e.IsUnlimitedAttempts = &v
	}
	e.StartDate = fromMillis(r.StartAt)
	e.EndDate = fromMillis(r.EndAt)
	if err := json.Unmarshal([]byte(r.QuestionsJSON), &e.Questions); err != nil {
		return Exam{}, fmt.Errorf("decode questions of exam %q: %w", r.ID, err)
	}
	return e, nil
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	if e.ID == "" {
		return Validationf("exam id required")
	}
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var unlimited sql.NullInt64
	if e.IsUnlimitedAttempts != nil {
		unlimited = sql.NullInt64{Int64: b2i(*e.IsUnlimitedAttempts), Valid: true}
	}
	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM exams WHERE id = ?`), e.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO exams (`+examColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
			e.ID, e.Title, e.DurationMin, string(qj), string(e.Visibility), nullString(e.CourseID),
			e.PassingScore, e.MaxAttempts, unlimited, b2i(e.ShowResultsImmediately), b2i(e.ShuffleQuestions),
			b2i(e.IsActive), toMillis(e.StartDate), toMillis(e.EndDate), e.Instructions, e.CreatedAt.UnixMilli())
		return err
	})
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	var row examRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+examColumns+` FROM exams WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Exam{}, err
	}
	return row.toExam()
}

func (s *SQLStore) ListAvailable(ctx context.Context, opts AvailableOpts) ([]Exam, int, error) {
	now := opts.Now.UnixMilli()
	where := `is_active = 1
		AND (start_at IS NULL OR start_at <= ?)
		AND (end_at IS NULL OR end_at >= ?)`
	args := []any{now, now}
	if len(opts.PaidCourseIDs) > 0 {
		where += ` AND (visibility IN ('public','both') OR (visibility = 'course_only' AND course_id IN (?)))`
		args = append(args, opts.PaidCourseIDs)
	} else {
		where += ` AND visibility IN ('public','both')`
	}

	countQ, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM exams WHERE `+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQ), countArgs...); err != nil {
		return nil, 0, err
	}

	listQ := `SELECT ` + examColumns + ` FROM exams WHERE ` + where + ` ORDER BY created_at DESC, id ASC`
	if opts.Limit > 0 {
		listQ += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}
	listQ, listArgs, err := sqlx.In(listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	var rows []examRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listQ), listArgs...); err != nil {
		return nil, 0, err
	}
	out := make([]Exam, 0, len(rows))
	for _, r := range rows {
		e, err := r.toExam()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}

func (s *SQLStore) PutEnrollment(ctx context.Context, en Enrollment) error {
	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM enrollments WHERE student_id = ? AND course_id = ?`),
			en.StudentID, en.CourseID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO enrollments (student_id, course_id, payment_status) VALUES (?,?,?)`),
			en.StudentID, en.CourseID, en.PaymentStatus)
		return err
	})
}

func (s *SQLStore) IsPaid(ctx context.Context, studentID, courseID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM enrollments
		WHERE student_id = ? AND course_id = ? AND payment_status = ?`), studentID, courseID, PaymentPaid)
	return n > 0, err
}

func (s *SQLStore) PaidCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(`SELECT course_id FROM enrollments
		WHERE student_id = ? AND payment_status = ? ORDER BY course_id`), studentID, PaymentPaid)
	return ids, err
}

type recordRow struct {
	ID             string         `db:"id"`
	LedgerID       string         `db:"ledger_id"`
	StudentID      string         `db:"student_id"`
	ExamID         sql.NullString `db:"exam_id"`
	ExamTitle      string         `db:"exam_title"`
	TotalQuestions int            `db:"total_questions"`
	CorrectAnswers int            `db:"correct_answers"`
	AttemptNumber  int            `db:"attempt_number"`
	TimeSpentSec   int            `db:"time_spent_sec"`
	SubmittedAt    int64          `db:"submitted_at"`
}

const recordColumns = `id, ledger_id, student_id, exam_id, exam_title, total_questions,
	correct_answers, attempt_number, time_spent_sec, submitted_at`

func (r recordRow) toRecord() AttemptRecord {
	return AttemptRecord{
		ID:             r.ID,
		ExamID:         r.ExamID.String,
		ExamTitle:      r.ExamTitle,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		ExamDate:       time.UnixMilli(r.SubmittedAt).UTC(),
		AttemptNumber:  r.AttemptNumber,
		TimeSpentSec:   r.TimeSpentSec,
	}
}

type ledgerRow struct {
	ID        string `db:"id"`
	StudentID string `db:"student_id"`
	CreatedAt int64  `db:"created_at"`
}

func (s *SQLStore) CountAttempts(ctx context.Context, studentID, examID string) (int, error) {
	return countAttempts(ctx, s.db, studentID, examID)
}

func countAttempts(ctx context.Context, q sqlx.ExtContext, studentID, examID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM attempt_records WHERE student_id = ? AND exam_id = ?`),
		studentID, examID)
	return n, err
}

// AppendAttempt counts, re-checks the cap and inserts in one transaction.
// The unique index on (student_id, exam_id, attempt_number) turns a lost
// race into ErrConflict.
func (s *SQLStore) AppendAttempt(ctx context.Context, in AppendInput) (AttemptRecord, string, error) {
	var (
		rec      AttemptRecord
		ledgerID string
	)
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		prior, err := countAttempts(ctx, tx, in.StudentID, in.ExamID)
		if err != nil {
			return err
		}
		if in.Policy.Exhausted(prior) {
			return &DeniedError{Reason: DenyAttemptsExhausted, Policy: in.Policy, Used: prior}
		}
		ledgerID, err = ensureLedger(ctx, tx, in.StudentID, in.SubmittedAt)
		if err != nil {
			return err
		}
		rec = AttemptRecord{
			ID:             uuid.NewString(),
			ExamID:         in.ExamID,
			ExamTitle:      in.ExamTitle,
			TotalQuestions: in.TotalQuestions,
			CorrectAnswers: in.CorrectAnswers,
			ExamDate:       in.SubmittedAt.UTC(),
			AttemptNumber:  prior + 1,
			TimeSpentSec:   in.TimeSpentSec,
		}
		return insertRecord(ctx, tx, ledgerID, in.StudentID, rec)
	})
	if err != nil {
		if db.IsContention(err) {
			return AttemptRecord{}, "", fmt.Errorf("append attempt %d for %s/%s: %w", rec.AttemptNumber, in.StudentID, in.ExamID, ErrConflict)
		}
		return AttemptRecord{}, "", err
	}
	return rec, ledgerID, nil
}

func ensureLedger(ctx context.Context, tx *sqlx.Tx, studentID string, at time.Time) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM ledgers WHERE student_id = ?`), studentID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO ledgers (id, student_id, created_at) VALUES (?,?,?)`),
		id, studentID, at.UnixMilli())
	return id, err
}

func insertRecord(ctx context.Context, tx *sqlx.Tx, ledgerID, studentID string, r AttemptRecord) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO attempt_records (`+recordColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?)`),
		r.ID, ledgerID, studentID, nullString(r.ExamID), r.ExamTitle, r.TotalQuestions,
		r.CorrectAnswers, r.AttemptNumber, r.TimeSpentSec, r.ExamDate.UnixMilli())
	return err
}

func (s *SQLStore) Ledger(ctx context.Context, studentID string) (Ledger, error) {
	var lr ledgerRow
	err := s.db.GetContext(ctx, &lr, s.db.Rebind(`SELECT id, student_id, created_at FROM ledgers WHERE student_id = ?`), studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return Ledger{}, fmt.Errorf("ledger for %q: %w", studentID, ErrNotFound)
	}
	if err != nil {
		return Ledger{}, err
	}
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+recordColumns+` FROM attempt_records
		WHERE ledger_id = ? ORDER BY submitted_at ASC, attempt_number ASC`), lr.ID); err != nil {
		return Ledger{}, err
	}
	l := Ledger{ID: lr.ID, StudentID: lr.StudentID, CreatedAt: time.UnixMilli(lr.CreatedAt).UTC(), Results: []AttemptRecord{}}
	for _, r := range rows {
		l.Results = append(l.Results, r.toRecord())
	}
	return l, nil
}

func (s *SQLStore) ExamHistory(ctx context.Context, studentID, examID string) ([]AttemptRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+recordColumns+` FROM attempt_records
		WHERE student_id = ? AND exam_id = ? ORDER BY attempt_number ASC`), studentID, examID); err != nil {
		return nil, err
	}
	out := make([]AttemptRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (s *SQLStore) AllLedgers(ctx context.Context) ([]Ledger, error) {
	var lrs []ledgerRow
	if err := s.db.SelectContext(ctx, &lrs, `SELECT id, student_id, created_at FROM ledgers ORDER BY created_at DESC, id ASC`); err != nil {
		return nil, err
	}
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+recordColumns+` FROM attempt_records
		ORDER BY submitted_at ASC, attempt_number ASC`); err != nil {
		return nil, err
	}
	byLedger := map[string][]AttemptRecord{}
	for _, r := range rows {
		byLedger[r.LedgerID] = append(byLedger[r.LedgerID], r.toRecord())
	}
	out := make([]Ledger, 0, len(lrs))
	for _, lr := range lrs {
		recs := byLedger[lr.ID]
		if recs == nil {
			recs = []AttemptRecord{}
		}
		out = append(out, Ledger{ID: lr.ID, StudentID: lr.StudentID, CreatedAt: time.UnixMilli(lr.CreatedAt).UTC(), Results: recs})
	}
	return out, nil
}

// ImportLedger writes records as given, keeping their attempt numbers.
// Records without an exam id are legacy title-keyed entries.
func (s *SQLStore) ImportLedger(ctx context.Context, l Ledger) error {
	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		created := l.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		ledgerID, err := ensureLedger(ctx, tx, l.StudentID, created)
		if err != nil {
			return err
		}
		for _, r := range l.Results {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			if err := insertRecord(ctx, tx, ledgerID, l.StudentID, r); err != nil {
				if db.IsUniqueViolation(err) {
					return fmt.Errorf("import record %s: %w", r.ID, ErrConflict)
				}
				return err
			}
		}
		return nil
	})
}

// MigrationReport summarizes a legacy title-to-identity migration.
type MigrationReport struct {
	DryRun bool
	// Migrated maps exam title to the number of records assigned an id.
	Migrated   map[string]int
	Ambiguous  []string
	Unmatched  []string
	Conflicted []string
}

// MigrateLegacyTitles assigns exam ids to records that only carry a
// title. Titles shared by several exams, titles with no exam, and titles
// whose numbering collides with identity-keyed records are reported and
// left untouched. Attempt numbers are never rewritten.
func (s *SQLStore) MigrateLegacyTitles(ctx context.Context, dryRun bool) (MigrationReport, error) {
	rep := MigrationReport{DryRun: dryRun, Migrated: map[string]int{}}

	var exams []struct {
		ID    string `db:"id"`
		Title string `db:"title"`
	}
	if err := s.db.SelectContext(ctx, &exams, `SELECT id, title FROM exams`); err != nil {
		return rep, err
	}
	byTitle := map[string][]string{}
	for _, e := range exams {
		byTitle[e.Title] = append(byTitle[e.Title], e.ID)
	}

	var legacy []struct {
		Title string `db:"exam_title"`
		N     int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &legacy, `SELECT exam_title, COUNT(*) AS n FROM attempt_records
		WHERE exam_id IS NULL GROUP BY exam_title ORDER BY exam_title`); err != nil {
		return rep, err
	}

	for _, lg := range legacy {
		ids := byTitle[lg.Title]
		switch {
		case len(ids) == 0:
			rep.Unmatched = append(rep.Unmatched, lg.Title)
			continue
		case len(ids) > 1:
			rep.Ambiguous = append(rep.Ambiguous, lg.Title)
			continue
		}
		if dryRun {
			rep.Migrated[lg.Title] = lg.N
			continue
		}
		err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE attempt_records SET exam_id = ?
				WHERE exam_id IS NULL AND exam_title = ?`), ids[0], lg.Title)
			return err
		})
		switch {
		case err == nil:
			rep.Migrated[lg.Title] = lg.N
		case db.IsUniqueViolation(err):
			rep.Conflicted = append(rep.Conflicted, lg.Title)
		default:
			return rep, fmt.Errorf("migrate %q: %w", lg.Title, err)
		}
	}
	return rep, nil
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
