package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/studentexam/internal/db"
	"github.com/mind-engage/studentexam/internal/exam"
)

type SQLRepo struct {
	db *sqlx.DB
}

func NewSQLRepo(conn *sqlx.DB) *SQLRepo { return &SQLRepo{db: conn} }

const userColumns = `id, username, name, email, role, password_hash`

func (r *SQLRepo) Find(ctx context.Context, idOrUsername string) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ? OR username = ?`),
		idOrUsername, idOrUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *SQLRepo) List(ctx context.Context, role string) ([]User, error) {
	out := []User{}
	var err error
	if role == "" {
		err = r.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY username`)
	} else {
		err = r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY username`), role)
	}
	return out, err
}

// Upsert updates existing users (matched by id or username) and inserts
// new ones; a new user must carry a password.
func (r *SQLRepo) Upsert(ctx context.Context, rows []Input) (inserted, updated int, err error) {
	err = db.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		inserted, updated = 0, 0
		for _, in := range rows {
			in, err := normalize(in)
			if err != nil {
				return err
			}
			var hash string
			if in.Password != "" {
				if hash, err = HashPassword(in.Password); err != nil {
					return err
				}
			}

			var n int
			if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM users WHERE id = ? OR username = ?`),
				in.ID, in.Username); err != nil {
				return err
			}
			if n > 0 {
				q := `UPDATE users SET username = ?, name = ?, email = ?, role = ? WHERE id = ?`
				args := []any{in.Username, in.Name, in.Email, in.Role, in.ID}
				if hash != "" {
					q = `UPDATE users SET username = ?, name = ?, email = ?, role = ?, password_hash = ? WHERE id = ?`
					args = []any{in.Username, in.Name, in.Email, in.Role, hash, in.ID}
				}
				if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
					return err
				}
				updated++
				continue
			}
			if hash == "" {
				return fmt.Errorf("%w: password required for new user: %s", ErrInvalid, in.Username)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?)`),
				in.ID, in.Username, in.Name, in.Email, in.Role, hash); err != nil {
				if db.IsUniqueViolation(err) {
					return fmt.Errorf("%w: duplicate username: %s", ErrInvalid, in.Username)
				}
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, updated, err
}

func (r *SQLRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) Profiles(ctx context.Context, ids []string) (map[string]exam.StudentProfile, error) {
	out := map[string]exam.StudentProfile{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT id, name, email FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []exam.StudentProfile
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
