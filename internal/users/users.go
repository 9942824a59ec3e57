package users

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/studentexam/internal/exam"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalid            = errors.New("invalid user")
)

// HashCost is the bcrypt cost for new password hashes.
var HashCost = 12

type User struct {
	ID           string `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Role         string `json:"role" db:"role"`
	PasswordHash string `json:"-" db:"password_hash"`
}

// Input is one row of a bulk upsert. Password is plaintext and optional
// for existing users.
type Input struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

type Repo interface {
	// Find looks a user up by id or username.
	Find(ctx context.Context, idOrUsername string) (User, error)
	List(ctx context.Context, role string) ([]User, error)
	Upsert(ctx context.Context, rows []Input) (inserted, updated int, err error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	exam.StudentDirectory
}

// Authenticate checks username and password against the stored hash.
func Authenticate(ctx context.Context, r Repo, username, password string) (User, error) {
	u, err := r.Find(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword verifies the old password before storing a new hash.
func ChangePassword(ctx context.Context, r Repo, id, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password required", ErrInvalid)
	}
	u, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return r.SetPasswordHash(ctx, u.ID, hash)
}

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), HashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// normalize defaults the role and rejects unknown roles.
func normalize(in Input) (Input, error) {
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = RoleStudent
	}
	switch in.Role {
	case RoleStudent, RoleInstructor, RoleAdmin:
	default:
		return in, fmt.Errorf("%w: invalid role: %s", ErrInvalid, in.Role)
	}
	if in.ID == "" || in.Username == "" {
		return in, fmt.Errorf("%w: id and username required", ErrInvalid)
	}
	return in, nil
}

// ParseCSV reads rows with an id,username,role header and optional
// name, email and password columns.
func ParseCSV(r io.Reader) ([]Input, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"id", "username", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	optional := func(rec []string, col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	var rows []Input
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, Input{
			ID:       rec[idx["id"]],
			Username: rec[idx["username"]],
			Role:     strings.ToLower(rec[idx["role"]]),
			Name:     optional(rec, "name"),
			Email:    optional(rec, "email"),
			Password: optional(rec, "password"),
		})
	}
	return rows, nil
}
