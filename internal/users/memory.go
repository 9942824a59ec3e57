package users

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/studentexam/internal/exam"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User // id
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{users: map[string]User{}} }

func (m *MemoryRepo) Find(_ context.Context, idOrUsername string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[idOrUsername]; ok {
		return u, nil
	}
	for _, u := range m.users {
		if u.Username == idOrUsername {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, role string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []User{}
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, rows []Input) (inserted, updated int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]User, len(m.users))
	for k, v := range m.users {
		next[k] = v
	}
	for _, in := range rows {
		in, err := normalize(in)
		if err != nil {
			return 0, 0, err
		}
		u, exists := next[in.ID]
		if !exists && in.Password == "" {
			return 0, 0, fmt.Errorf("%w: password required for new user: %s", ErrInvalid, in.Username)
		}
		u.ID, u.Username, u.Name, u.Email, u.Role = in.ID, in.Username, in.Name, in.Email, in.Role
		if in.Password != "" {
			if u.PasswordHash, err = HashPassword(in.Password); err != nil {
				return 0, 0, err
			}
		}
		next[in.ID] = u
		if exists {
			updated++
		} else {
			inserted++
		}
	}
	m.users = next
	return inserted, updated, nil
}

func (m *MemoryRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *MemoryRepo) Profiles(_ context.Context, ids []string) (map[string]exam.StudentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]exam.StudentProfile{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = exam.StudentProfile{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return out, nil
}
