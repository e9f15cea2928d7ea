// Package memory provides a process-local UserRepository used by tests and by
// the "memory" store driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// UserRepository keeps users in maps guarded by a RWMutex. Ids come from a
// monotonically increasing counter and are never reused.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[int64]*domain.User
	byEmail map[string]int64
	lastID  int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*domain.User),
		byEmail: make(map[string]int64),
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

// FindAll returns users ordered by id.
func (r *UserRepository) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Save(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := u.Email
	if owner, taken := r.byEmail[key]; taken && owner != u.ID {
		return nil, domain.ErrUserExists
	}

	stored := u.Clone()
	if stored.ID == 0 {
		r.lastID++
		stored.ID = r.lastID
	} else {
		prev, ok := r.byID[stored.ID]
		if !ok {
			return nil, domain.ErrUserNotFound
		}
		delete(r.byEmail, prev.Email)
	}

	r.byID[stored.ID] = stored
	r.byEmail[key] = stored.ID
	return stored.Clone(), nil
}

func (r *UserRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}
