package ports

import (
	"context"

	"github.com/99minutos/user-management/internal/core/domain"
)

// UserRepository is the record store the Account Service persists users in.
// Implementations enforce email uniqueness and report it as domain.ErrUserExists.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has that email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when id is unknown.
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	// Save inserts u when u.ID is zero (assigning a fresh id) and replaces the
	// stored record otherwise.
	Save(ctx context.Context, u *domain.User) (*domain.User, error)
	DeleteByID(ctx context.Context, id int64) error
}
