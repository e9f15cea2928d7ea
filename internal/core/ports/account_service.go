package ports

import (
	"context"

	"github.com/99minutos/user-management/internal/core/domain"
)

// RegisterInput carries the public registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Address  string
	Role     string
}

// UpdateUserInput carries an administrative profile update. Email, Name,
// Address and Role are always applied; Password only when non-empty.
type UpdateUserInput struct {
	Email    string
	Password string
	Name     string
	Address  string
	Role     string
}

// AccountService is the core user-management use-case surface. Every method
// returns an Outcome and never a Go error.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) Outcome
	Login(ctx context.Context, email, password string) Outcome
	ListUsers(ctx context.Context, caller domain.Principal) Outcome
	GetUserByID(ctx context.Context, caller domain.Principal, id int64) Outcome
	GetMyProfile(ctx context.Context, caller domain.Principal) Outcome
	UpdateUser(ctx context.Context, caller domain.Principal, id int64, in UpdateUserInput) Outcome
	DeleteUser(ctx context.Context, caller domain.Principal, id int64) Outcome
}
