package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

const tracerName = "github.com/99minutos/user-management/internal/core/service"

// AccountService orchestrates registration, login and administrative user
// management. Every method converts failures into a ports.Outcome.
type AccountService struct {
	repo              ports.UserRepository
	hasher            ports.PasswordHasher
	tokens            ports.TokenIssuer
	authFailureStatus int
	log               zerolog.Logger
	tracer            trace.Tracer
	now               func() time.Time
}

type AccountOption func(*AccountService)

// WithAuthFailureStatus sets the envelope status used for rejected logins.
// The default is 500, which existing clients rely on.
func WithAuthFailureStatus(code int) AccountOption {
	return func(s *AccountService) {
		if code > 0 {
			s.authFailureStatus = code
		}
	}
}

func WithLogger(log zerolog.Logger) AccountOption {
	return func(s *AccountService) { s.log = log }
}

func WithTracer(tracer trace.Tracer) AccountOption {
	return func(s *AccountService) { s.tracer = tracer }
}

func NewAccountService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, opts ...AccountOption) *AccountService {
	s := &AccountService{
		repo:              repo,
		hasher:            hasher,
		tokens:            tokens,
		authFailureStatus: http.StatusInternalServerError,
		log:               zerolog.Nop(),
		tracer:            otel.Tracer(tracerName),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.AccountService = (*AccountService)(nil)

// Register hashes the password and stores a new user.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) ports.Outcome {
	return s.run(ctx, domain.OpRegister, func(ctx context.Context) ports.Outcome {
		email := strings.TrimSpace(in.Email)
		if email == "" || in.Password == "" {
			return ports.Fail(http.StatusBadRequest, "email and password are required", domain.ErrValidation)
		}

		role := domain.RoleUser
		if strings.TrimSpace(in.Role) != "" {
			parsed, ok := domain.ParseRole(in.Role)
			if !ok {
				return ports.Fail(http.StatusBadRequest, fmt.Sprintf("unknown role %q", in.Role), domain.ErrValidation)
			}
			role = parsed
		}

		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return ports.Fail(http.StatusInternalServerError, "Error occurred while saving user", err)
		}

		now := s.now().UTC()
		saved, err := s.repo.Save(ctx, &domain.User{
			Email:        email,
			PasswordHash: hash,
			Name:         in.Name,
			Address:      in.Address,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("register failed")
			return ports.Fail(http.StatusInternalServerError, "Error occurred while saving user", err)
		}
		if saved.ID <= 0 {
			return ports.Fail(http.StatusInternalServerError, "Error occurred while saving user", errors.New("store did not assign an id"))
		}

		s.log.Info().Int64("user_id", saved.ID).Str("role", saved.Role.String()).Msg("user registered")
		return ports.OK("User Saved Successfully").WithUser(saved)
	})
}

// Login checks the credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) ports.Outcome {
	return s.run(ctx, domain.OpLogin, func(ctx context.Context) ports.Outcome {
		email = strings.TrimSpace(email)
		if email == "" || password == "" {
			return s.authFailure(email, domain.ErrValidation)
		}

		user, err := s.repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return s.authFailure(email, err)
			}
			return ports.Fail(http.StatusInternalServerError, err.Error(), err)
		}

		if !s.hasher.Verify(password, user.PasswordHash) {
			return s.authFailure(email, errors.New("password mismatch"))
		}

		token, err := s.tokens.Issue(user.Email, user.Role)
		if err != nil {
			return ports.Fail(http.StatusInternalServerError, err.Error(), err)
		}

		s.log.Info().Int64("user_id", user.ID).Msg("login succeeded")
		out := ports.OK("Successfully Logged In")
		out.Token = token
		out.Role = user.Role
		out.ExpirationTime = s.tokens.ExpirationLabel()
		return out
	})
}

// authFailure hides which half of the credentials was wrong.
func (s *AccountService) authFailure(email string, cause error) ports.Outcome {
	s.log.Info().Err(cause).Str("email", email).Msg("login rejected")
	return ports.Fail(s.authFailureStatus, domain.ErrInvalidCredentials.Error(), domain.ErrInvalidCredentials)
}

// ListUsers returns every stored user; an empty store is a 404.
func (s *AccountService) ListUsers(ctx context.Context, caller domain.Principal) ports.Outcome {
	return s.run(ctx, domain.OpListUsers, func(ctx context.Context) ports.Outcome {
		if denied, ok := s.authorize(domain.OpListUsers, caller); !ok {
			return denied
		}

		users, err := s.repo.FindAll(ctx)
		if err != nil {
			return ports.Fail(http.StatusInternalServerError, "Error occurred: "+err.Error(), err)
		}
		if len(users) == 0 {
			return ports.Fail(http.StatusNotFound, "No users found", nil)
		}
		return ports.OK("Successful").WithUsers(users)
	})
}

func (s *AccountService) GetUserByID(ctx context.Context, caller domain.Principal, id int64) ports.Outcome {
	return s.run(ctx, domain.OpGetUser, func(ctx context.Context) ports.Outcome {
		if denied, ok := s.authorize(domain.OpGetUser, caller); !ok {
			return denied
		}

		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return ports.Fail(http.StatusNotFound, "User Not found", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred: "+err.Error(), err)
		}
		return ports.OK(fmt.Sprintf("Users with id '%d' found successfully", id)).WithUser(user)
	})
}

// GetMyProfile looks the caller up by the token subject, never by a
// client-supplied id.
func (s *AccountService) GetMyProfile(ctx context.Context, caller domain.Principal) ports.Outcome {
	return s.run(ctx, domain.OpGetMyProfile, func(ctx context.Context) ports.Outcome {
		if denied, ok := s.authorize(domain.OpGetMyProfile, caller); !ok {
			return denied
		}

		user, err := s.repo.FindByEmail(ctx, caller.Email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				// Message kept verbatim for existing clients.
				return ports.Fail(http.StatusNotFound, "User not found for update", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred while getting user info: "+err.Error(), err)
		}
		return ports.OK("successful").WithUser(user)
	})
}

// UpdateUser overwrites email, name, address and role, and replaces the
// password hash only when a new password is supplied.
func (s *AccountService) UpdateUser(ctx context.Context, caller domain.Principal, id int64, in ports.UpdateUserInput) ports.Outcome {
	return s.run(ctx, domain.OpUpdateUser, func(ctx context.Context) ports.Outcome {
		if denied, ok := s.authorize(domain.OpUpdateUser, caller); !ok {
			return denied
		}

		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return ports.Fail(http.StatusNotFound, "User not found for update", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred while updating user: "+err.Error(), err)
		}

		email := strings.TrimSpace(in.Email)
		if email == "" {
			return ports.Fail(http.StatusBadRequest, "email is required", domain.ErrValidation)
		}
		role, ok := domain.ParseRole(in.Role)
		if !ok {
			return ports.Fail(http.StatusBadRequest, fmt.Sprintf("unknown role %q", in.Role), domain.ErrValidation)
		}

		updated := existing.Clone()
		updated.Email = email
		updated.Name = in.Name
		updated.Address = in.Address
		updated.Role = role
		if in.Password != "" {
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return ports.Fail(http.StatusInternalServerError, "Error occurred while updating user: "+err.Error(), err)
			}
			updated.PasswordHash = hash
		}
		updated.UpdatedAt = s.now().UTC()

		saved, err := s.repo.Save(ctx, updated)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return ports.Fail(http.StatusNotFound, "User not found for update", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred while updating user: "+err.Error(), err)
		}

		s.log.Info().Int64("user_id", id).Str("by", caller.Email).Msg("user updated")
		return ports.OK("User updated successfully").WithUser(saved)
	})
}

// DeleteUser removes a user after confirming it exists.
func (s *AccountService) DeleteUser(ctx context.Context, caller domain.Principal, id int64) ports.Outcome {
	return s.run(ctx, domain.OpDeleteUser, func(ctx context.Context) ports.Outcome {
		if denied, ok := s.authorize(domain.OpDeleteUser, caller); !ok {
			return denied
		}

		if _, err := s.repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return ports.Fail(http.StatusNotFound, "User not found for deletion", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred while deleting user: "+err.Error(), err)
		}

		if err := s.repo.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return ports.Fail(http.StatusNotFound, "User not found for deletion", nil)
			}
			return ports.Fail(http.StatusInternalServerError, "Error occurred while deleting user: "+err.Error(), err)
		}

		s.log.Info().Int64("user_id", id).Str("by", caller.Email).Msg("user deleted")
		return ports.OK("User deleted successfully")
	})
}

func (s *AccountService) authorize(op domain.Operation, caller domain.Principal) (ports.Outcome, bool) {
	if err := domain.Authorize(op, caller); err != nil {
		s.log.Warn().
			Str("operation", string(op)).
			Str("caller", caller.Email).
			Str("role", caller.Role.String()).
			Msg("operation denied")
		return ports.Fail(http.StatusForbidden, err.Error(), err), false
	}
	return ports.Outcome{}, true
}

// run wraps an operation in a span and turns panics into a 500 envelope so
// nothing escapes to the caller.
func (s *AccountService) run(ctx context.Context, op domain.Operation, fn func(context.Context) ports.Outcome) (out ports.Outcome) {
	ctx, span := s.tracer.Start(ctx, "account."+string(op))
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("operation", string(op)).Msg("account operation panicked")
			out = ports.Fail(http.StatusInternalServerError, "Error occurred: internal error", fmt.Errorf("%v", r))
		}
		span.SetAttributes(attribute.Int("outcome.status_code", out.StatusCode))
		if !out.Succeeded() {
			span.SetStatus(codes.Error, out.Message)
		}
		span.End()
	}()
	return fn(ctx)
}
