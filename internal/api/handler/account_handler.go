package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/api/metrics"
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// LoginGuard throttles repeated failed logins for one email.
type LoginGuard interface {
	Blocked(ctx context.Context, email string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AccountHandler exposes the account service over HTTP. The response status
// always mirrors the envelope's statusCode.
type AccountHandler struct {
	service ports.AccountService
	guard   LoginGuard
	audit   ports.AuditRecorder
	log     zerolog.Logger
}

type AccountHandlerOption func(*AccountHandler)

// WithLoginGuard enables login throttling. Without it every attempt reaches the service.
func WithLoginGuard(g LoginGuard) AccountHandlerOption {
	return func(h *AccountHandler) { h.guard = g }
}

func WithAuditRecorder(r ports.AuditRecorder) AccountHandlerOption {
	return func(h *AccountHandler) { h.audit = r }
}

func WithHandlerLogger(log zerolog.Logger) AccountHandlerOption {
	return func(h *AccountHandler) { h.log = log }
}

func NewAccountHandler(service ports.AccountService, opts ...AccountHandlerOption) *AccountHandler {
	h := &AccountHandler{service: service, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// --- Request types ---

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Role     string `json:"role" validate:"required,role"`
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  ports.Outcome
// @Failure      400   {object}  ports.Outcome
// @Failure      500   {object}  ports.Outcome
// @Router       /auth/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return h.respond(c, domain.OpRegister, ports.Fail(http.StatusBadRequest, "invalid payload", domain.ErrValidation))
	}
	if err := c.Validate(&req); err != nil {
		return h.respond(c, domain.OpRegister, ports.Fail(http.StatusBadRequest, err.Error(), domain.ErrValidation))
	}

	out := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Address:  req.Address,
		Role:     req.Role,
	})
	h.record(domain.OpRegister, req.Email, "", out)
	return h.respond(c, domain.OpRegister, out)
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  ports.Outcome
// @Failure      400   {object}  ports.Outcome
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  ports.Outcome
// @Router       /auth/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return h.respond(c, domain.OpLogin, ports.Fail(http.StatusBadRequest, "invalid payload", domain.ErrValidation))
	}

	ctx := c.Request().Context()
	if h.guard != nil {
		blocked, retryAfter, err := h.guard.Blocked(ctx, req.Email)
		if err != nil {
			// Throttling is best effort; a Redis outage must not lock everyone out.
			h.log.Warn().Err(err).Msg("login guard unavailable")
		} else if blocked {
			metrics.LoginThrottledTotal.Inc()
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many failed login attempts"})
		}
	}

	out := h.service.Login(ctx, req.Email, req.Password)
	if h.guard != nil {
		switch {
		case out.Succeeded():
			if err := h.guard.Reset(ctx, req.Email); err != nil {
				h.log.Warn().Err(err).Msg("login guard reset failed")
			}
		case out.Error == domain.ErrInvalidCredentials.Error():
			if err := h.guard.RecordFailure(ctx, req.Email); err != nil {
				h.log.Warn().Err(err).Msg("login guard record failed")
			}
		}
	}
	h.record(domain.OpLogin, req.Email, req.Email, out)
	return h.respond(c, domain.OpLogin, out)
}

// GetAllUsers lists every user.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Outcome
// @Failure      403  {object}  ports.Outcome
// @Failure      404  {object}  ports.Outcome
// @Router       /admin/getAllUsers [get]
func (h *AccountHandler) GetAllUsers(c echo.Context) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}
	return h.respond(c, domain.OpListUsers, h.service.ListUsers(c.Request().Context(), caller))
}

// GetUser returns one user by id.
//
// @Summary      Get user by id
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int  true  "User id"
// @Success      200     {object}  ports.Outcome
// @Failure      400     {object}  ports.Outcome
// @Failure      404     {object}  ports.Outcome
// @Router       /admin/getUsers/{userId} [get]
func (h *AccountHandler) GetUser(c echo.Context) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, ok := userIDParam(c)
	if !ok {
		return h.respond(c, domain.OpGetUser, badUserID())
	}
	return h.respond(c, domain.OpGetUser, h.service.GetUserByID(c.Request().Context(), caller, id))
}

// UpdateUser overwrites a user's profile.
//
// @Summary      Update user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int                true  "User id"
// @Param        body    body      updateUserRequest  true  "New profile"
// @Success      200     {object}  ports.Outcome
// @Failure      400     {object}  ports.Outcome
// @Failure      404     {object}  ports.Outcome
// @Router       /admin/update/{userId} [put]
func (h *AccountHandler) UpdateUser(c echo.Context) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, ok := userIDParam(c)
	if !ok {
		return h.respond(c, domain.OpUpdateUser, badUserID())
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return h.respond(c, domain.OpUpdateUser, ports.Fail(http.StatusBadRequest, "invalid payload", domain.ErrValidation))
	}
	if err := c.Validate(&req); err != nil {
		return h.respond(c, domain.OpUpdateUser, ports.Fail(http.StatusBadRequest, err.Error(), domain.ErrValidation))
	}

	out := h.service.UpdateUser(c.Request().Context(), caller, id, ports.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Address:  req.Address,
		Role:     req.Role,
	})
	h.record(domain.OpUpdateUser, c.Param("userId"), caller.Email, out)
	return h.respond(c, domain.OpUpdateUser, out)
}

// DeleteUser removes a user.
//
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int  true  "User id"
// @Success      200     {object}  ports.Outcome
// @Failure      400     {object}  ports.Outcome
// @Failure      404     {object}  ports.Outcome
// @Router       /admin/delete/{userId} [delete]
func (h *AccountHandler) DeleteUser(c echo.Context) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, ok := userIDParam(c)
	if !ok {
		return h.respond(c, domain.OpDeleteUser, badUserID())
	}

	out := h.service.DeleteUser(c.Request().Context(), caller, id)
	h.record(domain.OpDeleteUser, c.Param("userId"), caller.Email, out)
	return h.respond(c, domain.OpDeleteUser, out)
}

// GetMyProfile returns the caller's own record.
//
// @Summary      Current user profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Outcome
// @Failure      404  {object}  ports.Outcome
// @Router       /adminuser/getMyProfile [get]
func (h *AccountHandler) GetMyProfile(c echo.Context) error {
	caller, err := principalFrom(c)
	if err != nil {
		return err
	}
	return h.respond(c, domain.OpGetMyProfile, h.service.GetMyProfile(c.Request().Context(), caller))
}

func (h *AccountHandler) respond(c echo.Context, op domain.Operation, out ports.Outcome) error {
	metrics.ObserveOutcome(string(op), out.StatusCode)
	return c.JSON(out.StatusCode, out)
}

func (h *AccountHandler) record(op domain.Operation, subject, actor string, out ports.Outcome) {
	if h.audit == nil {
		return
	}
	h.audit.Record(ports.AuditEvent{
		Action:  string(op),
		Subject: subject,
		Actor:   actor,
		Status:  out.StatusCode,
	})
}

func userIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	return id, err == nil
}

func badUserID() ports.Outcome {
	return ports.Fail(http.StatusBadRequest, "userId must be numeric", domain.ErrValidation)
}
