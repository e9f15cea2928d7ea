package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-management/internal/api/middleware"
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

type stubAccountService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) ports.Outcome
	loginFn    func(ctx context.Context, email, password string) ports.Outcome
	listFn     func(ctx context.Context, caller domain.Principal) ports.Outcome
	getFn      func(ctx context.Context, caller domain.Principal, id int64) ports.Outcome
	profileFn  func(ctx context.Context, caller domain.Principal) ports.Outcome
	updateFn   func(ctx context.Context, caller domain.Principal, id int64, in ports.UpdateUserInput) ports.Outcome
	deleteFn   func(ctx context.Context, caller domain.Principal, id int64) ports.Outcome
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) ports.Outcome {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) Login(ctx context.Context, email, password string) ports.Outcome {
	return s.loginFn(ctx, email, password)
}

func (s *stubAccountService) ListUsers(ctx context.Context, caller domain.Principal) ports.Outcome {
	return s.listFn(ctx, caller)
}

func (s *stubAccountService) GetUserByID(ctx context.Context, caller domain.Principal, id int64) ports.Outcome {
	return s.getFn(ctx, caller, id)
}

func (s *stubAccountService) GetMyProfile(ctx context.Context, caller domain.Principal) ports.Outcome {
	return s.profileFn(ctx, caller)
}

func (s *stubAccountService) UpdateUser(ctx context.Context, caller domain.Principal, id int64, in ports.UpdateUserInput) ports.Outcome {
	return s.updateFn(ctx, caller, id, in)
}

func (s *stubAccountService) DeleteUser(ctx context.Context, caller domain.Principal, id int64) ports.Outcome {
	return s.deleteFn(ctx, caller, id)
}

type stubGuard struct {
	blocked    bool
	retryAfter time.Duration
	err        error
	failures   int
	resets     int
}

func (g *stubGuard) Blocked(context.Context, string) (bool, time.Duration, error) {
	return g.blocked, g.retryAfter, g.err
}

func (g *stubGuard) RecordFailure(context.Context, string) error {
	g.failures++
	return nil
}

func (g *stubGuard) Reset(context.Context, string) error {
	g.resets++
	return nil
}

type recordingAudit struct {
	events []ports.AuditEvent
}

func (r *recordingAudit) Record(e ports.AuditEvent) { r.events = append(r.events, e) }

var adminCaller = domain.Principal{Email: "root@x.com", Role: domain.RoleAdmin}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAccountHandler_Register_Success(t *testing.T) {
	audit := &recordingAudit{}
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) ports.Outcome {
			if in.Email != "a@x.com" || in.Password != "p1" || in.Name != "Ann" || in.Role != "USER" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return ports.OK("User Saved Successfully").WithUser(&domain.User{ID: 1, Email: in.Email, PasswordHash: "h", Role: domain.RoleUser})
		},
	}
	h := NewAccountHandler(stub, WithAuditRecorder(audit))

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"p1","name":"Ann","role":"USER"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["statusCode"] != float64(200) || resp["message"] != "User Saved Successfully" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialized: %+v", user)
	}
	if len(audit.events) != 1 || audit.events[0].Action != string(domain.OpRegister) || audit.events[0].Status != 200 {
		t.Fatalf("unexpected audit events: %+v", audit.events)
	}
}

func TestAccountHandler_Register_ValidationError(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) ports.Outcome {
			t.Fatalf("service should not be called")
			return ports.Outcome{}
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"a@x.com"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "password is required" {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestAccountHandler_Register_StoreFailureMirrorsEnvelope(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) ports.Outcome {
			return ports.Fail(http.StatusInternalServerError, "Error occurred while saving user", domain.ErrUserExists)
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"p"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if decode(t, rec)["statusCode"] != float64(500) {
		t.Fatalf("status code not mirrored in body")
	}
}

func TestAccountHandler_Login_Success(t *testing.T) {
	guard := &stubGuard{}
	stub := &stubAccountService{
		loginFn: func(ctx context.Context, email, password string) ports.Outcome {
			out := ports.OK("Successfully Logged In")
			out.Token = "tok"
			out.Role = domain.RoleAdmin
			out.ExpirationTime = "24Hrs"
			return out
		},
	}
	h := NewAccountHandler(stub, WithLoginGuard(guard))

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"root@x.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["token"] != "tok" || resp["role"] != "ADMIN" || resp["expirationTime"] != "24Hrs" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if guard.resets != 1 || guard.failures != 0 {
		t.Fatalf("expected one reset, got resets=%d failures=%d", guard.resets, guard.failures)
	}
}

func TestAccountHandler_Login_FailureCountsTowardsThrottle(t *testing.T) {
	guard := &stubGuard{}
	stub := &stubAccountService{
		loginFn: func(context.Context, string, string) ports.Outcome {
			return ports.Fail(http.StatusUnauthorized, "invalid credentials", domain.ErrInvalidCredentials)
		},
	}
	h := NewAccountHandler(stub, WithLoginGuard(guard))

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"root@x.com","password":"bad"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if guard.failures != 1 {
		t.Fatalf("expected failure to be recorded, got %d", guard.failures)
	}
}

func TestAccountHandler_Login_Throttled(t *testing.T) {
	guard := &stubGuard{blocked: true, retryAfter: 90 * time.Second}
	stub := &stubAccountService{
		loginFn: func(context.Context, string, string) ports.Outcome {
			t.Fatalf("service should not be called")
			return ports.Outcome{}
		},
	}
	h := NewAccountHandler(stub, WithLoginGuard(guard))

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"root@x.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
}

func TestAccountHandler_Login_GuardErrorFailsOpen(t *testing.T) {
	guard := &stubGuard{err: errors.New("redis down")}
	called := false
	stub := &stubAccountService{
		loginFn: func(context.Context, string, string) ports.Outcome {
			called = true
			return ports.OK("Successfully Logged In")
		},
	}
	h := NewAccountHandler(stub, WithLoginGuard(guard))

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"root@x.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected login to proceed, called=%v code=%d", called, rec.Code)
	}
}

func TestAccountHandler_GetUser(t *testing.T) {
	stub := &stubAccountService{
		getFn: func(ctx context.Context, caller domain.Principal, id int64) ports.Outcome {
			if caller != adminCaller {
				t.Fatalf("unexpected caller: %+v", caller)
			}
			if id != 42 {
				return ports.Fail(http.StatusNotFound, "User Not found", nil)
			}
			return ports.OK("Users with id '42' found successfully").WithUser(&domain.User{ID: 42})
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodGet, "/admin/getUsers/42", "")
	c.SetParamNames("userId")
	c.SetParamValues("42")
	middleware.SetPrincipal(c, adminCaller)
	if err := h.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/admin/getUsers/7", "")
	c.SetParamNames("userId")
	c.SetParamValues("7")
	middleware.SetPrincipal(c, adminCaller)
	if err := h.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_NonNumericUserID(t *testing.T) {
	stub := &stubAccountService{
		deleteFn: func(context.Context, domain.Principal, int64) ports.Outcome {
			t.Fatalf("service should not be called")
			return ports.Outcome{}
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodDelete, "/admin/delete/abc", "")
	c.SetParamNames("userId")
	c.SetParamValues("abc")
	middleware.SetPrincipal(c, adminCaller)
	if err := h.DeleteUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_UpdateUser(t *testing.T) {
	audit := &recordingAudit{}
	stub := &stubAccountService{
		updateFn: func(ctx context.Context, caller domain.Principal, id int64, in ports.UpdateUserInput) ports.Outcome {
			if id != 3 || in.Email != "b@x.com" || in.Role != "ADMIN" || in.Password != "" {
				t.Fatalf("unexpected update: id=%d in=%+v", id, in)
			}
			return ports.OK("User updated successfully").WithUser(&domain.User{ID: id, Email: in.Email, Role: domain.RoleAdmin})
		},
	}
	h := NewAccountHandler(stub, WithAuditRecorder(audit))

	c, rec := newContext(http.MethodPut, "/admin/update/3", `{"email":"b@x.com","name":"B","role":"ADMIN"}`)
	c.SetParamNames("userId")
	c.SetParamValues("3")
	middleware.SetPrincipal(c, adminCaller)
	if err := h.UpdateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(audit.events) != 1 || audit.events[0].Subject != "3" || audit.events[0].Actor != adminCaller.Email {
		t.Fatalf("unexpected audit events: %+v", audit.events)
	}
}

func TestAccountHandler_UpdateUser_InvalidRole(t *testing.T) {
	stub := &stubAccountService{
		updateFn: func(context.Context, domain.Principal, int64, ports.UpdateUserInput) ports.Outcome {
			t.Fatalf("service should not be called")
			return ports.Outcome{}
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPut, "/admin/update/3", `{"email":"b@x.com","role":"ROOT"}`)
	c.SetParamNames("userId")
	c.SetParamValues("3")
	middleware.SetPrincipal(c, adminCaller)
	if err := h.UpdateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_GetMyProfile(t *testing.T) {
	member := domain.Principal{Email: "a@x.com", Role: domain.RoleUser}
	stub := &stubAccountService{
		profileFn: func(ctx context.Context, caller domain.Principal) ports.Outcome {
			if caller != member {
				t.Fatalf("unexpected caller: %+v", caller)
			}
			return ports.OK("successful").WithUser(&domain.User{ID: 1, Email: caller.Email})
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodGet, "/adminuser/getMyProfile", "")
	middleware.SetPrincipal(c, member)
	if err := h.GetMyProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAccountHandler_MissingPrincipal(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{})

	c, _ := newContext(http.MethodGet, "/admin/getAllUsers", "")
	err := h.GetAllUsers(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestAccountHandler_Register_RoleIsCaseInsensitive(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) ports.Outcome {
			if in.Role != "Admin" {
				t.Fatalf("role should reach the service untouched, got %q", in.Role)
			}
			return ports.OK("User Saved Successfully").WithUser(&domain.User{ID: 1, Email: in.Email, Role: domain.RoleAdmin})
		},
	}
	h := NewAccountHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"p1","role":"Admin"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
