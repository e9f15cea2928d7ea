package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/user-management/docs"
	"github.com/99minutos/user-management/internal/api/handler"
	"github.com/99minutos/user-management/internal/api/middleware"
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
	"github.com/99minutos/user-management/internal/infrastructure/http/handlers"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Accounts ports.AccountService
	Tokens   ports.TokenValidator
	// Guard and Audit are optional.
	Guard  handler.LoginGuard
	Audit  ports.AuditRecorder
	Checks map[string]handlers.Check
	Log    zerolog.Logger
	// Registry receives the HTTP metrics; nil uses the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ksuid.New().String() },
	}))
	e.Use(requestLogger(deps.Log))

	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "http"}
	handlerCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		promCfg.Registerer = deps.Registry
		handlerCfg.Gatherer = deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Dependencies ---
	opts := []handler.AccountHandlerOption{handler.WithHandlerLogger(deps.Log)}
	if deps.Guard != nil {
		opts = append(opts, handler.WithLoginGuard(deps.Guard))
	}
	if deps.Audit != nil {
		opts = append(opts, handler.WithAuditRecorder(deps.Audit))
	}
	accounts := handler.NewAccountHandler(deps.Accounts, opts...)
	auth := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	e.POST("/auth/register", accounts.Register)
	e.POST("/auth/login", accounts.Login)

	// --- Admin routes ---
	admin := e.Group("/admin", auth)
	admin.GET("/getAllUsers", accounts.GetAllUsers, middleware.Require(domain.OpListUsers))
	admin.GET("/getUsers/:userId", accounts.GetUser, middleware.Require(domain.OpGetUser))
	admin.PUT("/update/:userId", accounts.UpdateUser, middleware.Require(domain.OpUpdateUser))
	admin.DELETE("/delete/:userId", accounts.DeleteUser, middleware.Require(domain.OpDeleteUser))

	// --- Profile (any authenticated role) ---
	e.GET("/adminuser/getMyProfile", accounts.GetMyProfile, auth, middleware.Require(domain.OpGetMyProfile))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
