// @title        User Management API
// @version      1.0
// @description  Registration, login and administrative user management.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/api"
	"github.com/99minutos/user-management/internal/core/ports"
	"github.com/99minutos/user-management/internal/core/service"
	"github.com/99minutos/user-management/internal/infrastructure/config"
	"github.com/99minutos/user-management/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/user-management/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/user-management/internal/infrastructure/db/redis"
	"github.com/99minutos/user-management/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/user-management/internal/infrastructure/http/handlers"
	"github.com/99minutos/user-management/internal/infrastructure/queue"
	"github.com/99minutos/user-management/internal/infrastructure/telemetry"
	"github.com/99minutos/user-management/pkg/logger"
)

const serviceName = "user-management"

func main() {
	// Best effort: a missing .env just means the real environment is used.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
		File:   cfg.LogFile,
	})

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	deps := api.Deps{Checks: st.checks, Log: log}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Guard = redisstore.NewLoginLimiter(rdb, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginWindow)
		deps.Checks["redis"] = handlers.RedisCheck(rdb)
	}

	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	audit := queue.NewAuditDispatcher(cfg.Audit.Workers, st.audit, log)
	audit.Start(auditCtx)
	defer audit.Close()
	deps.Audit = audit

	hasher, err := service.NewPasswordHasher(service.HasherConfig{
		Algorithm:  cfg.Auth.PasswordAlgo,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(service.SigningKey(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	deps.Tokens = tokens
	deps.Accounts = service.NewAccountService(st.users, hasher, tokens,
		service.WithAuthFailureStatus(cfg.Auth.AuthFailureStatus),
		service.WithLogger(log.With().Str("component", "account").Logger()),
	)

	e := api.NewRouter(deps)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown failed")
	}
	return nil
}

type store struct {
	users  ports.UserRepository
	audit  ports.AuditRepository
	checks map[string]handlers.Check
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			AppName:     serviceName,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		})
		if err != nil {
			return nil, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		users, err := mongostore.NewUserRepository(db, cfg.Mongo.SnowflakeNode)
		if err != nil {
			disconnect()
			return nil, err
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, err
		}
		return &store{
			users:  users,
			audit:  mongostore.NewAuditRepository(db),
			checks: map[string]handlers.Check{"mongodb": handlers.MongoCheck(db)},
			close:  disconnect,
		}, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Store.Driver, DSN: cfg.SQL.DSN})
		if err != nil {
			return nil, err
		}
		if err := sqlstore.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			users:  sqlstore.NewUserRepository(db),
			audit:  sqlstore.NewAuditRepository(db),
			checks: map[string]handlers.Check{"sql": handlers.SQLCheck(db)},
			close:  func() { _ = db.Close() },
		}, nil

	default:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return &store{
			users:  memory.NewUserRepository(),
			audit:  queue.NewLogSink(log.With().Str("component", "audit").Logger()),
			checks: map[string]handlers.Check{},
			close:  func() {},
		}, nil
	}
}
