package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func newUser(email string) *domain.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Name:         "Ada",
		Address:      "1 Loop St",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Save(ctx, newUser("a@x.com"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.Name != "Ada" || byEmail.Role != domain.RoleUser {
		t.Fatalf("unexpected row: %+v", byEmail)
	}
	if !byEmail.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at round trip: %s vs %s", byEmail.CreatedAt, created.CreatedAt)
	}

	byEmail.Role = domain.RoleAdmin
	byEmail.Address = "2 Loop St"
	if _, err := repo.Save(ctx, byEmail); err != nil {
		t.Fatalf("update: %v", err)
	}
	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Role != domain.RoleAdmin || byID.Address != "2 Loop St" {
		t.Fatalf("update not persisted: %+v", byID)
	}

	all, err := repo.FindAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("find all: %d users, %v", len(all), err)
	}

	if err := repo.DeleteByID(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := repo.DeleteByID(ctx, created.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	if _, err := repo.Save(ctx, newUser("dup@x.com")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Save(ctx, newUser("dup@x.com")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists on insert, got %v", err)
	}

	other, _ := repo.Save(ctx, newUser("other@x.com"))
	other.Email = "dup@x.com"
	if _, err := repo.Save(ctx, other); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists on update, got %v", err)
	}
}

func TestUserRepository_IDsNotReused(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	first, _ := repo.Save(ctx, newUser("a@x.com"))
	if err := repo.DeleteByID(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second, err := repo.Save(ctx, newUser("b@x.com"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("id reused: first=%d second=%d", first.ID, second.ID)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	u := newUser("ghost@x.com")
	u.ID = 404
	if _, err := repo.Save(context.Background(), u); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuditRepository_Insert(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	err := repo.InsertAuditEvent(ctx, &ports.AuditEvent{
		ID: "01J0000000000000000000000A", Action: "user.login", Subject: "a@x.com", Status: 200, At: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert audit: %v", err)
	}

	var n int
	if err := db.GetContext(ctx, &n, `SELECT count(*) FROM audit_events`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 audit row, got %d", n)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
