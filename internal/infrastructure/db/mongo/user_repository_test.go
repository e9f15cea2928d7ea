package mongo

import (
	"testing"
	"time"

	"github.com/99minutos/user-management/internal/core/domain"
)

func TestDocMapping_RoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &domain.User{
		ID:           42,
		Email:        "a@x.com",
		PasswordHash: "hash",
		Name:         "Ann",
		Address:      "Street 1",
		Role:         domain.RoleAdmin,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Hour),
	}

	doc := toDoc(in)
	if doc.ID != 42 || doc.Role != "ADMIN" || doc.PasswordHash != "hash" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.CreatedAt != created.Unix() {
		t.Fatalf("expected unix seconds %d, got %d", created.Unix(), doc.CreatedAt)
	}

	out := doc.toDomain()
	if *out != *in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestDocMapping_ZeroTimes(t *testing.T) {
	doc := toDoc(&domain.User{Email: "a@x.com", Role: domain.RoleUser})
	if doc.CreatedAt != 0 || doc.UpdatedAt != 0 {
		t.Fatalf("zero times must be stored as 0, got created=%d updated=%d", doc.CreatedAt, doc.UpdatedAt)
	}

	out := doc.toDomain()
	if !out.CreatedAt.IsZero() || !out.UpdatedAt.IsZero() {
		t.Fatalf("expected zero times back, got %v %v", out.CreatedAt, out.UpdatedAt)
	}
}

func TestNewUserRepository_RejectsBadNode(t *testing.T) {
	if _, err := NewUserRepository(nil, 5000); err == nil {
		t.Fatalf("expected error for out-of-range snowflake node")
	}
}
