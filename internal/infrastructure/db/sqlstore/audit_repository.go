package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/99minutos/user-management/internal/core/ports"
)

type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) InsertAuditEvent(ctx context.Context, e *ports.AuditEvent) error {
	q := r.db.Rebind(`INSERT INTO audit_events (id, action, subject, actor, status, at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.Action, e.Subject, e.Actor, e.Status, toMillis(e.At)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
