package ports

import (
	"context"
	"time"
)

// AuditEvent records one account action and the status it ended with.
type AuditEvent struct {
	ID      string    `json:"id" bson:"_id"`
	Action  string    `json:"action" bson:"action"`
	Subject string    `json:"subject" bson:"subject"`
	Actor   string    `json:"actor,omitempty" bson:"actor,omitempty"`
	Status  int       `json:"status" bson:"status"`
	At      time.Time `json:"at" bson:"at"`
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertAuditEvent(ctx context.Context, event *AuditEvent) error
}

// AuditRecorder accepts events without blocking the request path.
type AuditRecorder interface {
	Record(event AuditEvent)
}
