package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/ports"
)

// LogSink is an AuditRepository that writes events to the structured log.
// Used when the configured store has no audit table.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) InsertAuditEvent(_ context.Context, e *ports.AuditEvent) error {
	s.log.Info().
		Str("audit_id", e.ID).
		Str("action", e.Action).
		Str("subject", e.Subject).
		Str("actor", e.Actor).
		Int("status", e.Status).
		Time("at", e.At).
		Msg("audit")
	return nil
}
