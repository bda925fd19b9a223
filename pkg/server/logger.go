package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ericmjl/canvas-research/pkg/database"
)

// DBLogHandler is a slog.Handler that persists records of one research
// run to the run_logs table.
type DBLogHandler struct {
	DB    *database.PostgresDB
	RunID uuid.UUID
}

func NewDBLogHandler(db *database.PostgresDB, runID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:    db,
		RunID: runID,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO run_logs (run_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Background context so log rows survive request cancellation.
	_, err = h.DB.Pool.Exec(context.Background(), query, h.RunID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attribute chaining is not needed for run logs; attributes arrive
	// per record.
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
