package database

import (
	"context"
	"fmt"
)

// InitSchema creates the tables backing persisted research runs.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	runsQuery := `
		CREATE TABLE IF NOT EXISTS research_runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			instructions TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			config JSONB,
			report TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, runsQuery); err != nil {
		return fmt.Errorf("failed to create research_runs table: %w", err)
	}

	sourcesQuery := `
		CREATE TABLE IF NOT EXISTS run_sources (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			snippet TEXT,
			summary TEXT NOT NULL,
			iteration INT NOT NULL,
			query TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (run_id, url)
		);
	`
	if _, err := db.Pool.Exec(ctx, sourcesQuery); err != nil {
		return fmt.Errorf("failed to create run_sources table: %w", err)
	}

	logsQuery := `
		CREATE TABLE IF NOT EXISTS run_logs (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create run_logs table: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_run_logs_run_id ON run_logs(run_id)"); err != nil {
		return fmt.Errorf("failed to create index on run_logs: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_run_sources_run_id ON run_sources(run_id)"); err != nil {
		return fmt.Errorf("failed to create index on run_sources: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_research_runs_created_at ON research_runs(created_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on research_runs: %w", err)
	}

	return nil
}
