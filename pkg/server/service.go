package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericmjl/canvas-research/pkg/database"
	"github.com/ericmjl/canvas-research/pkg/research"
)

// Service persists research runs and executes them in the background.
// The SSE endpoint bypasses it and streams directly; this surface exists
// for fire-and-forget runs whose reports are picked up later.
type Service struct {
	DB           *database.PostgresDB
	Orchestrator *research.Orchestrator
}

func NewService(db *database.PostgresDB, orch *research.Orchestrator) *Service {
	return &Service{
		DB:           db,
		Orchestrator: orch,
	}
}

type Run struct {
	ID           uuid.UUID       `json:"id"`
	Instructions string          `json:"instructions"`
	Status       string          `json:"status"`
	Report       *string         `json:"report,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Config       json.RawMessage `json:"config"`
}

func (s *Service) CreateRun(ctx context.Context, req research.Request) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Clamp()

	configJSON, _ := json.Marshal(map[string]interface{}{
		"max_iterations":            req.MaxIterations,
		"max_sources":               req.MaxSources,
		"max_queries_per_iteration": req.MaxQueriesPerIteration,
		"max_results_per_query":     req.MaxResultsPerQuery,
		"model":                     req.Model,
	})

	runID := uuid.New()
	query := `
		INSERT INTO research_runs (id, instructions, context, status, config)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, instructions, status, created_at, updated_at
	`

	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, runID, req.Instructions, req.Context, configJSON).Scan(
		&run.ID, &run.Instructions, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	go s.runWorker(run.ID, req)

	return run, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, instructions, status, report, created_at, updated_at, config
		FROM research_runs
		WHERE id = $1
	`
	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Instructions, &run.Status, &run.Report, &run.CreatedAt, &run.UpdatedAt, &run.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, instructions, status, report, created_at, updated_at, config
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Instructions, &run.Status, &run.Report, &run.CreatedAt, &run.UpdatedAt, &run.Config); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *Service) GetRunSources(ctx context.Context, runID uuid.UUID) ([]research.Source, error) {
	query := `
		SELECT url, title, COALESCE(snippet, ''), summary, iteration, query
		FROM run_sources
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run sources: %w", err)
	}
	defer rows.Close()

	var sources []research.Source
	for rows.Next() {
		var src research.Source
		if err := rows.Scan(&src.URL, &src.Title, &src.Snippet, &src.Summary, &src.Iteration, &src.Query); err != nil {
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM run_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// runWorker executes a persisted run to completion, storing sources as
// they arrive and the final report or error at the end.
func (s *Service) runWorker(runID uuid.UUID, req research.Request) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'running', updated_at = NOW() WHERE id = $1", runID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))

	orch := *s.Orchestrator
	orch.Logger = dbLogger

	var report string
	var failure string

	for event := range orch.Stream(ctx, req) {
		switch event.Type {
		case research.EventStatus:
			dbLogger.Info(event.Message)
		case research.EventSource:
			src := event.Source
			_, err := s.DB.Pool.Exec(ctx, `
				INSERT INTO run_sources (run_id, url, title, snippet, summary, iteration, query)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (run_id, url) DO NOTHING
			`, runID, src.URL, src.Title, src.Snippet, src.Summary, src.Iteration, src.Query)
			if err != nil {
				dbLogger.Error("failed to persist source", "url", src.URL, "error", err)
			}
		case research.EventContent:
			report = event.Message
		case research.EventError:
			failure = event.Message
		}
	}

	if failure != "" {
		dbLogger.Error(failure)
		_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'failed', updated_at = NOW() WHERE id = $1", runID)
		return
	}

	_, err := s.DB.Pool.Exec(ctx,
		"UPDATE research_runs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		runID, report)
	if err != nil {
		dbLogger.Error("failed to save final report", "error", err)
	}
}
