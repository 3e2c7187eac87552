package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const runColumns = `id, COALESCE(run_key, ''), COALESCE(started_at, ''), finished_at,
	fetched, new_items, relevant, retrieved, translated, sent, errors, COALESCE(status, 'running')`

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

var _ RunRecorder = (*RunRepository)(nil)

func (r *RunRepository) StartRun(ctx context.Context, runKey string) (*PipelineRun, error) {
	started := time.Now().UTC()
	res, err := r.db.execWrite(ctx,
		`INSERT INTO pipeline_runs (run_key, started_at, status) VALUES (?, ?, ?)`,
		runKey, formatTime(started), string(RunRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}

	return &PipelineRun{
		ID:        id,
		RunKey:    runKey,
		StartedAt: started,
		Status:    RunRunning,
	}, nil
}

// FinishRun closes the run. Its status is error when errs is non-empty.
func (r *RunRepository) FinishRun(ctx context.Context, id int64, counters RunCounters, errs []string) error {
	status := RunSuccess
	var errorsValue any
	if len(errs) > 0 {
		status = RunError
		data, err := json.Marshal(errs)
		if err != nil {
			return fmt.Errorf("failed to encode run errors: %w", err)
		}
		errorsValue = string(data)
	}

	query, args, err := sq.Update("pipeline_runs").
		SetMap(map[string]any{
			"finished_at": formatTime(time.Now()),
			"status":      string(status),
			"errors":      errorsValue,
			"fetched":     counters.Fetched,
			"new_items":   counters.NewItems,
			"relevant":    counters.Relevant,
			"retrieved":   counters.Retrieved,
			"translated":  counters.Translated,
			"sent":        counters.Sent,
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build finish run query: %w", err)
	}

	if _, err := r.db.execWrite(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id int64) (*PipelineRun, error) {
	runs, err := r.query(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *RunRepository) GetRecentRuns(ctx context.Context, limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.query(ctx, `SELECT `+runColumns+` FROM pipeline_runs ORDER BY id DESC LIMIT ?`, limit)
}

func (r *RunRepository) query(ctx context.Context, query string, args ...any) ([]PipelineRun, error) {
	rows, err := r.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var (
			run        PipelineRun
			startedAt  string
			finishedAt sql.NullString
			errs       sql.NullString
			status     string
		)
		err := rows.Scan(&run.ID, &run.RunKey, &startedAt, &finishedAt,
			&run.Counters.Fetched, &run.Counters.NewItems, &run.Counters.Relevant,
			&run.Counters.Retrieved, &run.Counters.Translated, &run.Counters.Sent,
			&errs, &status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.StartedAt = parseTime(startedAt)
		run.FinishedAt = parseNullTime(finishedAt)
		run.Status = RunStatus(status)
		run.Errors = decodeRunErrors(errs)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// decodeRunErrors reads the JSON list. Older rows stored one error per line.
func decodeRunErrors(value sql.NullString) []string {
	if !value.Valid || value.String == "" {
		return nil
	}
	var errs []string
	if err := json.Unmarshal([]byte(value.String), &errs); err == nil {
		return errs
	}
	var lines []string
	for _, line := range strings.Split(value.String, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
