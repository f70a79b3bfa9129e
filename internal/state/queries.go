package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunRecord is a persisted run row. FinishedAt is nil for runs that never
// completed, a valid and detectable state after a crash mid-run.
type RunRecord struct {
	RunID       string
	DatasetName string
	StartedAt   time.Time
	FinishedAt  *time.Time
	TotalRules  int
	FailedRules int
}

// ResultRecord is a persisted rule result row. Metrics holds the serialized
// JSON blob as written.
type ResultRecord struct {
	ID         int64
	RunID      string
	RuleName   string
	Status     string
	Severity   string
	Message    string
	Metrics    string
	RecordedAt time.Time
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, dataset_name, started_at, finished_at, total_rules, failed_rules
		 FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// ListRuns retrieves the most recent runs up to the given limit, newest
// first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dataset_name, started_at, finished_at, total_rules, failed_rules
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// ListResults retrieves the rule results of a run in insertion order, which
// matches evaluation order.
func (s *Store) ListResults(ctx context.Context, runID string) ([]*ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, rule_name, status, severity, message, metrics, recorded_at
		 FROM rule_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*ResultRecord
	for rows.Next() {
		rec := &ResultRecord{}
		var metrics sql.NullString
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.RuleName, &rec.Status,
			&rec.Severity, &rec.Message, &metrics, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Metrics = metrics.String
		rec.RecordedAt, err = time.Parse(timeFormat, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	rec := &RunRecord{}
	var startedAt string
	var finishedAt sql.NullString

	if err := row.Scan(&rec.RunID, &rec.DatasetName, &startedAt, &finishedAt,
		&rec.TotalRules, &rec.FailedRules); err != nil {
		return nil, err
	}

	started, err := time.Parse(timeFormat, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	rec.StartedAt = started

	if finishedAt.Valid {
		finished, err := time.Parse(timeFormat, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		rec.FinishedAt = &finished
	}

	return rec, nil
}
