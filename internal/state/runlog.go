package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/datatide-labs/datatide/pkg/core"
)

// timeFormat is how timestamps are stored in the TEXT columns.
const timeFormat = time.RFC3339Nano

// LogRunStarted upserts the run record before any rule result is written.
func (s *Store) LogRunStarted(ctx context.Context, rc core.RuleContext) error {
	s.logger.Debug("logging run start",
		slog.String("run_id", rc.RunID),
		slog.String("dataset", rc.DatasetName))

	return s.write(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO runs (run_id, dataset_name, started_at) VALUES (?, ?, ?)`,
			rc.RunID, rc.DatasetName, rc.ExecutedAt.UTC().Format(timeFormat))
		return err
	})
}

// LogRuleResult appends one rule result row for the run.
func (s *Store) LogRuleResult(ctx context.Context, rc core.RuleContext, result core.RuleResult) error {
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("failed to serialize metrics for %s: %w", result.RuleName, err)
	}

	return s.write(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO rule_results (run_id, rule_name, status, severity, message, metrics, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rc.RunID, result.RuleName, string(result.Status), result.Severity.String(),
			result.Message, string(metrics), time.Now().UTC().Format(timeFormat))
		return err
	})
}

// LogRunCompleted stamps the run record with its finish time and totals.
func (s *Store) LogRunCompleted(ctx context.Context, rc core.RuleContext, results []core.RuleResult) error {
	failed := 0
	for _, result := range results {
		if !result.Passed() {
			failed++
		}
	}

	s.logger.Debug("logging run completion",
		slog.String("run_id", rc.RunID),
		slog.Int("total", len(results)),
		slog.Int("failed", failed))

	return s.write(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, total_rules = ?, failed_rules = ? WHERE run_id = ?`,
			time.Now().UTC().Format(timeFormat), len(results), failed, rc.RunID)
		return err
	})
}

// write runs one storage operation, retrying busy/locked conditions with a
// fixed delay up to the configured attempt count. Each operation is its own
// short-lived transaction; nothing spans a whole run.
func (s *Store) write(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewConstant(s.retryDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if isBusy(err) {
			s.logger.Debug("run log write busy, retrying", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
}

// isBusy reports whether the error is a transient SQLite busy/locked
// condition worth retrying.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	// Fallback for drivers that only surface the message.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
