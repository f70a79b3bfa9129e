package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/datatide-labs/datatide/pkg/core"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testContext(runID string) core.RuleContext {
	return core.NewRuleContext("orders", runID)
}

func passedResult(name string) core.RuleResult {
	return core.RuleResult{
		RuleName: name,
		Status:   core.StatusPassed,
		Message:  "ok",
		Severity: core.SeverityError,
		Metrics:  map[string]any{"null_count": 0},
	}
}

func failedResult(name string) core.RuleResult {
	return core.RuleResult{
		RuleName: name,
		Status:   core.StatusFailed,
		Message:  "2 duplicate rows found",
		Severity: core.SeverityWarn,
		Metrics:  map[string]any{"duplicate_count": 2},
	}
}

func TestStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"runs", "rule_results"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
			continue
		}
		rows.Close()
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rc := testContext("run-1")

	if err := store.LogRunStarted(ctx, rc); err != nil {
		t.Fatalf("LogRunStarted failed: %v", err)
	}

	// The run record must be queryable before any results, with a null
	// finished_at marking it incomplete.
	rec, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after start failed: %v", err)
	}
	if rec.DatasetName != "orders" {
		t.Errorf("dataset_name = %q, want orders", rec.DatasetName)
	}
	if rec.FinishedAt != nil {
		t.Error("finished_at should be null before completion")
	}

	results := []core.RuleResult{
		passedResult("NotNullRule::order_id"),
		failedResult("UniqueRule::order_id"),
	}
	for _, result := range results {
		if err := store.LogRuleResult(ctx, rc, result); err != nil {
			t.Fatalf("LogRuleResult failed: %v", err)
		}
	}

	if err := store.LogRunCompleted(ctx, rc, results); err != nil {
		t.Fatalf("LogRunCompleted failed: %v", err)
	}

	rec, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after completion failed: %v", err)
	}
	if rec.FinishedAt == nil {
		t.Fatal("finished_at should be set after completion")
	}
	if rec.TotalRules != 2 {
		t.Errorf("total_rules = %d, want 2", rec.TotalRules)
	}
	if rec.FailedRules != 1 {
		t.Errorf("failed_rules = %d, want 1", rec.FailedRules)
	}

	stored, err := store.ListResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(stored))
	}
	// Insertion order matches evaluation order.
	if stored[0].RuleName != "NotNullRule::order_id" {
		t.Errorf("first result = %s, want NotNullRule::order_id", stored[0].RuleName)
	}
	if stored[1].Status != "failed" || stored[1].Severity != "warn" {
		t.Errorf("second result = %s/%s, want failed/warn", stored[1].Status, stored[1].Severity)
	}
	if stored[1].Metrics == "" {
		t.Error("metrics blob should be recorded")
	}
}

func TestStore_LogRunStarted_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rc := testContext("run-1")

	if err := store.LogRunStarted(ctx, rc); err != nil {
		t.Fatalf("first LogRunStarted failed: %v", err)
	}
	if err := store.LogRunStarted(ctx, rc); err != nil {
		t.Fatalf("second LogRunStarted failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after repeated start, got %d", len(runs))
	}
}

func TestStore_GetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestStore_ListRuns_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := core.RuleContext{DatasetName: "orders", RunID: "run-1", ExecutedAt: time.Now().UTC().Add(-time.Hour)}
	second := core.RuleContext{DatasetName: "orders", RunID: "run-2", ExecutedAt: time.Now().UTC()}

	if err := store.LogRunStarted(ctx, first); err != nil {
		t.Fatalf("LogRunStarted failed: %v", err)
	}
	if err := store.LogRunStarted(ctx, second); err != nil {
		t.Fatalf("LogRunStarted failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Errorf("newest run first: got %s, want run-2", runs[0].RunID)
	}
}

// --- Retry behavior ---

func TestStore_WriteRetriesBusy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewWithDB(db, Options{MaxRetries: 3, RetryDelay: time.Millisecond})

	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(busy)
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(busy)
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.LogRunStarted(context.Background(), testContext("run-1")); err != nil {
		t.Fatalf("expected retries to absorb busy errors, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_WriteRetryExhaustion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewWithDB(db, Options{MaxRetries: 2, RetryDelay: time.Millisecond})

	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	// Initial attempt plus two retries.
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(busy)
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(busy)
	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(busy)

	if err := store.LogRunStarted(context.Background(), testContext("run-1")); err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_WriteDoesNotRetryFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewWithDB(db, Options{MaxRetries: 3, RetryDelay: time.Millisecond})

	mock.ExpectExec("INSERT OR REPLACE INTO runs").WillReturnError(errors.New("no such table: runs"))

	if err := store.LogRunStarted(context.Background(), testContext("run-1")); err == nil {
		t.Fatal("expected fatal error to propagate without retry")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
