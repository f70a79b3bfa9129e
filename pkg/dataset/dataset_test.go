package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()

	engine, err := Open(ctx, "", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func stageOrders(t *testing.T, engine *Engine) *Dataset {
	t.Helper()
	ctx := context.Background()

	err := engine.Exec(ctx, `
		CREATE TABLE orders (
			order_id INTEGER,
			status VARCHAR,
			amount DOUBLE
		)
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	err = engine.Exec(ctx, `
		INSERT INTO orders VALUES
			(1, 'ok', 10.0),
			(2, 'ok', 20.0),
			(2, 'bad', NULL),
			(3, NULL, 30.0)
	`)
	if err != nil {
		t.Fatalf("failed to insert data: %v", err)
	}

	return engine.Dataset("orders", "orders")
}

func TestDataset_RowCount(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))

	n, err := ds.RowCount(context.Background())
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows, got %d", n)
	}
}

func TestDataset_NullCount(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	tests := []struct {
		column string
		want   int64
	}{
		{"order_id", 0},
		{"status", 1},
		{"amount", 1},
	}
	for _, tt := range tests {
		got, err := ds.NullCount(ctx, tt.column)
		if err != nil {
			t.Fatalf("NullCount(%s) failed: %v", tt.column, err)
		}
		if got != tt.want {
			t.Errorf("NullCount(%s) = %d, want %d", tt.column, got, tt.want)
		}
	}
}

func TestDataset_NullCount_UnknownColumn(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))

	if _, err := ds.NullCount(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown column, got nil")
	}
}

func TestDataset_DistinctCount(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	// order_id has values 1, 2, 2, 3 -> 3 distinct
	got, err := ds.DistinctCount(ctx, "order_id")
	if err != nil {
		t.Fatalf("DistinctCount failed: %v", err)
	}
	if got != 3 {
		t.Errorf("DistinctCount(order_id) = %d, want 3", got)
	}

	// status has 'ok', 'ok', 'bad', NULL -> NULL counts as one distinct value
	got, err = ds.DistinctCount(ctx, "status")
	if err != nil {
		t.Fatalf("DistinctCount failed: %v", err)
	}
	if got != 3 {
		t.Errorf("DistinctCount(status) = %d, want 3", got)
	}
}

func TestDataset_CountNotIn(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	// 'bad' and the NULL row are outside the allowed set
	got, err := ds.CountNotIn(ctx, "status", []any{"ok"})
	if err != nil {
		t.Fatalf("CountNotIn failed: %v", err)
	}
	if got != 2 {
		t.Errorf("CountNotIn = %d, want 2", got)
	}

	// Empty allowed set: every row violates
	got, err = ds.CountNotIn(ctx, "status", nil)
	if err != nil {
		t.Fatalf("CountNotIn with empty set failed: %v", err)
	}
	if got != 4 {
		t.Errorf("CountNotIn with empty set = %d, want 4", got)
	}
}

func TestDataset_CountNotIn_NullAllowed(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	// A nil entry admits the NULL row; only 'bad' remains a violation
	got, err := ds.CountNotIn(ctx, "status", []any{"ok", nil})
	if err != nil {
		t.Fatalf("CountNotIn failed: %v", err)
	}
	if got != 1 {
		t.Errorf("CountNotIn with nil allowed = %d, want 1", got)
	}

	// Only NULL allowed: every non-null row violates
	got, err = ds.CountNotIn(ctx, "status", []any{nil})
	if err != nil {
		t.Fatalf("CountNotIn failed: %v", err)
	}
	if got != 3 {
		t.Errorf("CountNotIn with only nil allowed = %d, want 3", got)
	}
}

func TestDataset_CountUnmatched(t *testing.T) {
	engine := setupEngine(t)
	ds := stageOrders(t, engine)
	ctx := context.Background()

	if err := engine.Exec(ctx, `CREATE TABLE ref (id INTEGER)`); err != nil {
		t.Fatalf("failed to create reference table: %v", err)
	}
	if err := engine.Exec(ctx, `INSERT INTO ref VALUES (1), (2), (2)`); err != nil {
		t.Fatalf("failed to insert reference rows: %v", err)
	}
	ref := engine.Dataset("ref", "ref")

	// order_id 3 has no match
	got, err := ds.CountUnmatched(ctx, "order_id", ref, "id")
	if err != nil {
		t.Fatalf("CountUnmatched failed: %v", err)
	}
	if got != 1 {
		t.Errorf("CountUnmatched = %d, want 1", got)
	}
}

func TestDataset_Project(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	projected, err := ds.Project(ctx, "status")
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	n, err := projected.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount on projection failed: %v", err)
	}
	if n != 4 {
		t.Errorf("projected row count = %d, want 4", n)
	}

	// The projection keeps only the requested column
	if _, err := projected.NullCount(ctx, "order_id"); err == nil {
		t.Error("expected error reading dropped column from projection")
	}
}

func TestDataset_PredicateType(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	typ, err := ds.PredicateType(ctx, "amount > 5")
	if err != nil {
		t.Fatalf("PredicateType failed: %v", err)
	}
	if typ != "BOOLEAN" {
		t.Errorf("PredicateType = %q, want BOOLEAN", typ)
	}

	typ, err = ds.PredicateType(ctx, "'just a string'")
	if err != nil {
		t.Fatalf("PredicateType on literal failed: %v", err)
	}
	if typ == "BOOLEAN" {
		t.Error("string literal should not type as BOOLEAN")
	}

	if _, err := ds.PredicateType(ctx, "amount >"); err == nil {
		t.Error("expected error for syntactically invalid expression")
	}
}

func TestDataset_CountPredicateFalse(t *testing.T) {
	ds := stageOrders(t, setupEngine(t))
	ctx := context.Background()

	// amount: 10, 20, NULL, 30 -> one row under 15, NULL excluded
	got, err := ds.CountPredicateFalse(ctx, "amount >= 15")
	if err != nil {
		t.Fatalf("CountPredicateFalse failed: %v", err)
	}
	if got != 1 {
		t.Errorf("CountPredicateFalse = %d, want 1", got)
	}
}

func TestEngine_LoadCSV(t *testing.T) {
	engine := setupEngine(t)
	ctx := context.Background()

	csvPath := filepath.Join(t.TempDir(), "customers.csv")
	content := "id,name\n1,alice\n2,bob\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv fixture: %v", err)
	}

	ds, err := engine.Load(ctx, "customers", csvPath, "csv")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	n, err := ds.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestEngine_LoadUnsupportedFormat(t *testing.T) {
	engine := setupEngine(t)

	_, err := engine.Load(context.Background(), "data", "data.xlsx", "xlsx")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}

	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("expected UnsupportedFormatError, got %T", err)
	}
}
