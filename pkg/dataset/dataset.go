package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dataset is a handle to a named relation (table or view) in the engine.
// All reads are side-effect free; the relation is never mutated.
type Dataset struct {
	engine   *Engine
	name     string
	relation string
}

// Name returns the dataset's display name.
func (d *Dataset) Name() string {
	return d.name
}

// Engine returns the engine hosting this dataset.
func (d *Dataset) Engine() *Engine {
	return d.engine
}

// RowCount returns the total number of rows.
func (d *Dataset) RowCount(ctx context.Context) (int64, error) {
	return d.count(ctx, fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(d.relation)))
}

// NullCount returns the number of NULL values in the column.
func (d *Dataset) NullCount(ctx context.Context, column string) (int64, error) {
	return d.count(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NULL",
		quoteIdent(d.relation), quoteIdent(column)))
}

// DistinctCount returns the number of distinct values in the column.
// NULL counts as one distinct value.
func (d *Dataset) DistinctCount(ctx context.Context, column string) (int64, error) {
	return d.count(ctx, fmt.Sprintf("SELECT count(*) FROM (SELECT DISTINCT %s FROM %s)",
		quoteIdent(column), quoteIdent(d.relation)))
}

// CountNotIn returns the number of rows whose column value is absent from
// the given set. NULL rows count as violations unless the set contains a
// nil entry; nils are stripped from the SQL IN list either way, since
// NOT IN against a list containing NULL yields NULL for every row.
func (d *Dataset) CountNotIn(ctx context.Context, column string, values []any) (int64, error) {
	nullAllowed := false
	nonNull := make([]any, 0, len(values))
	for _, v := range values {
		if v == nil {
			nullAllowed = true
			continue
		}
		nonNull = append(nonNull, v)
	}

	col := quoteIdent(column)
	rel := quoteIdent(d.relation)

	if len(nonNull) == 0 {
		if nullAllowed {
			return d.count(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NOT NULL", rel, col))
		}
		return d.RowCount(ctx)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(nonNull)), ", ")
	cond := fmt.Sprintf("%s NOT IN (%s)", col, placeholders)
	if !nullAllowed {
		cond = fmt.Sprintf("%s IS NULL OR %s", col, cond)
	}
	return d.count(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", rel, cond), nonNull...)
}

// CountUnmatched returns the number of rows whose column value has no equal
// value in the reference dataset's column. NULL never equals anything, so
// NULL rows count as unmatched.
func (d *Dataset) CountUnmatched(ctx context.Context, column string, ref *Dataset, refColumn string) (int64, error) {
	query := fmt.Sprintf(
		"SELECT count(*) FROM %s t WHERE NOT EXISTS (SELECT 1 FROM %s r WHERE r.%s = t.%s)",
		quoteIdent(d.relation), quoteIdent(ref.relation),
		quoteIdent(refColumn), quoteIdent(column))
	return d.count(ctx, query)
}

// Project creates a view over this dataset containing only the given column
// and returns a handle to it. Used to avoid retaining reference datasets
// wider than the column actually compared.
func (d *Dataset) Project(ctx context.Context, column string) (*Dataset, error) {
	projected := d.relation + "__" + column
	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT %s FROM %s",
		quoteIdent(projected), quoteIdent(column), quoteIdent(d.relation))
	if _, err := d.engine.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to project %s down to column %s: %w", d.name, column, err)
	}
	return d.engine.Dataset(d.name, projected), nil
}

// PredicateType binds the expression against this dataset's schema through
// the engine's own parser and returns the resulting column type. The
// expression is never evaluated by anything other than the engine.
func (d *Dataset) PredicateType(ctx context.Context, expression string) (string, error) {
	query := fmt.Sprintf("DESCRIBE SELECT (%s) AS predicate FROM %s",
		expression, quoteIdent(d.relation))

	rows, err := d.engine.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to bind expression: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to read describe columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("failed to describe expression: %w", err)
		}
		return "", fmt.Errorf("describe returned no rows for expression")
	}

	// DESCRIBE yields (column_name, column_type, ...); scan the row and pick
	// out column_type by position.
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return "", fmt.Errorf("failed to scan describe row: %w", err)
	}

	for i, col := range cols {
		if col == "column_type" {
			if s, ok := values[i].(string); ok {
				return s, nil
			}
			return fmt.Sprint(values[i]), nil
		}
	}
	return "", fmt.Errorf("describe output missing column_type")
}

// CountPredicateFalse returns the number of rows for which the boolean
// expression evaluates to false. Rows where it evaluates to NULL are not
// counted.
func (d *Dataset) CountPredicateFalse(ctx context.Context, expression string) (int64, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE NOT (%s)",
		quoteIdent(d.relation), expression)
	return d.count(ctx, query)
}

func (d *Dataset) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := d.engine.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", d.name, err)
	}
	return n, nil
}
