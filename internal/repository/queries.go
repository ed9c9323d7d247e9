package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type statement interface {
	Query() (string, []any)
}

// Queries holds every statement the service issues. It runs against the
// pool or against one transaction; see DB.Queries and DB.InTx.
type Queries struct {
	q      querier
	b      *entsql.DialectBuilder
	logger *slog.Logger
}

func newQueries(q querier, dialect string, logger *slog.Logger) *Queries {
	return &Queries{q: q, b: entsql.Dialect(dialect), logger: logger}
}

func (q *Queries) exec(ctx context.Context, st statement) (sql.Result, error) {
	query, args := st.Query()
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

func (q *Queries) query(ctx context.Context, st statement) (*sql.Rows, error) {
	query, args := st.Query()
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// insertID runs an INSERT ... RETURNING idColumn.
func (q *Queries) insertID(ctx context.Context, ib *entsql.InsertBuilder, idColumn string) (int64, error) {
	query, args := ib.Returning(idColumn).Query()
	var id int64
	if err := q.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func scanOne(row *sql.Row, what string, dest ...any) error {
	if err := row.Scan(dest...); err != nil {
		return scanErr(err, what)
	}
	return nil
}

// scanErr maps sql.ErrNoRows to common.ErrNotFound.
func scanErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return classify(err)
}

func (q *Queries) row(ctx context.Context, st statement) *sql.Row {
	query, args := st.Query()
	return q.q.QueryRowContext(ctx, query, args...)
}

func closeRows(rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("rows close error", "error", err)
	}
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func float64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}
