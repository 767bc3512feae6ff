package pgload

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/logging"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Dump runs sql and writes every row to w, using the result's column names
// as field names. w must not have written anything yet. The caller closes w.
func Dump(ctx context.Context, db Querier, sql string, w *codec.Writer, args ...any) (int64, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	if err := w.SetFieldNames(names); err != nil {
		return 0, err
	}

	var n int64
	tuple := make([]string, len(names))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return n, fmt.Errorf("row %d: %w", n+1, err)
		}
		for i, v := range values {
			tuple[i] = FormatValue(v)
		}
		if err := w.WriteTuple(tuple); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("query: %w", err)
	}

	logging.FromContext(ctx).Info("dump complete", "rows", n, "dialect", w.Dialect().Name)
	return n, nil
}
