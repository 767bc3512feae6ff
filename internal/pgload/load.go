// Package pgload moves records between delimited files and PostgreSQL.
//
// Load streams a record sequence into a table with COPY in batches; Dump
// runs a query and writes its rows through a codec Writer.
package pgload

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/ucsv/internal/codec"
	"github.com/JonMunkholm/ucsv/internal/logging"
	"github.com/JonMunkholm/ucsv/internal/transform"
)

// DefaultBatchSize is used when Load is given a batch size below one.
const DefaultBatchSize = 1000

// CopyFromer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ErrNoColumns is returned when the first record has no fields.
var ErrNoColumns = errors.New("pgload: first record has no fields")

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	types   map[string]ColumnType
	columns []string
	mapName func(string) string
}

// WithColumnTypes converts the named columns before COPY. Unlisted columns
// are sent as text.
func WithColumnTypes(types map[string]ColumnType) LoadOption {
	return func(o *loadOptions) { o.types = types }
}

// WithColumns fixes the column list instead of taking the first record's
// field names.
func WithColumns(names ...string) LoadOption {
	return func(o *loadOptions) { o.columns = names }
}

// WithColumnNames maps field names to table column names. Column types and
// WithColumns still refer to field names.
func WithColumnNames(fn func(string) string) LoadOption {
	return func(o *loadOptions) { o.mapName = fn }
}

// SnakeCase lowercases name and replaces spaces with underscores, turning
// spreadsheet headers such as "Invoice Date" into invoice_date.
func SnakeCase(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// Table splits a possibly schema-qualified table name into an identifier.
func Table(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// Load copies records into table in batches of batchSize and returns the
// number of rows copied. Empty values are sent as NULL. Rows from batches
// already copied stay in place when a later batch fails unless db is a
// transaction the caller rolls back.
func Load(ctx context.Context, db CopyFromer, table string, records iter.Seq2[*codec.Record, error], batchSize int, opts ...LoadOption) (int64, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	logger := logging.WithFields(ctx, "table", table)
	columns := o.columns
	var dbColumns []string
	var total int64
	for batch, err := range transform.Chunk(batchSize, records) {
		if err != nil {
			return total, err
		}
		if columns == nil {
			columns = batch[0].Keys()
			if len(columns) == 0 {
				return total, ErrNoColumns
			}
		}
		if dbColumns == nil {
			dbColumns = columns
			if o.mapName != nil {
				dbColumns = make([]string, len(columns))
				for i, c := range columns {
					dbColumns[i] = o.mapName(c)
				}
			}
		}

		rows := make([][]any, len(batch))
		for i, rec := range batch {
			row, err := convertRow(rec, columns, o.types)
			if err != nil {
				return total, fmt.Errorf("row %d: %w", total+int64(i)+1, err)
			}
			rows[i] = row
		}

		n, err := db.CopyFrom(ctx, Table(table), dbColumns, pgx.CopyFromRows(rows))
		total += n
		if err != nil {
			return total, fmt.Errorf("copy into %s: %w", table, err)
		}
		logger.Debug("batch copied", "rows", n, "total", total)
	}

	logger.Info("load complete", "rows", total)
	return total, nil
}

func convertRow(rec *codec.Record, columns []string, types map[string]ColumnType) ([]any, error) {
	row := make([]any, len(columns))
	for i, col := range columns {
		v, err := Convert(col, types[col], rec.Value(col))
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}
