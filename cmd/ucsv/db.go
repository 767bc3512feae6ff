package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/core"
	"github.com/JonMunkholm/ucsv/internal/pgload"
)

// connect opens a pool from the database settings and pings it.
func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(a.cfg.Database.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(a.cfg.Database.URL); err == nil {
		a.logger.Debug("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// parseColumnTypes reads "column=type" pairs.
func parseColumnTypes(pairs []string) (map[string]pgload.ColumnType, error) {
	types := make(map[string]pgload.ColumnType, len(pairs))
	for _, p := range pairs {
		col, name, ok := strings.Cut(p, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("column type %q: want column=type", p)
		}
		t, err := pgload.ParseColumnType(name)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		types[col] = t
	}
	return types, nil
}

func newLoadCmd(a *app) *cobra.Command {
	var flags struct {
		types     []string
		columns   []string
		batchSize int
		from      string
		snakeCase bool
	}

	cmd := &cobra.Command{
		Use:   "load SRC TABLE",
		Short: "Copy a file into a PostgreSQL table",
		Long: `Stream the records of SRC into TABLE with COPY, in batches of --batch rows
(default DB_BATCH_SIZE), inside a single transaction. The table's columns
are taken from SRC's field names unless --columns is given. Empty values
become NULL. --type converts spreadsheet text such as "$1,200.50",
"(3.00)", "1/2/06" or "yes" before it is sent.

Examples:
  ucsv load orders.csv public.orders
  ucsv load orders.csv orders --type amount=numeric --type placed=date`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, table := args[0], args[1]

			types, err := parseColumnTypes(flags.types)
			if err != nil {
				return err
			}
			var readOpts []core.Option
			if flags.from != "" {
				d, err := a.registry.Named(flags.from)
				if err != nil {
					return err
				}
				readOpts = append(readOpts, core.Dialect(d))
			}
			batch := flags.batchSize
			if batch <= 0 {
				batch = a.cfg.Database.BatchSize
			}

			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			tx, err := pool.Begin(ctx)
			if err != nil {
				return fmt.Errorf("begin: %w", err)
			}
			defer tx.Rollback(ctx)

			opts := []pgload.LoadOption{pgload.WithColumnTypes(types)}
			if len(flags.columns) > 0 {
				opts = append(opts, pgload.WithColumns(flags.columns...))
			}
			if flags.snakeCase {
				opts = append(opts, pgload.WithColumnNames(pgload.SnakeCase))
			}
			n, err := pgload.Load(ctx, tx, table, a.files.OpenRecords(ctx, src, readOpts...), batch, opts...)
			if err != nil {
				return err
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("commit: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "loaded %d rows into %s\n", n, table)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&flags.types, "type", nil, "column=type, type one of text, numeric, date, bool, uuid (repeatable)")
	cmd.Flags().StringSliceVar(&flags.columns, "columns", nil, "target columns, read from fields of the same name")
	cmd.Flags().IntVar(&flags.batchSize, "batch", 0, "rows per COPY (default DB_BATCH_SIZE)")
	cmd.Flags().StringVar(&flags.from, "from", "", "dialect of SRC (built-in name or extension)")
	cmd.Flags().BoolVar(&flags.snakeCase, "snake-case", false, `map field names like "Invoice Date" to invoice_date`)
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var flags struct {
		query string
		to    string
	}

	cmd := &cobra.Command{
		Use:   "dump DEST",
		Short: "Write the result of a query to a file",
		Long: `Run --query and write its rows to DEST, using the result's column names
as the header. NULL is written as an empty value and dates as YYYY-MM-DD.

Examples:
  ucsv dump orders.tsv --query "SELECT * FROM orders"
  ucsv dump - --query "SELECT id, total FROM orders" --to pet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			dest := args[0]

			var opts []core.Option
			if flags.to != "" {
				d, err := a.registry.Named(flags.to)
				if err != nil {
					return err
				}
				opts = append(opts, core.Dialect(d))
			}

			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			w, err := a.files.OpenWriter(ctx, dest, opts...)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := w.Close(); err == nil {
					err = cerr
				}
			}()

			n, err := pgload.Dump(ctx, pool, flags.query, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "dumped %d rows to %s\n", n, dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "SQL query to run")
	cmd.Flags().StringVar(&flags.to, "to", "", "dialect of DEST (built-in name or extension)")
	cmd.MarkFlagRequired("query")
	return cmd
}
