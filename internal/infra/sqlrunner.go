package infra

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the subset of pgxpool.Pool the stores depend on, so they can
// be exercised against stub rows in tests.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// SQLRunner logs every statement under the name given by its leading
// "-- name: <label>" comment.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	label := queryLabel(query)
	r.Logger.Debug().Msgf("sql[%s] exec", label)
	tag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		r.Logger.Error().Err(err).Msgf("sql[%s] error", label)
		return tag, err
	}
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	label := queryLabel(query)
	r.Logger.Debug().Msgf("sql[%s] query_row", label)
	return loggingRow{row: r.Pool.QueryRow(ctx, query, args...), logger: r.Logger, label: label}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	label := queryLabel(query)
	r.Logger.Debug().Msgf("sql[%s] query", label)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		r.Logger.Error().Err(err).Msgf("sql[%s] error", label)
		return nil, err
	}
	return rows, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	label  string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && err != pgx.ErrNoRows {
		l.logger.Error().Err(err).Msgf("sql[%s] scan error", l.label)
	}
	return err
}

func queryLabel(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	first = strings.TrimSpace(first)
	if name, ok := strings.CutPrefix(first, "-- name:"); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return "anonymous"
}

var _ SQLExecutor = (*SQLRunner)(nil)
