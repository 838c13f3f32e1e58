package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"mediarelay/internal/domain"
	"mediarelay/internal/infra"
)

//go:generate go run mediarelay/internal/tools/sqllint .

// PostgresJobStore shares results between instances through one JSONB table.
type PostgresJobStore struct {
	db    infra.SQLExecutor
	table string
}

// NewPostgresJobStore returns a store writing to table, which may be schema
// qualified ("media.results").
func NewPostgresJobStore(db infra.SQLExecutor, table string) (*PostgresJobStore, error) {
	if db == nil {
		return nil, errors.New("storage: sql executor is required")
	}
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	return &PostgresJobStore{db: db, table: quoted}, nil
}

// EnsureSchema creates the results table when it does not exist yet.
func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`-- name: ensure_results_table
CREATE TABLE IF NOT EXISTS %s (
    job_id      TEXT PRIMARY KEY,
    payload     JSONB NOT NULL,
    received_at TIMESTAMPTZ NOT NULL
);`, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Put(ctx context.Context, entry domain.ResultEntry) error {
	id, err := normalizeJobID(entry.JobID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(clonePayload(entry.Payload))
	if err != nil {
		return fmt.Errorf("storage: encode payload: %w", err)
	}
	query := fmt.Sprintf(`-- name: put_result
INSERT INTO %s (job_id, payload, received_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (job_id) DO UPDATE
SET payload = EXCLUDED.payload,
    received_at = EXCLUDED.received_at;`, s.table)
	if _, err := s.db.Exec(ctx, query, id, string(payload), entry.ReceivedAt.UTC()); err != nil {
		return fmt.Errorf("storage: put result: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, jobID string) (domain.ResultEntry, bool, error) {
	query := fmt.Sprintf(`-- name: get_result
SELECT payload, received_at
FROM %s
WHERE job_id = $1;`, s.table)
	var (
		raw        []byte
		receivedAt time.Time
	)
	id := strings.TrimSpace(jobID)
	if err := s.db.QueryRow(ctx, query, id).Scan(&raw, &receivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ResultEntry{}, false, nil
		}
		return domain.ResultEntry{}, false, fmt.Errorf("storage: get result: %w", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.ResultEntry{}, false, fmt.Errorf("storage: decode payload: %w", err)
	}
	return domain.ResultEntry{JobID: id, Payload: payload, ReceivedAt: receivedAt.UTC()}, true, nil
}

func (s *PostgresJobStore) Delete(ctx context.Context, jobID string) error {
	query := fmt.Sprintf(`-- name: delete_result
DELETE FROM %s WHERE job_id = $1;`, s.table)
	if _, err := s.db.Exec(ctx, query, strings.TrimSpace(jobID)); err != nil {
		return fmt.Errorf("storage: delete result: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Len(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`-- name: count_results
SELECT COUNT(*) FROM %s;`, s.table)
	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count results: %w", err)
	}
	return int(n), nil
}

func quoteTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", errors.New("storage: table name is required")
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("storage: invalid table name %q", table)
	}
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", fmt.Errorf("storage: invalid table name %q", table)
		}
		parts[i] = pq.QuoteIdentifier(strings.TrimSpace(part))
	}
	return strings.Join(parts, "."), nil
}

var _ domain.JobStore = (*PostgresJobStore)(nil)
