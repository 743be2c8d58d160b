// internal/state/postgres.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"bookings-bot/internal/common/errors"

	"github.com/lib/pq"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStorage stores documents as jsonb rows keyed by the state key.
type PostgresStorage struct {
	db    *sql.DB
	table string
}

func NewPostgresStorage(db *sql.DB, table string) (*PostgresStorage, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStorage{db: db, table: table}, nil
}

// EnsureSchema creates the state table when it does not exist yet.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	document JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.NewStateStorageFailedError("postgres.schema", err)
	}
	return nil
}

func (s *PostgresStorage) Read(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT key, document FROM %s WHERE key = ANY($1)`, s.table)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, errors.NewStateStorageFailedError("postgres.read", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var doc []byte
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, errors.NewStateStorageFailedError("postgres.read", err)
		}
		out[key] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStateStorageFailedError("postgres.read", err)
	}
	return out, nil
}

// Write upserts all changes in one transaction.
func (s *PostgresStorage) Write(ctx context.Context, changes map[string][]byte) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStateStorageFailedError("postgres.write", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, document, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`, s.table)
	for k, v := range changes {
		if _, err := tx.ExecContext(ctx, query, k, string(v)); err != nil {
			_ = tx.Rollback()
			return errors.NewStateStorageFailedError("postgres.write", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStateStorageFailedError("postgres.write", err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table)
	if _, err := s.db.ExecContext(ctx, query, pq.Array(keys)); err != nil {
		return errors.NewStateStorageFailedError("postgres.delete", err)
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
