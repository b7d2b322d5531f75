package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps entries in the kv_entries table created by
// database.DB.Migrate.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: 5 * time.Second}
}

func (s *PostgresStore) Get(key string) (string, bool, error) {
	k, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, k).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query kv entry: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key, value string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, k, value)
	if err != nil {
		return fmt.Errorf("failed to upsert kv entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(key string) error {
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, k); err != nil {
		return fmt.Errorf("failed to delete kv entry: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
