package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// kvStore implements driven.KVStore.
type kvStore struct {
	store *Store
}

var _ driven.KVStore = (*kvStore)(nil)

// Get returns the value for key.
func (s *kvStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.store.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set stores value under key.
func (s *kvStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, blob(value), now())
	if err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *kvStore) Delete(ctx context.Context, key string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes every key in keys in one transaction.
func (s *kvStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM kv WHERE key = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return fmt.Errorf("deleting key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deletes: %w", err)
	}
	return nil
}

// Keys returns every key starting with prefix.
func (s *kvStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key",
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// CompareAndSwap replaces the value of key if it currently equals oldValue.
// Each branch is a single statement, so the check and write are atomic even
// with several processes sharing the database file.
func (s *kvStore) CompareAndSwap(ctx context.Context, key string, oldValue, newValue []byte) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if oldValue == nil {
		res, err = s.store.db.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, blob(newValue), now())
	} else {
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE kv SET value = ?, updated_at = ?
			WHERE key = ? AND value = ?
		`, blob(newValue), now(), key, blob(oldValue))
	}
	if err != nil {
		return false, fmt.Errorf("compare and swap %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare and swap %s: %w", key, err)
	}
	return n == 1, nil
}

// blob returns value as a non-nil byte slice so it binds as a BLOB.
func blob(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
