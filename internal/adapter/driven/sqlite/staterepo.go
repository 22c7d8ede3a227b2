package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateStore = (*StateRepo)(nil)

// StateRepo is the SQLite implementation of the StateStore port interface:
// one opaque serialized record per logical key.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new StateRepo backed by the given DB.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// Get retrieves the record for the given key. Returns (nil, false, nil) when
// no record exists.
func (r *StateRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM app_state WHERE key = ?`

	var value []byte
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores or replaces the record for the given key.
func (r *StateRepo) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT OR REPLACE INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`

	if _, err := r.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

// Delete removes the record for the given key. Deleting an absent key is not
// an error.
func (r *StateRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM app_state WHERE key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}
