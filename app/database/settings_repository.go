package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SettingsRepository = (*StateRepository)(nil)

// StateRepository persists named UI slots as opaque JSON documents.
type StateRepository struct {
	db *DB
}

func NewStateRepository(db *DB) *StateRepository {
	return &StateRepository{db: db}
}

// GetSlot returns nil without error when the slot was never written.
func (r *StateRepository) GetSlot(ctx context.Context, slot string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ui_state WHERE slot = ?`, slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return []byte(value), nil
}

func (r *StateRepository) SetSlot(ctx context.Context, slot string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ui_state (slot, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, slot, string(value), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}
