package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CredentialRepository keeps the bearer token in a single-row table.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the stored token, or "" when the slot is empty.
func (r *CredentialRepository) Get() (string, error) {
	var token string
	err := r.db.QueryRow(`SELECT token FROM credentials WHERE slot = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return token, nil
}

// Set overwrites the slot. An empty token clears it.
func (r *CredentialRepository) Set(token string) error {
	if token == "" {
		return r.Clear()
	}

	query := `
		INSERT INTO credentials (slot, token, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (r *CredentialRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE slot = 1`); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// UpdatedAt returns when the slot was last written, and false when it is empty.
func (r *CredentialRepository) UpdatedAt() (time.Time, bool, error) {
	var updatedAt time.Time
	err := r.db.QueryRow(`SELECT updated_at FROM credentials WHERE slot = 1`).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read credential: %w", err)
	}
	return updatedAt, true, nil
}
