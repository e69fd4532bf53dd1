package repository

import (
	"context"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository implements the service.SettingsRepository interface.
// The engine only reads this table; operator tooling writes it.
type SettingsRepository struct {
	q queryable
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{q: db.Pool}
}

// newSettingsRepositoryWithTx creates a new settings repository with a transaction
func newSettingsRepositoryWithTx(tx queryable) *SettingsRepository {
	return &SettingsRepository{q: tx}
}

// Get returns a setting by key, nil if absent
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings WHERE key = $1`

	var setting models.Setting
	err := r.q.QueryRow(ctx, query, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return &setting, nil
}

// GetAll returns every setting
func (r *SettingsRepository) GetAll(ctx context.Context) ([]*models.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings ORDER BY key`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		var setting models.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, &setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return settings, nil
}
