package repository

import (
	"context"
	"fmt"
	"time"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

// ExclusionRepository implements the service.ExclusionRepository interface
type ExclusionRepository struct {
	q queryable
}

// NewExclusionRepository creates a new exclusion repository
func NewExclusionRepository(db *database.DB) *ExclusionRepository {
	return &ExclusionRepository{q: db.Pool}
}

// newExclusionRepositoryWithTx creates a new exclusion repository with a transaction
func newExclusionRepositoryWithTx(tx queryable) *ExclusionRepository {
	return &ExclusionRepository{q: tx}
}

// Create creates a new exclusion
func (r *ExclusionRepository) Create(ctx context.Context, exclusion *models.Exclusion) error {
	query := `
		INSERT INTO exclusions (account_id, source, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		exclusion.AccountID,
		exclusion.Source,
		exclusion.ExpiresAt,
	).Scan(&exclusion.ID, &exclusion.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create exclusion for account %d: %w", exclusion.AccountID, err)
	}
	return nil
}

// GetActiveByAccount returns the exclusion still in force at the given time,
// nil if none. With extend-never-stack semantics at most one can be active,
// but the query tolerates historical overlaps by taking the latest expiry.
func (r *ExclusionRepository) GetActiveByAccount(ctx context.Context, accountID int64, now time.Time) (*models.Exclusion, error) {
	query := `
		SELECT id, account_id, source, created_at, expires_at
		FROM exclusions
		WHERE account_id = $1 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`

	var exclusion models.Exclusion
	err := r.q.QueryRow(ctx, query, accountID, now).Scan(
		&exclusion.ID,
		&exclusion.AccountID,
		&exclusion.Source,
		&exclusion.CreatedAt,
		&exclusion.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active exclusion for account %d: %w", accountID, err)
	}
	return &exclusion, nil
}

// GetByAccount returns historical exclusions for an account
func (r *ExclusionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Exclusion, error) {
	query := `
		SELECT id, account_id, source, created_at, expires_at
		FROM exclusions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get exclusions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var exclusions []*models.Exclusion
	for rows.Next() {
		var exclusion models.Exclusion
		err := rows.Scan(
			&exclusion.ID,
			&exclusion.AccountID,
			&exclusion.Source,
			&exclusion.CreatedAt,
			&exclusion.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		exclusions = append(exclusions, &exclusion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exclusions: %w", err)
	}
	return exclusions, nil
}
