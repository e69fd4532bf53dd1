package repository

import (
	"context"
	"fmt"
	"time"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

const wagerColumns = `id, account_id, game, amount, effect, multiplier, is_complete, amount_debited, state, created_at, updated_at, resolved_at`

// WagerRepository implements the service.WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

func scanWager(row pgx.Row) (*models.Wager, error) {
	var wager models.Wager
	err := row.Scan(
		&wager.ID,
		&wager.AccountID,
		&wager.Game,
		&wager.Amount,
		&wager.Effect,
		&wager.Multiplier,
		&wager.IsComplete,
		&wager.AmountDebited,
		&wager.State,
		&wager.CreatedAt,
		&wager.UpdatedAt,
		&wager.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// Create creates a new wager
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (account_id, game, amount, effect, multiplier, is_complete, amount_debited, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.AccountID,
		wager.Game,
		wager.Amount,
		wager.Effect,
		wager.Multiplier,
		wager.IsComplete,
		wager.AmountDebited,
		wager.State,
	).Scan(&wager.ID, &wager.CreatedAt, &wager.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create wager for account %d: %w", wager.AccountID, err)
	}
	return nil
}

// GetByID retrieves a wager by its ID
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, err)
	}
	return wager, nil
}

// GetPendingByAccountAndGame returns the single incomplete wager for an
// account+game pair, nil if none. A partial unique index guarantees at most
// one row can match.
func (r *WagerRepository) GetPendingByAccountAndGame(ctx context.Context, accountID int64, game models.GameKind) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE account_id = $1 AND game = $2 AND is_complete = FALSE`

	wager, err := scanWager(r.q.QueryRow(ctx, query, accountID, game))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending %s wager for account %d: %w", game, accountID, err)
	}
	return wager, nil
}

// GetPendingByGame returns every incomplete wager for a game, oldest first
func (r *WagerRepository) GetPendingByGame(ctx context.Context, game models.GameKind) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE game = $1 AND is_complete = FALSE
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, game)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending %s wagers: %w", game, err)
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}
	return wagers, nil
}

// UpdateState replaces the state blob of a pending wager
func (r *WagerRepository) UpdateState(ctx context.Context, id int64, state []byte) error {
	query := `
		UPDATE wagers
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND is_complete = FALSE
	`

	result, err := r.q.Exec(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update state for wager %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wager %d is not pending", id)
	}
	return nil
}

// IncreaseAmount raises the stake of a pending wager
func (r *WagerRepository) IncreaseAmount(ctx context.Context, id int64, extra int64) error {
	query := `
		UPDATE wagers
		SET amount = amount + $1, updated_at = NOW()
		WHERE id = $2 AND is_complete = FALSE
	`

	result, err := r.q.Exec(ctx, query, extra, id)
	if err != nil {
		return fmt.Errorf("failed to increase amount for wager %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wager %d is not pending", id)
	}
	return nil
}

// MarkComplete flips a wager to complete exactly once. The is_complete guard
// makes a double resolve return false without touching the row; that false is
// what the service layer turns into a loud integrity failure.
func (r *WagerRepository) MarkComplete(ctx context.Context, id int64, effect int64, multiplier float64) (bool, error) {
	query := `
		UPDATE wagers
		SET effect = $1, multiplier = $2, is_complete = TRUE, state = NULL,
		    updated_at = NOW(), resolved_at = NOW()
		WHERE id = $3 AND is_complete = FALSE
	`

	result, err := r.q.Exec(ctx, query, effect, multiplier, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark wager %d complete: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetByAccount returns recent wagers for an account
func (r *WagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wagers for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}
	return wagers, nil
}

// SumAmountSince sums wager amounts for an account since a timestamp
func (r *WagerRepository) SumAmountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wagers
		WHERE account_id = $1 AND created_at >= $2
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum wagered amount for account %d: %w", accountID, err)
	}
	return sum, nil
}

// SumLossesSince sums the absolute value of negative effects on completed
// wagers since a timestamp
func (r *WagerRepository) SumLossesSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(-effect), 0)
		FROM wagers
		WHERE account_id = $1 AND is_complete = TRUE AND effect < 0 AND resolved_at >= $2
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum losses for account %d: %w", accountID, err)
	}
	return sum, nil
}
