package repository

import (
	"context"
	"fmt"

	"casino/database"
	"casino/models"
	"casino/service"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, user_id, username, balance, total_wagered, status, seed, rand_counter, created_at, updated_at`

// AccountRepository implements the service.AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	var counter int64
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Username,
		&account.Balance,
		&account.TotalWagered,
		&account.Status,
		&account.Seed,
		&counter,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.RandCounter = uint64(counter)
	return &account, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetActiveByUserID retrieves the single active account for a forum user
func (r *AccountRepository) GetActiveByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND status = $2`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, models.AccountStatusActive))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active account for user %d: %w", userID, err)
	}
	return account, nil
}

// GetLatestByUserID retrieves the most recent account for a user in any state
func (r *AccountRepository) GetLatestByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest account for user %d: %w", userID, err)
	}
	return account, nil
}

// Create creates a new active account with the initial balance and seed
func (r *AccountRepository) Create(ctx context.Context, userID int64, username, seed string, initialBalance int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (user_id, username, balance, status, seed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, username, initialBalance, models.AccountStatusActive, seed))
	if err != nil {
		return nil, fmt.Errorf("failed to create account for user %d: %w", userID, err)
	}
	return account, nil
}

// AddBalance credits an account atomically and returns the new balance
func (r *AccountRepository) AddBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for account %d: %w", id, err)
	}
	return newBalance, nil
}

// DeductBalance debits an account atomically, failing if funds are insufficient.
// The balance guard in the UPDATE makes the read-modify-write a single atomic
// statement; two concurrent debits serialize on the row lock.
func (r *AccountRepository) DeductBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		// Distinguish a missing account from an insufficient balance
		account, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return 0, fmt.Errorf("failed to check account: %w", getErr)
		}
		if account == nil {
			return 0, fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
		}
		return 0, fmt.Errorf("have %d, need %d: %w", account.Balance, amount, service.ErrInsufficientBalance)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct balance for account %d: %w", id, err)
	}
	return newBalance, nil
}

// AddTotalWagered bumps the lifetime wagered counter
func (r *AccountRepository) AddTotalWagered(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE accounts
		SET total_wagered = total_wagered + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to update total wagered for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
	}
	return nil
}

// UpdateStatus moves the account through its lifecycle
func (r *AccountRepository) UpdateStatus(ctx context.Context, id int64, status models.AccountStatus) error {
	query := `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
	}
	return nil
}

// UpdateRandCounter persists the advanced random stream position
func (r *AccountRepository) UpdateRandCounter(ctx context.Context, id int64, counter uint64) error {
	query := `
		UPDATE accounts
		SET rand_counter = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, int64(counter), id)
	if err != nil {
		return fmt.Errorf("failed to update rand counter for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, service.ErrAccountNotFound)
	}
	return nil
}
