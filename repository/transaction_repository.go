package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the service.TransactionRepository interface.
// Transactions are append-only; there is deliberately no update or delete.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record creates a new transaction entry
func (r *TransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	metadataJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions
		(account_id, amount, balance_before, balance_after, type, description, counterparty_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		tx.AccountID,
		tx.Amount,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.Type,
		tx.Description,
		tx.CounterpartyID,
		metadataJSON,
	).Scan(&tx.ID, &tx.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record transaction for account %d: %w", tx.AccountID, err)
	}
	return nil
}

// GetByAccount returns recent transactions for an account
func (r *TransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, account_id, amount, balance_before, balance_after, type, description, counterparty_id, metadata, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return scanTransactions(rows, accountID)
}

// GetLatestByType returns the most recent transaction of a given type, nil if none
func (r *TransactionRepository) GetLatestByType(ctx context.Context, accountID int64, txType models.TransactionType) (*models.Transaction, error) {
	query := `
		SELECT id, account_id, amount, balance_before, balance_after, type, description, counterparty_id, metadata, created_at
		FROM transactions
		WHERE account_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	rows, err := r.q.Query(ctx, query, accountID, txType)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s transaction for account %d: %w", txType, accountID, err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows, accountID)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, nil
	}
	return transactions[0], nil
}

func scanTransactions(rows pgx.Rows, accountID int64) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var metadataJSON []byte

		err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.Amount,
			&tx.BalanceBefore,
			&tx.BalanceAfter,
			&tx.Type,
			&tx.Description,
			&tx.CounterpartyID,
			&metadataJSON,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions for account %d: %w", accountID, err)
	}
	return transactions, nil
}
