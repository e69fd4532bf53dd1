package models

import (
	"time"
)

// TransactionType represents the source kind of a balance change
type TransactionType string

const (
	TransactionTypeInitial    TransactionType = "initial"
	TransactionTypeWagerStake TransactionType = "wager_stake"
	TransactionTypeGameWin    TransactionType = "game_win"
	TransactionTypeWagerVoid  TransactionType = "wager_void"
	TransactionTypeJuiceIn    TransactionType = "juice_in"
	TransactionTypeJuiceOut   TransactionType = "juice_out"
	TransactionTypeRakeback   TransactionType = "rakeback"
	TransactionTypeLossback   TransactionType = "lossback"
	TransactionTypeDaily      TransactionType = "daily"
	TransactionTypeAdmin      TransactionType = "admin"
)

// Transaction is an immutable record of a single balance delta. The running
// balance of an account is the fold of its transactions; BalanceBefore and
// BalanceAfter pin each record to a concrete point in that fold.
type Transaction struct {
	ID             int64           `db:"id"`
	AccountID      int64           `db:"account_id"`
	Amount         int64           `db:"amount"` // signed delta
	BalanceBefore  int64           `db:"balance_before"`
	BalanceAfter   int64           `db:"balance_after"`
	Type           TransactionType `db:"type"`
	Description    string          `db:"description"`
	CounterpartyID *int64          `db:"counterparty_id"`
	Metadata       map[string]any  `db:"metadata"`
	CreatedAt      time.Time       `db:"created_at"`
}
