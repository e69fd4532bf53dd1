package service

import (
	"context"
	"time"

	"casino/events"
	"casino/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetActiveByUserID retrieves the single active account for a forum user
	GetActiveByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// GetLatestByUserID retrieves the most recent account for a user in any state
	GetLatestByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// Create creates a new active account with the initial balance and seed
	Create(ctx context.Context, userID int64, username, seed string, initialBalance int64) (*models.Account, error)

	// AddBalance credits an account atomically and returns the new balance
	AddBalance(ctx context.Context, id int64, amount int64) (int64, error)

	// DeductBalance debits an account atomically, failing with
	// ErrInsufficientBalance rather than letting the balance go negative
	DeductBalance(ctx context.Context, id int64, amount int64) (int64, error)

	// AddTotalWagered bumps the lifetime wagered counter
	AddTotalWagered(ctx context.Context, id int64, amount int64) error

	// UpdateStatus moves the account through its lifecycle
	UpdateStatus(ctx context.Context, id int64, status models.AccountStatus) error

	// UpdateRandCounter persists the advanced random stream position
	UpdateRandCounter(ctx context.Context, id int64, counter uint64) error
}

// TransactionRepository defines the interface for the append-only ledger history
type TransactionRepository interface {
	// Record creates a new transaction entry; entries are never updated
	Record(ctx context.Context, tx *models.Transaction) error

	// GetByAccount returns recent transactions for an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)

	// GetLatestByType returns the most recent transaction of a given type, nil if none
	GetLatestByType(ctx context.Context, accountID int64, txType models.TransactionType) (*models.Transaction, error)
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// Create creates a new wager
	Create(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager by its ID
	GetByID(ctx context.Context, id int64) (*models.Wager, error)

	// GetPendingByAccountAndGame returns the single incomplete wager for an
	// account+game pair, nil if none
	GetPendingByAccountAndGame(ctx context.Context, accountID int64, game models.GameKind) (*models.Wager, error)

	// GetPendingByGame returns every incomplete wager for a game
	GetPendingByGame(ctx context.Context, game models.GameKind) ([]*models.Wager, error)

	// UpdateState replaces the state blob of a pending wager
	UpdateState(ctx context.Context, id int64, state []byte) error

	// IncreaseAmount raises the stake of a pending wager (double down)
	IncreaseAmount(ctx context.Context, id int64, extra int64) error

	// MarkComplete flips a wager to complete exactly once. Returns false when
	// the wager was already complete, without touching the row.
	MarkComplete(ctx context.Context, id int64, effect int64, multiplier float64) (bool, error)

	// GetByAccount returns recent wagers for an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error)

	// SumAmountSince sums wager amounts for an account since a timestamp
	SumAmountSince(ctx context.Context, accountID int64, since time.Time) (int64, error)

	// SumLossesSince sums the absolute value of negative effects on completed
	// wagers since a timestamp
	SumLossesSince(ctx context.Context, accountID int64, since time.Time) (int64, error)
}

// ExclusionRepository defines the interface for exclusion data access
type ExclusionRepository interface {
	// Create creates a new exclusion
	Create(ctx context.Context, exclusion *models.Exclusion) error

	// GetActiveByAccount returns the exclusion still in force at the given
	// time, nil if none
	GetActiveByAccount(ctx context.Context, accountID int64, now time.Time) (*models.Exclusion, error)

	// GetByAccount returns historical exclusions for an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Exclusion, error)
}

// SettingsRepository defines the interface for the read-only key/value store
type SettingsRepository interface {
	// Get returns a setting by key, nil if absent
	Get(ctx context.Context, key string) (*models.Setting, error)

	// GetAll returns every setting
	GetAll(ctx context.Context) ([]*models.Setting, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	WagerRepository() WagerRepository
	ExclusionRepository() ExclusionRepository
	SettingsRepository() SettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService owns every balance movement in the system
type LedgerService interface {
	// ResolveAccount finds the active account for a forum user, creating one
	// with the starting balance when requested. Returns nil without error for
	// absent or banned users when creation is not possible.
	ResolveAccount(ctx context.Context, userID int64, username string, createIfMissing bool) (*models.Account, error)

	// GetAccount retrieves an account by ID
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	// ModifyBalance applies one signed delta with its ledger record
	ModifyBalance(ctx context.Context, accountID int64, delta int64, txType models.TransactionType, description string) (int64, error)

	// Transfer moves bits between two active accounts atomically
	Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) error

	// OpenWager creates a wager; with autoDebit the stake leaves the balance
	// in the same transaction
	OpenWager(ctx context.Context, accountID int64, amount int64, game models.GameKind, state []byte, autoDebit bool) (*models.Wager, error)

	// ResolveWager completes a wager exactly once and settles the balance,
	// returning the new balance
	ResolveWager(ctx context.Context, wagerID int64, effect int64, multiplier float64) (int64, error)

	// ClaimDaily pays the once-per-day grant
	ClaimDaily(ctx context.Context, accountID int64) (int64, error)

	// Rakeback and lossback: accrued cashback since the last claim
	RakebackAvailable(ctx context.Context, accountID int64) (int64, error)
	ClaimRakeback(ctx context.Context, accountID int64) (amount int64, newBalance int64, err error)
	LossbackAvailable(ctx context.Context, accountID int64) (int64, error)
	ClaimLossback(ctx context.Context, accountID int64) (amount int64, newBalance int64, err error)

	// Lifecycle
	Abandon(ctx context.Context, accountID int64) error
	Ban(ctx context.Context, accountID int64) error

	// History
	GetTransactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)
	GetWagers(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error)
}

// PlayService runs single-shot games that open and resolve in one step
type PlayService interface {
	// PlayDice rolls against a player-chosen win probability at fair-inverse
	// payout
	PlayDice(ctx context.Context, accountID int64, amount int64, winProbability float64) (*models.WagerResult, error)

	// PlayCoinflip is an even-money flip
	PlayCoinflip(ctx context.Context, accountID int64, amount int64) (*models.WagerResult, error)
}

// SessionService drives multi-step game sessions through their state machine
type SessionService interface {
	// Resume applies one action to the account's pending game, enforcing
	// lazy timeout forfeiture and corrupt-state voiding first
	Resume(ctx context.Context, accountID int64, game models.GameKind, action SessionAction) (*SessionView, error)

	// Blackjack
	StartBlackjack(ctx context.Context, accountID int64, amount int64) (*SessionView, error)
	BlackjackHit(ctx context.Context, accountID int64) (*SessionView, error)
	BlackjackStand(ctx context.Context, accountID int64) (*SessionView, error)
	BlackjackDouble(ctx context.Context, accountID int64) (*SessionView, error)

	// Mines
	StartMines(ctx context.Context, accountID int64, amount int64, size, mineCount int) (*SessionView, error)
	MinesPick(ctx context.Context, accountID int64, cell int) (*SessionView, error)
	MinesCashOut(ctx context.Context, accountID int64) (*SessionView, error)
}

// RoundService coordinates time-boxed multi-participant betting rounds
type RoundService interface {
	// JoinRound admits one bet, creating the round when none is open
	JoinRound(ctx context.Context, accountID int64, game models.GameKind, amount int64, pick string) (*models.Round, error)

	// ActiveRound returns a snapshot of the open round, nil if none
	ActiveRound(game models.GameKind) *models.Round

	// CancelRound tears the open round down with per-bet refunds
	CancelRound(ctx context.Context, game models.GameKind) error

	// RefundBets voids one account's bets while the round continues
	RefundBets(ctx context.Context, game models.GameKind, accountID int64) (int, error)

	// RecoverOrphans refunds pending round wagers that no open round holds,
	// returning how many were voided
	RecoverOrphans(ctx context.Context) (int, error)

	// Stop cancels all open rounds and waits for their workers
	Stop()
}

// ExclusionService is the responsible-gaming guard
type ExclusionService interface {
	// ActiveExclusion returns the exclusion currently in force, nil if none
	ActiveExclusion(ctx context.Context, accountID int64) (*models.Exclusion, error)

	// Exclude locks the account out of wagering; extends, never stacks
	Exclude(ctx context.Context, accountID int64, duration time.Duration, source models.ExclusionSource) (*models.Exclusion, error)

	// History returns past exclusions
	History(ctx context.Context, accountID int64, limit int) ([]*models.Exclusion, error)
}

// SettingsService is a TTL-cached read path over the settings table
type SettingsService interface {
	// Get returns a setting value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// GameEnabled reports whether a game is switched on; absent keys default
	// to enabled
	GameEnabled(ctx context.Context, game models.GameKind) (bool, error)
}

// RoundPublisher is the chat collaborator the round coordinator talks to.
// The engine owns no user-facing text; implementations format and deliver.
// All calls are fire-and-continue except PublishRound, which must return a
// confirmed message handle before the round display can be edited live.
type RoundPublisher interface {
	// PublishRound posts or refreshes the live round display and returns the
	// confirmed message handle
	PublishRound(ctx context.Context, round *models.Round) (int64, error)

	// PublishResult announces a resolved or cancelled round
	PublishResult(ctx context.Context, result *models.RoundResult)
}
