package models

import (
	"time"
)

// AccountStatus represents the lifecycle state of a gambler account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusAbandoned AccountStatus = "abandoned"
	AccountStatusBanned    AccountStatus = "banned"
)

// Account represents one player's economy identity. At most one active
// account may exist per forum user; abandoning keeps the history around but
// blocks further play until a fresh account is created.
type Account struct {
	ID           int64         `db:"id"`
	UserID       int64         `db:"user_id"`
	Username     string        `db:"username"`
	Balance      int64         `db:"balance"`
	TotalWagered int64         `db:"total_wagered"`
	Status       AccountStatus `db:"status"`
	Seed         string        `db:"seed" json:"-"` // private RNG seed, never disclosed
	RandCounter  uint64        `db:"rand_counter"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

// IsActive checks if the account is in the active lifecycle state
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// CanWager checks if the account is allowed to place wagers at all.
// Exclusions are checked separately by the exclusion guard.
func (a *Account) CanWager() bool {
	return a.Status == AccountStatusActive
}
