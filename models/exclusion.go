package models

import (
	"time"
)

// ExclusionSource distinguishes self-service lockouts from administrative ones
type ExclusionSource string

const (
	ExclusionSourceSelf  ExclusionSource = "self"
	ExclusionSourceAdmin ExclusionSource = "admin"
)

// Exclusion is a time-boxed responsible-gaming lockout. At most one active
// exclusion blocks all wagering regardless of how many historical exclusions
// exist for the account.
type Exclusion struct {
	ID        int64           `db:"id"`
	AccountID int64           `db:"account_id"`
	Source    ExclusionSource `db:"source"`
	CreatedAt time.Time       `db:"created_at"`
	ExpiresAt time.Time       `db:"expires_at"`
}

// IsActive checks whether the exclusion currently blocks wagering
func (e *Exclusion) IsActive(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Remaining returns how long the lockout has left to run
func (e *Exclusion) Remaining(now time.Time) time.Duration {
	if !e.IsActive(now) {
		return 0
	}
	return e.ExpiresAt.Sub(now)
}
