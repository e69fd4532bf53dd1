package models

import (
	"time"
)

// RoundBet records one participant's entry in an open round. The stake is
// already held by the pending wager referenced here.
type RoundBet struct {
	AccountID int64
	WagerID   int64
	Amount    int64
	Pick      string
	PlacedAt  time.Time
}

// Round is a time-boxed, multi-participant betting window. Rounds are
// ephemeral: they exist only in memory while open and are destroyed on
// resolution or cancellation. The durable record of each bet is its pending
// wager.
type Round struct {
	ID            string
	Game          GameKind
	CreatedAt     time.Time
	Deadline      time.Time
	Bets          []*RoundBet
	MessageHandle int64 // confirmed chat handle for live edits, 0 until posted
}

// TotalPot sums all stakes currently in the round
func (r *Round) TotalPot() int64 {
	var total int64
	for _, b := range r.Bets {
		total += b.Amount
	}
	return total
}

// BetsFor returns the subset of bets placed by one account
func (r *Round) BetsFor(accountID int64) []*RoundBet {
	var bets []*RoundBet
	for _, b := range r.Bets {
		if b.AccountID == accountID {
			bets = append(bets, b)
		}
	}
	return bets
}

// Remaining returns the time left in the betting window
func (r *Round) Remaining(now time.Time) time.Duration {
	if now.After(r.Deadline) {
		return 0
	}
	return r.Deadline.Sub(now)
}

// RoundResult captures a resolved round: the single shared draw applied to
// every admitted bet, and the per-account net effects.
type RoundResult struct {
	Round       *Round
	Outcome     string
	DrawCounter uint64 // house stream counter consumed by the draw, kept for audit replay
	Effects     map[int64]int64
	Cancelled   bool
}
