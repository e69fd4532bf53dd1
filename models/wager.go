package models

import (
	"time"
)

// GameKind identifies which mini-game a wager belongs to
type GameKind string

const (
	GameBlackjack GameKind = "blackjack"
	GameRoulette  GameKind = "roulette"
	GameMines     GameKind = "mines"
	GameDice      GameKind = "dice"
	GameCoinflip  GameKind = "coinflip"
	GameKeno      GameKind = "keno"
	GamePlinko    GameKind = "plinko"
	GamePlanes    GameKind = "planes"
	GameWheel     GameKind = "wheel"
	GameLambchop  GameKind = "lambchop"
)

// Wager represents one bet instance, single-shot or multi-step. The state
// blob is present only while the wager is incomplete; multi-step games use it
// to persist hands/boards/decks/picks between chat turns. Exactly one
// resolution may ever occur per wager.
type Wager struct {
	ID            int64      `db:"id"`
	AccountID     int64      `db:"account_id"`
	Game          GameKind   `db:"game"`
	Amount        int64      `db:"amount"`
	Effect        int64      `db:"effect"` // signed net effect; 0 push, -Amount total loss
	Multiplier    float64    `db:"multiplier"`
	IsComplete    bool       `db:"is_complete"`
	AmountDebited bool       `db:"amount_debited"` // stake was debited when the wager was opened
	State         []byte     `db:"state"`          // opaque per-game blob, nil once complete
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	ResolvedAt    *time.Time `db:"resolved_at"`
}

// IsPending checks if the wager is still awaiting resolution
func (w *Wager) IsPending() bool {
	return !w.IsComplete
}

// IdleFor reports how long the wager has sat without a player action
func (w *Wager) IdleFor(now time.Time) time.Duration {
	return now.Sub(w.UpdatedAt)
}

// ResolutionCredit returns the amount credited back to the account when the
// wager resolves with the given effect. When the stake was debited up front,
// resolution returns the stake plus the effect, so a total loss credits
// nothing and a push refunds the stake.
func (w *Wager) ResolutionCredit(effect int64) int64 {
	if w.AmountDebited {
		return w.Amount + effect
	}
	return effect
}

// WagerResult is returned to command handlers after a resolution
type WagerResult struct {
	Wager      *Wager
	Effect     int64
	Multiplier float64
	NewBalance int64
}
