package service

import (
	"errors"
)

// User errors: reported to the player, no state change.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidBet          = errors.New("invalid bet parameters")
	ErrNoActiveGame        = errors.New("no active game")
	ErrGameInProgress      = errors.New("a game is already in progress")
	ErrRoundClosed         = errors.New("no round open")
	ErrDailyAlreadyClaimed = errors.New("daily grant already claimed")
	ErrNothingToClaim      = errors.New("nothing to claim")
)

// Policy blocks: reported to the player as a policy message, no state change.
var (
	ErrExcluded        = errors.New("account has an active exclusion")
	ErrAlreadyExcluded = errors.New("an exclusion is already active")
	ErrGameDisabled    = errors.New("game is disabled")
	ErrAccountBanned   = errors.New("account is banned from play")
)

// Integrity violations: these indicate a ledger bug, never retried and never
// swallowed. They propagate uncaught past the command boundary so the
// dispatch layer's fault handler can log and notify.
var (
	ErrWagerNotFound        = errors.New("wager does not exist")
	ErrWagerAlreadyResolved = errors.New("wager already resolved")
)
