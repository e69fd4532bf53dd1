package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino/config"
	"casino/events"
	"casino/games"
	"casino/models"
	"casino/rng"

	log "github.com/sirupsen/logrus"
)

// SessionStep is what a session action reports back to the state machine.
// Done resolves the wager at Effect/Multiplier; otherwise State persists and
// the session stays pending. ExtraStake is debited before the step applies.
type SessionStep struct {
	State      games.State
	Done       bool
	Effect     int64
	Multiplier float64
	ExtraStake int64
}

// SessionAction applies one player move to a decoded game state. The amount
// is the wager's current stake.
type SessionAction func(state games.State, amount int64) (*SessionStep, error)

// SessionView is the outcome of a session operation as seen by the caller
type SessionView struct {
	Wager     *models.Wager
	State     games.State // nil once the wager resolved
	Result    *models.WagerResult
	Forfeited bool // pending game closed by idle timeout
	Voided    bool // pending game closed because its state blob was corrupt
}

type sessionService struct {
	uowFactory UnitOfWorkFactory
	settings   SettingsService
}

// NewSessionService creates a new session service
func NewSessionService(uowFactory UnitOfWorkFactory, settings SettingsService) SessionService {
	return &sessionService{
		uowFactory: uowFactory,
		settings:   settings,
	}
}

// start opens a debited pending wager and runs the game's opening deal from
// the account's private stream, persisting the advanced counter in the same
// transaction. Games that resolve on the deal (a blackjack natural) complete
// immediately.
func (s *sessionService) start(ctx context.Context, accountID int64, amount int64, game models.GameKind, deal func(stream *rng.Stream) (games.State, *SessionStep, error)) (*SessionView, error) {
	if err := s.checkGameEnabled(ctx, game); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	wager, err := openWagerTx(ctx, uow, accountID, amount, game, nil, true)
	if err != nil {
		return nil, err
	}

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	stream, err := rng.NewStream(account.Seed, account.RandCounter)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream for account %d: %w", accountID, err)
	}

	state, step, err := deal(stream)
	if err != nil {
		return nil, err
	}

	if err := uow.AccountRepository().UpdateRandCounter(ctx, accountID, stream.Counter()); err != nil {
		return nil, fmt.Errorf("failed to persist stream counter: %w", err)
	}

	view := &SessionView{Wager: wager}
	if step != nil && step.Done {
		newBalance, err := resolveWagerTx(ctx, uow, wager, step.Effect, step.Multiplier, resolutionTxType(step.Effect), fmt.Sprintf("%s result", game))
		if err != nil {
			return nil, err
		}
		view.Result = &models.WagerResult{Wager: wager, Effect: step.Effect, Multiplier: step.Multiplier, NewBalance: newBalance}
	} else {
		blob, err := games.EncodeState(state)
		if err != nil {
			return nil, err
		}
		if err := uow.WagerRepository().UpdateState(ctx, wager.ID, blob); err != nil {
			return nil, err
		}
		wager.State = blob
		view.State = state
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return view, nil
}

// Resume loads the single pending wager for an account+game and applies one
// action to it. Idle timeout is enforced lazily as the first step: an expired
// session forfeits its stake before the action is even considered. A state
// blob that no longer decodes voids the wager with a stake refund.
func (s *sessionService) Resume(ctx context.Context, accountID int64, game models.GameKind, action SessionAction) (*SessionView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetPendingByAccountAndGame(ctx, accountID, game)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending wager: %w", err)
	}
	if wager == nil {
		return nil, ErrNoActiveGame
	}

	now := time.Now().UTC()
	if wager.IdleFor(now) >= config.Get().SessionTimeout {
		return s.forfeit(ctx, uow, wager)
	}

	state, err := games.DecodeState(wager.State)
	if err == nil && state.Kind() != wager.Game {
		err = fmt.Errorf("%w: state kind %s under %s wager", games.ErrCorruptState, state.Kind(), wager.Game)
	}
	if err != nil {
		if errors.Is(err, games.ErrCorruptState) {
			return s.void(ctx, uow, wager, err)
		}
		return nil, err
	}

	step, err := action(state, wager.Amount)
	if err != nil {
		if errors.Is(err, games.ErrCorruptState) {
			return s.void(ctx, uow, wager, err)
		}
		return nil, err
	}

	if step.ExtraStake > 0 {
		if _, err := ApplyBalanceChange(ctx, uow, accountID, -step.ExtraStake, models.TransactionTypeWagerStake, fmt.Sprintf("%s stake increase", game), nil, nil); err != nil {
			return nil, err
		}
		if err := uow.WagerRepository().IncreaseAmount(ctx, wager.ID, step.ExtraStake); err != nil {
			return nil, err
		}
		if err := uow.AccountRepository().AddTotalWagered(ctx, accountID, step.ExtraStake); err != nil {
			return nil, fmt.Errorf("failed to update total wagered: %w", err)
		}
		wager.Amount += step.ExtraStake
	}

	view := &SessionView{Wager: wager}
	if step.Done {
		newBalance, err := resolveWagerTx(ctx, uow, wager, step.Effect, step.Multiplier, resolutionTxType(step.Effect), fmt.Sprintf("%s result", game))
		if err != nil {
			return nil, err
		}
		view.Result = &models.WagerResult{Wager: wager, Effect: step.Effect, Multiplier: step.Multiplier, NewBalance: newBalance}
	} else {
		blob, err := games.EncodeState(step.State)
		if err != nil {
			return nil, err
		}
		if err := uow.WagerRepository().UpdateState(ctx, wager.ID, blob); err != nil {
			return nil, err
		}
		wager.State = blob
		view.State = step.State
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return view, nil
}

// forfeit closes an idle-expired session as a total loss. The stake was
// debited at open, so no further balance movement happens.
func (s *sessionService) forfeit(ctx context.Context, uow UnitOfWork, wager *models.Wager) (*SessionView, error) {
	newBalance, err := resolveWagerTx(ctx, uow, wager, -wager.Amount, 0, models.TransactionTypeWagerStake, fmt.Sprintf("%s timed out", wager.Game))
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WagerForfeitedEvent{
		WagerID:   wager.ID,
		AccountID: wager.AccountID,
		Game:      wager.Game,
		Amount:    wager.Amount,
	})

	log.WithFields(log.Fields{
		"wager_id":   wager.ID,
		"account_id": wager.AccountID,
		"game":       wager.Game,
		"amount":     wager.Amount,
	}).Info("Forfeited idle game session")

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &SessionView{
		Wager:     wager,
		Forfeited: true,
		Result:    &models.WagerResult{Wager: wager, Effect: -wager.Amount, Multiplier: 0, NewBalance: newBalance},
	}, nil
}

// void closes a session whose state blob no longer decodes, refunding the
// stake. The player never loses money to a storage fault.
func (s *sessionService) void(ctx context.Context, uow UnitOfWork, wager *models.Wager, cause error) (*SessionView, error) {
	log.WithFields(log.Fields{
		"wager_id":   wager.ID,
		"account_id": wager.AccountID,
		"game":       wager.Game,
		"error":      cause,
	}).Error("Voiding game session with corrupt state")

	newBalance, err := resolveWagerTx(ctx, uow, wager, 0, 1, models.TransactionTypeWagerVoid, fmt.Sprintf("%s voided", wager.Game))
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &SessionView{
		Wager:  wager,
		Voided: true,
		Result: &models.WagerResult{Wager: wager, Effect: 0, Multiplier: 1, NewBalance: newBalance},
	}, nil
}

func (s *sessionService) checkGameEnabled(ctx context.Context, game models.GameKind) error {
	if s.settings == nil {
		return nil
	}
	enabled, err := s.settings.GameEnabled(ctx, game)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrGameDisabled
	}
	return nil
}

// StartBlackjack deals a fresh hand for the account's stake
func (s *sessionService) StartBlackjack(ctx context.Context, accountID int64, amount int64) (*SessionView, error) {
	return s.start(ctx, accountID, amount, models.GameBlackjack, func(stream *rng.Stream) (games.State, *SessionStep, error) {
		state, result := games.NewBlackjack(stream, amount)
		if result != nil {
			return state, &SessionStep{Done: true, Effect: result.Effect, Multiplier: result.Multiplier}, nil
		}
		return state, nil, nil
	})
}

// BlackjackHit draws one card for the pending hand
func (s *sessionService) BlackjackHit(ctx context.Context, accountID int64) (*SessionView, error) {
	return s.Resume(ctx, accountID, models.GameBlackjack, func(state games.State, amount int64) (*SessionStep, error) {
		hand, ok := state.(*games.BlackjackState)
		if !ok {
			return nil, games.ErrCorruptState
		}
		result, err := hand.Hit(amount)
		if err != nil {
			return nil, err
		}
		return stepFromBlackjack(hand, result), nil
	})
}

// BlackjackStand plays out the dealer and settles the pending hand
func (s *sessionService) BlackjackStand(ctx context.Context, accountID int64) (*SessionView, error) {
	return s.Resume(ctx, accountID, models.GameBlackjack, func(state games.State, amount int64) (*SessionStep, error) {
		hand, ok := state.(*games.BlackjackState)
		if !ok {
			return nil, games.ErrCorruptState
		}
		result, err := hand.Stand(amount)
		if err != nil {
			return nil, err
		}
		return stepFromBlackjack(hand, result), nil
	})
}

// BlackjackDouble doubles the stake, draws one card, and settles
func (s *sessionService) BlackjackDouble(ctx context.Context, accountID int64) (*SessionView, error) {
	return s.Resume(ctx, accountID, models.GameBlackjack, func(state games.State, amount int64) (*SessionStep, error) {
		hand, ok := state.(*games.BlackjackState)
		if !ok {
			return nil, games.ErrCorruptState
		}
		result, err := hand.Double(amount)
		if err != nil {
			return nil, err
		}
		return stepFromBlackjack(hand, result), nil
	})
}

func stepFromBlackjack(hand *games.BlackjackState, result *games.BlackjackResult) *SessionStep {
	return &SessionStep{
		State:      hand,
		Done:       result.Done,
		Effect:     result.Effect,
		Multiplier: result.Multiplier,
		ExtraStake: result.ExtraStake,
	}
}

// StartMines lays out a fresh board for the account's stake
func (s *sessionService) StartMines(ctx context.Context, accountID int64, amount int64, size, mineCount int) (*SessionView, error) {
	return s.start(ctx, accountID, amount, models.GameMines, func(stream *rng.Stream) (games.State, *SessionStep, error) {
		state, err := games.NewMines(stream, size, mineCount)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
		}
		return state, nil, nil
	})
}

// MinesPick reveals one cell on the pending board
func (s *sessionService) MinesPick(ctx context.Context, accountID int64, cell int) (*SessionView, error) {
	return s.Resume(ctx, accountID, models.GameMines, func(state games.State, amount int64) (*SessionStep, error) {
		board, ok := state.(*games.MinesState)
		if !ok {
			return nil, games.ErrCorruptState
		}
		result, err := board.Pick(cell, amount)
		if err != nil {
			return nil, err
		}
		return &SessionStep{State: board, Done: result.Done, Effect: result.Effect, Multiplier: result.Multiplier}, nil
	})
}

// MinesCashOut settles the pending board at its current multiplier
func (s *sessionService) MinesCashOut(ctx context.Context, accountID int64) (*SessionView, error) {
	return s.Resume(ctx, accountID, models.GameMines, func(state games.State, amount int64) (*SessionStep, error) {
		board, ok := state.(*games.MinesState)
		if !ok {
			return nil, games.ErrCorruptState
		}
		result, err := board.CashOut(amount)
		if err != nil {
			return nil, err
		}
		return &SessionStep{State: board, Done: result.Done, Effect: result.Effect, Multiplier: result.Multiplier}, nil
	})
}
