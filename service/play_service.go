package service

import (
	"context"
	"fmt"

	"casino/models"
	"casino/rng"
)

type playService struct {
	uowFactory UnitOfWorkFactory
	rig        *rng.Rig
	settings   SettingsService
}

// NewPlayService creates a new single-shot play service
func NewPlayService(uowFactory UnitOfWorkFactory, rig *rng.Rig, settings SettingsService) PlayService {
	return &playService{
		uowFactory: uowFactory,
		rig:        rig,
		settings:   settings,
	}
}

// PlayDice rolls against a player-chosen win probability. The payout is the
// fair inverse of the probability; the rig's edge shifts only the win
// threshold, never the stream.
func (s *playService) PlayDice(ctx context.Context, accountID int64, amount int64, winProbability float64) (*models.WagerResult, error) {
	if winProbability <= 0 || winProbability >= 1 {
		return nil, fmt.Errorf("%w: win probability must be between 0 and 1 (exclusive)", ErrInvalidBet)
	}
	multiplier := 1 / winProbability
	return s.play(ctx, accountID, amount, models.GameDice, winProbability, multiplier)
}

// PlayCoinflip is an even-money flip
func (s *playService) PlayCoinflip(ctx context.Context, accountID int64, amount int64) (*models.WagerResult, error) {
	return s.play(ctx, accountID, amount, models.GameCoinflip, 0.5, 2)
}

func (s *playService) play(ctx context.Context, accountID int64, amount int64, game models.GameKind, winProbability, multiplier float64) (*models.WagerResult, error) {
	if s.settings != nil {
		enabled, err := s.settings.GameEnabled(ctx, game)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, ErrGameDisabled
		}
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

	won := stream.NextFloat() < s.rig.WinThreshold(game, winProbability)

	if err := uow.AccountRepository().UpdateRandCounter(ctx, accountID, stream.Counter()); err != nil {
		return nil, fmt.Errorf("failed to persist stream counter: %w", err)
	}

	var effect int64
	var paidMultiplier float64
	if won {
		effect = int64(float64(amount)*multiplier) - amount
		paidMultiplier = multiplier
	} else {
		effect = -amount
	}

	newBalance, err := resolveWagerTx(ctx, uow, wager, effect, paidMultiplier, resolutionTxType(effect), fmt.Sprintf("%s result", game))
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &models.WagerResult{Wager: wager, Effect: effect, Multiplier: paidMultiplier, NewBalance: newBalance}, nil
}
