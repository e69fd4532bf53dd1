package service

import (
	"context"
	"fmt"
	"sync"

	"casino/config"
	"casino/events"
	"casino/games"
	"casino/models"
	"casino/rng"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// openRound pairs a round with the worker that owns its lifecycle
type openRound struct {
	round  *models.Round
	cancel context.CancelFunc
	done   chan struct{}
}

type roundService struct {
	uowFactory UnitOfWorkFactory
	publisher  RoundPublisher
	settings   SettingsService
	clock      quartz.Clock
	bus        *events.Bus

	houseMu     sync.Mutex
	houseStream *rng.Stream

	mu     sync.Mutex
	rounds map[models.GameKind]*openRound

	ctx context.Context
	wg  sync.WaitGroup
}

// NewRoundService creates the round coordinator. The house stream is shared
// by every round draw; its counter appears in each result for audit replay.
func NewRoundService(ctx context.Context, uowFactory UnitOfWorkFactory, publisher RoundPublisher, settings SettingsService, clock quartz.Clock, bus *events.Bus, houseStream *rng.Stream) RoundService {
	return &roundService{
		uowFactory:  uowFactory,
		publisher:   publisher,
		settings:    settings,
		clock:       clock,
		bus:         bus,
		houseStream: houseStream,
		rounds:      make(map[models.GameKind]*openRound),
		ctx:         ctx,
	}
}

// JoinRound admits one bet into the open round for a game, creating the round
// and spawning its worker when none is open. The bet's stake is held by an
// auto-debited pending wager committed before the bet is admitted, so a bet
// either sits fully funded in the round or does not exist.
func (s *roundService) JoinRound(ctx context.Context, accountID int64, game models.GameKind, amount int64, pick string) (*models.Round, error) {
	if game != models.GameRoulette {
		return nil, fmt.Errorf("%w: %s has no round play", ErrInvalidBet, game)
	}
	if !games.ValidRoulettePick(pick) {
		return nil, fmt.Errorf("%w: unknown pick %q", ErrInvalidBet, pick)
	}
	if s.settings != nil {
		enabled, err := s.settings.GameEnabled(ctx, game)
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, ErrGameDisabled
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()
	or := s.rounds[game]
	if or != nil && now.After(or.round.Deadline) {
		// The worker is about to swap this round out; admitting now would
		// race the draw
		return nil, ErrRoundClosed
	}

	creating := or == nil
	var round *models.Round
	if creating {
		round = &models.Round{
			ID:        uuid.NewString(),
			Game:      game,
			CreatedAt: now,
			Deadline:  now.Add(config.Get().RoundBettingWindow),
		}
	} else {
		round = or.round
	}

	blob, err := games.EncodeState(&games.RouletteMeta{RoundID: round.ID, Pick: pick})
	if err != nil {
		return nil, err
	}

	wager, err := s.openRoundWager(ctx, accountID, game, amount, blob)
	if err != nil {
		return nil, err
	}

	round.Bets = append(round.Bets, &models.RoundBet{
		AccountID: accountID,
		WagerID:   wager.ID,
		Amount:    amount,
		Pick:      pick,
		PlacedAt:  now,
	})

	if creating {
		workerCtx, cancel := context.WithCancel(s.ctx)
		or = &openRound{round: round, cancel: cancel, done: make(chan struct{})}
		s.rounds[game] = or

		s.wg.Add(1)
		go s.runRound(workerCtx, game, or)

		log.WithFields(log.Fields{
			"round_id": round.ID,
			"game":     game,
			"deadline": round.Deadline,
		}).Info("Round opened")
	}

	return snapshotRound(round), nil
}

// openRoundWager opens the auto-debited pending wager backing one round bet.
// The one-pending-wager-per-game rule applies here too: one bet per account
// per round.
func (s *roundService) openRoundWager(ctx context.Context, accountID int64, game models.GameKind, amount int64, blob []byte) (*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := openWagerTx(ctx, uow, accountID, amount, game, blob, true)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return wager, nil
}

// ActiveRound returns a snapshot of the open round for a game, nil if none
func (s *roundService) ActiveRound(game models.GameKind) *models.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	or := s.rounds[game]
	if or == nil {
		return nil
	}
	return snapshotRound(or.round)
}

// CancelRound tears down the open round for a game, refunding every bet
func (s *roundService) CancelRound(ctx context.Context, game models.GameKind) error {
	s.mu.Lock()
	or := s.rounds[game]
	s.mu.Unlock()
	if or == nil {
		return ErrRoundClosed
	}

	or.cancel()
	select {
	case <-or.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// RefundBets voids one account's bets while the round continues for everyone
// else. The refund commits before the bet leaves the in-memory round: a bet
// whose refund failed stays admitted and simply settles at the deadline.
func (s *roundService) RefundBets(ctx context.Context, game models.GameKind, accountID int64) (int, error) {
	s.mu.Lock()
	or := s.rounds[game]
	if or == nil {
		s.mu.Unlock()
		return 0, ErrRoundClosed
	}

	var mine []*models.RoundBet
	for _, b := range or.round.Bets {
		if b.AccountID == accountID {
			mine = append(mine, b)
		}
	}
	s.mu.Unlock()

	if len(mine) == 0 {
		return 0, ErrNothingToClaim
	}

	refunded, err := s.refundWagers(ctx, mine)

	s.mu.Lock()
	if s.rounds[game] == or {
		var kept []*models.RoundBet
		for _, b := range or.round.Bets {
			if !refunded[b.WagerID] {
				kept = append(kept, b)
			}
		}
		or.round.Bets = kept
	}
	s.mu.Unlock()

	return len(refunded), err
}

// runRound owns one round from creation to resolution: periodic live display
// refreshes until the deadline, then the atomic slot swap and the shared draw.
func (s *roundService) runRound(ctx context.Context, game models.GameKind, or *openRound) {
	defer s.wg.Done()
	defer close(or.done)

	cfg := config.Get()
	s.publishRound(ctx, game, or)

	ticker := s.clock.NewTicker(cfg.RoundUpdateInterval)
	defer ticker.Stop()
	timer := s.clock.NewTimer(or.round.Deadline.Sub(s.clock.Now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardownRound(game, or)
			return
		case <-ticker.C:
			s.publishRound(ctx, game, or)
		case <-timer.C:
			s.settleRound(game, or)
			return
		}
	}
}

// publishRound pushes the current round state to the chat collaborator and
// records the confirmed message handle for later in-place edits
func (s *roundService) publishRound(ctx context.Context, game models.GameKind, or *openRound) {
	s.mu.Lock()
	if s.rounds[game] != or {
		s.mu.Unlock()
		return
	}
	snapshot := snapshotRound(or.round)
	s.mu.Unlock()

	handle, err := s.publisher.PublishRound(ctx, snapshot)
	if err != nil {
		log.WithFields(log.Fields{
			"round_id": snapshot.ID,
			"game":     game,
			"error":    err,
		}).Warn("Failed to publish round display")
		return
	}

	s.mu.Lock()
	if s.rounds[game] == or {
		or.round.MessageHandle = handle
	}
	s.mu.Unlock()
}

// settleRound swaps the slot empty, draws once from the house stream, and
// resolves every admitted bet against that single shared outcome. The swap
// happens before the draw: a bet that arrives after it is rejected at the
// guard, never silently dropped after its stake was taken.
//
// Each bet settles in its own transaction: one failing bet costs only that
// bet, not the round. A wager whose resolution failed stays pending with its
// stake held and is picked up by RecoverOrphans.
func (s *roundService) settleRound(game models.GameKind, or *openRound) {
	s.mu.Lock()
	if s.rounds[game] != or {
		// Cancelled out from under us
		s.mu.Unlock()
		return
	}
	delete(s.rounds, game)
	round := or.round
	s.mu.Unlock()

	s.houseMu.Lock()
	drawCounter := s.houseStream.Counter()
	outcome := games.SpinRoulette(s.houseStream)
	s.houseMu.Unlock()

	// The worker outlives request contexts; resolution gets its own
	ctx := context.Background()

	effects := make(map[int64]int64)
	var failed int
	for _, bet := range round.Bets {
		effect, multiplier, err := games.RouletteEffect(bet.Pick, outcome, bet.Amount)
		if err != nil {
			failed++
			log.WithField("wager_id", bet.WagerID).Errorf("Failed to score round bet: %v", err)
			continue
		}

		settled, err := s.resolveRoundWager(ctx, bet.WagerID, effect, multiplier, resolutionTxType(effect), fmt.Sprintf("%s round %s", game, round.ID))
		if err != nil {
			failed++
			log.WithFields(log.Fields{
				"wager_id": bet.WagerID,
				"round_id": round.ID,
			}).Errorf("Failed to resolve round bet, wager left pending for orphan recovery: %v", err)
			continue
		}
		if settled {
			effects[bet.AccountID] += effect
		}
	}

	s.bus.Emit(ctx, events.RoundStateChangeEvent{
		RoundID:  round.ID,
		Game:     game,
		OldState: "open",
		NewState: "resolved",
	})

	log.WithFields(log.Fields{
		"round_id":     round.ID,
		"game":         game,
		"outcome":      outcome,
		"draw_counter": drawCounter,
		"bets":         len(round.Bets),
		"failed":       failed,
		"pot":          round.TotalPot(),
	}).Info("Round resolved")

	s.publisher.PublishResult(ctx, &models.RoundResult{
		Round:       round,
		Outcome:     outcome,
		DrawCounter: drawCounter,
		Effects:     effects,
	})
}

// resolveRoundWager settles one round wager in its own transaction so a
// failure strands only that bet. Returns false when the wager was already
// refunded or resolved.
func (s *roundService) resolveRoundWager(ctx context.Context, wagerID int64, effect int64, multiplier float64, txType models.TransactionType, description string) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return false, fmt.Errorf("failed to load wager %d: %w", wagerID, err)
	}
	if wager == nil || wager.IsComplete {
		return false, nil
	}

	if _, err := resolveWagerTx(ctx, uow, wager, effect, multiplier, txType, description); err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// teardownRound handles cancellation: claim the slot if still ours, then
// refund every admitted bet
func (s *roundService) teardownRound(game models.GameKind, or *openRound) {
	s.mu.Lock()
	if s.rounds[game] != or {
		s.mu.Unlock()
		return
	}
	delete(s.rounds, game)
	round := or.round
	s.mu.Unlock()

	ctx := context.Background()
	if _, err := s.refundWagers(ctx, round.Bets); err != nil {
		log.WithField("round_id", round.ID).Errorf("Failed to refund cancelled round: %v", err)
	}

	log.WithFields(log.Fields{
		"round_id": round.ID,
		"game":     game,
		"bets":     len(round.Bets),
	}).Info("Round cancelled")

	s.publisher.PublishResult(ctx, &models.RoundResult{
		Round:     round,
		Cancelled: true,
	})
}

// refundWagers voids the pending wagers behind a set of bets, each in its own
// transaction, returning the wager IDs actually voided. A failed refund is
// logged and skipped; the wager stays pending for the deadline settlement or
// orphan recovery.
func (s *roundService) refundWagers(ctx context.Context, bets []*models.RoundBet) (map[int64]bool, error) {
	refunded := make(map[int64]bool)
	var firstErr error
	for _, bet := range bets {
		voided, err := s.resolveRoundWager(ctx, bet.WagerID, 0, 1, models.TransactionTypeWagerVoid, "round bet refunded")
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.WithField("wager_id", bet.WagerID).Errorf("Failed to refund round bet: %v", err)
			continue
		}
		if voided {
			refunded[bet.WagerID] = true
		}
	}
	return refunded, firstErr
}

// RecoverOrphans voids pending round-play wagers that no open round holds.
// Rounds live only in memory, so a crash or a failed per-bet settlement
// leaves its wager pending forever with the stake debited and the account's
// one-pending-per-game slot blocked. Run at startup; safe to run any time.
func (s *roundService) RecoverOrphans(ctx context.Context) (int, error) {
	live := make(map[int64]bool)
	s.mu.Lock()
	for _, or := range s.rounds {
		for _, bet := range or.round.Bets {
			live[bet.WagerID] = true
		}
	}
	s.mu.Unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.WagerRepository().GetPendingByGame(ctx, models.GameRoulette)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending round wagers: %w", err)
	}

	var recovered int
	var firstErr error
	for _, wager := range pending {
		if live[wager.ID] {
			continue
		}
		voided, err := s.resolveRoundWager(ctx, wager.ID, 0, 1, models.TransactionTypeWagerVoid, "orphaned round bet refunded")
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.WithField("wager_id", wager.ID).Errorf("Failed to recover orphaned round bet: %v", err)
			continue
		}
		if voided {
			recovered++
			log.WithFields(log.Fields{
				"wager_id":   wager.ID,
				"account_id": wager.AccountID,
				"amount":     wager.Amount,
			}).Info("Orphaned round bet refunded")
		}
	}
	return recovered, firstErr
}

// Stop cancels every open round and waits for the workers to finish their
// refunds
func (s *roundService) Stop() {
	s.mu.Lock()
	for _, or := range s.rounds {
		or.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func snapshotRound(r *models.Round) *models.Round {
	copied := *r
	copied.Bets = make([]*models.RoundBet, len(r.Bets))
	copy(copied.Bets, r.Bets)
	return &copied
}
