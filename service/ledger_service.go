package service

import (
	"context"
	"fmt"
	"time"

	"casino/config"
	"casino/events"
	"casino/models"
	"casino/rng"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

func (s *ledgerService) ResolveAccount(ctx context.Context, userID int64, username string, createIfMissing bool) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account for user %d: %w", userID, err)
	}
	if account != nil {
		return account, nil
	}
	if !createIfMissing {
		return nil, nil
	}

	// Banned users stay banned; no fresh account for them
	latest, err := uow.AccountRepository().GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest account for user %d: %w", userID, err)
	}
	if latest != nil && latest.Status == models.AccountStatusBanned {
		return nil, nil
	}

	cfg := config.Get()
	seed, err := rng.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}

	account, err = uow.AccountRepository().Create(ctx, userID, username, seed, cfg.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create account for user %d: %w", userID, err)
	}

	transaction := &models.Transaction{
		AccountID:     account.ID,
		Amount:        cfg.StartingBalance,
		BalanceBefore: 0,
		BalanceAfter:  cfg.StartingBalance,
		Type:          models.TransactionTypeInitial,
		Description:   "starting balance",
		Metadata:      map[string]any{"username": username},
	}
	if err := uow.TransactionRepository().Record(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to record initial transaction: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID:      account.ID,
		UserID:         userID,
		Username:       username,
		InitialBalance: cfg.StartingBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *ledgerService) ModifyBalance(ctx context.Context, accountID int64, delta int64, txType models.TransactionType, description string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transaction, err := ApplyBalanceChange(ctx, uow, accountID, delta, txType, description, nil, nil)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return transaction.BalanceAfter, nil
}

func (s *ledgerService) Transfer(ctx context.Context, fromAccountID, toAccountID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidBet
	}
	if fromAccountID == toAccountID {
		return fmt.Errorf("cannot transfer to the same account")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	to, err := uow.AccountRepository().GetByID(ctx, toAccountID)
	if err != nil {
		return fmt.Errorf("failed to get account %d: %w", toAccountID, err)
	}
	if to == nil || !to.IsActive() {
		return ErrAccountNotFound
	}

	if _, err := ApplyBalanceChange(ctx, uow, fromAccountID, -amount, models.TransactionTypeJuiceOut, "juice sent", &toAccountID, nil); err != nil {
		return err
	}
	if _, err := ApplyBalanceChange(ctx, uow, toAccountID, amount, models.TransactionTypeJuiceIn, "juice received", &fromAccountID, nil); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *ledgerService) OpenWager(ctx context.Context, accountID int64, amount int64, game models.GameKind, state []byte, autoDebit bool) (*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := openWagerTx(ctx, uow, accountID, amount, game, state, autoDebit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return wager, nil
}

func (s *ledgerService) ResolveWager(ctx context.Context, wagerID int64, effect int64, multiplier float64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get wager %d: %w", wagerID, err)
	}
	if wager == nil {
		return 0, fmt.Errorf("wager %d: %w", wagerID, ErrWagerNotFound)
	}
	if wager.IsComplete {
		log.WithFields(log.Fields{
			"wager_id":   wagerID,
			"account_id": wager.AccountID,
			"game":       wager.Game,
		}).Error("Attempted to resolve an already-complete wager")
		return 0, fmt.Errorf("wager %d: %w", wagerID, ErrWagerAlreadyResolved)
	}

	newBalance, err := resolveWagerTx(ctx, uow, wager, effect, multiplier, resolutionTxType(effect), fmt.Sprintf("%s result", wager.Game))
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newBalance, nil
}

func (s *ledgerService) ClaimDaily(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	latest, err := uow.TransactionRepository().GetLatestByType(ctx, accountID, models.TransactionTypeDaily)
	if err != nil {
		return 0, fmt.Errorf("failed to check daily claim: %w", err)
	}
	now := time.Now().UTC()
	if latest != nil {
		claimed := latest.CreatedAt.UTC()
		if claimed.Year() == now.Year() && claimed.YearDay() == now.YearDay() {
			return 0, ErrDailyAlreadyClaimed
		}
	}

	transaction, err := ApplyBalanceChange(ctx, uow, accountID, config.Get().DailyGrantAmount, models.TransactionTypeDaily, "daily grant", nil, nil)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return transaction.BalanceAfter, nil
}

func (s *ledgerService) RakebackAvailable(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.rakebackAvailable(ctx, uow, accountID)
}

func (s *ledgerService) rakebackAvailable(ctx context.Context, uow UnitOfWork, accountID int64) (int64, error) {
	since, err := s.lastClaimTime(ctx, uow, accountID, models.TransactionTypeRakeback)
	if err != nil {
		return 0, err
	}

	wagered, err := uow.WagerRepository().SumAmountSince(ctx, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to sum wagered amount: %w", err)
	}

	cfg := config.Get()
	amount := int64(float64(wagered) * cfg.RakebackPercent)
	if amount < cfg.RakebackMinimum {
		return 0, nil
	}
	return amount, nil
}

func (s *ledgerService) ClaimRakeback(ctx context.Context, accountID int64) (int64, int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	amount, err := s.rakebackAvailable(ctx, uow, accountID)
	if err != nil {
		return 0, 0, err
	}
	if amount == 0 {
		return 0, 0, ErrNothingToClaim
	}

	transaction, err := ApplyBalanceChange(ctx, uow, accountID, amount, models.TransactionTypeRakeback, "rakeback claim", nil, nil)
	if err != nil {
		return 0, 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return amount, transaction.BalanceAfter, nil
}

func (s *ledgerService) LossbackAvailable(ctx context.Context, accountID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return s.lossbackAvailable(ctx, uow, accountID)
}

func (s *ledgerService) lossbackAvailable(ctx context.Context, uow UnitOfWork, accountID int64) (int64, error) {
	since, err := s.lastClaimTime(ctx, uow, accountID, models.TransactionTypeLossback)
	if err != nil {
		return 0, err
	}

	lost, err := uow.WagerRepository().SumLossesSince(ctx, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to sum losses: %w", err)
	}

	cfg := config.Get()
	amount := int64(float64(lost) * cfg.LossbackPercent)
	if amount < cfg.LossbackMinimum {
		return 0, nil
	}
	return amount, nil
}

func (s *ledgerService) ClaimLossback(ctx context.Context, accountID int64) (int64, int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	amount, err := s.lossbackAvailable(ctx, uow, accountID)
	if err != nil {
		return 0, 0, err
	}
	if amount == 0 {
		return 0, 0, ErrNothingToClaim
	}

	transaction, err := ApplyBalanceChange(ctx, uow, accountID, amount, models.TransactionTypeLossback, "lossback claim", nil, nil)
	if err != nil {
		return 0, 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return amount, transaction.BalanceAfter, nil
}

// lastClaimTime returns the timestamp of the most recent claim of the given
// type, falling back to account creation when none exists
func (s *ledgerService) lastClaimTime(ctx context.Context, uow UnitOfWork, accountID int64, txType models.TransactionType) (time.Time, error) {
	latest, err := uow.TransactionRepository().GetLatestByType(ctx, accountID, txType)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest %s transaction: %w", txType, err)
	}
	if latest != nil {
		return latest.CreatedAt, nil
	}

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return time.Time{}, ErrAccountNotFound
	}
	return account.CreatedAt, nil
}

func (s *ledgerService) Abandon(ctx context.Context, accountID int64) error {
	return s.setStatus(ctx, accountID, models.AccountStatusAbandoned)
}

func (s *ledgerService) Ban(ctx context.Context, accountID int64) error {
	return s.setStatus(ctx, accountID, models.AccountStatusBanned)
}

func (s *ledgerService) setStatus(ctx context.Context, accountID int64, status models.AccountStatus) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := uow.AccountRepository().UpdateStatus(ctx, accountID, status); err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *ledgerService) GetTransactions(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().GetByAccount(ctx, accountID, limit)
}

func (s *ledgerService) GetWagers(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.WagerRepository().GetByAccount(ctx, accountID, limit)
}
