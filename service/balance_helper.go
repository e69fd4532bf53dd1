package service

import (
	"context"
	"fmt"
	"time"

	"casino/events"
	"casino/models"
)

// ApplyBalanceChange applies one signed balance delta inside an open unit of
// work: the guarded atomic balance update plus its immutable ledger record,
// with the balance-change event queued for post-commit emission. This is the
// single entry point for all balance changes in the system.
func ApplyBalanceChange(ctx context.Context, uow UnitOfWork, accountID int64, delta int64, txType models.TransactionType, description string, counterpartyID *int64, metadata map[string]any) (*models.Transaction, error) {
	var newBalance int64
	var err error

	switch {
	case delta > 0:
		newBalance, err = uow.AccountRepository().AddBalance(ctx, accountID, delta)
	case delta < 0:
		newBalance, err = uow.AccountRepository().DeductBalance(ctx, accountID, -delta)
	default:
		// Zero-delta records (voids, pushes) still pin the current balance
		account, getErr := uow.AccountRepository().GetByID(ctx, accountID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get account %d: %w", accountID, getErr)
		}
		if account == nil {
			return nil, ErrAccountNotFound
		}
		newBalance = account.Balance
	}
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		AccountID:      accountID,
		Amount:         delta,
		BalanceBefore:  newBalance - delta,
		BalanceAfter:   newBalance,
		Type:           txType,
		Description:    description,
		CounterpartyID: counterpartyID,
		Metadata:       metadata,
	}
	if err := uow.TransactionRepository().Record(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	// Emitted only after the surrounding transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       accountID,
		OldBalance:      transaction.BalanceBefore,
		NewBalance:      transaction.BalanceAfter,
		TransactionType: txType,
		ChangeAmount:    delta,
	})

	return transaction, nil
}

// openWagerTx opens a wager for an account inside an existing unit of work,
// enforcing the account lifecycle, the exclusion guard, and the one-pending-
// wager-per-game rule. With autoDebit the stake leaves the balance in the same
// transaction the wager row is created in.
func openWagerTx(ctx context.Context, uow UnitOfWork, accountID int64, amount int64, game models.GameKind, state []byte, autoDebit bool) (*models.Wager, error) {
	if amount <= 0 {
		return nil, ErrInvalidBet
	}

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.CanWager() {
		return nil, ErrAccountNotFound
	}

	exclusion, err := uow.ExclusionRepository().GetActiveByAccount(ctx, accountID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to check exclusions for account %d: %w", accountID, err)
	}
	if exclusion != nil {
		return nil, ErrExcluded
	}

	pending, err := uow.WagerRepository().GetPendingByAccountAndGame(ctx, accountID, game)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending wager: %w", err)
	}
	if pending != nil {
		return nil, ErrGameInProgress
	}

	if autoDebit {
		if _, err := ApplyBalanceChange(ctx, uow, accountID, -amount, models.TransactionTypeWagerStake, fmt.Sprintf("%s stake", game), nil, nil); err != nil {
			return nil, err
		}
		if err := uow.AccountRepository().AddTotalWagered(ctx, accountID, amount); err != nil {
			return nil, fmt.Errorf("failed to update total wagered: %w", err)
		}
	}

	wager := &models.Wager{
		AccountID:     accountID,
		Game:          game,
		Amount:        amount,
		AmountDebited: autoDebit,
		State:         state,
	}
	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, err
	}
	return wager, nil
}

// resolveWagerTx completes a wager exactly once inside an existing unit of
// work and settles the balance movement the effect implies. The guarded
// completion flip is the linearization point: a wager that was already
// complete reports ErrWagerAlreadyResolved and changes nothing.
func resolveWagerTx(ctx context.Context, uow UnitOfWork, wager *models.Wager, effect int64, multiplier float64, txType models.TransactionType, description string) (int64, error) {
	ok, err := uow.WagerRepository().MarkComplete(ctx, wager.ID, effect, multiplier)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("wager %d: %w", wager.ID, ErrWagerAlreadyResolved)
	}

	var newBalance int64
	credit := wager.ResolutionCredit(effect)
	if credit != 0 {
		transaction, err := ApplyBalanceChange(ctx, uow, wager.AccountID, credit, txType, description, nil, map[string]any{
			"wager_id": wager.ID,
			"game":     wager.Game,
			"effect":   effect,
		})
		if err != nil {
			return 0, err
		}
		newBalance = transaction.BalanceAfter
	} else {
		account, err := uow.AccountRepository().GetByID(ctx, wager.AccountID)
		if err != nil {
			return 0, fmt.Errorf("failed to get account %d: %w", wager.AccountID, err)
		}
		if account == nil {
			return 0, ErrAccountNotFound
		}
		newBalance = account.Balance
	}

	uow.EventBus().Publish(events.WagerResolvedEvent{
		WagerID:    wager.ID,
		AccountID:  wager.AccountID,
		Game:       wager.Game,
		Amount:     wager.Amount,
		Effect:     effect,
		Multiplier: multiplier,
	})

	return newBalance, nil
}

// resolutionTxType picks the ledger record type a resolution effect implies
func resolutionTxType(effect int64) models.TransactionType {
	switch {
	case effect > 0:
		return models.TransactionTypeGameWin
	case effect < 0:
		return models.TransactionTypeWagerStake
	default:
		return models.TransactionTypeWagerVoid
	}
}
