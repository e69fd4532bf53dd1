package service

import (
	"context"
	"fmt"
	"time"

	"casino/events"
	"casino/models"

	log "github.com/sirupsen/logrus"
)

type exclusionService struct {
	uowFactory UnitOfWorkFactory
}

// NewExclusionService creates a new exclusion service
func NewExclusionService(uowFactory UnitOfWorkFactory) ExclusionService {
	return &exclusionService{
		uowFactory: uowFactory,
	}
}

func (s *exclusionService) ActiveExclusion(ctx context.Context, accountID int64) (*models.Exclusion, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ExclusionRepository().GetActiveByAccount(ctx, accountID, time.Now().UTC())
}

// Exclude locks an account out of wagering for the given duration. An active
// exclusion can be extended but never shortened or stacked: a new exclusion
// ending before the current one is rejected.
func (s *exclusionService) Exclude(ctx context.Context, accountID int64, duration time.Duration, source models.ExclusionSource) (*models.Exclusion, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("exclusion duration must be positive")
	}

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

	now := time.Now().UTC()
	expiresAt := now.Add(duration)

	active, err := uow.ExclusionRepository().GetActiveByAccount(ctx, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check active exclusion: %w", err)
	}
	if active != nil && !expiresAt.After(active.ExpiresAt) {
		return nil, ErrAlreadyExcluded
	}

	exclusion := &models.Exclusion{
		AccountID: accountID,
		Source:    source,
		ExpiresAt: expiresAt,
	}
	if err := uow.ExclusionRepository().Create(ctx, exclusion); err != nil {
		return nil, fmt.Errorf("failed to create exclusion: %w", err)
	}

	uow.EventBus().Publish(events.ExclusionCreatedEvent{
		AccountID: accountID,
		Source:    source,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"source":     source,
		"expires_at": expiresAt,
	}).Info("Exclusion created")

	return exclusion, nil
}

func (s *exclusionService) History(ctx context.Context, accountID int64, limit int) ([]*models.Exclusion, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.ExclusionRepository().GetByAccount(ctx, accountID, limit)
}
