package service

import (
	"context"
	"testing"
	"time"

	"casino/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newExclusionFixture() (*MockUnitOfWorkFactory, *MockUnitOfWork, *MockAccountRepository, *MockExclusionRepository) {
	mockFactory := new(MockUnitOfWorkFactory)
	mockUoW := new(MockUnitOfWork)
	mockAccountRepo := new(MockAccountRepository)
	mockExclusionRepo := new(MockExclusionRepository)

	mockUoW.SetRepositories(mockAccountRepo, nil, nil, mockExclusionRepo, nil)
	mockFactory.On("Create").Return(mockUoW)

	return mockFactory, mockUoW, mockAccountRepo, mockExclusionRepo
}

func TestExclusionService_Exclude(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockExclusionRepo := newExclusionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	account := &models.Account{ID: 1, Status: models.AccountStatusActive}
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(account, nil)
	mockExclusionRepo.On("GetActiveByAccount", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(nil, nil)
	mockExclusionRepo.On("Create", ctx, mock.MatchedBy(func(e *models.Exclusion) bool {
		return e.AccountID == 1 && e.Source == models.ExclusionSourceSelf && e.ExpiresAt.After(time.Now())
	})).Return(nil)

	service := NewExclusionService(mockFactory)
	exclusion, err := service.Exclude(ctx, 1, 24*time.Hour, models.ExclusionSourceSelf)

	require.NoError(t, err)
	assert.Equal(t, models.ExclusionSourceSelf, exclusion.Source)
	mockExclusionRepo.AssertExpectations(t)
}

func TestExclusionService_Exclude_NeverStacks(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockExclusionRepo := newExclusionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	account := &models.Account{ID: 1, Status: models.AccountStatusActive}
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(account, nil)

	active := &models.Exclusion{ID: 5, AccountID: 1, ExpiresAt: time.Now().UTC().Add(48 * time.Hour)}
	mockExclusionRepo.On("GetActiveByAccount", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(active, nil)

	service := NewExclusionService(mockFactory)

	// A shorter exclusion while one is active changes nothing
	_, err := service.Exclude(ctx, 1, 24*time.Hour, models.ExclusionSourceSelf)
	assert.ErrorIs(t, err, ErrAlreadyExcluded)
	mockExclusionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExclusionService_Exclude_Extends(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockExclusionRepo := newExclusionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	account := &models.Account{ID: 1, Status: models.AccountStatusActive}
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(account, nil)

	active := &models.Exclusion{ID: 5, AccountID: 1, ExpiresAt: time.Now().UTC().Add(time.Hour)}
	mockExclusionRepo.On("GetActiveByAccount", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(active, nil)

	// A later expiry supersedes the active exclusion
	mockExclusionRepo.On("Create", ctx, mock.MatchedBy(func(e *models.Exclusion) bool {
		return e.ExpiresAt.After(active.ExpiresAt)
	})).Return(nil)

	service := NewExclusionService(mockFactory)
	_, err := service.Exclude(ctx, 1, 72*time.Hour, models.ExclusionSourceAdmin)

	require.NoError(t, err)
	mockExclusionRepo.AssertExpectations(t)
}

func TestExclusionService_Exclude_InvalidDuration(t *testing.T) {
	mockFactory, _, _, _ := newExclusionFixture()

	service := NewExclusionService(mockFactory)
	_, err := service.Exclude(context.Background(), 1, -time.Hour, models.ExclusionSourceSelf)
	assert.Error(t, err)
}
