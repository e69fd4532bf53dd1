package service

import (
	"context"
	"time"

	"casino/events"
	"casino/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetActiveByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetLatestByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, userID int64, username, seed string, initialBalance int64) (*models.Account, error) {
	args := m.Called(ctx, userID, username, seed, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) AddTotalWagered(ctx context.Context, id int64, amount int64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, id int64, status models.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateRandCounter(ctx context.Context, id int64, counter uint64) error {
	args := m.Called(ctx, id, counter)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetLatestByType(ctx context.Context, accountID int64, txType models.TransactionType) (*models.Transaction, error) {
	args := m.Called(ctx, accountID, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetPendingByAccountAndGame(ctx context.Context, accountID int64, game models.GameKind) (*models.Wager, error) {
	args := m.Called(ctx, accountID, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) GetPendingByGame(ctx context.Context, game models.GameKind) ([]*models.Wager, error) {
	args := m.Called(ctx, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) UpdateState(ctx context.Context, id int64, state []byte) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockWagerRepository) IncreaseAmount(ctx context.Context, id int64, extra int64) error {
	args := m.Called(ctx, id, extra)
	return args.Error(0)
}

func (m *MockWagerRepository) MarkComplete(ctx context.Context, id int64, effect int64, multiplier float64) (bool, error) {
	args := m.Called(ctx, id, effect, multiplier)
	return args.Bool(0), args.Error(1)
}

func (m *MockWagerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Wager, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) SumAmountSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWagerRepository) SumLossesSince(ctx context.Context, accountID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockExclusionRepository is a mock implementation of ExclusionRepository
type MockExclusionRepository struct {
	mock.Mock
}

func (m *MockExclusionRepository) Create(ctx context.Context, exclusion *models.Exclusion) error {
	args := m.Called(ctx, exclusion)
	return args.Error(0)
}

func (m *MockExclusionRepository) GetActiveByAccount(ctx context.Context, accountID int64, now time.Time) (*models.Exclusion, error) {
	args := m.Called(ctx, accountID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exclusion), args.Error(1)
}

func (m *MockExclusionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Exclusion, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Exclusion), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setting), args.Error(1)
}

func (m *MockSettingsRepository) GetAll(ctx context.Context) ([]*models.Setting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Setting), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockRoundPublisher is a mock implementation of RoundPublisher
type MockRoundPublisher struct {
	mock.Mock
}

func (m *MockRoundPublisher) PublishRound(ctx context.Context, round *models.Round) (int64, error) {
	args := m.Called(ctx, round)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoundPublisher) PublishResult(ctx context.Context, result *models.RoundResult) {
	m.Called(ctx, result)
}
