package service

import (
	"context"

	"casino/events"

	"github.com/stretchr/testify/mock"
)

// noopPublisher drops events; used when a test does not assert on them
type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests wire in whichever mocks they care about.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	wagerRepo       WagerRepository
	exclusionRepo   ExclusionRepository
	settingsRepo    SettingsRepository
	eventBus        EventPublisher
}

// SetRepositories wires the mock repositories this unit of work hands out.
// Nil arguments are allowed for repositories the test never touches.
func (m *MockUnitOfWork) SetRepositories(accounts AccountRepository, transactions TransactionRepository, wagers WagerRepository, exclusions ExclusionRepository, settings SettingsRepository) {
	m.accountRepo = accounts
	m.transactionRepo = transactions
	m.wagerRepo = wagers
	m.exclusionRepo = exclusions
	m.settingsRepo = settings
}

// SetEventPublisher wires a mock event publisher; without one events are
// silently dropped
func (m *MockUnitOfWork) SetEventPublisher(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) WagerRepository() WagerRepository {
	return m.wagerRepo
}

func (m *MockUnitOfWork) ExclusionRepository() ExclusionRepository {
	return m.exclusionRepo
}

func (m *MockUnitOfWork) SettingsRepository() SettingsRepository {
	return m.settingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return noopPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
