package service

import (
	"context"
	"testing"
	"time"

	"casino/games"
	"casino/models"
	"casino/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSessionFixture() (*MockUnitOfWorkFactory, *MockUnitOfWork, *MockAccountRepository, *MockTransactionRepository, *MockWagerRepository, *MockExclusionRepository) {
	mockFactory := new(MockUnitOfWorkFactory)
	mockUoW := new(MockUnitOfWork)
	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockWagerRepo := new(MockWagerRepository)
	mockExclusionRepo := new(MockExclusionRepository)

	mockUoW.SetRepositories(mockAccountRepo, mockTransactionRepo, mockWagerRepo, mockExclusionRepo, nil)
	mockFactory.On("Create").Return(mockUoW)

	return mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo, mockWagerRepo, mockExclusionRepo
}

func pendingWagerWithState(t *testing.T, state games.State, amount int64, updatedAt time.Time) *models.Wager {
	t.Helper()
	blob, err := games.EncodeState(state)
	require.NoError(t, err)
	return &models.Wager{
		ID:            42,
		AccountID:     1,
		Game:          state.Kind(),
		Amount:        amount,
		AmountDebited: true,
		State:         blob,
		UpdatedAt:     updatedAt,
	}
}

func TestSessionService_Resume_NoActiveGame(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, _, _, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(nil, nil)

	service := NewSessionService(mockFactory, nil)
	_, err := service.MinesPick(ctx, 1, 0)

	assert.ErrorIs(t, err, ErrNoActiveGame)
}

func TestSessionService_Resume_TimeoutForfeitsBeforeAction(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, _, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Idle for longer than the 10 minute session timeout
	board := &games.MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}, Revealed: []int{0}}
	wager := pendingWagerWithState(t, board, 100, time.Now().UTC().Add(-11*time.Minute))
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(wager, nil)

	// Forfeit is a total loss of the already-debited stake: the completion
	// flip happens, no balance movement does
	mockWagerRepo.On("MarkComplete", ctx, int64(42), int64(-100), 0.0).Return(true, nil)
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 900, Status: models.AccountStatusActive}, nil)

	service := NewSessionService(mockFactory, nil)
	view, err := service.MinesPick(ctx, 1, 1)

	require.NoError(t, err)
	assert.True(t, view.Forfeited)
	require.NotNil(t, view.Result)
	assert.Equal(t, int64(-100), view.Result.Effect)
	assert.Equal(t, int64(900), view.Result.NewBalance)
	mockAccountRepo.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Resume_CorruptStateVoidsWithRefund(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	wager := &models.Wager{
		ID:            42,
		AccountID:     1,
		Game:          models.GameMines,
		Amount:        100,
		AmountDebited: true,
		State:         []byte("not even json"),
		UpdatedAt:     time.Now().UTC(),
	}
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(wager, nil)

	// Void: effect 0, stake comes back
	mockWagerRepo.On("MarkComplete", ctx, int64(42), int64(0), 1.0).Return(true, nil)
	mockAccountRepo.On("AddBalance", ctx, int64(1), int64(100)).Return(int64(1000), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Amount == 100 && tx.Type == models.TransactionTypeWagerVoid
	})).Return(nil)

	service := NewSessionService(mockFactory, nil)
	view, err := service.MinesPick(ctx, 1, 0)

	require.NoError(t, err)
	assert.True(t, view.Voided)
	require.NotNil(t, view.Result)
	assert.Equal(t, int64(0), view.Result.Effect)
	assert.Equal(t, int64(1000), view.Result.NewBalance)
}

func TestSessionService_Resume_WrongVariantVoids(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// A blackjack blob filed under a mines wager
	blob, err := games.EncodeState(&games.BlackjackState{Player: []int{0, 1}, Dealer: []int{2, 3}})
	require.NoError(t, err)
	wager := &models.Wager{
		ID:            42,
		AccountID:     1,
		Game:          models.GameMines,
		Amount:        100,
		AmountDebited: true,
		State:         blob,
		UpdatedAt:     time.Now().UTC(),
	}
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(wager, nil)

	mockWagerRepo.On("MarkComplete", ctx, int64(42), int64(0), 1.0).Return(true, nil)
	mockAccountRepo.On("AddBalance", ctx, int64(1), int64(100)).Return(int64(1000), nil)
	mockTransactionRepo.On("Record", ctx, mock.Anything).Return(nil)

	service := NewSessionService(mockFactory, nil)
	view, err := service.MinesPick(ctx, 1, 0)

	require.NoError(t, err)
	assert.True(t, view.Voided)
}

func TestSessionService_MinesPick_SafePersistsState(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, _, _, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	board := &games.MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}}
	wager := pendingWagerWithState(t, board, 100, time.Now().UTC())
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(wager, nil)

	var savedBlob []byte
	mockWagerRepo.On("UpdateState", ctx, int64(42), mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		savedBlob = args.Get(2).([]byte)
	})

	service := NewSessionService(mockFactory, nil)
	view, err := service.MinesPick(ctx, 1, 0)

	require.NoError(t, err)
	assert.Nil(t, view.Result)
	require.NotNil(t, view.State)

	decoded, err := games.DecodeState(savedBlob)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, decoded.(*games.MinesState).Revealed)
	mockWagerRepo.AssertNotCalled(t, "MarkComplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_MinesPick_MineResolvesLoss(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, _, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	board := &games.MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}}
	wager := pendingWagerWithState(t, board, 100, time.Now().UTC())
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(wager, nil)

	mockWagerRepo.On("MarkComplete", ctx, int64(42), int64(-100), 0.0).Return(true, nil)
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 900, Status: models.AccountStatusActive}, nil)

	service := NewSessionService(mockFactory, nil)
	view, err := service.MinesPick(ctx, 1, 3)

	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.Equal(t, int64(-100), view.Result.Effect)
}

func TestSessionService_BlackjackDouble_DebitsExtraStake(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo, mockWagerRepo, _ := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Player 11 doubles into 21 against a standing 17
	hand := &games.BlackjackState{
		Deck:   []int{8, 11}, // ten, king
		Player: []int{4, 3},  // six, five
		Dealer: []int{8, 5},  // ten, seven
	}
	wager := pendingWagerWithState(t, hand, 100, time.Now().UTC())
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameBlackjack).Return(wager, nil)

	// Second stake leaves the balance before the hand settles
	mockAccountRepo.On("DeductBalance", ctx, int64(1), int64(100)).Return(int64(800), nil)
	mockWagerRepo.On("IncreaseAmount", ctx, int64(42), int64(100)).Return(nil)
	mockAccountRepo.On("AddTotalWagered", ctx, int64(1), int64(100)).Return(nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Amount == -100 && tx.Type == models.TransactionTypeWagerStake
	})).Return(nil)

	// Win at doubled stake: effect +200, both stakes plus winnings return
	mockWagerRepo.On("MarkComplete", ctx, int64(42), int64(200), 2.0).Return(true, nil)
	mockAccountRepo.On("AddBalance", ctx, int64(1), int64(400)).Return(int64(1200), nil)
	mockTransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Amount == 400 && tx.Type == models.TransactionTypeGameWin
	})).Return(nil)

	service := NewSessionService(mockFactory, nil)
	view, err := service.BlackjackDouble(ctx, 1)

	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.Equal(t, int64(200), view.Result.Effect)
	assert.Equal(t, int64(1200), view.Result.NewBalance)
	mockWagerRepo.AssertExpectations(t)
}

func TestSessionService_StartMines_OpensDebitedWagerWithState(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockAccountRepo, mockTransactionRepo, mockWagerRepo, mockExclusionRepo := newSessionFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	account := &models.Account{ID: 1, Balance: 1000, Status: models.AccountStatusActive, Seed: testutil.TestSeed}
	mockAccountRepo.On("GetByID", ctx, int64(1)).Return(account, nil)
	mockExclusionRepo.On("GetActiveByAccount", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(nil, nil)
	mockWagerRepo.On("GetPendingByAccountAndGame", ctx, int64(1), models.GameMines).Return(nil, nil)

	mockAccountRepo.On("DeductBalance", ctx, int64(1), int64(100)).Return(int64(900), nil)
	mockAccountRepo.On("AddTotalWagered", ctx, int64(1), int64(100)).Return(nil)
	mockTransactionRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockWagerRepo.On("Create", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Wager).ID = 42
	})

	// Laying out the board consumes stream draws; the advanced counter must
	// persist
	mockAccountRepo.On("UpdateRandCounter", ctx, int64(1), mock.AnythingOfType("uint64")).Return(nil)

	var savedBlob []byte
	mockWagerRepo.On("UpdateState", ctx, int64(42), mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		savedBlob = args.Get(2).([]byte)
	})

	service := NewSessionService(mockFactory, nil)
	view, err := service.StartMines(ctx, 1, 100, 25, 5)

	require.NoError(t, err)
	require.NotNil(t, view.State)
	assert.Nil(t, view.Result)

	decoded, err := games.DecodeState(savedBlob)
	require.NoError(t, err)
	board := decoded.(*games.MinesState)
	assert.Equal(t, 25, board.Size)
	assert.Len(t, board.Mines, 5)
	mockAccountRepo.AssertExpectations(t)
}
