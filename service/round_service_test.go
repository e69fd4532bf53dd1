package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino/events"
	"casino/games"
	"casino/models"
	"casino/repository/testutil"
	"casino/rng"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type roundFixture struct {
	factory       *MockUnitOfWorkFactory
	uow           *MockUnitOfWork
	accountRepo   *MockAccountRepository
	txRepo        *MockTransactionRepository
	wagerRepo     *MockWagerRepository
	exclusionRepo *MockExclusionRepository
	publisher     *MockRoundPublisher
	clock         *quartz.Mock
	service       RoundService
	results       chan *models.RoundResult
}

func newRoundFixture(t *testing.T) *roundFixture {
	t.Helper()

	f := &roundFixture{
		factory:       new(MockUnitOfWorkFactory),
		uow:           new(MockUnitOfWork),
		accountRepo:   new(MockAccountRepository),
		txRepo:        new(MockTransactionRepository),
		wagerRepo:     new(MockWagerRepository),
		exclusionRepo: new(MockExclusionRepository),
		publisher:     new(MockRoundPublisher),
		clock:         quartz.NewMock(t),
		results:       make(chan *models.RoundResult, 1),
	}

	f.uow.SetRepositories(f.accountRepo, f.txRepo, f.wagerRepo, f.exclusionRepo, nil)
	f.factory.On("Create").Return(f.uow)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.uow.On("Rollback").Return(nil)

	f.publisher.On("PublishRound", mock.Anything, mock.Anything).Return(int64(555), nil)
	f.publisher.On("PublishResult", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		f.results <- args.Get(1).(*models.RoundResult)
	})

	houseStream, err := rng.NewStream(testutil.TestSeed, 0)
	require.NoError(t, err)

	f.service = NewRoundService(context.Background(), f.factory, f.publisher, nil, f.clock, events.NewBus(), houseStream)
	return f
}

// expectBetOpened wires the mocks for one account joining with one funded bet
func (f *roundFixture) expectBetOpened(ctx context.Context, accountID, wagerID, amount int64) *models.Wager {
	account := &models.Account{ID: accountID, Balance: 10000, Status: models.AccountStatusActive}
	f.accountRepo.On("GetByID", mock.Anything, accountID).Return(account, nil)
	f.exclusionRepo.On("GetActiveByAccount", mock.Anything, accountID, mock.AnythingOfType("time.Time")).Return(nil, nil)
	f.wagerRepo.On("GetPendingByAccountAndGame", mock.Anything, accountID, models.GameRoulette).Return(nil, nil)
	f.accountRepo.On("DeductBalance", mock.Anything, accountID, amount).Return(int64(10000-amount), nil)
	f.accountRepo.On("AddTotalWagered", mock.Anything, accountID, amount).Return(nil)
	f.txRepo.On("Record", mock.Anything, mock.Anything).Return(nil)

	wager := &models.Wager{ID: wagerID, AccountID: accountID, Game: models.GameRoulette, Amount: amount, AmountDebited: true}
	f.wagerRepo.On("Create", mock.Anything, mock.MatchedBy(func(w *models.Wager) bool {
		return w.AccountID == accountID && w.Amount == amount
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Wager).ID = wagerID
	})
	return wager
}

// expectBetSettled wires the mocks for one bet resolving at the deadline with
// an outcome that is not known in advance
func (f *roundFixture) expectBetSettled(wager *models.Wager) {
	f.wagerRepo.On("GetByID", mock.Anything, wager.ID).Return(wager, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, wager.ID, mock.AnythingOfType("int64"), mock.AnythingOfType("float64")).Return(true, nil)
	// Credit only happens on a hit; the repo calls are tolerant of either
	f.accountRepo.On("AddBalance", mock.Anything, wager.AccountID, mock.AnythingOfType("int64")).Return(int64(10000), nil).Maybe()
}

func TestRoundService_JoinCreatesRoundAndSettlesAtDeadline(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	wager1 := f.expectBetOpened(ctx, 1, 11, 100)
	round, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickRed)
	require.NoError(t, err)
	require.Len(t, round.Bets, 1)
	assert.NotEmpty(t, round.ID)

	// Let the worker set up its ticker and deadline timer
	tickerTrap.MustWait(ctx).MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)

	// A second participant joins the same round
	wager2 := f.expectBetOpened(ctx, 2, 22, 200)
	round, err = f.service.JoinRound(ctx, 2, models.GameRoulette, 200, games.RoulettePickBlack)
	require.NoError(t, err)
	assert.Len(t, round.Bets, 2)
	assert.Equal(t, int64(300), round.TotalPot())

	f.expectBetSettled(wager1)
	f.expectBetSettled(wager2)

	// Hit the deadline: the single shared draw resolves every admitted bet.
	// The mock clock refuses to advance past the 7s update ticker in one
	// leap, so step through its ticks to reach the 30s deadline.
	for i := 0; i < 4; i++ {
		f.clock.Advance(7 * time.Second).MustWait(ctx)
	}
	f.clock.Advance(2 * time.Second).MustWait(ctx)

	var result *models.RoundResult
	select {
	case result = <-f.results:
	case <-time.After(5 * time.Second):
		t.Fatal("round never resolved")
	}

	assert.False(t, result.Cancelled)
	assert.True(t, games.ValidRoulettePick(result.Outcome))
	assert.Contains(t, result.Effects, int64(1))
	assert.Contains(t, result.Effects, int64(2))
	// Red and black cannot both win a single draw
	assert.False(t, result.Effects[1] > 0 && result.Effects[2] > 0)

	assert.Nil(t, f.service.ActiveRound(models.GameRoulette))
	f.wagerRepo.AssertExpectations(t)
}

func TestRoundService_LateBetRejectedAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	wager1 := f.expectBetOpened(ctx, 1, 11, 100)
	_, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickRed)
	require.NoError(t, err)

	// Hold the worker before it arms its clocks and move time past the
	// deadline: the round still occupies its slot but its window has closed
	tickerCall := tickerTrap.MustWait(ctx)
	f.clock.Advance(31 * time.Second).MustWait(ctx)

	_, err = f.service.JoinRound(ctx, 2, models.GameRoulette, 200, games.RoulettePickBlack)
	assert.ErrorIs(t, err, ErrRoundClosed)

	// Release the worker; its deadline timer is already due, so settlement
	// follows on the next advance
	f.expectBetSettled(wager1)
	tickerCall.MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)
	f.clock.Advance(time.Millisecond).MustWait(ctx)

	var result *models.RoundResult
	select {
	case result = <-f.results:
	case <-time.After(5 * time.Second):
		t.Fatal("round never resolved")
	}

	// Only the admitted bet was resolved; the late one never entered
	assert.Len(t, result.Effects, 1)
	assert.Contains(t, result.Effects, int64(1))
}

func TestRoundService_CancelRefundsEveryBet(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	wager1 := f.expectBetOpened(ctx, 1, 11, 100)
	_, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickGreen)
	require.NoError(t, err)

	tickerTrap.MustWait(ctx).MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)

	// Refund: effect 0, the stake comes back in full
	f.wagerRepo.On("GetByID", mock.Anything, int64(11)).Return(wager1, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, int64(11), int64(0), 1.0).Return(true, nil)
	f.accountRepo.On("AddBalance", mock.Anything, int64(1), int64(100)).Return(int64(10000), nil)

	err = f.service.CancelRound(ctx, models.GameRoulette)
	require.NoError(t, err)

	var result *models.RoundResult
	select {
	case result = <-f.results:
	case <-time.After(5 * time.Second):
		t.Fatal("cancellation never published")
	}

	assert.True(t, result.Cancelled)
	assert.Nil(t, f.service.ActiveRound(models.GameRoulette))
	f.wagerRepo.AssertExpectations(t)
}

func TestRoundService_OneFailedResolutionDoesNotStopSettlement(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	wager1 := f.expectBetOpened(ctx, 1, 11, 100)
	_, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickRed)
	require.NoError(t, err)

	tickerTrap.MustWait(ctx).MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)

	wager2 := f.expectBetOpened(ctx, 2, 22, 200)
	_, err = f.service.JoinRound(ctx, 2, models.GameRoulette, 200, games.RoulettePickBlack)
	require.NoError(t, err)

	// The first bet's resolution dies mid-settlement; each bet runs in its own
	// transaction, so the second still settles
	f.wagerRepo.On("GetByID", mock.Anything, int64(11)).Return(wager1, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, int64(11), mock.AnythingOfType("int64"), mock.AnythingOfType("float64")).
		Return(false, errors.New("connection reset"))
	f.expectBetSettled(wager2)

	// The mock clock refuses to advance past the 7s update ticker in one
	// leap, so step through its ticks to reach the 30s deadline.
	for i := 0; i < 4; i++ {
		f.clock.Advance(7 * time.Second).MustWait(ctx)
	}
	f.clock.Advance(2 * time.Second).MustWait(ctx)

	var result *models.RoundResult
	select {
	case result = <-f.results:
	case <-time.After(5 * time.Second):
		t.Fatal("round never resolved")
	}

	assert.False(t, result.Cancelled)
	assert.Contains(t, result.Effects, int64(2))
	// The failed bet's wager stays pending for orphan recovery, so no effect
	// may be reported for it
	assert.NotContains(t, result.Effects, int64(1))
	f.wagerRepo.AssertExpectations(t)
}

func TestRoundService_RecoverOrphansRefundsWagersNoRoundHolds(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	// Wager 11 is held by an open round; wager 33 is a leftover from a crashed
	// process and must be refunded
	f.expectBetOpened(ctx, 1, 11, 100)
	_, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickRed)
	require.NoError(t, err)

	tickerTrap.MustWait(ctx).MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)

	held := &models.Wager{ID: 11, AccountID: 1, Game: models.GameRoulette, Amount: 100, AmountDebited: true}
	orphan := &models.Wager{ID: 33, AccountID: 3, Game: models.GameRoulette, Amount: 250, AmountDebited: true}
	f.wagerRepo.On("GetPendingByGame", mock.Anything, models.GameRoulette).Return([]*models.Wager{held, orphan}, nil)
	f.wagerRepo.On("GetByID", mock.Anything, int64(33)).Return(orphan, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, int64(33), int64(0), 1.0).Return(true, nil)
	f.accountRepo.On("AddBalance", mock.Anything, int64(3), int64(250)).Return(int64(250), nil)
	f.txRepo.On("Record", mock.Anything, mock.Anything).Return(nil)

	recovered, err := f.service.RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	// The held wager must not be touched while its round is open
	f.wagerRepo.AssertNotCalled(t, "GetByID", mock.Anything, int64(11))
	f.wagerRepo.AssertExpectations(t)

	// Shutdown tears the open round down and refunds its bet
	f.wagerRepo.On("GetByID", mock.Anything, int64(11)).Return(held, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, int64(11), int64(0), 1.0).Return(true, nil)
	f.accountRepo.On("AddBalance", mock.Anything, int64(1), int64(100)).Return(int64(10000), nil)
}

func TestRoundService_FailedRefundKeepsBetInRound(t *testing.T) {
	ctx := context.Background()
	f := newRoundFixture(t)
	defer f.service.Stop()

	tickerTrap := f.clock.Trap().NewTicker()
	defer tickerTrap.Close()
	timerTrap := f.clock.Trap().NewTimer()
	defer timerTrap.Close()

	wager1 := f.expectBetOpened(ctx, 1, 11, 100)
	_, err := f.service.JoinRound(ctx, 1, models.GameRoulette, 100, games.RoulettePickRed)
	require.NoError(t, err)

	tickerTrap.MustWait(ctx).MustRelease(ctx)
	timerTrap.MustWait(ctx).MustRelease(ctx)

	f.wagerRepo.On("GetByID", mock.Anything, int64(11)).Return(wager1, nil)
	f.wagerRepo.On("MarkComplete", mock.Anything, int64(11), int64(0), 1.0).
		Return(false, errors.New("connection reset"))

	refunded, err := f.service.RefundBets(ctx, models.GameRoulette, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, refunded)

	// The refund never committed, so the bet stays admitted and will settle
	// at the deadline
	round := f.service.ActiveRound(models.GameRoulette)
	require.NotNil(t, round)
	assert.Len(t, round.Bets, 1)
}

func TestRoundService_CancelWithoutRound(t *testing.T) {
	f := newRoundFixture(t)
	defer f.service.Stop()

	err := f.service.CancelRound(context.Background(), models.GameRoulette)
	assert.ErrorIs(t, err, ErrRoundClosed)
}

func TestRoundService_InvalidPick(t *testing.T) {
	f := newRoundFixture(t)
	defer f.service.Stop()

	_, err := f.service.JoinRound(context.Background(), 1, models.GameRoulette, 100, "blue")
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, err = f.service.JoinRound(context.Background(), 1, models.GameBlackjack, 100, games.RoulettePickRed)
	assert.ErrorIs(t, err, ErrInvalidBet)
}
