package repository_test

import (
	"context"
	"testing"
	"time"

	"casino/models"
	"casino/repository"
	"casino/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAccountForWagers(t *testing.T, repo *repository.AccountRepository) *models.Account {
	t.Helper()
	account, err := repo.Create(context.Background(), 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)
	return account
}

func TestWagerRepository_CreateAndPendingLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	accountRepo := repository.NewAccountRepository(testDB.DB)
	wagerRepo := repository.NewWagerRepository(testDB.DB)

	account := createAccountForWagers(t, accountRepo)

	wager := testutil.CreateTestWager(account.ID, models.GameMines, 100)
	wager.State = []byte(`{"game":"mines"}`)
	err := wagerRepo.Create(ctx, wager)
	require.NoError(t, err)
	assert.NotZero(t, wager.ID)

	pending, err := wagerRepo.GetPendingByAccountAndGame(ctx, account.ID, models.GameMines)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, wager.ID, pending.ID)
	assert.False(t, pending.IsComplete)
	assert.True(t, pending.AmountDebited)
	assert.JSONEq(t, `{"game":"mines"}`, string(pending.State))

	// No pending wager under a different game
	other, err := wagerRepo.GetPendingByAccountAndGame(ctx, account.ID, models.GameBlackjack)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestWagerRepository_OnePendingPerAccountAndGame(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	accountRepo := repository.NewAccountRepository(testDB.DB)
	wagerRepo := repository.NewWagerRepository(testDB.DB)

	account := createAccountForWagers(t, accountRepo)

	first := testutil.CreateTestWager(account.ID, models.GameMines, 100)
	require.NoError(t, wagerRepo.Create(ctx, first))

	// The partial unique index rejects a second pending wager on the same game
	second := testutil.CreateTestWager(account.ID, models.GameMines, 200)
	assert.Error(t, wagerRepo.Create(ctx, second))

	// A different game is fine
	blackjack := testutil.CreateTestWager(account.ID, models.GameBlackjack, 100)
	require.NoError(t, wagerRepo.Create(ctx, blackjack))

	// Resolving the first frees the slot
	done, err := wagerRepo.MarkComplete(ctx, first.ID, -100, 0)
	require.NoError(t, err)
	require.True(t, done)

	third := testutil.CreateTestWager(account.ID, models.GameMines, 300)
	require.NoError(t, wagerRepo.Create(ctx, third))
}

func TestWagerRepository_MarkCompleteExactlyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	accountRepo := repository.NewAccountRepository(testDB.DB)
	wagerRepo := repository.NewWagerRepository(testDB.DB)

	account := createAccountForWagers(t, accountRepo)

	wager := testutil.CreateTestWager(account.ID, models.GameDice, 100)
	wager.State = []byte(`{"game":"mines"}`)
	require.NoError(t, wagerRepo.Create(ctx, wager))

	done, err := wagerRepo.MarkComplete(ctx, wager.ID, 150, 2.5)
	require.NoError(t, err)
	assert.True(t, done)

	// A second resolution finds no pending row to flip
	done, err = wagerRepo.MarkComplete(ctx, wager.ID, 9999, 100.0)
	require.NoError(t, err)
	assert.False(t, done)

	resolved, err := wagerRepo.GetByID(ctx, wager.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsComplete)
	assert.Equal(t, int64(150), resolved.Effect)
	assert.Equal(t, 2.5, resolved.Multiplier)
	assert.Nil(t, resolved.State)
	require.NotNil(t, resolved.ResolvedAt)
}

func TestWagerRepository_UpdatesOnlyWhilePending(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	accountRepo := repository.NewAccountRepository(testDB.DB)
	wagerRepo := repository.NewWagerRepository(testDB.DB)

	account := createAccountForWagers(t, accountRepo)

	wager := testutil.CreateTestWager(account.ID, models.GameBlackjack, 100)
	require.NoError(t, wagerRepo.Create(ctx, wager))

	require.NoError(t, wagerRepo.IncreaseAmount(ctx, wager.ID, 100))
	require.NoError(t, wagerRepo.UpdateState(ctx, wager.ID, []byte(`{"game":"blackjack"}`)))

	doubled, err := wagerRepo.GetByID(ctx, wager.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), doubled.Amount)

	done, err := wagerRepo.MarkComplete(ctx, wager.ID, 200, 2.0)
	require.NoError(t, err)
	require.True(t, done)

	// Resolved wagers are frozen
	assert.Error(t, wagerRepo.IncreaseAmount(ctx, wager.ID, 100))
	assert.Error(t, wagerRepo.UpdateState(ctx, wager.ID, []byte(`{}`)))
}

func TestWagerRepository_History(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	accountRepo := repository.NewAccountRepository(testDB.DB)
	wagerRepo := repository.NewWagerRepository(testDB.DB)

	account := createAccountForWagers(t, accountRepo)
	start := time.Now().UTC().Add(-time.Minute)

	// One win, one loss, one loss on another game
	stakes := []struct {
		game   models.GameKind
		amount int64
		effect int64
	}{
		{models.GameDice, 100, 100},
		{models.GameCoinflip, 200, -200},
		{models.GameMines, 50, -50},
	}
	for _, s := range stakes {
		wager := testutil.CreateTestWager(account.ID, s.game, s.amount)
		require.NoError(t, wagerRepo.Create(ctx, wager))
		done, err := wagerRepo.MarkComplete(ctx, wager.ID, s.effect, 2.0)
		require.NoError(t, err)
		require.True(t, done)
	}

	history, err := wagerRepo.GetByAccount(ctx, account.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first
	assert.Equal(t, models.GameMines, history[0].Game)
	assert.Equal(t, models.GameCoinflip, history[1].Game)

	wagered, err := wagerRepo.SumAmountSince(ctx, account.ID, start)
	require.NoError(t, err)
	assert.Equal(t, int64(350), wagered)

	losses, err := wagerRepo.SumLossesSince(ctx, account.ID, start)
	require.NoError(t, err)
	assert.Equal(t, int64(250), losses)
}
