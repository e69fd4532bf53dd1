package repository_test

import (
	"context"
	"testing"

	"casino/models"
	"casino/repository"
	"casino/repository/testutil"
	"casino/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewAccountRepository(testDB.DB)

	account, err := repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.Equal(t, int64(1000), account.Balance)
	assert.Equal(t, models.AccountStatusActive, account.Status)
	assert.Equal(t, testutil.TestSeed, account.Seed)
	assert.Zero(t, account.RandCounter)

	found, err := repo.GetActiveByUserID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, account.ID, found.ID)

	// Unknown users come back nil, not an error
	missing, err := repo.GetActiveByUserID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)
}

func TestAccountRepository_OneActiveAccountPerUser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewAccountRepository(testDB.DB)

	first, err := repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)

	// The partial unique index rejects a second active account
	_, err = repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	assert.Error(t, err)

	// Once the first account leaves the active state a fresh one is allowed
	err = repo.UpdateStatus(ctx, first.ID, models.AccountStatusAbandoned)
	require.NoError(t, err)

	second, err := repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	latest, err := repo.GetLatestByUserID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestAccountRepository_BalanceGuards(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewAccountRepository(testDB.DB)

	account, err := repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)

	newBalance, err := repo.AddBalance(ctx, account.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), newBalance)

	newBalance, err = repo.DeductBalance(ctx, account.ID, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), newBalance)

	// The balance guard refuses to go negative and leaves the row untouched
	_, err = repo.DeductBalance(ctx, account.ID, 1)
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	after, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.Balance)

	_, err = repo.DeductBalance(ctx, 999999, 1)
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}

func TestAccountRepository_RandCounterPersists(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewAccountRepository(testDB.DB)

	account, err := repo.Create(ctx, 100, "alice", testutil.TestSeed, 1000)
	require.NoError(t, err)

	err = repo.UpdateRandCounter(ctx, account.ID, 57)
	require.NoError(t, err)

	reloaded, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(57), reloaded.RandCounter)

	err = repo.AddTotalWagered(ctx, account.ID, 250)
	require.NoError(t, err)

	reloaded, err = repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), reloaded.TotalWagered)
}
