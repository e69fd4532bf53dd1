package testutil

import (
	"time"

	"casino/models"
)

// TestSeed is a fixed hex seed for deterministic draws in tests
const TestSeed = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// CreateTestAccount creates an account model with default values
func CreateTestAccount(userID int64, username string) *models.Account {
	now := time.Now().UTC()
	return &models.Account{
		UserID:    userID,
		Username:  username,
		Balance:   1000,
		Status:    models.AccountStatusActive,
		Seed:      TestSeed,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestWager creates a pending debited wager model
func CreateTestWager(accountID int64, game models.GameKind, amount int64) *models.Wager {
	return &models.Wager{
		AccountID:     accountID,
		Game:          game,
		Amount:        amount,
		AmountDebited: true,
	}
}
