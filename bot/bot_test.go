package bot

import (
	"context"
	"testing"

	"casino/models"
	"casino/service"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bannedLedger reports every user the way the ledger reports a banned one:
// nil account, no error
type bannedLedger struct {
	service.LedgerService
}

func (bannedLedger) ResolveAccount(ctx context.Context, userID int64, username string, createIfMissing bool) (*models.Account, error) {
	return nil, nil
}

type activeLedger struct {
	service.LedgerService
}

func (activeLedger) ResolveAccount(ctx context.Context, userID int64, username string, createIfMissing bool) (*models.Account, error) {
	return &models.Account{ID: 1, UserID: userID, Username: username, Balance: 1000, Status: models.AccountStatusActive}, nil
}

func interactionFrom(userID, username string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{
				User: &discordgo.User{ID: userID, Username: username},
			},
		},
	}
}

func TestResolveAccount_BannedUserGetsRefusalNotNil(t *testing.T) {
	b := &Bot{ledgerService: bannedLedger{}}

	account, err := b.resolveAccount(context.Background(), interactionFrom("123456", "outlaw"))

	require.ErrorIs(t, err, service.ErrAccountBanned)
	assert.Nil(t, account)
	// The refusal must read as a player-facing message, never an internal fault
	assert.NotEmpty(t, userMessage(err))
}

func TestResolveAccount_ActiveUser(t *testing.T) {
	b := &Bot{ledgerService: activeLedger{}}

	account, err := b.resolveAccount(context.Background(), interactionFrom("123456", "gambler"))

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(123456), account.UserID)
}

func TestResolveAccount_UnparseableUserID(t *testing.T) {
	b := &Bot{ledgerService: activeLedger{}}

	_, err := b.resolveAccount(context.Background(), interactionFrom("not-a-snowflake", "gambler"))
	assert.Error(t, err)
}
