package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"casino/models"
	"casino/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	negative := balance < 0
	if negative {
		balance = -balance
	}
	str := fmt.Sprintf("%d", balance)

	// Add commas for thousands
	n := len(str)
	if n > 3 {
		var result strings.Builder
		for i, digit := range str {
			if i > 0 && (n-i)%3 == 0 {
				result.WriteRune(',')
			}
			result.WriteRune(digit)
		}
		str = result.String()
	}

	if negative {
		return "-" + str
	}
	return str
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in
// the reader's local timezone. "R" renders a live relative countdown.
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// GetDisplayName returns the member's guild nickname, falling back to username
func GetDisplayName(s *discordgo.Session, guildID, userID string) string {
	member, err := s.GuildMember(guildID, userID)
	if err == nil && member.Nick != "" {
		return member.Nick
	}
	if err == nil && member.User != nil {
		return member.User.Username
	}
	user, err := s.User(userID)
	if err != nil {
		return userID
	}
	return user.Username
}

// resolveAccount maps the interacting Discord user to their active gambler
// account, creating one on first contact. The ledger reports a banned user as
// a nil account with no error; every handler needs that surfaced as a refusal,
// not a nil to trip over.
func (b *Bot) resolveAccount(ctx context.Context, i *discordgo.InteractionCreate) (*models.Account, error) {
	userID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID %s: %w", i.Member.User.ID, err)
	}
	account, err := b.ledgerService.ResolveAccount(ctx, userID, i.Member.User.Username, true)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, service.ErrAccountBanned
	}
	return account, nil
}

// resolveAccountFor maps an arbitrary Discord user to their active account
func (b *Bot) resolveAccountFor(ctx context.Context, user *discordgo.User, createIfMissing bool) (*models.Account, error) {
	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user ID %s: %w", user.ID, err)
	}
	return b.ledgerService.ResolveAccount(ctx, userID, user.Username, createIfMissing)
}

// userMessage translates user and policy errors into player-facing text.
// Returns "" for anything that is not the player's fault; those are internal
// and get a generic apology after logging.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		return "You don't have enough bits for that."
	case errors.Is(err, service.ErrInvalidBet):
		return "Those bet parameters aren't valid."
	case errors.Is(err, service.ErrNoActiveGame):
		return "You don't have a game in progress. Start one first."
	case errors.Is(err, service.ErrGameInProgress):
		return "You already have a game of that kind in progress. Finish it first."
	case errors.Is(err, service.ErrRoundClosed):
		return "No round is open for betting right now."
	case errors.Is(err, service.ErrDailyAlreadyClaimed):
		return "You already claimed your daily grant today. Come back tomorrow."
	case errors.Is(err, service.ErrNothingToClaim):
		return "Nothing has accrued to claim yet."
	case errors.Is(err, service.ErrExcluded):
		return "Your account is currently excluded from wagering."
	case errors.Is(err, service.ErrAlreadyExcluded):
		return "An exclusion covering that period is already active."
	case errors.Is(err, service.ErrGameDisabled):
		return "That game is switched off right now."
	case errors.Is(err, service.ErrAccountBanned):
		return "Your account is banned from play."
	case errors.Is(err, service.ErrAccountNotFound):
		return "That account doesn't exist or can't play."
	}
	return ""
}

// respondWithServiceError reports a user error as ephemeral feedback and logs
// anything else as an internal fault
func (b *Bot) respondWithServiceError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if message := userMessage(err); message != "" {
		b.respondWithError(s, i, message)
		return
	}
	log.WithFields(log.Fields{
		"command": i.ApplicationCommandData().Name,
		"user":    i.Member.User.ID,
	}).Errorf("Command failed: %v", err)
	b.respondWithError(s, i, "Something went wrong. Please try again.")
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		log.Printf("Error responding to %s command: %v", i.ApplicationCommandData().Name, err)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.Printf("Error responding to %s command: %v", i.ApplicationCommandData().Name, err)
	}
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "❌ " + message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending error response: %v", err)
	}
}

// isAdmin reports whether the interacting member holds the Administrator
// permission in the guild
func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
