package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"casino/models"
	"casino/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// RoundPublisher renders round state into the configured channel. It posts the
// live display once, then edits it in place on every refresh; the message
// handle the coordinator stores is the confirmed Discord message ID.
//
// The publisher is created before the websocket session exists so the round
// coordinator can be wired first; Bind attaches the session once the bot is
// up. Until then PublishRound fails and the coordinator simply retries on its
// next refresh tick.
type RoundPublisher struct {
	channelID string
	ledger    service.LedgerService

	mu      sync.RWMutex
	session *discordgo.Session
}

// NewRoundPublisher creates a publisher for the given channel
func NewRoundPublisher(channelID string, ledger service.LedgerService) *RoundPublisher {
	return &RoundPublisher{
		channelID: channelID,
		ledger:    ledger,
	}
}

// Bind attaches the live Discord session
func (p *RoundPublisher) Bind(session *discordgo.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
}

func (p *RoundPublisher) liveSession() *discordgo.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// PublishRound posts or refreshes the live round display and returns the
// confirmed message handle
func (p *RoundPublisher) PublishRound(ctx context.Context, round *models.Round) (int64, error) {
	session := p.liveSession()
	if session == nil {
		return 0, fmt.Errorf("no chat session bound yet")
	}

	embed := p.buildRoundEmbed(ctx, round)

	if round.MessageHandle != 0 {
		messageID := strconv.FormatInt(round.MessageHandle, 10)
		if _, err := session.ChannelMessageEditEmbed(p.channelID, messageID, embed); err != nil {
			return 0, fmt.Errorf("failed to edit round display %s: %w", messageID, err)
		}
		return round.MessageHandle, nil
	}

	message, err := session.ChannelMessageSendEmbed(p.channelID, embed)
	if err != nil {
		return 0, fmt.Errorf("failed to post round display: %w", err)
	}
	handle, err := strconv.ParseInt(message.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse message ID %s: %w", message.ID, err)
	}
	return handle, nil
}

// PublishResult announces a resolved or cancelled round. Failures only cost
// the announcement; the ledger already settled.
func (p *RoundPublisher) PublishResult(ctx context.Context, result *models.RoundResult) {
	session := p.liveSession()
	if session == nil {
		log.Errorf("No chat session bound; dropping result announcement for round %s", result.Round.ID)
		return
	}

	embed := p.buildResultEmbed(ctx, result)

	// Replace the live display when we have its handle, otherwise post fresh
	if result.Round.MessageHandle != 0 {
		messageID := strconv.FormatInt(result.Round.MessageHandle, 10)
		if _, err := session.ChannelMessageEditEmbed(p.channelID, messageID, embed); err == nil {
			return
		}
	}
	if _, err := session.ChannelMessageSendEmbed(p.channelID, embed); err != nil {
		log.Errorf("Failed to announce result for round %s: %v", result.Round.ID, err)
	}
}

// mention resolves an account to a Discord mention, falling back to the
// stored username
func (p *RoundPublisher) mention(ctx context.Context, accountID int64) string {
	account, err := p.ledger.GetAccount(ctx, accountID)
	if err != nil || account == nil {
		return fmt.Sprintf("account %d", accountID)
	}
	return fmt.Sprintf("<@%d>", account.UserID)
}

func (p *RoundPublisher) buildRoundEmbed(ctx context.Context, round *models.Round) *discordgo.MessageEmbed {
	var lines []string
	for _, bet := range round.Bets {
		lines = append(lines, fmt.Sprintf("%s bet **%s bits** on **%s**",
			p.mention(ctx, bet.AccountID), FormatBalance(bet.Amount), bet.Pick))
	}

	return &discordgo.MessageEmbed{
		Title: "🎡 Roulette round open",
		Description: fmt.Sprintf("Betting closes %s. Join with `/roulette bet`.\n\n%s",
			FormatDiscordTimestamp(round.Deadline, "R"), strings.Join(lines, "\n")),
		Color: 0xE67E22,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Pot: %s bits · %d bet(s)", FormatBalance(round.TotalPot()), len(round.Bets)),
		},
	}
}

func (p *RoundPublisher) buildResultEmbed(ctx context.Context, result *models.RoundResult) *discordgo.MessageEmbed {
	if result.Cancelled {
		return &discordgo.MessageEmbed{
			Title:       "🛑 Roulette round cancelled",
			Description: "Every bet was refunded.",
			Color:       0x95A5A6,
		}
	}

	var lines []string
	for accountID, effect := range result.Effects {
		switch {
		case effect > 0:
			lines = append(lines, fmt.Sprintf("%s won **%s bits**", p.mention(ctx, accountID), FormatBalance(effect)))
		case effect < 0:
			lines = append(lines, fmt.Sprintf("%s lost **%s bits**", p.mention(ctx, accountID), FormatBalance(-effect)))
		default:
			lines = append(lines, fmt.Sprintf("%s broke even", p.mention(ctx, accountID)))
		}
	}
	if len(lines) == 0 {
		lines = []string{"No bets survived to the draw."}
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎡 The ball lands on **%s**", strings.ToUpper(result.Outcome)),
		Description: strings.Join(lines, "\n"),
		Color:       rouletteColor(result.Outcome),
	}
}

func rouletteColor(outcome string) int {
	switch outcome {
	case "red":
		return 0xE74C3C
	case "black":
		return 0x2C3E50
	case "green":
		return 0x2ECC71
	}
	return 0x95A5A6
}
