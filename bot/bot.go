package bot

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"casino/events"
	"casino/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token     string
	ChannelID string // channel for round displays and forfeit notices
}

type Bot struct {
	config           Config
	session          *discordgo.Session
	ledgerService    service.LedgerService
	playService      service.PlayService
	sessionService   service.SessionService
	roundService     service.RoundService
	exclusionService service.ExclusionService
	eventBus         *events.Bus
}

func New(config Config, ledgerService service.LedgerService, playService service.PlayService, sessionService service.SessionService, roundService service.RoundService, exclusionService service.ExclusionService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll

	bot := &Bot{
		config:           config,
		session:          dg,
		ledgerService:    ledgerService,
		playService:      playService,
		sessionService:   sessionService,
		roundService:     roundService,
		exclusionService: exclusionService,
		eventBus:         eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Forfeits happen lazily inside someone's next action; the player who
	// lost the stake may never see that response, so announce it
	eventBus.Subscribe(events.EventTypeWagerForfeited, func(ctx context.Context, event events.Event) {
		if forfeit, ok := event.(events.WagerForfeitedEvent); ok {
			bot.announceForfeit(forfeit)
		}
	})

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Session exposes the live Discord session for collaborators that render
// outside the interaction flow (the round publisher)
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) announceForfeit(forfeit events.WagerForfeitedEvent) {
	if b.config.ChannelID == "" {
		return
	}
	message := fmt.Sprintf("⏱️ An idle **%s** game timed out and forfeited its **%s bits** stake.",
		forfeit.Game, FormatBalance(forfeit.Amount))
	if _, err := b.session.ChannelMessageSend(b.config.ChannelID, message); err != nil {
		log.Errorf("Failed to announce forfeited wager %d: %v", forfeit.WagerID, err)
	}
}

func (b *Bot) registerCommands() error {
	minBet := float64(1)
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check your current balance",
		},
		{
			Name:        "daily",
			Description: "Claim your daily bits grant",
		},
		{
			Name:        "donate",
			Description: "Transfer bits to another player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount to donate in bits",
					Required:    true,
					MinValue:    &minBet,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to donate to",
					Required:    true,
				},
			},
		},
		{
			Name:        "cashback",
			Description: "Check and claim rakeback and lossback",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show what has accrued since your last claim",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rakeback",
					Description: "Claim accrued rakeback",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "lossback",
					Description: "Claim accrued lossback",
				},
			},
		},
		{
			Name:        "history",
			Description: "Show your recent transactions and wagers",
		},
		{
			Name:        "dice",
			Description: "Roll against your own win chance at fair-inverse payout",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount to bet in bits",
					Required:    true,
					MinValue:    &minBet,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "chance",
					Description: "Win chance in percent (1-99)",
					Required:    true,
				},
			},
		},
		{
			Name:        "coinflip",
			Description: "Even-money coin flip",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount to bet in bits",
					Required:    true,
					MinValue:    &minBet,
				},
			},
		},
		{
			Name:        "blackjack",
			Description: "Play a hand of blackjack",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "deal",
					Description: "Open a new hand",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Amount to bet in bits",
							Required:    true,
							MinValue:    &minBet,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "hit",
					Description: "Draw another card",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stand",
					Description: "Stand and let the dealer play",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "double",
					Description: "Double your stake, draw one card, and stand",
				},
			},
		},
		{
			Name:        "mines",
			Description: "Play mines",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Lay out a new board",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Amount to bet in bits",
							Required:    true,
							MinValue:    &minBet,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "mines",
							Description: "Number of mines on the 25-cell board (default 5)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pick",
					Description: "Reveal a cell",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "cell",
							Description: "Cell to reveal (1-25)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cashout",
					Description: "Take the current multiplier",
				},
			},
		},
		{
			Name:        "roulette",
			Description: "Bet into the shared roulette round",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bet",
					Description: "Place a bet; opens a round when none is running",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Amount to bet in bits",
							Required:    true,
							MinValue:    &minBet,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "pick",
							Description: "red, black, or green",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "red", Value: "red"},
								{Name: "black", Value: "black"},
								{Name: "green", Value: "green"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "refund",
					Description: "Void your bets while the round continues",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel the open round and refund every bet (admins only)",
				},
			},
		},
		{
			Name:        "abandon",
			Description: "Abandon your account; a fresh one starts at the initial balance",
		},
		{
			Name:        "exclude",
			Description: "Lock yourself out of wagering for a period",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long, e.g. 24h or 168h",
					Required:    true,
				},
			},
		},
		{
			Name:        "admin",
			Description: "Administrative ledger operations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "adjust",
					Description: "Apply a signed balance adjustment",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to adjust",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Signed amount in bits",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "reason",
							Description: "Reason recorded on the ledger entry",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ban",
					Description: "Ban a user's account from play",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to ban",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "exclude",
					Description: "Impose an exclusion on a user",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to exclude",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "duration",
							Description: "How long, e.g. 24h",
							Required:    true,
						},
					},
				},
			},
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "balance":
		b.handleBalance(s, i)
	case "daily":
		b.handleDaily(s, i)
	case "donate":
		b.handleDonate(s, i)
	case "cashback":
		b.handleCashback(s, i)
	case "history":
		b.handleHistory(s, i)
	case "dice":
		b.handleDice(s, i)
	case "coinflip":
		b.handleCoinflip(s, i)
	case "blackjack":
		b.handleBlackjack(s, i)
	case "mines":
		b.handleMines(s, i)
	case "roulette":
		b.handleRoulette(s, i)
	case "abandon":
		b.handleAbandon(s, i)
	case "exclude":
		b.handleExclude(s, i)
	case "admin":
		b.handleAdmin(s, i)
	}
}
