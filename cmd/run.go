package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"casino/bot"
	"casino/config"
	"casino/database"
	"casino/events"
	"casino/repository"
	"casino/rng"
	"casino/service"

	"github.com/coder/quartz"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting casino bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	log.Println("Event bus initialized successfully")

	// Initialize unit of work factory
	log.Println("Initializing unit of work factory...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	log.Println("Unit of work factory initialized successfully")

	// The house stream drives shared round draws; every consumed counter is
	// recorded on the round result for audit replay
	houseStream, err := rng.NewStream(cfg.HouseSeed, 0)
	if err != nil {
		return fmt.Errorf("failed to create house stream: %w", err)
	}

	// Initialize services
	log.Println("Initializing services...")
	clock := quartz.NewReal()
	rig := rng.NewRig()
	settingsService := service.NewSettingsService(uowFactory, clock)
	ledgerService := service.NewLedgerService(uowFactory)
	playService := service.NewPlayService(uowFactory, rig, settingsService)
	sessionService := service.NewSessionService(uowFactory, settingsService)
	exclusionService := service.NewExclusionService(uowFactory)

	// The round coordinator needs its chat publisher before the websocket
	// session exists; the publisher binds the session after the bot is up
	roundPublisher := bot.NewRoundPublisher(cfg.DiscordChannelID, ledgerService)
	roundService := service.NewRoundService(ctx, uowFactory, roundPublisher, settingsService, clock, eventBus, houseStream)
	log.Println("Services initialized successfully")

	// Rounds live in memory only, so a crash can leave round wagers pending
	// with no round holding them. Refund those before accepting new bets.
	if recovered, err := roundService.RecoverOrphans(ctx); err != nil {
		log.Printf("Orphaned round bet recovery incomplete: %v", err)
	} else if recovered > 0 {
		log.Printf("Refunded %d orphaned round bets", recovered)
	}

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:     cfg.DiscordToken,
		ChannelID: cfg.DiscordChannelID,
	}
	discordBot, err := bot.New(botConfig, ledgerService, playService, sessionService, roundService, exclusionService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	roundPublisher.Bind(discordBot.Session())
	log.Println("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	// Tear open rounds down first so every held stake is refunded
	roundService.Stop()

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
