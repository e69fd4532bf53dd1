package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"casino/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	displayName := GetDisplayName(s, i.GuildID, i.Member.User.ID)
	message := fmt.Sprintf("%s, your current balance: **%s bits** (lifetime wagered: %s)",
		displayName, FormatBalance(account.Balance), FormatBalance(account.TotalWagered))
	b.respond(s, i, message)
}

func (b *Bot) handleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	newBalance, err := b.ledgerService.ClaimDaily(ctx, account.ID)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respond(s, i, fmt.Sprintf("🎁 Daily grant claimed! New balance: **%s bits**", FormatBalance(newBalance)))
}

func (b *Bot) handleDonate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	var amount int64
	var recipientUser *discordgo.User
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "user":
			recipientUser = opt.UserValue(s)
		}
	}

	if recipientUser == nil {
		b.respondWithError(s, i, "Invalid recipient user.")
		return
	}
	if recipientUser.ID == i.Member.User.ID {
		b.respondWithError(s, i, "You cannot donate to yourself.")
		return
	}

	sender, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	recipient, err := b.resolveAccountFor(ctx, recipientUser, true)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	if recipient == nil {
		b.respondWithError(s, i, "That user cannot receive bits.")
		return
	}

	if err := b.ledgerService.Transfer(ctx, sender.ID, recipient.ID, amount); err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	senderName := GetDisplayName(s, i.GuildID, i.Member.User.ID)
	recipientName := GetDisplayName(s, i.GuildID, recipientUser.ID)
	b.respond(s, i, fmt.Sprintf("✅ **%s** transferred **%s bits** to **%s**",
		senderName, FormatBalance(amount), recipientName))
}

func (b *Bot) handleCashback(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	switch i.ApplicationCommandData().Options[0].Name {
	case "status":
		rakeback, err := b.ledgerService.RakebackAvailable(ctx, account.ID)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		lossback, err := b.ledgerService.LossbackAvailable(ctx, account.ID)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("Accrued since your last claims: **%s bits** rakeback, **%s bits** lossback",
			FormatBalance(rakeback), FormatBalance(lossback)))

	case "rakeback":
		amount, newBalance, err := b.ledgerService.ClaimRakeback(ctx, account.ID)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("💸 Claimed **%s bits** of rakeback. New balance: **%s bits**",
			FormatBalance(amount), FormatBalance(newBalance)))

	case "lossback":
		amount, newBalance, err := b.ledgerService.ClaimLossback(ctx, account.ID)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("💸 Claimed **%s bits** of lossback. New balance: **%s bits**",
			FormatBalance(amount), FormatBalance(newBalance)))
	}
}

func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	transactions, err := b.ledgerService.GetTransactions(ctx, account.ID, 10)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	wagers, err := b.ledgerService.GetWagers(ctx, account.ID, 10)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respondEmbed(s, i, buildHistoryEmbed(account, transactions, wagers))
}

// handleAbandon closes the player's current account. The balance stays on the
// closed account; the next interaction opens a fresh one at the starting
// balance.
func (b *Bot) handleAbandon(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	if err := b.ledgerService.Abandon(ctx, account.ID); err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respond(s, i, fmt.Sprintf("🗑️ Account abandoned with **%s bits** on it. Your next command starts you fresh.",
		FormatBalance(account.Balance)))
}

func (b *Bot) handleExclude(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	durationStr := i.ApplicationCommandData().Options[0].StringValue()
	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration <= 0 {
		b.respondWithError(s, i, "Invalid duration. Use something like 24h or 168h.")
		return
	}

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	exclusion, err := b.exclusionService.Exclude(ctx, account.ID, duration, models.ExclusionSourceSelf)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respond(s, i, fmt.Sprintf("🔒 You are excluded from wagering until %s. Take care of yourself.",
		FormatDiscordTimestamp(exclusion.ExpiresAt, "F")))
}

func (b *Bot) handleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	if !isAdmin(i) {
		b.respondWithError(s, i, "You don't have permission to use admin commands.")
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	var targetUser *discordgo.User
	var amount int64
	var reason, durationStr string
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			targetUser = opt.UserValue(s)
		case "amount":
			amount = opt.IntValue()
		case "reason":
			reason = opt.StringValue()
		case "duration":
			durationStr = opt.StringValue()
		}
	}

	if targetUser == nil {
		b.respondWithError(s, i, "Invalid target user.")
		return
	}
	target, err := b.resolveAccountFor(ctx, targetUser, false)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	if target == nil {
		b.respondWithError(s, i, "That user has no active account.")
		return
	}

	switch sub.Name {
	case "adjust":
		if amount == 0 {
			b.respondWithError(s, i, "Amount must be non-zero.")
			return
		}
		newBalance, err := b.ledgerService.ModifyBalance(ctx, target.ID, amount, models.TransactionTypeAdmin, reason)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		log.WithFields(log.Fields{
			"admin":   i.Member.User.ID,
			"account": target.ID,
			"amount":  amount,
		}).Info("Admin balance adjustment applied")
		b.respond(s, i, fmt.Sprintf("⚖️ Adjusted **%s** by **%s bits** (%s). New balance: **%s bits**",
			targetUser.Username, FormatBalance(amount), reason, FormatBalance(newBalance)))

	case "ban":
		if err := b.ledgerService.Ban(ctx, target.ID); err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		log.WithFields(log.Fields{
			"admin":   i.Member.User.ID,
			"account": target.ID,
		}).Info("Account banned")
		b.respond(s, i, fmt.Sprintf("🔨 **%s** is banned from play.", targetUser.Username))

	case "exclude":
		duration, err := time.ParseDuration(durationStr)
		if err != nil || duration <= 0 {
			b.respondWithError(s, i, "Invalid duration. Use something like 24h.")
			return
		}
		exclusion, err := b.exclusionService.Exclude(ctx, target.ID, duration, models.ExclusionSourceAdmin)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🔒 **%s** is excluded from wagering until %s.",
			targetUser.Username, FormatDiscordTimestamp(exclusion.ExpiresAt, "F")))
	}
}

func buildHistoryEmbed(account *models.Account, transactions []*models.Transaction, wagers []*models.Wager) *discordgo.MessageEmbed {
	var txLines []string
	for _, tx := range transactions {
		txLines = append(txLines, fmt.Sprintf("`%s` %s **%s**, balance %s bits",
			tx.CreatedAt.Format("Jan 02 15:04"), tx.Type, FormatBalance(tx.Amount), FormatBalance(tx.BalanceAfter)))
	}
	if len(txLines) == 0 {
		txLines = []string{"No transactions yet."}
	}

	var wagerLines []string
	for _, w := range wagers {
		status := "pending"
		if w.IsComplete {
			status = fmt.Sprintf("%+d (%.2fx)", w.Effect, w.Multiplier)
		}
		wagerLines = append(wagerLines, fmt.Sprintf("`%s` %s %s bits: %s",
			w.CreatedAt.Format("Jan 02 15:04"), w.Game, FormatBalance(w.Amount), status))
	}
	if len(wagerLines) == 0 {
		wagerLines = []string{"No wagers yet."}
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("History for %s", account.Username),
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Recent transactions", Value: strings.Join(txLines, "\n")},
			{Name: "Recent wagers", Value: strings.Join(wagerLines, "\n")},
		},
	}
}
