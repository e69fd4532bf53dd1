package bot

import (
	"context"
	"fmt"

	"casino/models"
	"casino/service"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleDice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	var amount, chance int64
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "amount":
			amount = opt.IntValue()
		case "chance":
			chance = opt.IntValue()
		}
	}
	if chance < 1 || chance > 99 {
		b.respondWithError(s, i, "Win chance must be between 1 and 99 percent.")
		return
	}

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	result, err := b.playService.PlayDice(ctx, account.ID, amount, float64(chance)/100)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respond(s, i, formatPlayResult(fmt.Sprintf("🎲 Rolled at %d%%", chance), result))
}

func (b *Bot) handleCoinflip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	amount := i.ApplicationCommandData().Options[0].IntValue()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	result, err := b.playService.PlayCoinflip(ctx, account.ID, amount)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	b.respond(s, i, formatPlayResult("🪙 Coinflip", result))
}

func (b *Bot) handleBlackjack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	var view *service.SessionView
	switch sub.Name {
	case "deal":
		view, err = b.sessionService.StartBlackjack(ctx, account.ID, sub.Options[0].IntValue())
	case "hit":
		view, err = b.sessionService.BlackjackHit(ctx, account.ID)
	case "stand":
		view, err = b.sessionService.BlackjackStand(ctx, account.ID)
	case "double":
		view, err = b.sessionService.BlackjackDouble(ctx, account.ID)
	}
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	if b.respondClosedSession(s, i, view) {
		return
	}

	b.respondEmbed(s, i, buildBlackjackEmbed(view, GetDisplayName(s, i.GuildID, i.Member.User.ID)))
}

func (b *Bot) handleMines(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	var view *service.SessionView
	switch sub.Name {
	case "start":
		var amount int64
		mineCount := int64(5)
		for _, opt := range sub.Options {
			switch opt.Name {
			case "amount":
				amount = opt.IntValue()
			case "mines":
				mineCount = opt.IntValue()
			}
		}
		view, err = b.sessionService.StartMines(ctx, account.ID, amount, 25, int(mineCount))
	case "pick":
		// Cells are one-based in chat, zero-based on the board
		view, err = b.sessionService.MinesPick(ctx, account.ID, int(sub.Options[0].IntValue())-1)
	case "cashout":
		view, err = b.sessionService.MinesCashOut(ctx, account.ID)
	}
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}
	if b.respondClosedSession(s, i, view) {
		return
	}

	b.respondEmbed(s, i, buildMinesEmbed(view, GetDisplayName(s, i.GuildID, i.Member.User.ID)))
}

func (b *Bot) handleRoulette(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	account, err := b.resolveAccount(ctx, i)
	if err != nil {
		b.respondWithServiceError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "bet":
		var amount int64
		var pick string
		for _, opt := range sub.Options {
			switch opt.Name {
			case "amount":
				amount = opt.IntValue()
			case "pick":
				pick = opt.StringValue()
			}
		}

		round, err := b.roundService.JoinRound(ctx, account.ID, models.GameRoulette, amount, pick)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🎡 You bet **%s bits** on **%s**. The round closes %s.",
			FormatBalance(amount), pick, FormatDiscordTimestamp(round.Deadline, "R")))

	case "refund":
		count, err := b.roundService.RefundBets(ctx, models.GameRoulette, account.ID)
		if err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("↩️ Voided %d bet(s); your stakes are back.", count))

	case "cancel":
		if !isAdmin(i) {
			b.respondWithError(s, i, "Only admins can cancel a round.")
			return
		}
		if err := b.roundService.CancelRound(ctx, models.GameRoulette); err != nil {
			b.respondWithServiceError(s, i, err)
			return
		}
		b.respond(s, i, "🛑 Round cancelled; every bet was refunded.")
	}
}

// respondClosedSession reports a session that was closed before the action
// could apply. Returns true when the view was consumed.
func (b *Bot) respondClosedSession(s *discordgo.Session, i *discordgo.InteractionCreate, view *service.SessionView) bool {
	switch {
	case view.Forfeited:
		b.respond(s, i, fmt.Sprintf("⏱️ Your **%s** game sat idle too long and forfeited its **%s bits** stake.",
			view.Wager.Game, FormatBalance(view.Wager.Amount)))
		return true
	case view.Voided:
		b.respond(s, i, fmt.Sprintf("⚠️ Your **%s** game state couldn't be restored. The wager was voided and your **%s bits** stake refunded.",
			view.Wager.Game, FormatBalance(view.Wager.Amount)))
		return true
	}
	return false
}

func formatPlayResult(prefix string, result *models.WagerResult) string {
	if result.Effect > 0 {
		return fmt.Sprintf("%s: 🎉 **You won %s bits** (%.2fx). New balance: **%s bits**",
			prefix, FormatBalance(result.Effect), result.Multiplier, FormatBalance(result.NewBalance))
	}
	return fmt.Sprintf("%s: 😔 **You lost %s bits**. New balance: **%s bits**",
		prefix, FormatBalance(-result.Effect), FormatBalance(result.NewBalance))
}
