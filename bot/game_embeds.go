package bot

import (
	"fmt"
	"strings"

	"casino/games"
	"casino/service"

	"github.com/bwmarrin/discordgo"
)

var (
	cardRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	cardSuits = []string{"♠", "♥", "♦", "♣"}
)

// cardName renders a 0..51 card code
func cardName(card int) string {
	return cardRanks[card%13] + cardSuits[card/13]
}

func handLine(cards []int) string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = "`" + cardName(c) + "`"
	}
	return strings.Join(names, " ")
}

// buildBlackjackEmbed renders a hand mid-play or after resolution. The
// dealer's hole card stays hidden while the session is pending.
func buildBlackjackEmbed(view *service.SessionView, displayName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Blackjack: %s", displayName),
		Color: 0x2E8B57,
	}

	var state *games.BlackjackState
	if view.State != nil {
		state = view.State.(*games.BlackjackState)
	}

	if state != nil && view.Result == nil {
		embed.Fields = []*discordgo.MessageEmbedField{
			{
				Name:   fmt.Sprintf("Your hand (%d)", games.HandValue(state.Player)),
				Value:  handLine(state.Player),
				Inline: true,
			},
			{
				Name:   "Dealer shows",
				Value:  "`" + cardName(state.Dealer[0]) + "` `??`",
				Inline: true,
			},
		}
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "hit, stand, or double"}
		return embed
	}

	if view.Result != nil {
		result := view.Result
		var verdict string
		switch {
		case result.Effect > 0:
			verdict = fmt.Sprintf("🎉 **Won %s bits** (%.2fx)", FormatBalance(result.Effect), result.Multiplier)
		case result.Effect < 0:
			verdict = fmt.Sprintf("😔 **Lost %s bits**", FormatBalance(-result.Effect))
		default:
			verdict = "🤝 **Push!** Your stake was returned."
		}
		embed.Description = fmt.Sprintf("%s\nNew balance: **%s bits**", verdict, FormatBalance(result.NewBalance))
	}
	return embed
}

// buildMinesEmbed renders the board. Mine positions are only disclosed once
// the session resolved.
func buildMinesEmbed(view *service.SessionView, displayName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Mines: %s", displayName),
		Color: 0x708090,
	}

	var state *games.MinesState
	if view.State != nil {
		state = view.State.(*games.MinesState)
	}

	if state != nil {
		revealed := make(map[int]bool, len(state.Revealed))
		for _, cell := range state.Revealed {
			revealed[cell] = true
		}
		mines := make(map[int]bool, len(state.Mines))
		if view.Result != nil {
			for _, cell := range state.Mines {
				mines[cell] = true
			}
		}

		var board strings.Builder
		perRow := 5
		for cell := 0; cell < state.Size; cell++ {
			switch {
			case mines[cell]:
				board.WriteString("💣")
			case revealed[cell]:
				board.WriteString("✅")
			default:
				board.WriteString("⬜")
			}
			if (cell+1)%perRow == 0 {
				board.WriteString("\n")
			}
		}
		embed.Description = board.String()

		if view.Result == nil {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d mines hidden. Current multiplier: %.2fx", state.MineCount, state.Multiplier()),
			}
		}
	}

	if view.Result != nil {
		result := view.Result
		var verdict string
		switch {
		case result.Effect > 0:
			verdict = fmt.Sprintf("🎉 **Cashed out %s bits** (%.2fx)", FormatBalance(result.Effect), result.Multiplier)
		case result.Effect < 0:
			verdict = fmt.Sprintf("💥 **Hit a mine!** You lost **%s bits**.", FormatBalance(-result.Effect))
		default:
			verdict = "🤝 Stake returned"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Result",
			Value: fmt.Sprintf("%s\nNew balance: **%s bits**", verdict, FormatBalance(result.NewBalance)),
		})
	}
	return embed
}
