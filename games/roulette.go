package games

import (
	"fmt"

	"casino/models"
	"casino/rng"
)

// Roulette runs on a 15-slot color wheel: one green slot, seven red, seven
// black. Color bets pay 2x, green pays 14x.
const rouletteSlots = 15

// Roulette picks
const (
	RoulettePickRed   = "red"
	RoulettePickBlack = "black"
	RoulettePickGreen = "green"
)

// RouletteMeta is the blob stored on a round participant's pending wager. It
// exists so a crash between round creation and resolution leaves enough to
// identify and refund orphaned bets.
type RouletteMeta struct {
	RoundID string `json:"round_id"`
	Pick    string `json:"pick"`
}

// Kind returns the game discriminator
func (s *RouletteMeta) Kind() models.GameKind {
	return models.GameRoulette
}

// ValidRoulettePick reports whether a pick names a bettable color
func ValidRoulettePick(pick string) bool {
	switch pick {
	case RoulettePickRed, RoulettePickBlack, RoulettePickGreen:
		return true
	}
	return false
}

// SpinRoulette draws the winning slot once and returns its color. Callers
// apply the same draw to every admitted bet.
func SpinRoulette(stream *rng.Stream) string {
	slot := stream.NextInt(0, rouletteSlots)
	switch {
	case slot == 0:
		return RoulettePickGreen
	case slot <= 7:
		return RoulettePickRed
	default:
		return RoulettePickBlack
	}
}

// RouletteEffect computes one bet's net effect against the shared outcome
func RouletteEffect(pick, outcome string, amount int64) (int64, float64, error) {
	if !ValidRoulettePick(pick) {
		return 0, 0, fmt.Errorf("invalid pick %q", pick)
	}
	if pick != outcome {
		return -amount, 0, nil
	}
	mult := 2.0
	if pick == RoulettePickGreen {
		mult = 14.0
	}
	return int64(float64(amount)*mult) - amount, mult, nil
}
