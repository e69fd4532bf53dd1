package games

import (
	"fmt"

	"casino/models"
	"casino/rng"
)

// Cards are encoded 0..51; rank = card % 13 with 0 = two and 12 = ace.
const deckSize = 52

// BlackjackState is the persisted session state for one blackjack hand
type BlackjackState struct {
	Deck    []int `json:"deck"`
	Player  []int `json:"player"`
	Dealer  []int `json:"dealer"`
	Doubled bool  `json:"doubled"`
}

// Kind returns the game discriminator
func (s *BlackjackState) Kind() models.GameKind {
	return models.GameBlackjack
}

// BlackjackResult describes the outcome of one player action
type BlackjackResult struct {
	Done       bool
	Effect     int64 // net effect relative to the original stake
	Multiplier float64
	ExtraStake int64 // additional stake to debit (double down)
}

// NewBlackjack shuffles a fresh deck from the player's stream and deals the
// opening hands. A natural 21 resolves immediately at 3:2.
func NewBlackjack(stream *rng.Stream, amount int64) (*BlackjackState, *BlackjackResult) {
	deck := make([]int, deckSize)
	for i := range deck {
		deck[i] = i
	}
	stream.Shuffle(deckSize, func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	state := &BlackjackState{Deck: deck}
	state.Player = append(state.Player, state.draw(), state.draw())
	state.Dealer = append(state.Dealer, state.draw(), state.draw())

	if HandValue(state.Player) == 21 {
		if HandValue(state.Dealer) == 21 {
			return state, &BlackjackResult{Done: true, Effect: 0, Multiplier: 1}
		}
		// Natural pays 3:2
		return state, &BlackjackResult{Done: true, Effect: amount + amount/2, Multiplier: 2.5}
	}
	return state, nil
}

// Hit draws one card for the player. A bust resolves the hand as a loss.
func (s *BlackjackState) Hit(amount int64) (*BlackjackResult, error) {
	if s.Doubled {
		return nil, fmt.Errorf("cannot hit after doubling down")
	}
	s.Player = append(s.Player, s.draw())
	if HandValue(s.Player) > 21 {
		return &BlackjackResult{Done: true, Effect: -amount, Multiplier: 0}, nil
	}
	return &BlackjackResult{Done: false}, nil
}

// Stand ends the player's turn, plays out the dealer, and settles the hand
func (s *BlackjackState) Stand(amount int64) (*BlackjackResult, error) {
	s.playDealer()
	return s.settle(amount), nil
}

// Double doubles the stake, draws exactly one card, and settles. The caller
// must debit ExtraStake before the result effect applies; an account without
// the extra funds cannot double.
func (s *BlackjackState) Double(amount int64) (*BlackjackResult, error) {
	if s.Doubled {
		return nil, fmt.Errorf("already doubled down")
	}
	if len(s.Player) != 2 {
		return nil, fmt.Errorf("can only double on the opening hand")
	}
	s.Doubled = true
	s.Player = append(s.Player, s.draw())

	total := amount * 2
	if HandValue(s.Player) > 21 {
		return &BlackjackResult{Done: true, Effect: -total, Multiplier: 0, ExtraStake: amount}, nil
	}
	s.playDealer()
	result := s.settle(total)
	result.ExtraStake = amount
	return result, nil
}

func (s *BlackjackState) draw() int {
	card := s.Deck[0]
	s.Deck = s.Deck[1:]
	return card
}

// playDealer draws for the dealer until 17 or better
func (s *BlackjackState) playDealer() {
	for HandValue(s.Dealer) < 17 {
		s.Dealer = append(s.Dealer, s.draw())
	}
}

func (s *BlackjackState) settle(stake int64) *BlackjackResult {
	player := HandValue(s.Player)
	dealer := HandValue(s.Dealer)

	switch {
	case dealer > 21 || player > dealer:
		return &BlackjackResult{Done: true, Effect: stake, Multiplier: 2}
	case player == dealer:
		return &BlackjackResult{Done: true, Effect: 0, Multiplier: 1}
	default:
		return &BlackjackResult{Done: true, Effect: -stake, Multiplier: 0}
	}
}

// HandValue scores a blackjack hand, counting aces as 11 where they fit
func HandValue(cards []int) int {
	value := 0
	aces := 0
	for _, c := range cards {
		rank := c % 13
		switch {
		case rank == 12: // ace
			value += 11
			aces++
		case rank >= 8: // ten through king
			value += 10
		default:
			value += rank + 2
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}
