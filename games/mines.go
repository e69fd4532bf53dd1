package games

import (
	"fmt"

	"casino/models"
	"casino/rng"
)

// MinesState is the persisted session state for one mines board
type MinesState struct {
	Size      int   `json:"size"` // cells per board
	MineCount int   `json:"mine_count"`
	Mines     []int `json:"mines"`
	Revealed  []int `json:"revealed"`
}

// Kind returns the game discriminator
func (s *MinesState) Kind() models.GameKind {
	return models.GameMines
}

// MinesResult describes the outcome of one pick or cash-out
type MinesResult struct {
	Done       bool
	Effect     int64
	Multiplier float64
	Hit        bool // picked cell held a mine
}

// NewMines lays out a fresh board from the player's stream
func NewMines(stream *rng.Stream, size, mineCount int) (*MinesState, error) {
	if size < 2 || mineCount < 1 || mineCount >= size {
		return nil, fmt.Errorf("invalid board: %d cells, %d mines", size, mineCount)
	}

	cells := make([]int, size)
	for i := range cells {
		cells[i] = i
	}
	stream.Shuffle(size, func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})

	return &MinesState{
		Size:      size,
		MineCount: mineCount,
		Mines:     cells[:mineCount],
	}, nil
}

// Pick reveals one cell. A mine resolves the board as a total loss; a safe
// cell grows the multiplier and keeps the session pending.
func (s *MinesState) Pick(cell int, amount int64) (*MinesResult, error) {
	if cell < 0 || cell >= s.Size {
		return nil, fmt.Errorf("cell %d out of range", cell)
	}
	for _, r := range s.Revealed {
		if r == cell {
			return nil, fmt.Errorf("cell %d already revealed", cell)
		}
	}

	for _, m := range s.Mines {
		if m == cell {
			return &MinesResult{Done: true, Effect: -amount, Multiplier: 0, Hit: true}, nil
		}
	}

	s.Revealed = append(s.Revealed, cell)
	if len(s.Revealed) == s.Size-s.MineCount {
		// Board cleared, forced cash-out
		return s.cashOut(amount), nil
	}
	return &MinesResult{Done: false, Multiplier: s.Multiplier()}, nil
}

// CashOut settles the board at the current multiplier. At least one cell must
// be revealed first.
func (s *MinesState) CashOut(amount int64) (*MinesResult, error) {
	if len(s.Revealed) == 0 {
		return nil, fmt.Errorf("nothing revealed yet")
	}
	return s.cashOut(amount), nil
}

func (s *MinesState) cashOut(amount int64) *MinesResult {
	mult := s.Multiplier()
	payout := int64(float64(amount) * mult)
	return &MinesResult{Done: true, Effect: payout - amount, Multiplier: mult}
}

// Multiplier returns the fair payout multiplier after the current run of safe
// picks: the inverse of the probability of surviving them all.
func (s *MinesState) Multiplier() float64 {
	mult := 1.0
	for i := 0; i < len(s.Revealed); i++ {
		mult *= float64(s.Size-i) / float64(s.Size-s.MineCount-i)
	}
	return mult
}
