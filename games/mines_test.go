package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMines_ValidatesBoard(t *testing.T) {
	stream := testStream(t)

	_, err := NewMines(stream, 1, 1)
	assert.Error(t, err)

	_, err = NewMines(stream, 25, 0)
	assert.Error(t, err)

	_, err = NewMines(stream, 25, 25)
	assert.Error(t, err)

	board, err := NewMines(stream, 25, 5)
	require.NoError(t, err)
	assert.Len(t, board.Mines, 5)
	assert.Empty(t, board.Revealed)
}

func TestNewMines_MinesAreDistinctCells(t *testing.T) {
	board, err := NewMines(testStream(t), 25, 10)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, m := range board.Mines {
		require.GreaterOrEqual(t, m, 0)
		require.Less(t, m, 25)
		seen[m] = true
	}
	assert.Len(t, seen, 10)
}

func TestMines_PickMineLosesStake(t *testing.T) {
	board := &MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}}

	result, err := board.Pick(3, 100)
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.True(t, result.Hit)
	assert.Equal(t, int64(-100), result.Effect)
}

func TestMines_SafePicksGrowMultiplier(t *testing.T) {
	board := &MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}}

	result, err := board.Pick(0, 100)
	require.NoError(t, err)
	assert.False(t, result.Done)
	// 9/7 after one safe pick of a 9-cell, 2-mine board
	assert.InDelta(t, 9.0/7.0, result.Multiplier, 1e-12)

	result, err = board.Pick(1, 100)
	require.NoError(t, err)
	assert.False(t, result.Done)
	assert.InDelta(t, (9.0/7.0)*(8.0/6.0), result.Multiplier, 1e-12)
}

func TestMines_PickValidation(t *testing.T) {
	board := &MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}, Revealed: []int{0}}

	_, err := board.Pick(-1, 100)
	assert.Error(t, err)

	_, err = board.Pick(9, 100)
	assert.Error(t, err)

	_, err = board.Pick(0, 100)
	assert.Error(t, err, "cell already revealed")
}

func TestMines_CashOutRequiresReveal(t *testing.T) {
	board := &MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}}

	_, err := board.CashOut(100)
	assert.Error(t, err)
}

func TestMines_CashOutPaysMultiplier(t *testing.T) {
	board := &MinesState{Size: 9, MineCount: 2, Mines: []int{3, 7}, Revealed: []int{0, 1}}

	result, err := board.CashOut(100)
	require.NoError(t, err)
	assert.True(t, result.Done)

	multiplier := (9.0 / 7.0) * (8.0 / 6.0)
	want := int64(100*multiplier) - 100
	assert.Equal(t, want, result.Effect)
}

func TestMines_ClearingBoardForcesCashOut(t *testing.T) {
	board := &MinesState{Size: 4, MineCount: 2, Mines: []int{2, 3}}

	result, err := board.Pick(0, 100)
	require.NoError(t, err)
	assert.False(t, result.Done)

	result, err = board.Pick(1, 100)
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.False(t, result.Hit)
	// (4/2)*(3/1) = 6x
	assert.Equal(t, int64(500), result.Effect)
	assert.InDelta(t, 6.0, result.Multiplier, 1e-12)
}
