package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRoulettePick(t *testing.T) {
	assert.True(t, ValidRoulettePick(RoulettePickRed))
	assert.True(t, ValidRoulettePick(RoulettePickBlack))
	assert.True(t, ValidRoulettePick(RoulettePickGreen))
	assert.False(t, ValidRoulettePick("blue"))
	assert.False(t, ValidRoulettePick(""))
}

func TestSpinRoulette_OutcomesAreValidPicks(t *testing.T) {
	stream := testStream(t)

	counts := make(map[string]int)
	for i := 0; i < 3000; i++ {
		outcome := SpinRoulette(stream)
		require.True(t, ValidRoulettePick(outcome))
		counts[outcome]++
	}

	// 1 green, 7 red, 7 black slots: every color must show up, green rarest
	assert.Positive(t, counts[RoulettePickGreen])
	assert.Greater(t, counts[RoulettePickRed], counts[RoulettePickGreen])
	assert.Greater(t, counts[RoulettePickBlack], counts[RoulettePickGreen])
}

func TestSpinRoulette_Deterministic(t *testing.T) {
	a := testStream(t)
	b := testStream(t)

	for i := 0; i < 50; i++ {
		assert.Equal(t, SpinRoulette(a), SpinRoulette(b))
	}
}

func TestRouletteEffect(t *testing.T) {
	tests := []struct {
		name       string
		pick       string
		outcome    string
		amount     int64
		wantEffect int64
		wantMult   float64
	}{
		{"color hit pays double", RoulettePickRed, RoulettePickRed, 100, 100, 2},
		{"color miss loses stake", RoulettePickRed, RoulettePickBlack, 100, -100, 0},
		{"green hit pays fourteen", RoulettePickGreen, RoulettePickGreen, 100, 1300, 14},
		{"green miss", RoulettePickGreen, RoulettePickRed, 100, -100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect, mult, err := RouletteEffect(tt.pick, tt.outcome, tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEffect, effect)
			assert.Equal(t, tt.wantMult, mult)
		})
	}
}

func TestRouletteEffect_InvalidPick(t *testing.T) {
	_, _, err := RouletteEffect("blue", RoulettePickRed, 100)
	assert.Error(t, err)
}
