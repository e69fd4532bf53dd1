package rng

import (
	"testing"

	"casino/models"

	"github.com/stretchr/testify/assert"
)

func TestRig_DisabledHasNoEdge(t *testing.T) {
	rig := NewRig()
	rig.SetGlobalEdge(0.5)
	rig.SetGameEdge(models.GameDice, 0.9)

	// Dials are armed but the switch is off
	assert.Equal(t, 0.0, rig.Edge(models.GameDice))
	assert.Equal(t, 0.25, rig.WinThreshold(models.GameDice, 0.25))
}

func TestRig_GlobalEdge(t *testing.T) {
	rig := NewRig()
	rig.SetEnabled(true)
	rig.SetGlobalEdge(0.1)

	assert.Equal(t, 0.1, rig.Edge(models.GameDice))
	assert.Equal(t, 0.1, rig.Edge(models.GameCoinflip))
	assert.InDelta(t, 0.45, rig.WinThreshold(models.GameCoinflip, 0.5), 1e-12)
}

func TestRig_PerGameLeverOverridesGlobal(t *testing.T) {
	rig := NewRig()
	rig.SetEnabled(true)
	rig.SetGlobalEdge(0.1)
	rig.SetGameEdge(models.GameDice, 0.3)

	assert.Equal(t, 0.3, rig.Edge(models.GameDice))
	assert.Equal(t, 0.1, rig.Edge(models.GameCoinflip))

	rig.ClearGameEdge(models.GameDice)
	assert.Equal(t, 0.1, rig.Edge(models.GameDice))
}

func TestRig_ClampsEdge(t *testing.T) {
	rig := NewRig()
	rig.SetEnabled(true)

	rig.SetGlobalEdge(-0.5)
	assert.Equal(t, 0.0, rig.Edge(models.GameDice))

	rig.SetGlobalEdge(1.5)
	assert.Equal(t, 0.99, rig.Edge(models.GameDice))
}
