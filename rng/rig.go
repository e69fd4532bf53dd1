package rng

import (
	"sync"

	"casino/models"
)

// Rig is the administrative bias layer. It produces a house-edge value that
// call sites fold into a game's win-threshold calculation; it never touches
// the deterministic stream itself, so audit replay stays intact whether or
// not the house was leaning on the dial.
type Rig struct {
	mu         sync.RWMutex
	enabled    bool
	globalEdge float64
	gameEdge   map[models.GameKind]float64
}

// NewRig creates a rig with all bias disabled
func NewRig() *Rig {
	return &Rig{
		gameEdge: make(map[models.GameKind]float64),
	}
}

// SetEnabled flips the global switch
func (r *Rig) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// SetGlobalEdge sets the baseline house edge applied to every game.
// Values are clamped to [0, 1).
func (r *Rig) SetGlobalEdge(edge float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalEdge = clampEdge(edge)
}

// SetGameEdge sets a per-game lever that overrides the global dial
func (r *Rig) SetGameEdge(game models.GameKind, edge float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameEdge[game] = clampEdge(edge)
}

// ClearGameEdge removes a per-game lever
func (r *Rig) ClearGameEdge(game models.GameKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.gameEdge, game)
}

// Edge returns the effective house edge for a game, 0 when the rig is off
func (r *Rig) Edge(game models.GameKind) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.enabled {
		return 0
	}
	if edge, ok := r.gameEdge[game]; ok {
		return edge
	}
	return r.globalEdge
}

// WinThreshold applies the edge to a base win probability at the call site
func (r *Rig) WinThreshold(game models.GameKind, baseProbability float64) float64 {
	return baseProbability * (1 - r.Edge(game))
}

func clampEdge(edge float64) float64 {
	if edge < 0 {
		return 0
	}
	if edge >= 1 {
		return 0.99
	}
	return edge
}
