// Package games holds the per-game session state types and rules that drive
// the generic session machinery. Each multi-step game persists its state as a
// tagged JSON blob: a discriminator alongside the payload, decoded back into
// a concrete variant instead of a schema-less map.
package games

import (
	"encoding/json"
	"errors"
	"fmt"

	"casino/models"
)

// ErrCorruptState marks a blob that no longer decodes. The session machinery
// treats this as a forced void completion, never a crash.
var ErrCorruptState = errors.New("corrupt game state")

// State is one game's persisted session state
type State interface {
	Kind() models.GameKind
}

type envelope struct {
	Game  models.GameKind `json:"game"`
	State json.RawMessage `json:"state"`
}

// EncodeState serializes a state variant with its discriminator
func EncodeState(s State) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s state: %w", s.Kind(), err)
	}
	return json.Marshal(envelope{Game: s.Kind(), State: payload})
}

// DecodeState deserializes a blob back into its concrete variant. Any decode
// failure, including an unknown discriminator, reports ErrCorruptState.
func DecodeState(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	var state State
	switch env.Game {
	case models.GameBlackjack:
		state = &BlackjackState{}
	case models.GameMines:
		state = &MinesState{}
	case models.GameRoulette:
		state = &RouletteMeta{}
	default:
		return nil, fmt.Errorf("%w: unknown game %q", ErrCorruptState, env.Game)
	}

	if err := json.Unmarshal(env.State, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return state, nil
}
