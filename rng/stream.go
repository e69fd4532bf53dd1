// Package rng provides per-account deterministic-but-unpredictable number
// generation. Each account owns a private seed; draws are produced by keyed
// HMAC over a monotonically advancing counter, so a dispute can be replayed
// exactly given the seed and the counter, while players who never see the
// seed cannot predict any draw.
package rng

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Stream is a capability object bound to one seed. It is not safe for
// concurrent use; each command execution works on its own Stream and persists
// the advanced counter back to the account.
type Stream struct {
	key     []byte
	counter uint64
}

// NewStream creates a stream positioned at the given counter. The seed is the
// account's private hex seed.
func NewStream(seed string, counter uint64) (*Stream, error) {
	key, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty seed")
	}
	return &Stream{key: key, counter: counter}, nil
}

// Counter returns the next counter value the stream will consume. Callers
// persist this after drawing so live play never repeats a sub-sequence.
func (s *Stream) Counter() uint64 {
	return s.counter
}

// next derives one 64-bit draw and advances the counter
func (s *Stream) next() uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.counter)
	s.counter++

	mac := hmac.New(sha256.New, s.key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// NextFloat returns a float in [0, 1)
func (s *Stream) NextFloat() float64 {
	// 53 high bits, the same precision float64 can represent exactly
	return float64(s.next()>>11) / (1 << 53)
}

// NextInt returns an int in [min, max). Rejection sampling keeps the
// distribution uniform across the range.
func (s *Stream) NextInt(min, max int) int {
	if max <= min {
		panic(fmt.Sprintf("rng: invalid range [%d, %d)", min, max))
	}
	span := uint64(max - min)
	limit := (^uint64(0) / span) * span
	for {
		v := s.next()
		if v < limit {
			return min + int(v%span)
		}
	}
}

// Shuffle permutes n elements using the stream (Fisher-Yates)
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.NextInt(0, i+1)
		swap(i, j)
	}
}

// NewSeed generates a fresh private account seed
func NewSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
