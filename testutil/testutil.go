// Package testutil provides testing utilities for the matching engine.
//
// This package is intended for use in tests and benchmarks only. Its
// centerpiece is a deterministic Encoder that needs no model: the same text
// always produces the same unit vector, and token overlap between texts
// produces vector similarity, which is enough to exercise ranking behavior.
package testutil

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hirewire/matchengine/internal/hash"
)

// Encoder is a deterministic embedding stand-in. Each token of the input maps
// to a stable pseudo-random direction derived from its content hash; the text
// embedding is the normalized token sum. Texts sharing tokens therefore score
// higher than disjoint ones, and identical texts encode identically.
type Encoder struct {
	Dim int

	// Fail, when set, is returned by Encode instead of a vector.
	Fail error

	mu    sync.Mutex
	calls int
}

// NewEncoder creates a deterministic encoder of the given dimension.
func NewEncoder(dim int) *Encoder {
	return &Encoder{Dim: dim}
}

// Encode implements encoder.Encoder.
func (e *Encoder) Encode(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.Fail
	e.mu.Unlock()

	if fail != nil {
		return nil, fail
	}

	vec := make([]float64, e.Dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		seed := int64(hash.CRC32C([]byte(tok)))
		rng := rand.New(rand.NewSource(seed))
		for i := range vec {
			vec[i] += rng.NormFloat64()
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.Dim)
	if norm == 0 {
		// Whitespace-only input; direction is arbitrary but must be a unit
		// vector.
		out[0] = 1
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Dimension implements encoder.Encoder.
func (e *Encoder) Dimension() int { return e.Dim }

// Calls returns how many times Encode ran, including failed calls.
func (e *Encoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// RNG is a thread-safe seeded random source for generating test vectors.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// FillUniform fills vec with uniform values in [0, 1).
func (r *RNG) FillUniform(vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vec {
		vec[i] = r.rand.Float32()
	}
}

// FillGaussian fills vec with standard normal values.
func (r *RNG) FillGaussian(vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vec {
		vec[i] = float32(r.rand.NormFloat64())
	}
}
