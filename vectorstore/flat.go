// Package vectorstore provides the flat exact-search vector index.
//
// The store is an append-only list of fixed-dimension vectors addressed by
// position. Search is an exact inner-product scan over the whole list; there
// is no approximate structure and no partial-delete primitive. Deletion is
// the owner's job: it rebuilds the store wholesale from surviving records.
package vectorstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hirewire/matchengine/distance"
)

// ErrEmptyVector is returned when an empty vector is inserted or queried.
var ErrEmptyVector = fmt.Errorf("vectorstore: empty vector")

// ErrZeroVector is returned when a vector of zero L2 norm cannot be normalized.
var ErrZeroVector = fmt.Errorf("vectorstore: zero-norm vector")

// ErrInvalidK is returned when a search is requested with k <= 0.
var ErrInvalidK = fmt.Errorf("vectorstore: k must be positive")

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Candidate is one scored position from a search.
type Candidate struct {
	// Pos is the vector's position in the store (insertion order).
	Pos uint32

	// Score is the inner product of the unit query and the stored unit
	// vector, so it lies in [-1, 1].
	Score float32
}

// Options contains configuration options for the flat store.
type Options struct {
	// Metric selects the similarity function. Only dot/cosine is supported
	// by the matching engine; L2 exists for standalone use.
	Metric distance.Metric

	// NormalizeVectors enables L2 normalization of stored vectors and
	// queries so that inner product equals cosine similarity.
	NormalizeVectors bool
}

// DefaultOptions contains the default configuration options for the flat store.
var DefaultOptions = Options{
	Metric:           distance.MetricCosine,
	NormalizeVectors: true,
}

// Flat is the exact inner-product index over a flat vector list.
//
// All methods are safe for concurrent use; mutations serialize on an internal
// mutex while reads take the read lock.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	count     int
	data      []float32 // contiguous row-major storage, count*dimension long
	simFunc   distance.Func
	opts      Options
}

// New creates a new flat store with a fixed dimension.
func New(dimension int, optFns ...func(o *Options)) (*Flat, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vectorstore: dimension must be positive, got %d", dimension)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	simFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Flat{
		dimension: dimension,
		simFunc:   simFunc,
		opts:      opts,
	}, nil
}

// Dimension returns the fixed vector dimensionality of the store.
func (f *Flat) Dimension() int { return f.dimension }

// Size returns the number of stored vectors.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Add appends a vector and returns its position.
//
// The vector is copied; the caller keeps ownership of v. A vector whose
// dimension does not match the store's is rejected, never padded or
// truncated.
func (f *Flat) Add(ctx context.Context, v []float32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, ErrEmptyVector
	}
	if len(v) != f.dimension {
		return 0, &ErrDimensionMismatch{Expected: f.dimension, Actual: len(v)}
	}

	vec := v
	if f.opts.NormalizeVectors {
		norm, ok := distance.NormalizeL2Copy(v)
		if !ok {
			return 0, ErrZeroVector
		}
		vec = norm
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pos := uint32(f.count)
	f.data = append(f.data, vec...)
	f.count++
	return pos, nil
}

// Vector returns the stored vector at pos.
//
// The returned slice aliases internal storage and must be treated as
// read-only; copy it before mutating.
func (f *Flat) Vector(pos uint32) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if int(pos) >= f.count {
		return nil, false
	}
	start := int(pos) * f.dimension
	return f.data[start : start+f.dimension : start+f.dimension], true
}

// Search scans every stored vector and returns up to k candidates ordered by
// descending score, ties broken by lowest position. Searching an empty store
// returns an empty result, not an error.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if len(query) != f.dimension {
		return nil, &ErrDimensionMismatch{Expected: f.dimension, Actual: len(query)}
	}

	q := query
	if f.opts.NormalizeVectors {
		norm, ok := distance.NormalizeL2Copy(query)
		if !ok {
			return nil, ErrZeroVector
		}
		q = norm
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.count == 0 {
		return []Candidate{}, nil
	}

	candidates := make([]Candidate, f.count)
	for pos := 0; pos < f.count; pos++ {
		start := pos * f.dimension
		row := f.data[start : start+f.dimension]
		candidates[pos] = Candidate{Pos: uint32(pos), Score: f.simFunc(q, row)}
	}

	// Candidates are generated in position order, so a stable sort on score
	// alone yields the lowest-position-wins tie break.
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// Clear removes every vector, keeping the configured dimension.
func (f *Flat) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	f.count = 0
}

// Rows returns a copy of all stored vectors in position order.
// Used by the persistence layer when serializing the index artifact.
func (f *Flat) Rows() [][]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rows := make([][]float32, f.count)
	for pos := 0; pos < f.count; pos++ {
		start := pos * f.dimension
		row := make([]float32, f.dimension)
		copy(row, f.data[start:start+f.dimension])
		rows[pos] = row
	}
	return rows
}

// Options returns the store's configuration.
func (f *Flat) Options() Options { return f.opts }
