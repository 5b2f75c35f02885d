package matchengine

import (
	"errors"
	"fmt"

	"github.com/hirewire/matchengine/embedcache"
	"github.com/hirewire/matchengine/encoder"
	"github.com/hirewire/matchengine/vectorstore"
)

var (
	// ErrNoCandidates is returned when a search runs against an empty engine.
	ErrNoCandidates = errors.New("no candidates indexed")

	// ErrInvalidTopK is returned when a search requests a non-positive
	// number of results.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrEmptyKey is returned when an index request carries no business key.
	ErrEmptyKey = errors.New("record key must not be empty")

	// ErrEmptyText is returned when a record or query has no usable text.
	ErrEmptyText = errors.New("text must not be empty")

	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("engine is closed")
)

// ErrInvalidRecordType indicates an index or search request with a record
// type the engine does not know.
type ErrInvalidRecordType struct {
	Type string
}

func (e *ErrInvalidRecordType) Error() string {
	return fmt.Sprintf("invalid record type: %q", e.Type)
}

// ErrDimensionMismatch indicates the encoder produced a vector of the wrong
// dimensionality.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError lifts lower-layer errors into the engine's taxonomy so
// callers only ever match against this package's errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, embedcache.ErrEmptyText) || errors.Is(err, encoder.ErrEmptyText) {
		return fmt.Errorf("%w: %w", ErrEmptyText, err)
	}

	var dm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
