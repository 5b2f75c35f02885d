// Package encoder defines the injected text-embedding interface and
// decorators around it.
//
// The engine never owns an embedding model. Callers supply an Encoder backed
// by whatever service produces unit vectors of the engine's dimension; this
// package only shapes the contract: encoding is slow, cancellable and bounded
// by the caller's context, and failures are surfaced, never retried here.
package encoder

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyText is returned when an encoder is asked to embed empty input.
var ErrEmptyText = errors.New("encoder: empty text")

// Encoder converts text into a fixed-dimension embedding vector.
//
// Implementations must return unit (L2-normalized) vectors so that inner
// product equals cosine similarity downstream.
type Encoder interface {
	// Encode embeds text. The context bounds the call; implementations
	// must honor cancellation.
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the width of the vectors this encoder produces.
	Dimension() int
}

// EncodeError wraps a failure of the external encoding service. The engine
// propagates it unchanged; retry policy belongs to calling layers.
type EncodeError struct {
	Err error
}

// Error returns the error message.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoder: encode failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error { return e.Err }

// Func adapts a plain function into an Encoder with a fixed dimension.
type Func struct {
	Fn  func(ctx context.Context, text string) ([]float32, error)
	Dim int
}

// Encode implements Encoder.
func (f Func) Encode(ctx context.Context, text string) ([]float32, error) {
	return f.Fn(ctx, text)
}

// Dimension implements Encoder.
func (f Func) Dimension() int { return f.Dim }
