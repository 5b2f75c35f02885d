package encoder

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps an Encoder with a token-bucket limiter so bursts of
// indexing traffic cannot overload the external embedding service.
type RateLimited struct {
	inner   Encoder
	limiter *rate.Limiter
}

// NewRateLimited creates a rate-limited encoder. limit is calls per second,
// burst is the bucket size.
func NewRateLimited(inner Encoder, limit rate.Limit, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Encode waits for a token (or context cancellation) and delegates.
func (r *RateLimited) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Encode(ctx, text)
}

// Dimension implements Encoder.
func (r *RateLimited) Dimension() int { return r.inner.Dimension() }
