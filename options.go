package matchengine

import (
	"time"

	"github.com/hirewire/matchengine/persistence"
	"github.com/hirewire/matchengine/scorer"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	weights          scorer.Weights
	manager          *persistence.Manager
	cacheSize        int
	now              func() time.Time
}

// Option configures engine constructor behavior.
type Option func(*options)

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		o.metricsCollector = collector
	}
}

// WithWeights overrides the hybrid scoring blend. Weights are accepted as
// given; the engine does not validate that they sum to 1.
func WithWeights(w scorer.Weights) Option {
	return func(o *options) {
		o.weights = w
	}
}

// WithPersistence configures durable storage. Without it the engine is
// ephemeral: state lives only in memory and Load is a no-op.
func WithPersistence(m *persistence.Manager) Option {
	return func(o *options) {
		o.manager = m
	}
}

// WithCacheSize bounds the embedding cache to n entries. n <= 0 leaves the
// cache unbounded.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithClock overrides the time source used for recency scoring. Intended for
// tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now == nil {
			now = time.Now
		}
		o.now = now
	}
}
