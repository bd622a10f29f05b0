package selection

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/lexis-api/internal/domain"
)

// Metrics receives one observation per composed batch.
type Metrics interface {
	BatchComposed(categories map[domain.Category]int, shortfall, duplicates int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) BatchComposed(map[domain.Category]int, int, int, time.Duration) {}

// Option configures an ItemSelector or OnboardingSelector.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics Metrics
	seed    *uint64
	now     func() time.Time
}

func defaultOptions() options {
	return options{
		logger:  slog.Default(),
		metrics: noopMetrics{},
		now:     time.Now,
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the batch metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSeed makes option and batch shuffling reproducible. Every call starts
// from the same seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithClock overrides time.Now for recency windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// newRand returns a generator for one call.
func (o options) newRand() *rand.Rand {
	if o.seed != nil {
		return rand.New(rand.NewPCG(*o.seed, *o.seed>>1|1))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
