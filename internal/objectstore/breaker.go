package objectstore

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker is open and requests to
// the underlying backend are being rejected.
var ErrCircuitOpen = errors.New("objectstore: circuit breaker is open")

// BreakerConfig holds the circuit breaker tuning knobs.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip the
	// circuit. Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before allowing a probe.
	// Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxRequests is the number of probe requests allowed while
	// half-open. Default: 2.
	HalfOpenMaxRequests uint32
}

func (c *BreakerConfig) normalize() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests == 0 {
		c.HalfOpenMaxRequests = 2
	}
}

// breakerBackend decorates a Backend with a circuit breaker so a misbehaving
// remote store fails fast instead of stacking up timed-out calls. The raw
// contract is unchanged: not-found is still a value, and backend errors still
// propagate unmodified — the only new error is ErrCircuitOpen while the
// circuit rejects requests. Wrapping is opt-in.
type breakerBackend struct {
	inner   Backend
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps backend with a circuit breaker.
func WithBreaker(backend Backend, cfg BreakerConfig) Backend {
	cfg.normalize()

	settings := gobreaker.Settings{
		Name:        "objectstore",
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}

	return &breakerBackend{
		inner:   backend,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *breakerBackend) execute(fn func() (any, error)) (any, error) {
	out, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return out, err
}

func (b *breakerBackend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.Put(ctx, key, body, contentType)
	})
	return err
}

type getResult struct {
	data  []byte
	found bool
}

func (b *breakerBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := b.execute(func() (any, error) {
		data, found, err := b.inner.Get(ctx, key)
		return getResult{data: data, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	res := out.(getResult)
	return res.data, res.found, nil
}

func (b *breakerBackend) Delete(ctx context.Context, key string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}

func (b *breakerBackend) List(ctx context.Context, prefix string) ([]string, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.List(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	keys, _ := out.([]string)
	return keys, nil
}
