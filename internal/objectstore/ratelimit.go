package objectstore

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedBackend throttles calls to the underlying backend. Vendor object
// stores rate-limit per bucket; an archival pass touching thousands of
// sessions can trip those limits without a client-side governor. Waiting
// honors the caller's context, so cancellation still works while queued.
type rateLimitedBackend struct {
	inner   Backend
	limiter *rate.Limiter
}

// WithRateLimit wraps backend with a token-bucket limiter of reqPerSec
// sustained requests and the given burst. Wrapping is opt-in.
func WithRateLimit(backend Backend, reqPerSec float64, burst int) Backend {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedBackend{
		inner:   backend,
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

func (r *rateLimitedBackend) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Put(ctx, key, body, contentType)
}

func (r *rateLimitedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	return r.inner.Get(ctx, key)
}

func (r *rateLimitedBackend) Delete(ctx context.Context, key string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Delete(ctx, key)
}

func (r *rateLimitedBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.List(ctx, prefix)
}
