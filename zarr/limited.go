package zarr

import (
	"context"

	"golang.org/x/time/rate"
)

// LimitedStore throttles reads of an inner store to a request rate.
type LimitedStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewLimitedStore allows rps reads per second with bursts of burst reads.
func NewLimitedStore(inner Store, rps float64, burst int) *LimitedStore {
	return &LimitedStore{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1))}
}

// Get waits for the limiter and reads key.
func (s *LimitedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

// ListDir waits for the limiter and lists the inner store.
func (s *LimitedStore) ListDir(ctx context.Context, prefix string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return listDir(ctx, s.inner, prefix)
}
