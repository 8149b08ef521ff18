package zarr

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/robert-malhotra/go-anndata/internal/metrics"
)

// InstrumentedStore counts the reads made through it, both per key and in
// the process metrics under the given store name.
type InstrumentedStore struct {
	name  string
	inner Store

	mu    sync.Mutex
	reads map[string]int
}

// NewInstrumentedStore wraps inner.
func NewInstrumentedStore(name string, inner Store) *InstrumentedStore {
	return &InstrumentedStore{name: name, inner: inner, reads: make(map[string]int)}
}

// Get reads key from the inner store and records the outcome.
func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.reads[key]++
	s.mu.Unlock()

	data, err := s.inner.Get(ctx, key)
	switch {
	case err == nil:
		metrics.StoreRequests.WithLabelValues(s.name, "hit").Inc()
		metrics.StoreBytes.WithLabelValues(s.name).Add(float64(len(data)))
	case errors.Is(err, ErrKeyNotFound):
		metrics.StoreRequests.WithLabelValues(s.name, "miss").Inc()
	default:
		metrics.StoreRequests.WithLabelValues(s.name, "error").Inc()
	}
	return data, err
}

// ListDir lists the inner store.
func (s *InstrumentedStore) ListDir(ctx context.Context, prefix string) ([]string, error) {
	return listDir(ctx, s.inner, prefix)
}

// Set writes through to the inner store.
func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	return setKey(ctx, s.inner, key, value)
}

// Reads returns how often key was read.
func (s *InstrumentedStore) Reads(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[key]
}

// ReadsWithPrefix returns the total reads of keys starting with prefix.
func (s *InstrumentedStore) ReadsWithPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, c := range s.reads {
		if strings.HasPrefix(k, prefix) {
			n += c
		}
	}
	return n
}

// Keys returns the keys read so far, sorted.
func (s *InstrumentedStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.reads))
	for k := range s.reads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears the per-key counts.
func (s *InstrumentedStore) Reset() {
	s.mu.Lock()
	s.reads = make(map[string]int)
	s.mu.Unlock()
}
