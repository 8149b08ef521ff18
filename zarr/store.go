package zarr

import (
	"context"
)

// Store is a key-value source of zarr metadata and chunks. Keys are
// "/"-separated and never start with "/".
//
// Implementations return an error satisfying errors.Is(err, ErrKeyNotFound)
// for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Lister is implemented by stores that can enumerate keys.
type Lister interface {
	// ListDir returns the sorted names directly below prefix ("" for the
	// store root). Names are single path segments.
	ListDir(ctx context.Context, prefix string) ([]string, error)
}

// Setter is implemented by writable stores.
type Setter interface {
	Set(ctx context.Context, key string, value []byte) error
}

func listDir(ctx context.Context, s Store, prefix string) ([]string, error) {
	l, ok := s.(Lister)
	if !ok {
		return nil, ErrUnsupported
	}
	return l.ListDir(ctx, prefix)
}

func setKey(ctx context.Context, s Store, key string, value []byte) error {
	w, ok := s.(Setter)
	if !ok {
		return ErrReadOnly
	}
	return w.Set(ctx, key, value)
}
