package zarr

import (
	"errors"
)

var (
	// ErrKeyNotFound is returned by stores when a key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNodeNotFound is returned when no group or array exists at a path.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotArray is returned when an array was expected but a group was found.
	ErrNotArray = errors.New("not an array")

	// ErrNotGroup is returned when a group was expected but an array was found.
	ErrNotGroup = errors.New("not a group")

	// ErrInvalidSelection is returned for selections that do not fit the
	// array: wrong rank or an index out of bounds.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrUnsupported is returned for metadata this package cannot read.
	ErrUnsupported = errors.New("unsupported zarr feature")

	// ErrReadOnly is returned when writing to a store that cannot be written.
	ErrReadOnly = errors.New("store is read-only")
)

// IsNotFound reports whether err means a key or node does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrNodeNotFound)
}
