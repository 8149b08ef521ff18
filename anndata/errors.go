// Package anndata provides lazy, read-only access to AnnData datasets stored
// in Zarr v2 hierarchies.
//
// A dataset is opened with [Read]. Its eight slots (obs, var, obsm, varm, X,
// layers, obsp, varp) are resolved up front; everything below them is
// resolved on first access and cached per collection. No array data is read
// until a selection is made with [View.Get].
package anndata

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-anndata/zarr"
)

var (
	// ErrNotFound is returned when a key or path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat is returned for nodes whose encoding tag is not
	// known, or whose layout does not match their tag.
	ErrUnsupportedFormat = errors.New("unsupported encoding")

	// ErrInvalidSelection is returned for malformed selections.
	ErrInvalidSelection = zarr.ErrInvalidSelection

	// ErrUnrecognizedCategory is returned when a categorical code cannot be
	// decoded.
	ErrUnrecognizedCategory = errors.New("unrecognized category")
)

// KeyError reports a key missing from a collection.
type KeyError struct {
	Collection string
	Key        string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s has no key: %q", e.Collection, e.Key)
}

func (e *KeyError) Unwrap() error { return ErrNotFound }

// FormatError reports a node that cannot be interpreted.
type FormatError struct {
	Path    string
	Type    string
	Version string
	Reason  string
}

func (e *FormatError) Error() string {
	if e.Type == "" && e.Version == "" {
		return fmt.Sprintf("%s: %v: %s", e.Path, ErrUnsupportedFormat, e.Reason)
	}
	return fmt.Sprintf("%s: %v (%q, %q): %s", e.Path, ErrUnsupportedFormat, e.Type, e.Version, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrUnsupportedFormat }

// CategoryError reports a categorical code that has no category.
type CategoryError struct {
	Path string
	Code int64
	// Categories is the number of categories, or -1 when the categories
	// dtype cannot be decoded at all.
	Categories int
	DataType   zarr.DataType
}

func (e *CategoryError) Error() string {
	if e.Categories < 0 {
		return fmt.Sprintf("%s: %v: categories of dtype %s cannot be decoded", e.Path, ErrUnrecognizedCategory, e.DataType)
	}
	return fmt.Sprintf("%s: %v: code %d out of range for %d categories", e.Path, ErrUnrecognizedCategory, e.Code, e.Categories)
}

func (e *CategoryError) Unwrap() error { return ErrUnrecognizedCategory }
