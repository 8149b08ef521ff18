package anndata

import (
	"context"
	"fmt"

	"github.com/robert-malhotra/go-anndata/zarr"
)

// Kind identifies the variant of an Element.
type Kind int

const (
	KindArray Kind = iota + 1
	KindSparse
	KindCategorical
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindSparse:
		return "sparse"
	case KindCategorical:
		return "categorical"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Element is a resolved node. The implementations are *Array,
// *SparseMatrix, *Categorical and *AxisArrays; switch on Kind or on the
// concrete type.
type Element interface {
	Kind() Kind
	Path() string

	element()
}

// View is an Element that can be read with a selection. *Array,
// *SparseMatrix and *Categorical implement it.
type View interface {
	Element
	Get(ctx context.Context, sel ...zarr.Selector) (Value, error)
}

// Value is the result of a selection. Chunk is nil when every axis was
// selected by index, in which case Scalar holds the element. A missing
// categorical value is a nil Scalar.
type Value struct {
	Chunk  *zarr.Chunk
	Scalar any
}

// IsScalar reports whether the value is a single element.
func (v Value) IsScalar() bool {
	return v.Chunk == nil
}

// Get reads a selection from e, which must be a View.
func Get(ctx context.Context, e Element, sel ...zarr.Selector) (Value, error) {
	if e == nil {
		return Value{}, fmt.Errorf("%w: nil element", ErrInvalidSelection)
	}
	v, ok := e.(View)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s is a %s and cannot be read with a selection", ErrInvalidSelection, e.Path(), e.Kind())
	}
	return v.Get(ctx, sel...)
}

// Array is a plain dense array.
type Array struct {
	arr *zarr.Array
}

func (*Array) element()       {}
func (*Array) Kind() Kind     { return KindArray }
func (a *Array) Path() string { return a.arr.Path() }

// Zarr returns the underlying zarr array.
func (a *Array) Zarr() *zarr.Array { return a.arr }

// Shape returns the array dimensions.
func (a *Array) Shape() []int { return a.arr.Shape() }

// DataType returns the element type.
func (a *Array) DataType() zarr.DataType { return a.arr.DataType() }

// Get reads the selected region.
func (a *Array) Get(ctx context.Context, sel ...zarr.Selector) (Value, error) {
	c, err := zarr.Get(ctx, a.arr, sel...)
	if err != nil {
		return Value{}, err
	}
	return unwrapScalar(c, sel, a.arr.NDim()), nil
}

// fullyIndexed reports whether sel picks a single element of an ndim array.
func fullyIndexed(sel []zarr.Selector, ndim int) bool {
	if len(sel) != ndim {
		return false
	}
	for _, s := range sel {
		if !s.IsIndex() {
			return false
		}
	}
	return true
}

func unwrapScalar(c *zarr.Chunk, sel []zarr.Selector, ndim int) Value {
	if fullyIndexed(sel, ndim) && c.Data.Len() == 1 {
		return Value{Scalar: c.Data.Value(0)}
	}
	return Value{Chunk: c}
}
