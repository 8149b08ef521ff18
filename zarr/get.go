package zarr

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-anndata/internal/dtype"
)

// maxConcurrentChunks bounds chunk fetches per Get call.
const maxConcurrentChunks = 16

// Chunk is a block of typed data. Element (i0, i1, ...) is stored at
// Data[i0*Stride[0] + i1*Stride[1] + ...].
type Chunk struct {
	Data   Buffer
	Shape  []int
	Stride []int
}

// Scalar returns the single element of a 0-d chunk.
func (c *Chunk) Scalar() (any, bool) {
	if len(c.Shape) != 0 || c.Data.Len() != 1 {
		return nil, false
	}
	return c.Data.Value(0), true
}

// At returns the element at the given coordinates.
func (c *Chunk) At(coords ...int) any {
	off := 0
	for d, i := range coords {
		off += i * c.Stride[d]
	}
	return c.Data.Value(off)
}

// Len returns the number of elements described by Shape.
func (c *Chunk) Len() int {
	return product(c.Shape)
}

// cStrides returns row-major strides for shape.
func cStrides(shape []int) []int {
	stride := make([]int, len(shape))
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		stride[d] = s
		s *= shape[d]
	}
	return stride
}

// fStrides returns column-major strides for shape.
func fStrides(shape []int) []int {
	stride := make([]int, len(shape))
	s := 1
	for d := range shape {
		stride[d] = s
		s *= shape[d]
	}
	return stride
}

// Get reads the selected region of a. Missing selectors select whole axes;
// index selectors drop their axis. The result is C-contiguous. Selecting an
// index on every axis yields a 0-d chunk.
func Get(ctx context.Context, a *Array, sel ...Selector) (*Chunk, error) {
	r, err := resolveSelection(a.meta.Shape, sel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.loc.Path, err)
	}

	extent := r.extent()
	out, err := dtype.New(a.dtype, product(extent))
	if err != nil {
		return nil, err
	}
	outStride := cStrides(extent)

	shape := r.shape()
	result := &Chunk{Data: out, Shape: shape, Stride: cStrides(shape)}
	if out.Len() == 0 {
		return result, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)
	forEachChunk(a.meta.Chunks, r, func(coords []int) {
		g.Go(func() error {
			src, err := a.readChunk(ctx, coords)
			if err != nil {
				return err
			}
			return copyChunkOverlap(out, outStride, r.start, src, a.chunkStrides(), coords, a.meta.Chunks, r)
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// forEachChunk calls fn with the grid coordinates of every chunk that
// overlaps r. fn receives its own copy of the coordinates.
func forEachChunk(chunks []int, r region, fn func(coords []int)) {
	ndim := len(chunks)
	if ndim == 0 {
		fn([]int{})
		return
	}
	lo := make([]int, ndim)
	hi := make([]int, ndim)
	for d := range chunks {
		if r.stop[d] <= r.start[d] {
			return
		}
		lo[d] = r.start[d] / chunks[d]
		hi[d] = (r.stop[d] - 1) / chunks[d]
	}

	coords := append([]int(nil), lo...)
	for {
		fn(append([]int(nil), coords...))
		d := ndim - 1
		for d >= 0 {
			coords[d]++
			if coords[d] <= hi[d] {
				break
			}
			coords[d] = lo[d]
			d--
		}
		if d < 0 {
			return
		}
	}
}

// chunkStrides returns the element strides of a decoded chunk.
func (a *Array) chunkStrides() []int {
	if a.meta.Order == "F" {
		return fStrides(a.meta.Chunks)
	}
	return cStrides(a.meta.Chunks)
}

// readChunk fetches and decodes one chunk. Missing chunks are filled with
// the fill value.
func (a *Array) readChunk(ctx context.Context, coords []int) (Buffer, error) {
	key := a.loc.Key(a.meta.chunkKey(coords))
	raw, err := a.loc.Store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return a.fillChunk()
		}
		return nil, fmt.Errorf("reading chunk %s: %w", key, err)
	}
	buf, err := a.decodeChunk(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %s: %w", key, err)
	}
	return buf, nil
}

func (a *Array) fillChunk() (Buffer, error) {
	buf, err := dtype.New(a.dtype, product(a.meta.Chunks))
	if err != nil {
		return nil, err
	}
	if a.fill != nil {
		if err := buf.Fill(a.fill); err != nil {
			return nil, fmt.Errorf("%s fill value: %w", a.loc.Path, err)
		}
	}
	return buf, nil
}

func (a *Array) decodeChunk(raw []byte) (Buffer, error) {
	n := product(a.meta.Chunks)
	data, err := a.pipeline.Decode(raw)
	if err != nil {
		return nil, err
	}
	if a.dtype.Kind == dtype.Object {
		obj := a.pipeline.Object()
		if obj == nil {
			return nil, fmt.Errorf("%w: object array without an object codec", ErrUnsupported)
		}
		values, err := obj.DecodeStrings(data)
		if err != nil {
			return nil, err
		}
		if len(values) != n {
			return nil, fmt.Errorf("object chunk holds %d items, want %d", len(values), n)
		}
		return dtype.NewStrings(a.dtype, values), nil
	}
	return dtype.Decode(a.dtype, data, n)
}

// copyChunkOverlap copies the part of chunk coords that lies inside r into
// out, whose origin is r.start.
func copyChunkOverlap(
	out Buffer, outStride, outOrigin []int,
	src Buffer, srcStride []int,
	coords, chunks []int,
	r region,
) error {
	ndim := len(chunks)
	count := make([]int, ndim)
	srcOff, dstOff := 0, 0
	for d := 0; d < ndim; d++ {
		chunkStart := coords[d] * chunks[d]
		lo := max(r.start[d], chunkStart)
		hi := min(r.stop[d], chunkStart+chunks[d])
		count[d] = hi - lo
		srcOff += (lo - chunkStart) * srcStride[d]
		dstOff += (lo - outOrigin[d]) * outStride[d]
	}
	return copyStrided(out, outStride, dstOff, src, srcStride, srcOff, count, 0)
}

// copyStrided copies a count-shaped block between two strided buffers.
// The innermost dimension is copied as one run when both sides are
// contiguous.
func copyStrided(
	dst Buffer, dstStride []int, dstOff int,
	src Buffer, srcStride []int, srcOff int,
	count []int, dim int,
) error {
	if len(count) == 0 {
		return dst.CopyFrom(dstOff, src, srcOff, 1)
	}
	if dim == len(count)-1 {
		n := count[dim]
		if dstStride[dim] == 1 && srcStride[dim] == 1 {
			return dst.CopyFrom(dstOff, src, srcOff, n)
		}
		for i := 0; i < n; i++ {
			if err := dst.CopyFrom(dstOff+i*dstStride[dim], src, srcOff+i*srcStride[dim], 1); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < count[dim]; i++ {
		err := copyStrided(
			dst, dstStride, dstOff+i*dstStride[dim],
			src, srcStride, srcOff+i*srcStride[dim],
			count, dim+1,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
