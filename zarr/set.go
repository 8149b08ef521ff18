package zarr

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-anndata/internal/codec"
	"github.com/robert-malhotra/go-anndata/internal/dtype"
)

// CreateOptions describes a new array.
type CreateOptions struct {
	Shape      []int
	Chunks     []int // defaults to Shape
	DataType   DataType
	FillValue  any
	Order      string // "C" (default) or "F"
	Compressor map[string]any
	Filters    []map[string]any
	Attrs      Attributes
}

// Create writes array metadata at path and returns the opened array. The
// store must implement Setter.
func Create(ctx context.Context, s Store, path string, opts CreateOptions) (*Array, error) {
	loc := Root(s).Resolve(path)

	chunks := opts.Chunks
	if chunks == nil {
		chunks = make([]int, len(opts.Shape))
		for d, n := range opts.Shape {
			chunks[d] = max(n, 1)
		}
	}
	fill, err := json.Marshal(opts.FillValue)
	if err != nil {
		return nil, fmt.Errorf("creating %s: fill value: %w", loc.Path, err)
	}
	meta := ArrayMetadata{
		ZarrFormat: 2,
		Shape:      slices.Clone(opts.Shape),
		Chunks:     slices.Clone(chunks),
		DType:      opts.DataType.String(),
		FillValue:  fill,
		Order:      opts.Order,
	}
	if opts.Compressor != nil {
		meta.Compressor = opts.Compressor
	}
	for _, f := range opts.Filters {
		meta.Filters = append(meta.Filters, f)
	}
	if opts.DataType.Kind == dtype.Object && len(meta.Filters) == 0 {
		meta.Filters = []codec.Config{{"id": "vlen-utf8"}}
	}

	data, err := meta.marshal()
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", loc.Path, err)
	}
	meta, err = parseArrayMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", loc.Path, err)
	}
	a, err := newArray(loc, meta)
	if err != nil {
		return nil, err
	}

	if err := setKey(ctx, s, loc.Key(arrayKey), data); err != nil {
		return nil, fmt.Errorf("creating %s: %w", loc.Path, err)
	}
	if len(opts.Attrs) > 0 {
		if err := writeAttrs(ctx, loc, opts.Attrs); err != nil {
			return nil, err
		}
		a.attrs = opts.Attrs
	}
	return a, nil
}

// CreateGroup writes a group marker and attributes at path.
func CreateGroup(ctx context.Context, s Store, path string, attrs Attributes) (*Group, error) {
	loc := Root(s).Resolve(path)
	if err := setKey(ctx, s, loc.Key(groupKey), []byte(`{"zarr_format": 2}`)); err != nil {
		return nil, fmt.Errorf("creating %s: %w", loc.Path, err)
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	if len(attrs) > 0 {
		if err := writeAttrs(ctx, loc, attrs); err != nil {
			return nil, err
		}
	}
	return &Group{loc: loc, attrs: attrs}, nil
}

func writeAttrs(ctx context.Context, loc Location, attrs Attributes) error {
	data, err := json.MarshalIndent(attrs, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding attributes of %s: %w", loc.Path, err)
	}
	if err := setKey(ctx, loc.Store, loc.Key(attrsKey), data); err != nil {
		return fmt.Errorf("writing attributes of %s: %w", loc.Path, err)
	}
	return nil
}

// Ephemeral creates an uncompressed single-chunk array in a fresh memory
// store.
func Ephemeral(ctx context.Context, shape []int, dt DataType) (*Array, error) {
	return Create(ctx, NewMemoryStore(), "/", CreateOptions{Shape: shape, DataType: dt})
}

// Set writes value into the selected region of a. value.Shape must equal
// the selection's shape (index axes dropped); value.Stride is honoured, so
// callers may pass data in any layout.
func Set(ctx context.Context, a *Array, value *Chunk, sel ...Selector) error {
	r, err := resolveSelection(a.meta.Shape, sel)
	if err != nil {
		return fmt.Errorf("%s: %w", a.loc.Path, err)
	}
	if !slices.Equal(r.shape(), value.Shape) {
		return fmt.Errorf("%w: value shape %v does not match selection shape %v", ErrInvalidSelection, value.Shape, r.shape())
	}

	// Strides of value over the full rank; index axes never advance.
	srcStride := make([]int, len(r.start))
	stride := value.Stride
	if stride == nil {
		stride = cStrides(value.Shape)
	}
	k := 0
	for d := range srcStride {
		if r.index[d] {
			continue
		}
		srcStride[d] = stride[k]
		k++
	}

	var coordsList [][]int
	forEachChunk(a.meta.Chunks, r, func(coords []int) {
		coordsList = append(coordsList, coords)
	})

	chunkStride := a.chunkStrides()
	for _, coords := range coordsList {
		var buf Buffer
		if a.chunkCovered(coords, r) {
			buf, err = dtype.New(a.dtype, product(a.meta.Chunks))
		} else {
			buf, err = a.readChunk(ctx, coords)
		}
		if err != nil {
			return err
		}

		ndim := len(coords)
		count := make([]int, ndim)
		srcOff, dstOff := 0, 0
		for d := 0; d < ndim; d++ {
			chunkStart := coords[d] * a.meta.Chunks[d]
			lo := max(r.start[d], chunkStart)
			hi := min(r.stop[d], chunkStart+a.meta.Chunks[d])
			count[d] = hi - lo
			srcOff += (lo - r.start[d]) * srcStride[d]
			dstOff += (lo - chunkStart) * chunkStride[d]
		}
		if err := copyStrided(buf, chunkStride, dstOff, value.Data, srcStride, srcOff, count, 0); err != nil {
			return fmt.Errorf("%s: %w", a.loc.Path, err)
		}
		if err := a.writeChunk(ctx, coords, buf); err != nil {
			return err
		}
	}
	return nil
}

// chunkCovered reports whether the selection overwrites the whole chunk.
func (a *Array) chunkCovered(coords []int, r region) bool {
	for d := range coords {
		chunkStart := coords[d] * a.meta.Chunks[d]
		chunkEnd := min(chunkStart+a.meta.Chunks[d], a.meta.Shape[d])
		if r.start[d] > chunkStart || r.stop[d] < chunkEnd {
			return false
		}
		// Edge chunks keep their padding from the fill value.
		if chunkEnd-chunkStart < a.meta.Chunks[d] {
			return false
		}
	}
	return true
}

func (a *Array) writeChunk(ctx context.Context, coords []int, buf Buffer) error {
	var data []byte
	var err error
	if a.dtype.Kind == dtype.Object {
		obj := a.pipeline.Object()
		if obj == nil {
			return fmt.Errorf("%w: object array without an object codec", ErrUnsupported)
		}
		data, err = obj.EncodeStrings(buf.(*dtype.Strings).Values)
	} else {
		data, err = dtype.Encode(buf)
	}
	if err != nil {
		return fmt.Errorf("encoding chunk of %s: %w", a.loc.Path, err)
	}
	if data, err = a.pipeline.Encode(data); err != nil {
		return fmt.Errorf("encoding chunk of %s: %w", a.loc.Path, err)
	}
	key := a.loc.Key(a.meta.chunkKey(coords))
	if err := setKey(ctx, a.loc.Store, key, data); err != nil {
		return fmt.Errorf("writing chunk %s: %w", key, err)
	}
	return nil
}
