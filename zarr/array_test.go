package zarr

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-anndata/internal/dtype"
)

func int32Chunk(shape []int, values []int32) *Chunk {
	return &Chunk{
		Data:   dtype.NewNumeric(dtype.Int32Type, values),
		Shape:  shape,
		Stride: cStrides(shape),
	}
}

func newTestArray(t *testing.T, s Store, path string, opts CreateOptions) *Array {
	t.Helper()
	a, err := Create(context.Background(), s, path, opts)
	require.NoError(t, err)
	return a
}

func TestGetAcrossChunks(t *testing.T) {
	compressors := map[string]map[string]any{
		"raw":   nil,
		"zlib":  {"id": "zlib", "level": 1},
		"zstd":  {"id": "zstd", "level": 3},
		"blosc": {"id": "blosc", "cname": "lz4", "clevel": 5, "shuffle": 1},
	}

	for name, compressor := range compressors {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := newTestArray(t, NewMemoryStore(), "m", CreateOptions{
				Shape:      []int{5, 4},
				Chunks:     []int{2, 3},
				DataType:   dtype.Int32Type,
				Compressor: compressor,
			})

			values := make([]int32, 20)
			for i := range values {
				values[i] = int32(i)
			}
			require.NoError(t, Set(ctx, a, int32Chunk([]int{5, 4}, values)))

			all, err := Get(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, []int{5, 4}, all.Shape)
			assert.Equal(t, []int{4, 1}, all.Stride)
			assert.Equal(t, values, all.Data.(*Numeric[int32]).Values)

			row, err := Get(ctx, a, At(1), Range(1, 4))
			require.NoError(t, err)
			assert.Equal(t, []int{3}, row.Shape)
			assert.Equal(t, []int32{5, 6, 7}, row.Data.(*Numeric[int32]).Values)

			col, err := Get(ctx, a, From(-2), At(-1))
			require.NoError(t, err)
			assert.Equal(t, []int32{15, 19}, col.Data.(*Numeric[int32]).Values)

			scalar, err := Get(ctx, a, At(2), At(3))
			require.NoError(t, err)
			v, ok := scalar.Scalar()
			require.True(t, ok)
			assert.Equal(t, int32(11), v)
		})
	}
}

func TestGetSelectionErrors(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, NewMemoryStore(), "v", CreateOptions{Shape: []int{3}, DataType: dtype.Float64Type})

	_, err := Get(ctx, a, At(3))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = Get(ctx, a, All(), All())
	assert.ErrorIs(t, err, ErrInvalidSelection)

	empty, err := Get(ctx, a, Range(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, empty.Shape)
}

func TestMissingChunksUseFillValue(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, NewMemoryStore(), "f", CreateOptions{
		Shape:     []int{4},
		Chunks:    []int{2},
		DataType:  dtype.Float64Type,
		FillValue: 7,
	})
	require.NoError(t, Set(ctx, a, &Chunk{
		Data:  dtype.NewNumeric(dtype.Float64Type, []float64{1.5}),
		Shape: []int{1},
	}, Range(3, 4)))

	c, err := Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 7, 7, 1.5}, c.Data.(*Numeric[float64]).Values)
}

func TestNaNFillValue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "n/.zarray", []byte(`{
		"zarr_format": 2, "shape": [2], "chunks": [2], "dtype": "<f4",
		"compressor": null, "fill_value": "NaN", "order": "C", "filters": null
	}`)))

	a, err := OpenArray(ctx, Root(s).Resolve("n"))
	require.NoError(t, err)
	c, err := Get(ctx, a)
	require.NoError(t, err)
	for _, v := range c.Data.(*Numeric[float32]).Values {
		assert.True(t, math.IsNaN(float64(v)))
	}
}

func TestFortranOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := newTestArray(t, s, "f", CreateOptions{
		Shape:    []int{3, 2},
		DataType: dtype.Uint8Type,
		Order:    "F",
	})
	require.NoError(t, Set(ctx, a, &Chunk{
		Data:  dtype.NewNumeric(dtype.Uint8Type, []uint8{1, 2, 3, 4, 5, 6}),
		Shape: []int{3, 2},
	}))

	raw, err := s.Get(ctx, "f/0.0")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 3, 5, 2, 4, 6}, raw)

	c, err := Get(ctx, a, All(), At(1))
	require.NoError(t, err)
	assert.Equal(t, []uint8{2, 4, 6}, c.Data.(*Numeric[uint8]).Values)
}

func TestSetHonoursValueStride(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, NewMemoryStore(), "t", CreateOptions{Shape: []int{2, 3}, DataType: dtype.Int32Type})

	// Column-major source data.
	require.NoError(t, Set(ctx, a, &Chunk{
		Data:   dtype.NewNumeric(dtype.Int32Type, []int32{0, 3, 1, 4, 2, 5}),
		Shape:  []int{2, 3},
		Stride: []int{1, 2},
	}))

	c, err := Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, c.Data.(*Numeric[int32]).Values)
}

func TestSetShapeMismatch(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, NewMemoryStore(), "t", CreateOptions{Shape: []int{4}, DataType: dtype.Int32Type})
	err := Set(ctx, a, int32Chunk([]int{3}, []int32{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestObjectStrings(t *testing.T) {
	ctx := context.Background()
	a := newTestArray(t, NewMemoryStore(), "s", CreateOptions{
		Shape:    []int{3},
		Chunks:   []int{2},
		DataType: dtype.ObjectType,
	})
	require.NoError(t, Set(ctx, a, &Chunk{
		Data:  dtype.NewStrings(dtype.ObjectType, []string{"a", "bb", "ccc"}),
		Shape: []int{3},
	}))

	c, err := Get(ctx, a, Range(1, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "ccc"}, c.Data.(*Strings).Values)
	assert.Equal(t, "vlen-utf8", a.Metadata().Filters[0].ID())
}

func TestEphemeral(t *testing.T) {
	ctx := context.Background()
	a, err := Ephemeral(ctx, []int{2, 2}, dtype.Float32Type)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, a.Chunks())
	assert.Equal(t, "/", a.Path())

	require.NoError(t, Set(ctx, a, &Chunk{
		Data:  dtype.NewNumeric(dtype.Float32Type, []float32{1}),
		Shape: []int{},
	}, At(1), At(0)))
	c, err := Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1, 0}, c.Data.(*Numeric[float32]).Values)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := CreateGroup(ctx, s, "/", Attributes{"encoding-type": "anndata"})
	require.NoError(t, err)
	_, err = CreateGroup(ctx, s, "obs", nil)
	require.NoError(t, err)
	newTestArray(t, s, "obs/_index", CreateOptions{
		Shape:    []int{2},
		DataType: dtype.ObjectType,
		Attrs:    Attributes{"shape": []any{float64(2)}},
	})

	root, err := OpenGroup(ctx, Root(s))
	require.NoError(t, err)
	enc, ok := root.Attrs().String("encoding-type")
	assert.True(t, ok)
	assert.Equal(t, "anndata", enc)

	members, err := root.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"obs"}, members)

	n, err := Open(ctx, root.Resolve("obs/_index"))
	require.NoError(t, err)
	arr, ok := n.(*Array)
	require.True(t, ok)
	shape, ok := arr.Attrs().Ints("shape")
	assert.True(t, ok)
	assert.Equal(t, []int{2}, shape)

	_, err = OpenArray(ctx, root.Resolve("obs"))
	assert.ErrorIs(t, err, ErrNotArray)
	_, err = OpenGroup(ctx, root.Resolve("obs/_index"))
	assert.ErrorIs(t, err, ErrNotGroup)
	_, err = Open(ctx, root.Resolve("var"))
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.True(t, IsNotFound(err))

	ok, err = Exists(ctx, root.Resolve("obs"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Exists(ctx, root.Resolve("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsupportedMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	docs := map[string]string{
		"structured": `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":[["a","<i4"]],"compressor":null,"fill_value":0,"order":"C","filters":null}`,
		"v3":         `{"zarr_format":3,"shape":[1],"chunks":[1],"dtype":"<i4","compressor":null,"fill_value":0,"order":"C","filters":null}`,
		"complex":    `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<c8","compressor":null,"fill_value":0,"order":"C","filters":null}`,
		"codec":      `{"zarr_format":2,"shape":[1],"chunks":[1],"dtype":"<i4","compressor":{"id":"bz2"},"fill_value":0,"order":"C","filters":null}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, name+"/.zarray", []byte(doc)))
			_, err := OpenArray(ctx, Root(s).Resolve(name))
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}
