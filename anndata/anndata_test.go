package anndata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-anndata/zarr"
)

func TestReadSlots(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		name := "tagged"
		if legacy {
			name = "legacy"
		}
		t.Run(name, func(t *testing.T) {
			ad := dataset(t, "csr", legacy).read()

			for _, c := range []*AxisArrays{ad.Obs, ad.Var, ad.Obsm, ad.Varm, ad.Layers, ad.Obsp, ad.Varp} {
				require.NotNil(t, c)
				assert.Equal(t, KindCollection, c.Kind())
			}
			require.NotNil(t, ad.X)
			assert.Equal(t, KindSparse, ad.X.Kind())
			assert.Equal(t, "/X", ad.X.Path())
			assert.Equal(t, "obsm", ad.Obsm.Name())

			for _, slot := range Slots {
				el, err := ad.Slot(slot)
				require.NoError(t, err, slot)
				assert.NotNil(t, el, slot)
			}
			_, err := ad.Slot("uns")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestObsColumns(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		t.Run(map[bool]string{false: "tagged", true: "legacy"}[legacy], func(t *testing.T) {
			ctx := context.Background()
			ad := dataset(t, "dense", legacy).read()

			el, err := ad.Obs.Get(ctx, "categorical")
			require.NoError(t, err)
			require.Equal(t, KindCategorical, el.Kind())

			v, err := Get(ctx, el, zarr.At(7))
			require.NoError(t, err)
			assert.Equal(t, "cat_2", v.Scalar)

			v, err = Get(ctx, el, zarr.Range(3, 8))
			require.NoError(t, err)
			require.False(t, v.IsScalar())
			assert.Equal(t, []int{5}, v.Chunk.Shape)
			assert.Equal(t, []string{"cat_3", "cat_4", "cat_0", "cat_1", "cat_2"}, v.Chunk.Data.(*zarr.Strings).Values)

			col, err := ad.Obs.Get(ctx, "string")
			require.NoError(t, err)
			v, err = Get(ctx, col, zarr.At(-1))
			require.NoError(t, err)
			assert.Equal(t, "str_49", v.Scalar)

			names, err := ad.ObsNames(ctx)
			require.NoError(t, err)
			require.Equal(t, nObs, names.Len())
			assert.Equal(t, "obs_0", names.Value(0))
			assert.Equal(t, "obs_49", names.Value(49))

			names, err = ad.VarNames(ctx)
			require.NoError(t, err)
			assert.Equal(t, "var_24", names.Value(24))

			order, err := ad.Obs.ColumnOrder(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"categorical", "string"}, order)

			n, m, err := ad.Shape(ctx)
			require.NoError(t, err)
			assert.Equal(t, nObs, n)
			assert.Equal(t, nVar, m)
		})
	}
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "dense", false).read()

	_, err := ad.Obs.Get(ctx, "not_a_column")
	require.Error(t, err)
	assert.EqualError(t, err, `obs has no key: "not_a_column"`)
	assert.ErrorIs(t, err, ErrNotFound)

	var ke *KeyError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "obs", ke.Collection)

	for _, key := range []string{"", ".", "..", "categorical/codes"} {
		_, err := ad.Obs.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound, "key %q", key)
		ok, err := ad.Obs.Has(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "key %q", key)
	}

	ok, err := ad.Obs.Has(ctx, "categorical")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestObsmIsZero(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "dense", false).read()

	keys, err := ad.Obsm.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 9)

	for _, key := range keys {
		el, err := ad.Obsm.Get(ctx, key)
		require.NoError(t, err, key)
		v, err := Get(ctx, el, zarr.All(), zarr.All())
		require.NoError(t, err, key)
		assert.Equal(t, []int{nObs, 2}, v.Chunk.Shape, key)
		assert.Equal(t, []int{2, 1}, v.Chunk.Stride, key)
		for i := 0; i < v.Chunk.Data.Len(); i++ {
			assert.EqualValues(t, 0, v.Chunk.Data.Value(i), "%s[%d]", key, i)
		}
	}
}

func TestVarpDiagonal(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "dense", false).read()

	for _, key := range []string{"int32_dense", "int64_csr", "float32_csc"} {
		t.Run(key, func(t *testing.T) {
			el, err := ad.Varp.Get(ctx, key)
			require.NoError(t, err)
			for i := 0; i < nVar; i++ {
				v, err := Get(ctx, el, zarr.At(i), zarr.At(i))
				require.NoError(t, err)
				require.True(t, v.IsScalar())
				want := i
				if i == nVar/2 {
					want = 0
				}
				assert.EqualValues(t, want, v.Scalar, "varp[%d][%d]", i, i)
			}
			v, err := Get(ctx, el, zarr.At(3), zarr.At(4))
			require.NoError(t, err)
			assert.EqualValues(t, 0, v.Scalar)
		})
	}
}

func TestXSelections(t *testing.T) {
	tests := []struct {
		format   string
		rowShape []int
	}{
		{"dense", []int{nVar}},
		{"csr", []int{1, nVar}},
		{"csc", []int{nVar}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			ctx := context.Background()
			ad := dataset(t, tt.format, false).read()

			v, err := ad.X.Get(ctx, zarr.At(1), zarr.At(1))
			require.NoError(t, err)
			assert.Equal(t, float32(1), v.Scalar)

			v, err = ad.X.Get(ctx, zarr.At(7), zarr.At(7))
			require.NoError(t, err)
			assert.Equal(t, float32(7), v.Scalar)

			v, err = ad.X.Get(ctx, zarr.At(12), zarr.At(12))
			require.NoError(t, err)
			assert.Equal(t, float32(0), v.Scalar)

			v, err = ad.X.Get(ctx, zarr.At(0), zarr.All())
			require.NoError(t, err)
			assert.Equal(t, tt.rowShape, v.Chunk.Shape)

			v, err = ad.X.Get(ctx, zarr.All(), zarr.All())
			require.NoError(t, err)
			assert.Equal(t, []int{nObs, nVar}, v.Chunk.Shape)
			assert.Equal(t, []int{nVar, 1}, v.Chunk.Stride)
			want := diagonal(nObs, nVar)
			for i := range want {
				for j, w := range want[i] {
					require.Equal(t, float32(w), v.Chunk.At(i, j), "[%d][%d]", i, j)
				}
			}

			// Every row and column read alone matches the dense source,
			// the zeroed row included.
			for i := range want {
				v, err = ad.X.Get(ctx, zarr.At(i), zarr.All())
				require.NoError(t, err)
				for j, w := range want[i] {
					got := v.Chunk.At(j)
					if len(tt.rowShape) == 2 {
						got = v.Chunk.At(0, j)
					}
					require.Equal(t, float32(w), got, "row %d col %d", i, j)
				}
			}
			for j := 0; j < nVar; j++ {
				v, err = ad.X.Get(ctx, zarr.All(), zarr.At(j))
				require.NoError(t, err)
				require.Equal(t, nObs, v.Chunk.Data.Len())
				for i := range want {
					require.Equal(t, float32(want[i][j]), v.Chunk.Data.Value(i), "row %d col %d", i, j)
				}
			}

			v, err = ad.X.Get(ctx, zarr.Range(5, 10), zarr.Range(5, 10))
			require.NoError(t, err)
			assert.Equal(t, []int{5, 5}, v.Chunk.Shape)
			for i := 0; i < 5; i++ {
				for j := 0; j < 5; j++ {
					want := float32(0)
					if i == j {
						want = float32(i + 5)
					}
					assert.Equal(t, want, v.Chunk.At(i, j), "[%d][%d]", i, j)
				}
			}

			// A one-long range is not an index.
			v, err = ad.X.Get(ctx, zarr.Range(3, 4), zarr.Range(3, 4))
			require.NoError(t, err)
			require.False(t, v.IsScalar())
			assert.Equal(t, []int{1, 1}, v.Chunk.Shape)

			_, err = ad.X.Get(ctx, zarr.At(nObs), zarr.At(0))
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}
}

func TestSparseRequiresTwoSelectors(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "csr", false).read()

	_, err := ad.X.Get(ctx, zarr.At(0))
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestSparseEmptyBlockSkipsIndices(t *testing.T) {
	ctx := context.Background()
	f := dataset(t, "csr", false)
	store := zarr.NewInstrumentedStore("test", f.store)
	ad, err := Read(ctx, store)
	require.NoError(t, err)
	m := ad.X.(*SparseMatrix)
	assert.Equal(t, CSR, m.Format())
	assert.Equal(t, [2]int{nObs, nVar}, m.Shape())

	// Row 0 holds only an implicit zero and row 12 is empty.
	for _, row := range []int{0, 12} {
		store.Reset()
		v, err := m.Get(ctx, zarr.At(row), zarr.All())
		require.NoError(t, err)
		for i := 0; i < v.Chunk.Data.Len(); i++ {
			assert.Equal(t, float32(0), v.Chunk.Data.Value(i))
		}
		assert.Positive(t, store.ReadsWithPrefix("X/indptr/"))
		assert.Zero(t, store.ReadsWithPrefix("X/indices/"))
		assert.Zero(t, store.ReadsWithPrefix("X/data/"))
	}

	store.Reset()
	_, err = m.Get(ctx, zarr.At(3), zarr.All())
	require.NoError(t, err)
	assert.Positive(t, store.ReadsWithPrefix("X/indices/"))
	assert.Positive(t, store.ReadsWithPrefix("X/data/"))
}

func TestSparseContiguous(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "csc", false).read()
	m := ad.X.(*SparseMatrix)
	assert.Equal(t, 1, m.MajorAxis())
	assert.Equal(t, 0, m.MinorAxis())

	block, err := m.Contiguous(ctx, zarr.Range(2, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{nObs, 3}, block.Shape())

	c, err := zarr.Get(ctx, block)
	require.NoError(t, err)
	assert.Equal(t, float32(2), c.At(2, 0))
	assert.Equal(t, float32(4), c.At(4, 2))
	assert.Equal(t, float32(0), c.At(3, 0))

	block, err = m.Contiguous(ctx, zarr.At(6))
	require.NoError(t, err)
	assert.Equal(t, []int{nObs, 1}, block.Shape())
}

func TestLayers(t *testing.T) {
	ctx := context.Background()
	ad := dataset(t, "csc", false).read()

	x, err := ad.Layers.GetKey(ctx, Primary)
	require.NoError(t, err)
	assert.Equal(t, "/X", x.Path())
	assert.IsType(t, &SparseMatrix{}, x)

	again, err := ad.Layers.GetKey(ctx, Primary)
	require.NoError(t, err)
	assert.Same(t, x, again)
	assert.Equal(t, "X", Primary.String())
	assert.True(t, Primary.IsPrimary())
	assert.False(t, Named("X").IsPrimary())

	layer, err := ad.Layers.Get(ctx, "int64_csc")
	require.NoError(t, err)
	assert.Equal(t, "/layers/int64_csc", layer.Path())
	v, err := Get(ctx, layer, zarr.At(5), zarr.At(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Scalar)
}

func TestNoX(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.dataframe("obs", "obs", 4, false)
	f.dataframe("var", "var", 3, false)
	ad := f.read()

	assert.Nil(t, ad.X)
	x, err := ad.Slot(SlotX)
	require.NoError(t, err)
	assert.Nil(t, x)

	_, err = ad.Layers.GetKey(ctx, Primary)
	assert.ErrorIs(t, err, ErrNotFound)

	// Absent collection slots are empty.
	require.NotNil(t, ad.Obsm)
	keys, err := ad.Obsm.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	ok, err := ad.Obsm.Has(ctx, "pca")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = ad.Varp.Get(ctx, "anything")
	assert.ErrorIs(t, err, ErrNotFound)

	n, m, err := ad.Shape(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, m)
}

func TestShapeRejectsScalarIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.group("obs", f.tag("dataframe", "0.2.0", zarr.Attributes{attrIndex: "_index"}))
	_, err := zarr.Create(ctx, f.store, "obs/_index", zarr.CreateOptions{
		Shape:     []int{},
		DataType:  int32Type,
		FillValue: 0,
	})
	require.NoError(t, err)
	f.dataframe("var", "var", 3, false)
	ad := f.read()

	_, _, err = ad.Shape(ctx)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/obs/_index", fe.Path)
	assert.Contains(t, fe.Reason, "one-dimensional")

	_, err = ad.ObsNames(ctx)
	assert.ErrorAs(t, err, &fe)
}

func TestReadWithoutRoot(t *testing.T) {
	_, err := Read(context.Background(), zarr.NewMemoryStore())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRejectsBadSlots(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	f.strings("obs", []string{"a"})
	_, err := Read(ctx, f.store)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f = newFixture(t)
	f.group("X", nil)
	_, err = Read(ctx, f.store)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadConsolidated(t *testing.T) {
	ctx := context.Background()
	f := dataset(t, "csr", false)
	f.consolidate()
	// Not in the consolidated metadata, so it does not exist.
	f.group("obsm/late", nil)

	ad := f.read(WithConsolidated())
	ok, err := ad.Obsm.Has(ctx, "late")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := ad.X.Get(ctx, zarr.At(9), zarr.At(9))
	require.NoError(t, err)
	assert.Equal(t, float32(9), v.Scalar)

	// Without .zmetadata the store is read directly.
	plain := dataset(t, "csr", false).read(WithConsolidated())
	require.NotNil(t, plain.X)
}

// blockingStore holds reads of one key until released.
type blockingStore struct {
	*zarr.MemoryStore
	key     string
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	reads int
}

func (s *blockingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.key {
		s.mu.Lock()
		s.reads++
		first := s.reads == 1
		s.mu.Unlock()
		if first {
			close(s.entered)
		}
		<-s.release
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestGetSingleFlight(t *testing.T) {
	ctx := context.Background()
	f := dataset(t, "dense", false)
	ad := f.read()

	store := &blockingStore{
		MemoryStore: f.store,
		key:         "obs/categorical/.zattrs",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	obs := newAxisArrays(zarr.Root(store).Resolve("obs"), &resolver{log: ad.log})

	const n = 8
	results := make([]Element, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el, err := obs.Get(ctx, "categorical")
			assert.NoError(t, err)
			results[i] = el
		}()
	}
	<-store.entered
	close(store.release)
	wg.Wait()

	require.NotNil(t, results[0])
	for _, el := range results[1:] {
		assert.Same(t, results[0], el)
	}
	assert.Equal(t, 1, store.reads)

	ok, err := obs.Has(ctx, "categorical")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetCancelledCallerLeavesOthers(t *testing.T) {
	f := dataset(t, "dense", false)
	ad := f.read()

	store := &blockingStore{
		MemoryStore: f.store,
		key:         "obs/categorical/.zattrs",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	obs := newAxisArrays(zarr.Root(store).Resolve("obs"), &resolver{log: ad.log})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := obs.Get(ctx, "categorical")
		errc <- err
	}()
	<-store.entered
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	done := make(chan Element, 1)
	go func() {
		el, err := obs.Get(context.Background(), "categorical")
		assert.NoError(t, err)
		done <- el
	}()
	close(store.release)

	el := <-done
	require.NotNil(t, el)
	assert.Equal(t, KindCategorical, el.Kind())
	assert.Equal(t, 1, store.reads)
}

// flakyStore fails the first read of one key.
type flakyStore struct {
	*zarr.MemoryStore
	key    string
	failed bool
}

var errFlaky = errors.New("transient failure")

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.key && !s.failed {
		s.failed = true
		return nil, errFlaky
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	f := dataset(t, "dense", false)
	store := &flakyStore{MemoryStore: f.store, key: "obsm/int32_csr/.zattrs"}
	ad, err := Read(ctx, store)
	require.NoError(t, err)

	_, err = ad.Obsm.Get(ctx, "int32_csr")
	assert.ErrorIs(t, err, errFlaky)

	el, err := ad.Obsm.Get(ctx, "int32_csr")
	require.NoError(t, err)
	assert.Equal(t, KindSparse, el.Kind())
}
