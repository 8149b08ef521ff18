package anndata

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-anndata/zarr"
)

const (
	nObs = 50
	nVar = 25
)

var (
	int32Type   = mustDataType("<i4")
	int64Type   = mustDataType("<i8")
	int8Type    = mustDataType("|i1")
	float32Type = mustDataType("<f4")
	objectType  = mustDataType("|O")
)

func mustDataType(s string) zarr.DataType {
	dt, err := zarr.ParseDataType(s)
	if err != nil {
		panic(err)
	}
	return dt
}

// fixture builds a dataset in a memory store.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *zarr.MemoryStore
	legacy bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: zarr.NewMemoryStore()}
	f.group("/", nil)
	return f
}

// dataset writes the standard 50x25 dataset. X uses the given format:
// "dense", "csr" or "csc". An empty format leaves X out.
func dataset(t *testing.T, xFormat string, legacy bool) *fixture {
	t.Helper()
	f := newFixture(t)
	f.legacy = legacy

	f.dataframe("obs", "obs", nObs, true)
	f.dataframe("var", "var", nVar, false)
	if xFormat != "" {
		f.matrix("X", xFormat, float32Type, nObs, nVar)
	}
	f.matrices("obsm", nObs, 2)
	f.matrices("varm", nVar, 2)
	f.matrices("obsp", nObs, nObs)
	f.matrices("varp", nVar, nVar)
	f.matrices("layers", nObs, nVar)
	return f
}

func (f *fixture) read(opts ...Option) *AnnData {
	f.t.Helper()
	ad, err := Read(f.ctx, f.store, opts...)
	require.NoError(f.t, err)
	return ad
}

func (f *fixture) group(p string, attrs zarr.Attributes) {
	f.t.Helper()
	_, err := zarr.CreateGroup(f.ctx, f.store, p, attrs)
	require.NoError(f.t, err)
}

func (f *fixture) array(p string, dt zarr.DataType, shape []int, data zarr.Buffer, attrs zarr.Attributes) {
	f.t.Helper()
	a, err := zarr.Create(f.ctx, f.store, p, zarr.CreateOptions{
		Shape:      shape,
		DataType:   dt,
		FillValue:  fillFor(dt),
		Compressor: map[string]any{"id": "zlib", "level": 1},
		Attrs:      attrs,
	})
	require.NoError(f.t, err)
	stride := make([]int, len(shape))
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		stride[d] = s
		s *= shape[d]
	}
	require.NoError(f.t, zarr.Set(f.ctx, a, &zarr.Chunk{Data: data, Shape: shape, Stride: stride}))
}

func fillFor(dt zarr.DataType) any {
	switch {
	case dt.Kind.IsString():
		return nil
	case dt.Kind == zarr.KindBool:
		return false
	}
	return 0
}

func (f *fixture) tag(typ, version string, extra zarr.Attributes) zarr.Attributes {
	attrs := zarr.Attributes{}
	if !f.legacy || typ == "dataframe" || typ == "csr_matrix" || typ == "csc_matrix" {
		attrs[attrEncodingType] = typ
		attrs[attrEncodingVersion] = version
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return attrs
}

func (f *fixture) strings(p string, values []string) {
	f.t.Helper()
	dt := objectType
	if f.legacy {
		width := 1
		for _, v := range values {
			width = max(width, len(v))
		}
		dt = mustDataType(fmt.Sprintf("|S%d", width))
	}
	buf, err := zarr.NewBuffer(dt, len(values))
	require.NoError(f.t, err)
	for i, v := range values {
		require.NoError(f.t, buf.Set(i, v))
	}
	f.array(p, dt, []int{len(values)}, buf, f.tag("string-array", "0.2.0", nil))
}

func labels(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return out
}

// dataframe writes a dataframe with an index of "<name>_i" and a "string"
// column. The obs frame also gets a five-way categorical column.
func (f *fixture) dataframe(p, name string, n int, categorical bool) {
	f.t.Helper()
	columns := []string{"string"}
	if categorical {
		columns = []string{"categorical", "string"}
	}
	f.group(p, f.tag("dataframe", "0.2.0", zarr.Attributes{
		attrIndex:       "_index",
		attrColumnOrder: columns,
	}))
	f.strings(path.Join(p, "_index"), labels(name, n))
	f.strings(path.Join(p, "string"), labels("str", n))
	if categorical {
		codes := make([]int8, n)
		for i := range codes {
			codes[i] = int8(i % 5)
		}
		f.categorical(p, "categorical", codes, labels("cat", 5))
	}
}

// categorical writes a categorical column in the layout of the fixture's
// encoding generation.
func (f *fixture) categorical(parent, name string, codes []int8, categories []string) {
	f.t.Helper()
	codeBuf := zarr.NewNumericBuffer(int8Type, codes)
	if f.legacy {
		f.strings(path.Join(parent, "__categories", name), categories)
		f.array(path.Join(parent, name), int8Type, []int{len(codes)}, codeBuf,
			zarr.Attributes{attrCategories: path.Join("__categories", name)})
		return
	}
	p := path.Join(parent, name)
	f.group(p, f.tag("categorical", "0.2.0", zarr.Attributes{"ordered": false}))
	f.array(path.Join(p, "codes"), int8Type, []int{len(codes)}, codeBuf, nil)
	f.strings(path.Join(p, "categories"), categories)
}

// diagonal returns the m x n matrix with m[i][i] = i, except that row
// min(m/2, n/2) is all zeros.
func diagonal(m, n int) [][]float64 {
	zero := min(m/2, n/2)
	out := make([][]float64, m)
	for i := range out {
		out[i] = make([]float64, n)
		if i < n && i != zero {
			out[i][i] = float64(i)
		}
	}
	return out
}

// matrices writes a dict of {int32,int64,float32}_{dense,csr,csc} matrices.
func (f *fixture) matrices(p string, m, n int) {
	f.t.Helper()
	f.group(p, f.tag("dict", "0.1.0", nil))
	for _, dt := range []struct {
		name string
		dt   zarr.DataType
	}{{"int32", int32Type}, {"int64", int64Type}, {"float32", float32Type}} {
		for _, format := range []string{"dense", "csr", "csc"} {
			f.matrix(path.Join(p, dt.name+"_"+format), format, dt.dt, m, n)
		}
	}
}

func (f *fixture) matrix(p, format string, dt zarr.DataType, m, n int) {
	f.t.Helper()
	mat := diagonal(m, n)
	if format == "dense" {
		buf, err := zarr.NewBuffer(dt, m*n)
		require.NoError(f.t, err)
		for i := range mat {
			for j, v := range mat[i] {
				require.NoError(f.t, buf.Set(i*n+j, v))
			}
		}
		f.array(p, dt, []int{m, n}, buf, f.tag("array", "0.2.0", nil))
		return
	}

	major, minor := m, n
	at := func(i, j int) float64 { return mat[i][j] }
	if format == "csc" {
		major, minor = n, m
		at = func(j, i int) float64 { return mat[i][j] }
	}
	indptr := []int32{0}
	var indices []int32
	var data []float64
	for i := 0; i < major; i++ {
		for j := 0; j < minor; j++ {
			if v := at(i, j); v != 0 {
				indices = append(indices, int32(j))
				data = append(data, v)
			}
		}
		indptr = append(indptr, int32(len(indices)))
	}

	f.group(p, f.tag(format+"_matrix", "0.1.0", zarr.Attributes{"shape": []int{m, n}}))
	f.array(path.Join(p, "indptr"), int32Type, []int{len(indptr)}, zarr.NewNumericBuffer(int32Type, indptr), nil)
	f.array(path.Join(p, "indices"), int32Type, []int{len(indices)}, zarr.NewNumericBuffer(int32Type, indices), nil)
	values, err := zarr.NewBuffer(dt, len(data))
	require.NoError(f.t, err)
	for i, v := range data {
		require.NoError(f.t, values.Set(i, v))
	}
	f.array(path.Join(p, "data"), dt, []int{len(data)}, values, nil)
}

// consolidate writes .zmetadata for everything in the store.
func (f *fixture) consolidate() {
	f.t.Helper()
	meta := map[string]json.RawMessage{}
	for _, key := range f.store.Keys() {
		switch path.Base(key) {
		case ".zgroup", ".zarray", ".zattrs":
			data, err := f.store.Get(f.ctx, key)
			require.NoError(f.t, err)
			meta[key] = data
		}
	}
	doc, err := json.Marshal(map[string]any{
		"zarr_consolidated_format": 1,
		"metadata":                 meta,
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.Set(f.ctx, ".zmetadata", doc))
}
