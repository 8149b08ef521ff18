package anndata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/go-anndata/internal/metrics"
	"github.com/robert-malhotra/go-anndata/zarr"
)

// Format is the storage layout of a sparse matrix.
type Format string

const (
	CSR Format = "csr"
	CSC Format = "csc"
)

// SparseMatrix is a lazily read CSR or CSC matrix. Selections fetch only
// the indptr, indices and data ranges of the selected major-axis slices.
type SparseMatrix struct {
	path    string
	format  Format
	shape   [2]int
	indptr  *zarr.Array
	indices *zarr.Array
	data    *zarr.Array
	log     *slog.Logger
}

func (*SparseMatrix) element()       {}
func (*SparseMatrix) Kind() Kind     { return KindSparse }
func (m *SparseMatrix) Path() string { return m.path }

// Format returns CSR or CSC.
func (m *SparseMatrix) Format() Format { return m.format }

// Shape returns the logical (rows, columns) shape.
func (m *SparseMatrix) Shape() [2]int { return m.shape }

// DataType returns the dtype of the stored values.
func (m *SparseMatrix) DataType() zarr.DataType { return m.data.DataType() }

// MajorAxis returns 0 for CSR and 1 for CSC.
func (m *SparseMatrix) MajorAxis() int {
	if m.format == CSC {
		return 1
	}
	return 0
}

// MinorAxis returns the axis that is not the major axis.
func (m *SparseMatrix) MinorAxis() int {
	return 1 - m.MajorAxis()
}

// Get reads a dense block. Exactly two selectors are required. When both
// are indices the result is a scalar.
func (m *SparseMatrix) Get(ctx context.Context, sel ...zarr.Selector) (Value, error) {
	if len(sel) != 2 {
		return Value{}, fmt.Errorf("%w: sparse matrix %s needs 2 selectors, got %d", ErrInvalidSelection, m.path, len(sel))
	}
	major, minor := m.MajorAxis(), m.MinorAxis()

	block, err := m.Contiguous(ctx, sel[major])
	if err != nil {
		return Value{}, err
	}

	final := make([]zarr.Selector, 2)
	final[major] = zarr.All()
	final[minor] = sel[minor]
	c, err := zarr.Get(ctx, block, final...)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", m.path, err)
	}
	return unwrapScalar(c, sel, 2), nil
}

// Contiguous materializes the rows (CSR) or columns (CSC) picked by major
// into a dense in-memory array of the data dtype. An index selector keeps
// its axis with length one. The minor axis is always complete.
func (m *SparseMatrix) Contiguous(ctx context.Context, major zarr.Selector) (*zarr.Array, error) {
	majorAxis, minorAxis := m.MajorAxis(), m.MinorAxis()
	start, stop, err := major.Bounds(m.shape[majorAxis])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.path, err)
	}
	majorLen, minorLen := stop-start, m.shape[minorAxis]

	shape := make([]int, 2)
	shape[majorAxis] = majorLen
	shape[minorAxis] = minorLen
	block, err := zarr.Ephemeral(ctx, shape, m.data.DataType())
	if err != nil {
		return nil, err
	}

	// One extra pointer closes the last selected slice.
	ipChunk, err := zarr.Get(ctx, m.indptr, zarr.Range(start, stop+1))
	if err != nil {
		return nil, fmt.Errorf("%s indptr: %w", m.path, err)
	}
	indptr, err := zarr.Int64s(ipChunk.Data)
	if err != nil {
		return nil, fmt.Errorf("%s indptr: %w", m.path, err)
	}
	if len(indptr) != majorLen+1 {
		return nil, &FormatError{Path: m.path, Reason: fmt.Sprintf("indptr has %d entries for %d %s slices", m.indptr.Size(), m.shape[majorAxis], m.format)}
	}

	lo, hi := indptr[0], indptr[majorLen]
	if lo == hi {
		metrics.SparseFastPath.Inc()
		m.log.Debug("sparse block has no stored values",
			slog.String("path", m.path),
			slog.Int("start", start),
			slog.Int("stop", stop))
		return block, nil
	}
	if hi < lo {
		return nil, &FormatError{Path: m.path, Reason: fmt.Sprintf("indptr decreases from %d to %d", lo, hi)}
	}

	idxChunk, err := zarr.Get(ctx, m.indices, zarr.Range(int(lo), int(hi)))
	if err != nil {
		return nil, fmt.Errorf("%s indices: %w", m.path, err)
	}
	indices, err := zarr.Int64s(idxChunk.Data)
	if err != nil {
		return nil, fmt.Errorf("%s indices: %w", m.path, err)
	}
	values, err := zarr.Get(ctx, m.data, zarr.Range(int(lo), int(hi)))
	if err != nil {
		return nil, fmt.Errorf("%s data: %w", m.path, err)
	}
	if n := int(hi - lo); len(indices) != n || values.Data.Len() != n {
		return nil, &FormatError{Path: m.path, Reason: fmt.Sprintf("indptr ends at %d but indices or data are shorter", hi)}
	}

	dense, err := m.densify(indptr, indices, values.Data, majorLen, minorLen)
	if err != nil {
		return nil, err
	}

	stride := make([]int, 2)
	stride[majorAxis] = minorLen
	stride[minorAxis] = 1
	if err := zarr.Set(ctx, block, &zarr.Chunk{Data: dense, Shape: shape, Stride: stride}); err != nil {
		return nil, fmt.Errorf("%s: staging block: %w", m.path, err)
	}
	return block, nil
}

// densify scatters the stored values into a zeroed major-by-minor buffer.
// indptr is rebased so that indptr[0] addresses values[0].
func (m *SparseMatrix) densify(indptr, indices []int64, values zarr.Buffer, majorLen, minorLen int) (zarr.Buffer, error) {
	dense, err := zarr.NewBuffer(values.DataType(), majorLen*minorLen)
	if err != nil {
		return nil, err
	}
	base := indptr[0]
	for r := 0; r < majorLen; r++ {
		for e := indptr[r] - base; e < indptr[r+1]-base; e++ {
			j := indices[e]
			if j < 0 || j >= int64(minorLen) {
				return nil, &FormatError{Path: m.path, Reason: fmt.Sprintf("index %d out of range for minor axis of length %d", j, minorLen)}
			}
			if err := dense.CopyFrom(r*minorLen+int(j), values, int(e), 1); err != nil {
				return nil, err
			}
		}
	}
	return dense, nil
}
