package anndata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/go-anndata/zarr"
)

// missingCode marks a missing value in categorical codes.
const missingCode = -1

// Categorical is an array of integer codes into a categories array.
// Selections decode codes to category values.
type Categorical struct {
	path       string
	codes      *zarr.Array
	categories *zarr.Array
	ordered    bool
	log        *slog.Logger
}

func newCategorical(path string, codes, categories *zarr.Array, ordered bool, log *slog.Logger) *Categorical {
	return &Categorical{
		path:       path,
		codes:      codes,
		categories: categories,
		ordered:    ordered,
		log:        log,
	}
}

func (*Categorical) element()       {}
func (*Categorical) Kind() Kind     { return KindCategorical }
func (c *Categorical) Path() string { return c.path }

// Ordered reports whether the categories have a meaningful order.
func (c *Categorical) Ordered() bool { return c.ordered }

// Codes returns the codes array.
func (c *Categorical) Codes() *zarr.Array { return c.codes }

// Shape returns the shape of the codes array.
func (c *Categorical) Shape() []int { return c.codes.Shape() }

// DataType returns the dtype of the decoded values.
func (c *Categorical) DataType() zarr.DataType { return c.categories.DataType() }

// Categories reads every category value.
func (c *Categorical) Categories(ctx context.Context) (zarr.Buffer, error) {
	chunk, err := zarr.Get(ctx, c.categories)
	if err != nil {
		return nil, fmt.Errorf("%s categories: %w", c.path, err)
	}
	return chunk.Data, nil
}

// Get decodes the selected codes. A single fully indexed element is
// returned as a scalar, nil when the code is missing. Otherwise the result
// has the categories dtype with missing codes set to the dtype's missing
// value (NaN for floats, zero or "" otherwise).
func (c *Categorical) Get(ctx context.Context, sel ...zarr.Selector) (Value, error) {
	codeChunk, err := zarr.Get(ctx, c.codes, sel...)
	if err != nil {
		return Value{}, fmt.Errorf("%s codes: %w", c.path, err)
	}
	codes, err := zarr.Int64s(codeChunk.Data)
	if err != nil {
		return Value{}, &FormatError{Path: c.path, Reason: fmt.Sprintf("codes: %v", err)}
	}
	cats, err := c.Categories(ctx)
	if err != nil {
		return Value{}, err
	}
	if err := c.checkDecodable(cats); err != nil {
		return Value{}, err
	}

	if fullyIndexed(sel, c.codes.NDim()) && len(codes) == 1 {
		v, err := c.category(cats, codes[0])
		if err != nil {
			return Value{}, err
		}
		return Value{Scalar: v}, nil
	}

	out, err := zarr.NewBuffer(cats.DataType(), len(codes))
	if err != nil {
		return Value{}, err
	}
	missing := 0
	for i, code := range codes {
		if code == missingCode {
			out.SetMissing(i)
			missing++
			continue
		}
		if err := c.checkCode(cats, code); err != nil {
			return Value{}, err
		}
		if err := out.CopyFrom(i, cats, int(code), 1); err != nil {
			return Value{}, err
		}
	}
	if missing > 0 {
		c.log.Debug("categorical has missing values",
			slog.String("path", c.path),
			slog.Int("missing", missing))
	}
	return Value{Chunk: &zarr.Chunk{Data: out, Shape: codeChunk.Shape, Stride: codeChunk.Stride}}, nil
}

func (c *Categorical) category(cats zarr.Buffer, code int64) (any, error) {
	if code == missingCode {
		return nil, nil
	}
	if err := c.checkCode(cats, code); err != nil {
		return nil, err
	}
	return cats.Value(int(code)), nil
}

func (c *Categorical) checkCode(cats zarr.Buffer, code int64) error {
	if code < 0 || code >= int64(cats.Len()) {
		return &CategoryError{Path: c.path, Code: code, Categories: cats.Len(), DataType: cats.DataType()}
	}
	return nil
}

// checkDecodable rejects category dtypes that have no Go value.
func (c *Categorical) checkDecodable(cats zarr.Buffer) error {
	switch cats.DataType().Kind {
	case zarr.KindBool, zarr.KindInt, zarr.KindUint, zarr.KindFloat,
		zarr.KindByteString, zarr.KindUnicodeString, zarr.KindObject:
		return nil
	}
	return &CategoryError{Path: c.path, Categories: -1, DataType: cats.DataType()}
}
