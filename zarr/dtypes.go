package zarr

import (
	"fmt"

	"github.com/robert-malhotra/go-anndata/internal/dtype"
)

// Element types and buffers. See internal/dtype for the conversions.
type (
	DataType = dtype.DataType
	Kind     = dtype.Kind
	Buffer   = dtype.Buffer
	Bools    = dtype.Bools
	Strings  = dtype.Strings

	Numeric[T dtype.Number] = dtype.Numeric[T]
)

// Element kinds.
const (
	KindBool          = dtype.Bool
	KindInt           = dtype.Int
	KindUint          = dtype.Uint
	KindFloat         = dtype.Float
	KindByteString    = dtype.ByteString
	KindUnicodeString = dtype.UnicodeString
	KindObject        = dtype.Object
)

// ParseDataType parses a numpy type string such as "<f4".
func ParseDataType(s string) (DataType, error) {
	dt, err := dtype.Parse(s)
	if err != nil {
		return DataType{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return dt, nil
}

// NewBuffer returns a zero-filled buffer of n elements.
func NewBuffer(dt DataType, n int) (Buffer, error) {
	return dtype.New(dt, n)
}

// Int64s widens an integer buffer to int64 values.
func Int64s(b Buffer) ([]int64, error) {
	return dtype.Int64s(b)
}

// NewNumericBuffer wraps values with the given numeric datatype.
func NewNumericBuffer[T dtype.Number](dt DataType, values []T) *Numeric[T] {
	return dtype.NewNumeric(dt, values)
}

// NewStringBuffer wraps values with the given string datatype.
func NewStringBuffer(dt DataType, values []string) *Strings {
	return dtype.NewStrings(dt, values)
}
