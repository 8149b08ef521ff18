package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupported is returned for dtypes this package cannot represent.
var ErrUnsupported = errors.New("unsupported dtype")

// Kind is the element class of a datatype.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Int
	Uint
	Float
	ByteString
	UnicodeString
	Object
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case ByteString:
		return "bytes"
	case UnicodeString:
		return "unicode"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// IsString reports whether elements of this kind decode to Go strings.
func (k Kind) IsString() bool {
	return k == ByteString || k == UnicodeString || k == Object
}

// DataType describes one array element.
type DataType struct {
	Kind Kind
	// Size is the stored element size in bytes. It is zero for Object.
	Size int
	// Order is the byte order of multi-byte elements, nil otherwise.
	Order binary.ByteOrder
}

// Common datatypes.
var (
	BoolType    = DataType{Kind: Bool, Size: 1}
	Int8Type    = DataType{Kind: Int, Size: 1}
	Int32Type   = DataType{Kind: Int, Size: 4, Order: binary.LittleEndian}
	Int64Type   = DataType{Kind: Int, Size: 8, Order: binary.LittleEndian}
	Uint8Type   = DataType{Kind: Uint, Size: 1}
	Float32Type = DataType{Kind: Float, Size: 4, Order: binary.LittleEndian}
	Float64Type = DataType{Kind: Float, Size: 8, Order: binary.LittleEndian}
	ObjectType  = DataType{Kind: Object}
)

// FixedBytes returns the "|S<n>" datatype.
func FixedBytes(n int) DataType {
	return DataType{Kind: ByteString, Size: n}
}

// FixedUnicode returns the "<U<n>" datatype.
func FixedUnicode(n int) DataType {
	return DataType{Kind: UnicodeString, Size: 4 * n, Order: binary.LittleEndian}
}

// Parse parses a numpy type string such as "<i4", "|b1" or "<U12".
func Parse(s string) (DataType, error) {
	if len(s) < 2 {
		return DataType{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}

	var order binary.ByteOrder
	switch s[0] {
	case '<':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	case '|', '=':
		// Single byte or byte order not applicable.
	default:
		return DataType{}, fmt.Errorf("%w: %q: bad byte order %q", ErrUnsupported, s, s[0])
	}

	code := s[1]
	n := 0
	if len(s) > 2 {
		v, err := strconv.Atoi(s[2:])
		if err != nil || v < 0 {
			return DataType{}, fmt.Errorf("%w: %q: bad size", ErrUnsupported, s)
		}
		n = v
	}

	switch code {
	case 'b':
		if n != 1 {
			return DataType{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
		}
		return BoolType, nil
	case 'i', 'u':
		kind := Int
		if code == 'u' {
			kind = Uint
		}
		switch n {
		case 1:
			return DataType{Kind: kind, Size: 1}, nil
		case 2, 4, 8:
			return DataType{Kind: kind, Size: n, Order: orderOrDefault(order)}, nil
		}
	case 'f':
		if n == 4 || n == 8 {
			return DataType{Kind: Float, Size: n, Order: orderOrDefault(order)}, nil
		}
	case 'S':
		return FixedBytes(n), nil
	case 'U':
		dt := FixedUnicode(n)
		dt.Order = orderOrDefault(order)
		return dt, nil
	case 'O':
		return ObjectType, nil
	}
	return DataType{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

func orderOrDefault(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return binary.LittleEndian
	}
	return order
}

// String returns the numpy type string.
func (d DataType) String() string {
	prefix := "|"
	if d.Order == binary.BigEndian {
		prefix = ">"
	} else if d.Order != nil {
		prefix = "<"
	}
	switch d.Kind {
	case Bool:
		return "|b1"
	case Int:
		return prefix + "i" + strconv.Itoa(d.Size)
	case Uint:
		return prefix + "u" + strconv.Itoa(d.Size)
	case Float:
		return prefix + "f" + strconv.Itoa(d.Size)
	case ByteString:
		return "|S" + strconv.Itoa(d.Size)
	case UnicodeString:
		return prefix + "U" + strconv.Itoa(d.Size/4)
	case Object:
		return "|O"
	default:
		return "invalid"
	}
}

// ByteOrder returns the byte order used for multi-byte elements.
func (d DataType) ByteOrder() binary.ByteOrder {
	return orderOrDefault(d.Order)
}

// ElementSize returns the size of one stored element in bytes.
func (d DataType) ElementSize() int {
	return d.Size
}

// Equal reports whether two datatypes describe the same element.
func (d DataType) Equal(o DataType) bool {
	if d.Kind != o.Kind || d.Size != o.Size {
		return false
	}
	if d.Size <= 1 || d.Kind == Object {
		return true
	}
	return d.ByteOrder() == o.ByteOrder()
}
