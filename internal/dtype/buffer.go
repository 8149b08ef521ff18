package dtype

import (
	"errors"
	"fmt"
	"math"
)

// ErrTypeMismatch is returned when a value or buffer does not match the
// datatype it is written to.
var ErrTypeMismatch = errors.New("dtype mismatch")

// Number is the set of numeric element types.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Buffer is a flat, typed, in-memory run of elements.
//
// The set of implementations is closed: *Numeric[T], *Bools and *Strings.
type Buffer interface {
	DataType() DataType
	Len() int
	// Value returns element i as its Go value (a number, bool or string).
	Value(i int) any
	// Set stores v at index i, converting between numeric kinds.
	Set(i int, v any) error
	// SetMissing stores the missing marker of the datatype at index i.
	SetMissing(i int)
	// CopyFrom copies n elements from src[srcOff:] into the receiver at dst.
	// src must have the same concrete type.
	CopyFrom(dst int, src Buffer, srcOff, n int) error
	// Fill sets every element to v.
	Fill(v any) error

	sealed()
}

// Numeric holds integer or floating point elements.
type Numeric[T Number] struct {
	dt     DataType
	Values []T
}

// NewNumeric wraps values with the given datatype.
func NewNumeric[T Number](dt DataType, values []T) *Numeric[T] {
	return &Numeric[T]{dt: dt, Values: values}
}

func (b *Numeric[T]) DataType() DataType { return b.dt }
func (b *Numeric[T]) Len() int           { return len(b.Values) }
func (b *Numeric[T]) Value(i int) any    { return b.Values[i] }
func (*Numeric[T]) sealed()              {}

func (b *Numeric[T]) Set(i int, v any) error {
	x, ok := numericFrom[T](v)
	if !ok {
		return fmt.Errorf("%w: cannot store %T in %s", ErrTypeMismatch, v, b.dt)
	}
	b.Values[i] = x
	return nil
}

func (b *Numeric[T]) SetMissing(i int) {
	if b.dt.Kind == Float {
		b.Values[i] = T(math.NaN())
		return
	}
	b.Values[i] = 0
}

func (b *Numeric[T]) CopyFrom(dst int, src Buffer, srcOff, n int) error {
	s, ok := src.(*Numeric[T])
	if !ok {
		return fmt.Errorf("%w: copy %s into %s", ErrTypeMismatch, src.DataType(), b.dt)
	}
	copy(b.Values[dst:dst+n], s.Values[srcOff:srcOff+n])
	return nil
}

func (b *Numeric[T]) Fill(v any) error {
	x, ok := numericFrom[T](v)
	if !ok {
		return fmt.Errorf("%w: cannot fill %s with %T", ErrTypeMismatch, b.dt, v)
	}
	for i := range b.Values {
		b.Values[i] = x
	}
	return nil
}

func numericFrom[T Number](v any) (T, bool) {
	switch x := v.(type) {
	case T:
		return x, true
	case int:
		return T(x), true
	case int8:
		return T(x), true
	case int16:
		return T(x), true
	case int32:
		return T(x), true
	case int64:
		return T(x), true
	case uint8:
		return T(x), true
	case uint16:
		return T(x), true
	case uint32:
		return T(x), true
	case uint64:
		return T(x), true
	case float32:
		return T(x), true
	case float64:
		return T(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Bools holds boolean elements.
type Bools struct {
	Values []bool
}

func (b *Bools) DataType() DataType { return BoolType }
func (b *Bools) Len() int           { return len(b.Values) }
func (b *Bools) Value(i int) any    { return b.Values[i] }
func (b *Bools) SetMissing(i int)   { b.Values[i] = false }
func (*Bools) sealed()              {}

func (b *Bools) Set(i int, v any) error {
	x, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%w: cannot store %T in |b1", ErrTypeMismatch, v)
	}
	b.Values[i] = x
	return nil
}

func (b *Bools) CopyFrom(dst int, src Buffer, srcOff, n int) error {
	s, ok := src.(*Bools)
	if !ok {
		return fmt.Errorf("%w: copy %s into |b1", ErrTypeMismatch, src.DataType())
	}
	copy(b.Values[dst:dst+n], s.Values[srcOff:srcOff+n])
	return nil
}

func (b *Bools) Fill(v any) error {
	var x bool
	switch f := v.(type) {
	case bool:
		x = f
	case int64:
		if f != 0 && f != 1 {
			return fmt.Errorf("%w: cannot fill |b1 with %d", ErrTypeMismatch, f)
		}
		x = f == 1
	default:
		return fmt.Errorf("%w: cannot fill |b1 with %T", ErrTypeMismatch, v)
	}
	for i := range b.Values {
		b.Values[i] = x
	}
	return nil
}

// Strings holds fixed width byte strings, fixed width unicode strings or
// variable length strings. The datatype records which.
type Strings struct {
	dt     DataType
	Values []string
}

// NewStrings wraps values with the given string datatype.
func NewStrings(dt DataType, values []string) *Strings {
	return &Strings{dt: dt, Values: values}
}

func (b *Strings) DataType() DataType { return b.dt }
func (b *Strings) Len() int           { return len(b.Values) }
func (b *Strings) Value(i int) any    { return b.Values[i] }
func (b *Strings) SetMissing(i int)   { b.Values[i] = "" }
func (*Strings) sealed()              {}

func (b *Strings) Set(i int, v any) error {
	switch x := v.(type) {
	case string:
		b.Values[i] = x
	case []byte:
		b.Values[i] = string(x)
	default:
		return fmt.Errorf("%w: cannot store %T in %s", ErrTypeMismatch, v, b.dt)
	}
	return nil
}

func (b *Strings) CopyFrom(dst int, src Buffer, srcOff, n int) error {
	s, ok := src.(*Strings)
	if !ok {
		return fmt.Errorf("%w: copy %s into %s", ErrTypeMismatch, src.DataType(), b.dt)
	}
	copy(b.Values[dst:dst+n], s.Values[srcOff:srcOff+n])
	return nil
}

func (b *Strings) Fill(v any) error {
	for i := range b.Values {
		if err := b.Set(i, v); err != nil {
			return err
		}
	}
	return nil
}

// New returns a zero-filled buffer of n elements.
func New(dt DataType, n int) (Buffer, error) {
	switch dt.Kind {
	case Bool:
		return &Bools{Values: make([]bool, n)}, nil
	case Int:
		switch dt.Size {
		case 1:
			return NewNumeric(dt, make([]int8, n)), nil
		case 2:
			return NewNumeric(dt, make([]int16, n)), nil
		case 4:
			return NewNumeric(dt, make([]int32, n)), nil
		case 8:
			return NewNumeric(dt, make([]int64, n)), nil
		}
	case Uint:
		switch dt.Size {
		case 1:
			return NewNumeric(dt, make([]uint8, n)), nil
		case 2:
			return NewNumeric(dt, make([]uint16, n)), nil
		case 4:
			return NewNumeric(dt, make([]uint32, n)), nil
		case 8:
			return NewNumeric(dt, make([]uint64, n)), nil
		}
	case Float:
		switch dt.Size {
		case 4:
			return NewNumeric(dt, make([]float32, n)), nil
		case 8:
			return NewNumeric(dt, make([]float64, n)), nil
		}
	case ByteString, UnicodeString, Object:
		return NewStrings(dt, make([]string, n)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt)
}

// Int64s widens an integer buffer to int64 values.
func Int64s(b Buffer) ([]int64, error) {
	switch v := b.(type) {
	case *Numeric[int8]:
		return widen(v.Values), nil
	case *Numeric[int16]:
		return widen(v.Values), nil
	case *Numeric[int32]:
		return widen(v.Values), nil
	case *Numeric[int64]:
		out := make([]int64, len(v.Values))
		copy(out, v.Values)
		return out, nil
	case *Numeric[uint8]:
		return widen(v.Values), nil
	case *Numeric[uint16]:
		return widen(v.Values), nil
	case *Numeric[uint32]:
		return widen(v.Values), nil
	case *Numeric[uint64]:
		for _, x := range v.Values {
			if x > math.MaxInt64 {
				return nil, fmt.Errorf("%w: value %d overflows int64", ErrTypeMismatch, x)
			}
		}
		return widen(v.Values), nil
	}
	return nil, fmt.Errorf("%w: %s is not an integer type", ErrTypeMismatch, b.DataType())
}

func widen[T Number](values []T) []int64 {
	out := make([]int64, len(values))
	for i, x := range values {
		out[i] = int64(x)
	}
	return out
}
