package dtype

// Decoding chunk bytes
//
// Decode turns the raw bytes of one decompressed chunk into a Buffer. Numeric
// elements are read with the datatype's byte order. Fixed width strings drop
// trailing NUL padding as numpy does.
//
// Object arrays never reach Decode: their chunks are produced by an object
// codec and wrapped with NewStrings directly.

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Decode converts n elements of raw chunk data to a buffer.
func Decode(dt DataType, data []byte, n int) (Buffer, error) {
	if dt.Kind == Object {
		return nil, fmt.Errorf("%w: object arrays require an object codec", ErrUnsupported)
	}
	if need := n * dt.Size; len(data) < need {
		return nil, fmt.Errorf("chunk too short: %d bytes for %d elements of %s", len(data), n, dt)
	}

	order := dt.ByteOrder()
	switch dt.Kind {
	case Bool:
		values := make([]bool, n)
		for i := range values {
			values[i] = data[i] != 0
		}
		return &Bools{Values: values}, nil
	case Int:
		switch dt.Size {
		case 1:
			return decodeFixed(dt, data, n, func(b []byte) int8 { return int8(b[0]) }), nil
		case 2:
			return decodeFixed(dt, data, n, func(b []byte) int16 { return int16(order.Uint16(b)) }), nil
		case 4:
			return decodeFixed(dt, data, n, func(b []byte) int32 { return int32(order.Uint32(b)) }), nil
		case 8:
			return decodeFixed(dt, data, n, func(b []byte) int64 { return int64(order.Uint64(b)) }), nil
		}
	case Uint:
		switch dt.Size {
		case 1:
			return decodeFixed(dt, data, n, func(b []byte) uint8 { return b[0] }), nil
		case 2:
			return decodeFixed(dt, data, n, order.Uint16), nil
		case 4:
			return decodeFixed(dt, data, n, order.Uint32), nil
		case 8:
			return decodeFixed(dt, data, n, order.Uint64), nil
		}
	case Float:
		switch dt.Size {
		case 4:
			return decodeFixed(dt, data, n, func(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) }), nil
		case 8:
			return decodeFixed(dt, data, n, func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }), nil
		}
	case ByteString:
		return convertBytes(dt, data, n), nil
	case UnicodeString:
		return convertUnicode(dt, data, n, order), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt)
}

func decodeFixed[T Number](dt DataType, data []byte, n int, read func([]byte) T) *Numeric[T] {
	size := dt.Size
	values := make([]T, n)
	for i := range values {
		offset := i * size
		values[i] = read(data[offset : offset+size])
	}
	return NewNumeric(dt, values)
}

func convertBytes(dt DataType, data []byte, n int) *Strings {
	size := dt.Size
	values := make([]string, n)
	for i := range values {
		strData := data[i*size : (i+1)*size]

		// Trim trailing NUL padding
		end := len(strData)
		for end > 0 && strData[end-1] == 0 {
			end--
		}
		values[i] = string(strData[:end])
	}
	return NewStrings(dt, values)
}

func convertUnicode(dt DataType, data []byte, n int, order binary.ByteOrder) *Strings {
	width := dt.Size / 4
	values := make([]string, n)
	buf := make([]byte, 0, width)
	for i := range values {
		buf = buf[:0]
		base := i * dt.Size
		end := width
		for end > 0 && order.Uint32(data[base+(end-1)*4:]) == 0 {
			end--
		}
		for j := 0; j < end; j++ {
			buf = utf8.AppendRune(buf, rune(order.Uint32(data[base+j*4:])))
		}
		values[i] = string(buf)
	}
	return NewStrings(dt, values)
}

// ReadScalar decodes the first element of data.
func ReadScalar(dt DataType, data []byte) (any, error) {
	b, err := Decode(dt, data, 1)
	if err != nil {
		return nil, err
	}
	return b.Value(0), nil
}
