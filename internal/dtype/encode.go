package dtype

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

// Encode converts a buffer to raw chunk bytes in its datatype's layout.
func Encode(b Buffer) ([]byte, error) {
	dt := b.DataType()
	order := dt.ByteOrder()

	switch v := b.(type) {
	case *Bools:
		out := make([]byte, len(v.Values))
		for i, x := range v.Values {
			if x {
				out[i] = 1
			}
		}
		return out, nil
	case *Numeric[int8]:
		return encodeFixed(v.Values, 1, func(dst []byte, x int8) { dst[0] = byte(x) }), nil
	case *Numeric[int16]:
		return encodeFixed(v.Values, 2, func(dst []byte, x int16) { order.PutUint16(dst, uint16(x)) }), nil
	case *Numeric[int32]:
		return encodeFixed(v.Values, 4, func(dst []byte, x int32) { order.PutUint32(dst, uint32(x)) }), nil
	case *Numeric[int64]:
		return encodeFixed(v.Values, 8, func(dst []byte, x int64) { order.PutUint64(dst, uint64(x)) }), nil
	case *Numeric[uint8]:
		return encodeFixed(v.Values, 1, func(dst []byte, x uint8) { dst[0] = x }), nil
	case *Numeric[uint16]:
		return encodeFixed(v.Values, 2, order.PutUint16), nil
	case *Numeric[uint32]:
		return encodeFixed(v.Values, 4, order.PutUint32), nil
	case *Numeric[uint64]:
		return encodeFixed(v.Values, 8, order.PutUint64), nil
	case *Numeric[float32]:
		return encodeFixed(v.Values, 4, func(dst []byte, x float32) { order.PutUint32(dst, math.Float32bits(x)) }), nil
	case *Numeric[float64]:
		return encodeFixed(v.Values, 8, func(dst []byte, x float64) { order.PutUint64(dst, math.Float64bits(x)) }), nil
	case *Strings:
		return encodeString(dt, v.Values)
	}
	return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupported, dt)
}

func encodeFixed[T any](values []T, size int, put func([]byte, T)) []byte {
	out := make([]byte, len(values)*size)
	for i, x := range values {
		put(out[i*size:(i+1)*size], x)
	}
	return out
}

func encodeString(dt DataType, values []string) ([]byte, error) {
	switch dt.Kind {
	case ByteString:
		out := make([]byte, len(values)*dt.Size)
		for i, s := range values {
			// Longer strings are truncated, shorter ones NUL padded
			copy(out[i*dt.Size:(i+1)*dt.Size], s)
		}
		return out, nil
	case UnicodeString:
		order := dt.ByteOrder()
		width := dt.Size / 4
		out := make([]byte, len(values)*dt.Size)
		for i, s := range values {
			j := 0
			for _, r := range s {
				if j == width {
					break
				}
				order.PutUint32(out[i*dt.Size+j*4:], uint32(r))
				j++
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s strings need an object codec", ErrUnsupported, dt)
}

// DataSize returns the number of bytes needed to store n elements.
func DataSize(dt DataType, n int) int {
	return dt.Size * n
}

// ParseFill decodes a zarr v2 fill_value for dt. A JSON null yields nil.
func ParseFill(dt DataType, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch dt.Kind {
	case Bool:
		var v bool
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		// Some writers store boolean fills as 0 or 1.
		switch string(raw) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, fmt.Errorf("fill value %s: not a boolean", raw)
	case Int, Uint, Float:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			switch s {
			case "NaN":
				return math.NaN(), nil
			case "Infinity":
				return math.Inf(1), nil
			case "-Infinity":
				return math.Inf(-1), nil
			}
			return nil, fmt.Errorf("fill value %q: not a number", s)
		}
		if dt.Kind == Float {
			var f float64
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("fill value %s: %w", raw, err)
			}
			return f, nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("fill value %s: %w", raw, err)
		}
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("fill value %s: %w", raw, err)
		}
		return f, nil
	case ByteString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("fill value %s: %w", raw, err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("fill value %q: %w", s, err)
		}
		return string(b), nil
	case UnicodeString, Object:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// Object arrays commonly carry a numeric 0 fill.
			return "", nil
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, dt)
}
