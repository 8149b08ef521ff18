// Package dtype provides zarr datatype handling and Go type conversion.
//
// Zarr v2 arrays describe their element type with a numpy type string such
// as "<f8" or "|S12". This package parses those strings and converts raw
// chunk bytes into typed in-memory buffers.
//
// # Type Mapping Strategy
//
//	Zarr dtype        | Buffer
//	------------------|------------------------------
//	|b1               | *Bools
//	<i1 .. <i8        | *Numeric[int8] .. *Numeric[int64]
//	<u1 .. <u8        | *Numeric[uint8] .. *Numeric[uint64]
//	<f4, <f8          | *Numeric[float32], *Numeric[float64]
//	|S<n>             | *Strings (fixed width bytes, NUL padded)
//	<U<n>             | *Strings (fixed width UCS-4)
//	|O                | *Strings (variable length, via an object codec)
//
// Buffers form a closed set. Code that needs per-type behaviour switches on
// [DataType.Kind] and then asserts the concrete buffer.
//
// # Key Functions
//
//   - [Parse]: numpy type string to [DataType]
//   - [New]: zero-filled buffer of a datatype
//   - [Decode]: raw little/big endian bytes to a buffer
//   - [Encode]: buffer to raw bytes
//   - [Int64s]: widen an integer buffer for index arithmetic
package dtype
