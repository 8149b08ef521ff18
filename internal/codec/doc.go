// Package codec implements the numcodecs compressors and filters used by
// zarr v2 chunks.
//
// A chunk is written by applying each filter in order and then the
// compressor. Reading reverses that: the compressor is decoded first, then
// the filters from last to first.
//
// # Supported Codecs
//
//   - zlib, gzip: DEFLATE via klauspost/compress
//   - zstd: Zstandard frames via klauspost/compress/zstd
//   - lz4: numcodecs LZ4 (4 byte size header plus an LZ4 block)
//   - blosc: blosc1 frames with lz4, lz4hc, zlib, zstd or snappy inner
//     codecs and optional byte shuffle. Bit shuffle and blosclz are
//     recognized but not supported.
//   - shuffle: numcodecs byte shuffle filter
//   - vlen-utf8: object codec for variable length strings
//
// # Key Types
//
//   - [Codec]: byte to byte transform (ID, Decode, Encode)
//   - [ObjectCodec]: strings to bytes transform for object arrays
//   - [Pipeline]: compressor plus filters for one array
package codec
