// Package zarr implements a read-mostly Zarr v2 hierarchy on top of a
// key-value [Store].
//
// A hierarchy is a tree of groups and arrays. Each node keeps its metadata
// under well-known keys:
//
//	<path>/.zgroup   group marker
//	<path>/.zarray   array metadata (shape, chunks, dtype, codecs)
//	<path>/.zattrs   user attributes (optional)
//
// Array data is split into chunks stored under "<path>/<i>.<j>..." keys.
// [Get] reads only the chunks a [Selector] touches and assembles them into a
// C-ordered [Chunk].
//
// # Stores
//
//   - [MemoryStore]: in-memory, used for tests and ephemeral arrays
//   - [DirectoryStore]: files on local disk
//   - zarr/s3 and zarr/minio: object storage
//
// Stores compose: [NewCachingStore], [NewInstrumentedStore],
// [NewLimitedStore] and [OpenConsolidated] wrap another store.
//
// # Key Types
//
//   - [Location]: a store plus a node path
//   - [Group], [Array]: opened nodes, see [Open]
//   - [Selector]: per-axis index, range or full selection
//   - [Chunk]: typed data with shape and strides
package zarr
