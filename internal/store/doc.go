// Package store persists attribute containers in a single SQLite file.
//
// Each container type with a schema is a table with one column per
// attribute, in alphabetical order. Types without a schema are a table with
// a single payload column holding the serialized container, zlib-compressed
// when the file was created with compression. Every table has an
// autoincrementing _identifier primary key; a container's identifier is
// "<type>.<_identifier>".
//
// # Write path
//
// Add assigns the next sequence number of the container's type and
// buffers the row. A type's batch is written with multi-row INSERTs in one
// transaction when it reaches MaximumWriteCacheSize, before any read,
// update or count of that type, on Flush and on Close.
//
// # Metadata
//
// The metadata table records the format version, compression format and
// serialization format. A read-write open upgrades older compatible files
// in place. A read-only open accepts files of newer format versions.
//
// # Database Configuration
//
//   - journal_mode=MEMORY: no on-disk rollback journal
//   - synchronous=OFF: no fsync on commit
//   - one connection per Store
//
// A Store is not safe for concurrent use.
package store
