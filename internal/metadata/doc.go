// Package metadata owns the artifact metadata collection: the mapping from a
// short identifier to the storage reference, display name, type and size of
// a relayed file.
//
// The collection lives in memory behind a read/write lock and is mirrored to
// a single pretty-printed JSON document (`{"files": {...}}`). Every mutation
// rewrites the whole mirror before the in-memory state changes, so a failed
// write leaves the collection exactly as it was. Construct a Store with New
// and call Load once during bootstrap.
package metadata
