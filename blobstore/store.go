// Package blobstore provides storage abstraction for the engine's persisted
// artifacts (the binary index blob and its metadata sidecar).
//
// Artifacts are small relative to typical object-store payloads and are always
// rewritten in full, so the interface deals in whole blobs rather than ranged
// reads. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes via temp file + rename
//   - MemoryStore: in-memory, for tests and ephemeral engines
//   - s3.Store: Amazon S3
//   - s3.DDBCommitStore: S3 plus a DynamoDB commit marker for torn-pair detection
//   - minio.Store: MinIO and other S3-compatible endpoints
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing named artifacts.
type Store interface {
	// Get returns the full content of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes the blob in full, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
