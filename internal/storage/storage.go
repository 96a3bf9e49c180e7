// Package storage defines the Storage interface used for document file
// persistence. The only shipped backend is the local filesystem backend in the
// local subpackage; the interface keeps the document handlers independent of
// where the bytes actually live.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is what the document handlers require of a file backend. Paths are
// forward-slash storage keys (org/document/filename), not filesystem paths.
type Storage interface {
	// Upload stores the reader's contents at path and reports the written
	// size and checksum.
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download streams the stored file. The caller closes the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the stored file. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a file is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata returns size, checksum, and modification time without
	// streaming the contents to the caller.
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// UploadResult reports what Upload persisted.
type UploadResult struct {
	// Path is the storage key the file was written under.
	Path string

	// Size is the number of bytes written.
	Size int64

	// Checksum is the SHA-256 of the written bytes, lowercase hex.
	Checksum string
}

// FileMetadata describes a stored file.
type FileMetadata struct {
	// Path is the storage key of the file.
	Path string

	// Size is the file size in bytes.
	Size int64

	// Checksum is the SHA-256 of the stored bytes, lowercase hex.
	Checksum string

	// LastModified is when the stored file last changed.
	LastModified time.Time
}
