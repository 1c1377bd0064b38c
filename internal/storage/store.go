// Package storage persists render assets. Two backends are provided: the
// local filesystem for development and test environments, and S3-compatible
// object storage for production.
package storage

import "context"

// Store is the asset persistence contract shared by backends.
type Store interface {
	// Write persists the bytes at the given relative key and returns the
	// canonicalized storage key.
	Write(ctx context.Context, key string, data []byte) (string, error)
	// Read fetches the bytes stored at key.
	Read(ctx context.Context, key string) ([]byte, error)
	// DownloadURL returns a URL a client can fetch the asset from, or ""
	// when the backend has no URL scheme and the API must stream bytes.
	DownloadURL(ctx context.Context, key string) (string, error)
	// Delete removes the blob stored at key. Deleting a key that does not
	// exist is not an error.
	Delete(ctx context.Context, key string) error
}
