// Package media owns the lifecycle of uploaded catalog files: raw buffers go
// up to object storage, stable URLs come back, and URLs can be deleted again.
// Every call is independently retryable; nothing here participates in the
// catalog's atomic units.
package media

import "context"

// File is an uploaded buffer as received from the transport layer.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Store interface {
	// Upload stores the file and returns its public URL.
	Upload(ctx context.Context, f *File) (string, error)
	// Delete removes the object behind url. Deleting a URL that no longer
	// exists (or was never ours) is not an error.
	Delete(ctx context.Context, url string) error
}
