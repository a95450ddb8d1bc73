package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists at the path.
var ErrNotFound = errors.New("storage object not found")

// Storage stores opaque blobs (payment proofs and their thumbnails) by relative path.
type Storage interface {
	// Save writes content to path, replacing any previous object.
	// A partially written object is never visible under path.
	Save(ctx context.Context, path string, content io.Reader) error

	// Get opens the object at path. It returns ErrNotFound when it does not exist.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Deleting a missing object is not an error,
	// so compensation paths can call it more than once.
	Delete(ctx context.Context, path string) error
}
