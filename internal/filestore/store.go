// Package filestore keeps the original upload bytes. The stored path is a
// privileged report field and is never exposed through any view payload.
package filestore

import "context"

// FileStore persists original document bytes under an opaque key. Deleting
// a report invalidates its stored file through Remove.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (path string, err error)
	Remove(ctx context.Context, path string) error
}
