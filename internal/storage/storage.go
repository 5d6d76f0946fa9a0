package storage

import "context"

// Backend stores named blobs under a root (a directory or a bucket prefix).
type Backend interface {
	Write(ctx context.Context, name string, data []byte) error
	Location(name string) string
}
