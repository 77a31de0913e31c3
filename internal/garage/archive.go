package garage

import (
	"context"
	"io"
)

// Archive stores exported component envelopes. Keys are slash separated,
// e.g. "suspension/street-coilovers-12.json".
type Archive interface {
	// Put stores size bytes read from r under key, replacing any previous
	// object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the object stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// ValidateSetup verifies that the archive is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
