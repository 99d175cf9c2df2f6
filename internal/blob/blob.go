// Package blob provides keyed-blob persistence for the console's two pieces
// of durable state: the todo item collection and the daily upload counter.
// Each key maps to one opaque payload, mirroring the keyed-blob layout the
// product started with.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob exists under the requested key
var ErrNotFound = errors.New("blob not found")

// Store is a keyed-blob store
type Store interface {
	// Get returns the blob stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the blob under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error
}
