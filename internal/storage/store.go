// Package storage persists planner documents.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no document has been stored yet.
var ErrNotFound = errors.New("storage: no saved document")

// Store persists the serialized planner document. Implementations keep only
// the latest document visible through Load.
type Store interface {
	Store(ctx context.Context, doc []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// Snapshot is one entry of the sqlite history table.
type Snapshot struct {
	ID      int64
	SavedAt time.Time
	Size    int
}
