// Package db holds the storage backends a paste lives in. One backend is
// selected at startup; the rest of the service only sees the Store
// interface.
package db

import (
	"context"
	"time"

	"bindrop/pkg/domain"
)

// Store is the persistence contract the dispatcher depends on. Identifiers
// cross this boundary in their encoded string form; each backend owns the
// decoding because the identifier domain (fixed-width object id vs. 64-bit
// counter) is a backend property. A malformed id fails with
// domain.ErrIDMalformed, an unknown one with domain.ErrIDNotFound.
type Store interface {
	// Put persists a new entry and returns its encoded identifier.
	// Identifier generation is atomic at the backend; no id is returned
	// unless the write succeeded.
	Put(ctx context.Context, entry *domain.PasteEntry) (string, error)

	// Get loads an entry. Entries past their best-before are absent.
	Get(ctx context.Context, id string) (*domain.PasteEntry, error)

	// FileName returns the stored file name, "" when the entry has none.
	FileName(ctx context.Context, id string) (string, error)

	// Remove deletes an entry. Removing a nonexistent id is not an error.
	Remove(ctx context.Context, id string) error

	// MaxDataSize is the backend's payload ceiling in bytes.
	MaxDataSize() int64

	Ping(ctx context.Context) error
	Close() error
}

// Pruner is implemented by backends without native TTL support; the
// cleanup worker calls it periodically.
type Pruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
