// Package store defines the record store contract for the Overflow server:
// atomic operation batches and filtered reads over named collections.
package store

import "context"

// Reader runs reads outside any batch.
type Reader interface {
	// Get returns one record. Projection limits the returned fields; the id
	// is always included. Returns ErrNotFound when no row matches.
	Get(ctx context.Context, coll Collection, id string, projection ...string) (Record, error)

	// List returns the records matching q.
	List(ctx context.Context, coll Collection, q Query) ([]Record, error)

	// Count returns the number of records matching every filter.
	Count(ctx context.Context, coll Collection, filters ...Filter) (int, error)
}

// Store is a single logical data store that applies batches atomically.
type Store interface {
	Reader

	// Begin opens a new batch. Nothing is written until Commit.
	Begin(ctx context.Context) (Batch, error)

	Close() error
}

// Batch buffers operations and applies them all-or-nothing.
//
// Operations are applied in submission order, so a later operation may
// reference a record created by an earlier one. A failed Commit leaves no
// trace of any operation. A batch is single use: after Commit or Rollback
// further calls return ErrBatchClosed.
type Batch interface {
	ID() string
	Add(op Op) error
	Commit(ctx context.Context) error
	Rollback() error
}
