// Package store persists conversation threads behind a pluggable SQL driver.
package store

import "context"

// Driver is the database-specific half of the conversation store.
// ListThreadKeys is a full scan over all persisted threads; callers
// filter by user prefix. A production driver may back it with a real
// secondary index without changing this contract.
type Driver interface {
	EnsureSchema(ctx context.Context) error
	AppendMessages(ctx context.Context, append *AppendMessages) error
	ListMessages(ctx context.Context, find *FindMessages) ([]*Message, error)
	ListThreadKeys(ctx context.Context) ([]string, error)
	Close() error
}

// Store is the driver-agnostic conversation store.
type Store struct {
	driver Driver
}

// New wraps a driver and ensures its schema exists.
func New(ctx context.Context, driver Driver) (*Store, error) {
	if err := driver.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return &Store{driver: driver}, nil
}

// AppendMessages atomically extends a thread's message sequence.
func (s *Store) AppendMessages(ctx context.Context, append *AppendMessages) error {
	return s.driver.AppendMessages(ctx, append)
}

// ListMessages returns a thread's full history, oldest first. A thread
// that has never been written to yields an empty slice, not an error.
func (s *Store) ListMessages(ctx context.Context, find *FindMessages) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// ListThreadKeys returns every distinct thread key ever written.
func (s *Store) ListThreadKeys(ctx context.Context) ([]string, error) {
	return s.driver.ListThreadKeys(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.driver.Close()
}
