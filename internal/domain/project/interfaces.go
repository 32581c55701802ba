package project

import "context"

// Store holds the authoritative project list.
//
// Implementations assume a single writer; List returns records in insertion order.
type Store interface {
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	Insert(ctx context.Context, proj *Project) error
	// Replace overwrites the record with the same id. It is a no-op when the id is absent.
	Replace(ctx context.Context, proj *Project) error
	Remove(ctx context.Context, id string) (*Project, error)
}
