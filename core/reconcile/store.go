package reconcile

import "context"

// ConflictStore is the persistence the tracker needs. Implementations are
// expected to be scoped to a single transaction.
type ConflictStore interface {
	// FindOpenConflict returns the open conflict for the subject, or nil.
	// Implementations should lock the row for the rest of the transaction.
	FindOpenConflict(ctx context.Context, entityType, entityID, fieldName string) (*Conflict, error)
	// GetConflict returns the conflict with the given id, or nil.
	GetConflict(ctx context.Context, id string) (*Conflict, error)
	CreateConflict(ctx context.Context, c *Conflict) error
	SaveConflict(ctx context.Context, c *Conflict) error
}
