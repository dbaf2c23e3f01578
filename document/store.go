package document

import "context"

// Store is the narrow persistence contract the workflow engine depends on.
// CompareAndSet must be atomic on (id, expected status): when the stored
// status no longer matches, the implementation returns
// *ConcurrentModificationError and leaves the record untouched, so two
// racing transitions can never both succeed silently.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	CompareAndSet(ctx context.Context, id string, expected Status, rec Record) (Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
}
