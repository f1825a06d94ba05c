package match

import "context"

// Repository describes match persistence needs of the upsert step.
type Repository interface {
	GetByExternalID(ctx context.Context, externalID string) (Match, bool, error)
	// Create returns ErrAlreadyExists when another writer inserted the same external id first.
	Create(ctx context.Context, item Match) error
	// Update refreshes sync-owned columns; status, scores and created_at are left untouched.
	Update(ctx context.Context, item Match) error
}
