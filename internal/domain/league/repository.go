package league

import "context"

// Repository is read-only from the sync engine's point of view.
type Repository interface {
	GetByExternalID(ctx context.Context, providerID, externalID string) (League, bool, error)
	ListActiveByProvider(ctx context.Context, providerID string) ([]League, error)
}
