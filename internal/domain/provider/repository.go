package provider

import "context"

// Repository is read-only: providers are provisioned outside the sync engine.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Provider, bool, error)
}
