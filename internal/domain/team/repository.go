package team

import "context"

// Repository describes team persistence needs of the resolver.
type Repository interface {
	GetByName(ctx context.Context, name string) (Team, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (Team, bool, error)
	// Create returns ErrAlreadyExists when another writer inserted the same external id first.
	Create(ctx context.Context, item Team) error
	UpdateName(ctx context.Context, teamID, name string) error
}
