package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/odds-sync/internal/domain/league"
)

type LeagueRepository struct {
	mu      sync.RWMutex
	leagues []league.League
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	return &LeagueRepository{leagues: append([]league.League(nil), leagues...)}
}

func (r *LeagueRepository) GetByExternalID(_ context.Context, providerID, externalID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.leagues {
		if item.ProviderID == providerID && item.ExternalID == externalID {
			return item, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) ListActiveByProvider(_ context.Context, providerID string) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.leagues))
	for _, item := range r.leagues {
		if item.ProviderID == providerID && item.Active {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}
