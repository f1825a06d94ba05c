package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/provider"
	basecache "github.com/riskibarqy/odds-sync/internal/platform/cache"
)

type lookup[T any] struct {
	value  T
	exists bool
}

// ProviderRepository caches provider registry lookups. Misses are cached too.
type ProviderRepository struct {
	next  provider.Repository
	cache *basecache.Store[lookup[provider.Provider]]
}

func NewProviderRepository(next provider.Repository, ttl time.Duration) *ProviderRepository {
	return &ProviderRepository{next: next, cache: basecache.NewStore[lookup[provider.Provider]](ttl)}
}

func (r *ProviderRepository) GetByCode(ctx context.Context, code string) (provider.Provider, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, "provider:code:"+code, func(ctx context.Context) (lookup[provider.Provider], error) {
		item, exists, err := r.next.GetByCode(ctx, code)
		if err != nil {
			return lookup[provider.Provider]{}, err
		}
		return lookup[provider.Provider]{value: item, exists: exists}, nil
	})
	if err != nil {
		return provider.Provider{}, false, err
	}
	return cached.value, cached.exists, nil
}

type LeagueRepository struct {
	next    league.Repository
	byKey   *basecache.Store[lookup[league.League]]
	actives *basecache.Store[[]league.League]
}

func NewLeagueRepository(next league.Repository, ttl time.Duration) *LeagueRepository {
	return &LeagueRepository{
		next:    next,
		byKey:   basecache.NewStore[lookup[league.League]](ttl),
		actives: basecache.NewStore[[]league.League](ttl),
	}
}

func (r *LeagueRepository) GetByExternalID(ctx context.Context, providerID, externalID string) (league.League, bool, error) {
	key := "league:external:" + providerID + ":" + externalID
	cached, err := r.byKey.GetOrLoad(ctx, key, func(ctx context.Context) (lookup[league.League], error) {
		item, exists, err := r.next.GetByExternalID(ctx, providerID, externalID)
		if err != nil {
			return lookup[league.League]{}, err
		}
		return lookup[league.League]{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.League{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *LeagueRepository) ListActiveByProvider(ctx context.Context, providerID string) ([]league.League, error) {
	items, err := r.actives.GetOrLoad(ctx, "league:active:"+providerID, func(ctx context.Context) ([]league.League, error) {
		items, err := r.next.ListActiveByProvider(ctx, providerID)
		if err != nil {
			return nil, err
		}
		return append([]league.League(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]league.League(nil), items...), nil
}
