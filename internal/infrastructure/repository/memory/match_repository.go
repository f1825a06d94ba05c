package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/odds-sync/internal/domain/match"
)

// MatchRepository enforces the same unique external id constraint as the matches table.
type MatchRepository struct {
	mu           sync.RWMutex
	byExternalID map[string]match.Match
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{byExternalID: make(map[string]match.Match)}
}

func (r *MatchRepository) GetByExternalID(_ context.Context, externalID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byExternalID[externalID]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) Create(_ context.Context, item match.Match) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byExternalID[item.ExternalID]; exists {
		return fmt.Errorf("%w: external id %s", match.ErrAlreadyExists, item.ExternalID)
	}
	r.byExternalID[item.ExternalID] = cloneMatch(item)
	return nil
}

func (r *MatchRepository) Update(_ context.Context, item match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byExternalID[item.ExternalID]
	if !ok || current.ID != item.ID {
		return fmt.Errorf("match %s not found", item.ExternalID)
	}

	current.LeagueID = item.LeagueID
	current.HomeTeamID = item.HomeTeamID
	current.AwayTeamID = item.AwayTeamID
	current.ScheduledAt = item.ScheduledAt
	current.LastSyncedAt = item.LastSyncedAt
	current.OddsJSON = append([]byte(nil), item.OddsJSON...)
	current.UpdatedAt = item.UpdatedAt
	r.byExternalID[item.ExternalID] = current
	return nil
}

// List returns all matches ordered by kickoff then external id.
func (r *MatchRepository) List(_ context.Context) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0, len(r.byExternalID))
	for _, item := range r.byExternalID {
		out = append(out, cloneMatch(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

func cloneMatch(item match.Match) match.Match {
	item.OddsJSON = append([]byte(nil), item.OddsJSON...)
	return item
}
