package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/team"
)

// TeamRepository enforces the same unique external id constraint as the teams table.
type TeamRepository struct {
	mu           sync.RWMutex
	byID         map[string]team.Team
	byExternalID map[string]string
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	r := &TeamRepository{
		byID:         make(map[string]team.Team, len(teams)),
		byExternalID: make(map[string]string, len(teams)),
	}
	for _, item := range teams {
		r.byID[item.ID] = item
		r.byExternalID[item.ExternalID] = item.ID
	}
	return r
}

// GetByName returns the oldest team with exactly this name.
func (r *TeamRepository) GetByName(_ context.Context, name string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		out   team.Team
		found bool
	)
	for _, item := range r.byID {
		if item.Name != name {
			continue
		}
		if !found || item.CreatedAt.Before(out.CreatedAt) || (item.CreatedAt.Equal(out.CreatedAt) && item.ID < out.ID) {
			out, found = item, true
		}
	}
	return out, found, nil
}

func (r *TeamRepository) GetByExternalID(_ context.Context, externalID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byExternalID[externalID]
	if !ok {
		return team.Team{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *TeamRepository) Create(_ context.Context, item team.Team) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byExternalID[item.ExternalID]; exists {
		return fmt.Errorf("%w: external id %s", team.ErrAlreadyExists, item.ExternalID)
	}
	if _, exists := r.byID[item.ID]; exists {
		return fmt.Errorf("%w: id %s", team.ErrAlreadyExists, item.ID)
	}
	r.byID[item.ID] = item
	r.byExternalID[item.ExternalID] = item.ID
	return nil
}

func (r *TeamRepository) UpdateName(_ context.Context, teamID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byID[teamID]
	if !ok {
		return fmt.Errorf("team %s not found", teamID)
	}
	item.Name = name
	item.UpdatedAt = time.Now().UTC()
	r.byID[teamID] = item
	return nil
}

// List returns all teams ordered by external id.
func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.byID))
	for _, item := range r.byID {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}
