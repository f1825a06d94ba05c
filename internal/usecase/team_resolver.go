package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/team"
	idgen "github.com/riskibarqy/odds-sync/internal/platform/id"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
)

// ResolveOutcome says how a team was obtained.
type ResolveOutcome string

const (
	ResolveFound   ResolveOutcome = "found"
	ResolveCreated ResolveOutcome = "created"

	// ResolveConflict means our insert lost a race and the winner's row was returned.
	ResolveConflict ResolveOutcome = "conflict"
)

type TeamResolution struct {
	Team    team.Team
	Outcome ResolveOutcome
	// Renamed is set when a team found by external id had its stored name corrected.
	Renamed bool
}

type TeamResolver struct {
	teams  team.Repository
	ids    idgen.Generator
	now    func() time.Time
	logger *logging.Logger
}

func NewTeamResolver(teams team.Repository, ids idgen.Generator, logger *logging.Logger) *TeamResolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamResolver{
		teams:  teams,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
}

// Resolve maps a provider team name to a stored team, creating it on first sighting.
// Lookup order is exact name, then the external id derived from the name.
func (r *TeamResolver) Resolve(ctx context.Context, name, countryHint string) (TeamResolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamResolver.Resolve")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return TeamResolution{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	existing, found, err := r.teams.GetByName(ctx, name)
	if err != nil {
		return TeamResolution{}, fmt.Errorf("get team by name %q: %w", name, err)
	}
	if found {
		return TeamResolution{Team: existing, Outcome: ResolveFound}, nil
	}

	externalID := team.ExternalIDFromName(name)
	existing, found, err = r.teams.GetByExternalID(ctx, externalID)
	if err != nil {
		return TeamResolution{}, fmt.Errorf("get team by external id %q: %w", externalID, err)
	}
	if found {
		return r.correctName(ctx, existing, name)
	}

	id, err := r.ids.NewID()
	if err != nil {
		return TeamResolution{}, fmt.Errorf("generate team id: %w", err)
	}
	now := r.now().UTC()
	candidate := team.Team{
		ID:         id,
		ExternalID: externalID,
		Name:       name,
		Country:    strings.TrimSpace(countryHint),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := candidate.Validate(); err != nil {
		return TeamResolution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = r.teams.Create(ctx, candidate)
	switch {
	case err == nil:
		r.logger.InfoContext(ctx, "team created", "team_id", candidate.ID, "external_id", externalID, "name", name)
		return TeamResolution{Team: candidate, Outcome: ResolveCreated}, nil
	case errors.Is(err, team.ErrAlreadyExists):
		return r.recoverConflict(ctx, name, externalID)
	default:
		return TeamResolution{}, fmt.Errorf("create team %q: %w", name, err)
	}
}

func (r *TeamResolver) correctName(ctx context.Context, existing team.Team, name string) (TeamResolution, error) {
	if existing.Name == name {
		return TeamResolution{Team: existing, Outcome: ResolveFound}, nil
	}

	if err := r.teams.UpdateName(ctx, existing.ID, name); err != nil {
		return TeamResolution{}, fmt.Errorf("rename team %s: %w", existing.ID, err)
	}
	r.logger.InfoContext(ctx, "team renamed by provider",
		"team_id", existing.ID,
		"external_id", existing.ExternalID,
		"old_name", existing.Name,
		"new_name", name,
	)
	existing.Name = name
	existing.UpdatedAt = r.now().UTC()
	return TeamResolution{Team: existing, Outcome: ResolveFound, Renamed: true}, nil
}

// recoverConflict re-reads the row a concurrent writer inserted between our lookup and insert.
func (r *TeamResolver) recoverConflict(ctx context.Context, name, externalID string) (TeamResolution, error) {
	existing, found, err := r.teams.GetByName(ctx, name)
	if err != nil {
		return TeamResolution{}, fmt.Errorf("refetch team by name %q after conflict: %w", name, err)
	}
	if !found {
		existing, found, err = r.teams.GetByExternalID(ctx, externalID)
		if err != nil {
			return TeamResolution{}, fmt.Errorf("refetch team by external id %q after conflict: %w", externalID, err)
		}
	}
	if !found {
		return TeamResolution{}, fmt.Errorf("team %q conflicted on insert but no row was found by name or external id %q", name, externalID)
	}

	r.logger.DebugContext(ctx, "team insert conflict recovered", "team_id", existing.ID, "external_id", externalID)
	return TeamResolution{Team: existing, Outcome: ResolveConflict}, nil
}
