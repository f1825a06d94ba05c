package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/match"
	"github.com/riskibarqy/odds-sync/internal/domain/oddsfeed"
	idgen "github.com/riskibarqy/odds-sync/internal/platform/id"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
)

type teamResolving interface {
	Resolve(ctx context.Context, name, countryHint string) (TeamResolution, error)
}

type MatchUpsertResult struct {
	Match   match.Match
	Created bool
	// Recovered is set when a concurrent writer created the match first and its row was returned.
	Recovered bool
}

type MatchUpserter struct {
	matches match.Repository
	teams   teamResolving
	ids     idgen.Generator
	now     func() time.Time
	logger  *logging.Logger
}

func NewMatchUpserter(matches match.Repository, teams teamResolving, ids idgen.Generator, logger *logging.Logger) *MatchUpserter {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchUpserter{
		matches: matches,
		teams:   teams,
		ids:     ids,
		now:     time.Now,
		logger:  logger,
	}
}

// Upsert writes one merged provider fixture, keyed by its provider id.
// Fixtures missing an id, a parseable kickoff or either team name fail with ErrInvalidFixture.
func (u *MatchUpserter) Upsert(ctx context.Context, fixture oddsfeed.FixtureRecord, lg league.League) (MatchUpsertResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchUpserter.Upsert")
	defer span.End()

	externalID := fixture.ID()
	if externalID == "" {
		return MatchUpsertResult{}, fmt.Errorf("%w: missing fixture id", ErrInvalidFixture)
	}
	kickoff, err := fixture.CommenceTime()
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("%w: fixture %s: %v", ErrInvalidFixture, externalID, err)
	}
	homeName, awayName := fixture.HomeTeam(), fixture.AwayTeam()
	if homeName == "" || awayName == "" {
		return MatchUpsertResult{}, fmt.Errorf("%w: fixture %s: missing home or away team", ErrInvalidFixture, externalID)
	}

	existing, found, err := u.matches.GetByExternalID(ctx, externalID)
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("get match %s: %w", externalID, err)
	}

	home, err := u.teams.Resolve(ctx, homeName, lg.Country)
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("resolve home team %q: %w", homeName, err)
	}
	away, err := u.teams.Resolve(ctx, awayName, lg.Country)
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("resolve away team %q: %w", awayName, err)
	}

	odds, err := fixture.MarshalJSON()
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("encode odds payload for fixture %s: %w", externalID, err)
	}

	now := u.now().UTC()
	if found {
		existing.LeagueID = lg.ID
		existing.HomeTeamID = home.Team.ID
		existing.AwayTeamID = away.Team.ID
		existing.ScheduledAt = kickoff
		existing.LastSyncedAt = now
		existing.OddsJSON = odds
		existing.UpdatedAt = now
		if err := u.matches.Update(ctx, existing); err != nil {
			return MatchUpsertResult{}, fmt.Errorf("update match %s: %w", externalID, err)
		}
		return MatchUpsertResult{Match: existing}, nil
	}

	id, err := u.ids.NewID()
	if err != nil {
		return MatchUpsertResult{}, fmt.Errorf("generate match id: %w", err)
	}
	created := match.Match{
		ID:           id,
		ExternalID:   externalID,
		LeagueID:     lg.ID,
		HomeTeamID:   home.Team.ID,
		AwayTeamID:   away.Team.ID,
		ScheduledAt:  kickoff,
		Status:       match.StatusScheduled,
		LastSyncedAt: now,
		OddsJSON:     odds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := created.Validate(); err != nil {
		return MatchUpsertResult{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	err = u.matches.Create(ctx, created)
	switch {
	case err == nil:
		return MatchUpsertResult{Match: created, Created: true}, nil
	case errors.Is(err, match.ErrAlreadyExists):
		winner, ok, getErr := u.matches.GetByExternalID(ctx, externalID)
		if getErr != nil {
			return MatchUpsertResult{}, fmt.Errorf("refetch match %s after conflict: %w", externalID, getErr)
		}
		if !ok {
			return MatchUpsertResult{}, fmt.Errorf("match %s conflicted on insert but was not found", externalID)
		}
		u.logger.DebugContext(ctx, "match insert conflict recovered", "external_id", externalID, "match_id", winner.ID)
		return MatchUpsertResult{Match: winner, Recovered: true}, nil
	default:
		return MatchUpsertResult{}, fmt.Errorf("create match %s: %w", externalID, err)
	}
}
