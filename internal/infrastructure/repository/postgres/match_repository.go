package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/odds-sync/internal/domain/match"
	qb "github.com/riskibarqy/odds-sync/internal/platform/querybuilder"
)

var matchColumns = []string{
	"public_id", "external_id", "league_public_id", "home_team_public_id", "away_team_public_id",
	"scheduled_at", "status", "home_score", "away_score", "venue", "round", "season",
	"last_synced_at", "odds", "created_at", "updated_at",
}

// Columns an update must leave alone: identity, lifecycle status, scores and creation time.
var matchUpdateSkip = []string{
	"public_id", "external_id", "status", "home_score", "away_score", "venue", "round", "season", "created_at",
}

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchColumns...).From("matches").
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match by external id query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match by external id=%s: %w", externalID, err)
	}

	return matchFromRow(row), true, nil
}

func (r *MatchRepository) Create(ctx context.Context, item match.Match) error {
	if err := item.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel("matches", matchToWriteModel(item), "")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external id %s", match.ErrAlreadyExists, item.ExternalID)
		}
		return fmt.Errorf("insert match external_id=%s: %w", item.ExternalID, err)
	}
	return nil
}

func (r *MatchRepository) Update(ctx context.Context, item match.Match) error {
	query, args, err := qb.UpdateModel("matches", matchToWriteModel(item), qb.Eq("public_id", item.ID), matchUpdateSkip...)
	if err != nil {
		return fmt.Errorf("build update match query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update match external_id=%s: %w", item.ExternalID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("match %s not found", item.ExternalID)
	}
	return nil
}

func matchToWriteModel(item match.Match) matchWriteModel {
	odds := string(item.OddsJSON)
	if odds == "" {
		odds = "{}"
	}
	return matchWriteModel{
		PublicID:         item.ID,
		ExternalID:       item.ExternalID,
		LeaguePublicID:   item.LeagueID,
		HomeTeamPublicID: item.HomeTeamID,
		AwayTeamPublicID: item.AwayTeamID,
		ScheduledAt:      item.ScheduledAt.UTC(),
		Status:           string(item.Status),
		HomeScore:        nullableInt(item.HomeScore),
		AwayScore:        nullableInt(item.AwayScore),
		Venue:            nullableString(item.Venue),
		Round:            nullableString(item.Round),
		Season:           nullableString(item.Season),
		LastSyncedAt:     item.LastSyncedAt.UTC(),
		Odds:             odds,
		CreatedAt:        item.CreatedAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:           row.PublicID,
		ExternalID:   row.ExternalID,
		LeagueID:     row.LeaguePublicID,
		HomeTeamID:   row.HomeTeamPublicID,
		AwayTeamID:   row.AwayTeamPublicID,
		ScheduledAt:  row.ScheduledAt.UTC(),
		Status:       match.Status(row.Status),
		HomeScore:    intPointer(row.HomeScore),
		AwayScore:    intPointer(row.AwayScore),
		Venue:        row.Venue.String,
		Round:        row.Round.String,
		Season:       row.Season.String,
		LastSyncedAt: row.LastSyncedAt.UTC(),
		OddsJSON:     row.Odds,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}
