package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/odds-sync/internal/domain/league"
	qb "github.com/riskibarqy/odds-sync/internal/platform/querybuilder"
)

var leagueColumns = []string{
	"public_id", "provider_public_id", "external_id", "name", "country", "logo_url", "is_active",
}

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) GetByExternalID(ctx context.Context, providerID, externalID string) (league.League, bool, error) {
	query, args, err := qb.Select(leagueColumns...).From("leagues").
		Where(
			qb.Eq("provider_public_id", providerID),
			qb.Eq("external_id", externalID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league by external id query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("select league by external id=%s: %w", externalID, err)
	}

	return leagueFromRow(row), true, nil
}

func (r *LeagueRepository) ListActiveByProvider(ctx context.Context, providerID string) ([]league.League, error) {
	query, args, err := qb.Select(leagueColumns...).From("leagues").
		Where(
			qb.Eq("provider_public_id", providerID),
			qb.Eq("is_active", true),
		).
		OrderBy("external_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select active leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select active leagues by provider=%s: %w", providerID, err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueFromRow(row))
	}
	return out, nil
}

func leagueFromRow(row leagueTableModel) league.League {
	return league.League{
		ID:         row.PublicID,
		ProviderID: row.ProviderPublicID,
		ExternalID: row.ExternalID,
		Name:       row.Name,
		Country:    row.Country.String,
		LogoURL:    row.LogoURL.String,
		Active:     row.IsActive,
	}
}
