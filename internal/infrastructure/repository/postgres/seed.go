package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/odds-sync/internal/infrastructure/repository/memory"
	qb "github.com/riskibarqy/odds-sync/internal/platform/querybuilder"
)

// BootstrapSeed inserts the provider registry and league catalog when the
// providers table is empty.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM providers`); err != nil {
		return fmt.Errorf("count providers for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range memory.SeedProviders() {
		query, args, err := qb.InsertModel("providers", providerTableModel{
			PublicID:           p.ID,
			Code:               p.Code,
			Name:               p.Name,
			BaseURL:            p.BaseURL,
			IsActive:           p.Active,
			RateLimitPerMinute: p.RateLimitPerMinute,
			RateLimitPerDay:    p.RateLimitPerDay,
		}, "ON CONFLICT (code) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build seed provider %s query: %w", p.Code, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed provider %s: %w", p.Code, err)
		}
	}

	for _, l := range memory.SeedLeagues() {
		query, args, err := qb.InsertModel("leagues", leagueTableModel{
			PublicID:         l.ID,
			ProviderPublicID: l.ProviderID,
			ExternalID:       l.ExternalID,
			Name:             l.Name,
			Country:          nullableString(l.Country),
			LogoURL:          nullableString(l.LogoURL),
			IsActive:         l.Active,
		}, "ON CONFLICT (provider_public_id, external_id) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build seed league %s query: %w", l.ExternalID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed league %s: %w", l.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
