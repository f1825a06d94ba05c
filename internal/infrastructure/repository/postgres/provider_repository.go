package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/odds-sync/internal/domain/provider"
	qb "github.com/riskibarqy/odds-sync/internal/platform/querybuilder"
)

var providerColumns = []string{
	"public_id", "code", "name", "base_url", "is_active", "rate_limit_per_minute", "rate_limit_per_day",
}

type ProviderRepository struct {
	db *sqlx.DB
}

func NewProviderRepository(db *sqlx.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) GetByCode(ctx context.Context, code string) (provider.Provider, bool, error) {
	query, args, err := qb.Select(providerColumns...).From("providers").
		Where(qb.Eq("code", code)).
		Limit(1).
		ToSQL()
	if err != nil {
		return provider.Provider{}, false, fmt.Errorf("build select provider by code query: %w", err)
	}

	var row providerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return provider.Provider{}, false, nil
		}
		return provider.Provider{}, false, fmt.Errorf("select provider by code=%s: %w", code, err)
	}

	return provider.Provider{
		ID:                 row.PublicID,
		Code:               row.Code,
		Name:               row.Name,
		BaseURL:            row.BaseURL,
		Active:             row.IsActive,
		RateLimitPerMinute: row.RateLimitPerMinute,
		RateLimitPerDay:    row.RateLimitPerDay,
	}, true, nil
}
