package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/odds-sync/internal/domain/team"
	qb "github.com/riskibarqy/odds-sync/internal/platform/querybuilder"
)

var teamColumns = []string{
	"public_id", "external_id", "name", "short_name", "country", "logo_url", "created_at", "updated_at",
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByName(ctx context.Context, name string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(qb.Eq("name", name)).
		OrderBy("created_at", "id").
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by name query: %w", err)
	}
	return r.getOne(ctx, query, args, "name="+name)
}

func (r *TeamRepository) GetByExternalID(ctx context.Context, externalID string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(qb.Eq("external_id", externalID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by external id query: %w", err)
	}
	return r.getOne(ctx, query, args, "external_id="+externalID)
}

func (r *TeamRepository) getOne(ctx context.Context, query string, args []any, label string) (team.Team, bool, error) {
	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team by %s: %w", label, err)
	}
	return teamFromRow(row), true, nil
}

func (r *TeamRepository) Create(ctx context.Context, item team.Team) error {
	if err := item.Validate(); err != nil {
		return err
	}

	insertModel := teamTableModel{
		PublicID:   item.ID,
		ExternalID: item.ExternalID,
		Name:       item.Name,
		ShortName:  nullableString(item.ShortName),
		Country:    nullableString(item.Country),
		LogoURL:    nullableString(item.LogoURL),
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
	query, args, err := qb.InsertModel("teams", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert team query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external id %s", team.ErrAlreadyExists, item.ExternalID)
		}
		return fmt.Errorf("insert team external_id=%s: %w", item.ExternalID, err)
	}
	return nil
}

func (r *TeamRepository) UpdateName(ctx context.Context, teamID, name string) error {
	query, args, err := updateTeamNameQuery(teamID, name)
	if err != nil {
		return fmt.Errorf("build update team name query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update team name id=%s: %w", teamID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("team %s not found", teamID)
	}
	return nil
}

func updateTeamNameQuery(teamID, name string) (string, []any, error) {
	return qb.Update("teams").
		Set("name", name).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", teamID)).
		ToSQL()
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:         row.PublicID,
		ExternalID: row.ExternalID,
		Name:       row.Name,
		ShortName:  row.ShortName.String,
		Country:    row.Country.String,
		LogoURL:    row.LogoURL.String,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
