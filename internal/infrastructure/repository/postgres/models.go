package postgres

import (
	"database/sql"
	"time"
)

type providerTableModel struct {
	PublicID           string `db:"public_id"`
	Code               string `db:"code"`
	Name               string `db:"name"`
	BaseURL            string `db:"base_url"`
	IsActive           bool   `db:"is_active"`
	RateLimitPerMinute int    `db:"rate_limit_per_minute"`
	RateLimitPerDay    int    `db:"rate_limit_per_day"`
}

type leagueTableModel struct {
	PublicID         string         `db:"public_id"`
	ProviderPublicID string         `db:"provider_public_id"`
	ExternalID       string         `db:"external_id"`
	Name             string         `db:"name"`
	Country          sql.NullString `db:"country"`
	LogoURL          sql.NullString `db:"logo_url"`
	IsActive         bool           `db:"is_active"`
}

type teamTableModel struct {
	PublicID   string         `db:"public_id"`
	ExternalID string         `db:"external_id"`
	Name       string         `db:"name"`
	ShortName  sql.NullString `db:"short_name"`
	Country    sql.NullString `db:"country"`
	LogoURL    sql.NullString `db:"logo_url"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type matchTableModel struct {
	PublicID         string         `db:"public_id"`
	ExternalID       string         `db:"external_id"`
	LeaguePublicID   string         `db:"league_public_id"`
	HomeTeamPublicID string         `db:"home_team_public_id"`
	AwayTeamPublicID string         `db:"away_team_public_id"`
	ScheduledAt      time.Time      `db:"scheduled_at"`
	Status           string         `db:"status"`
	HomeScore        sql.NullInt64  `db:"home_score"`
	AwayScore        sql.NullInt64  `db:"away_score"`
	Venue            sql.NullString `db:"venue"`
	Round            sql.NullString `db:"round"`
	Season           sql.NullString `db:"season"`
	LastSyncedAt     time.Time      `db:"last_synced_at"`
	Odds             []byte         `db:"odds"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// matchWriteModel is the column set written on insert. Odds travel as text
// so the driver does not encode them as bytea.
type matchWriteModel struct {
	PublicID         string         `db:"public_id"`
	ExternalID       string         `db:"external_id"`
	LeaguePublicID   string         `db:"league_public_id"`
	HomeTeamPublicID string         `db:"home_team_public_id"`
	AwayTeamPublicID string         `db:"away_team_public_id"`
	ScheduledAt      time.Time      `db:"scheduled_at"`
	Status           string         `db:"status"`
	HomeScore        sql.NullInt64  `db:"home_score"`
	AwayScore        sql.NullInt64  `db:"away_score"`
	Venue            sql.NullString `db:"venue"`
	Round            sql.NullString `db:"round"`
	Season           sql.NullString `db:"season"`
	LastSyncedAt     time.Time      `db:"last_synced_at"`
	Odds             string         `db:"odds"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}
