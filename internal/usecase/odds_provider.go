package usecase

import (
	"context"
	"time"
)

// OddsQuery selects one league and market group. From/To are optional kickoff bounds.
type OddsQuery struct {
	LeagueKey  string
	Regions    string
	Markets    string
	OddsFormat string
	From       *time.Time
	To         *time.Time
}

type ProviderSport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// OddsProvider is the upstream odds API. FetchOdds returns the raw body so
// shape handling stays with the parser.
type OddsProvider interface {
	FetchOdds(ctx context.Context, query OddsQuery) ([]byte, error)
	FetchSports(ctx context.Context, all bool) ([]ProviderSport, error)
}
