package memory

import (
	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/provider"
)

const (
	ProviderIDTheOddsAPI = "prv-the-odds-api"

	LeagueIDPremierLeague   = "lg-soccer-epl"
	LeagueIDLaLiga          = "lg-soccer-spain-la-liga"
	LeagueIDBundesliga      = "lg-soccer-germany-bundesliga"
	LeagueIDSerieA          = "lg-soccer-italy-serie-a"
	LeagueIDChampionsLeague = "lg-soccer-uefa-champs-league"
)

func SeedProviders() []provider.Provider {
	return []provider.Provider{
		{
			ID:                 ProviderIDTheOddsAPI,
			Code:               provider.CodeTheOddsAPI,
			Name:               "The Odds API",
			BaseURL:            "https://api.the-odds-api.com/v4",
			Active:             true,
			RateLimitPerMinute: 30,
			RateLimitPerDay:    500,
		},
	}
}

func SeedLeagues() []league.League {
	return []league.League{
		{ID: LeagueIDPremierLeague, ProviderID: ProviderIDTheOddsAPI, ExternalID: "soccer_epl", Name: "English Premier League", Country: "England", Active: true},
		{ID: LeagueIDLaLiga, ProviderID: ProviderIDTheOddsAPI, ExternalID: "soccer_spain_la_liga", Name: "La Liga", Country: "Spain", Active: true},
		{ID: LeagueIDBundesliga, ProviderID: ProviderIDTheOddsAPI, ExternalID: "soccer_germany_bundesliga", Name: "Bundesliga", Country: "Germany", Active: true},
		{ID: LeagueIDSerieA, ProviderID: ProviderIDTheOddsAPI, ExternalID: "soccer_italy_serie_a", Name: "Serie A", Country: "Italy", Active: true},
		{ID: LeagueIDChampionsLeague, ProviderID: ProviderIDTheOddsAPI, ExternalID: "soccer_uefa_champs_league", Name: "UEFA Champions League", Active: false},
	}
}
