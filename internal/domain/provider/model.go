package provider

import "fmt"

// CodeTheOddsAPI is the registry code of The Odds API.
const CodeTheOddsAPI = "THE_ODDS_API"

// Provider is a static registry entry for an upstream data source.
type Provider struct {
	ID                 string
	Code               string
	Name               string
	// BaseURL is informational; requests go to ODDS_API_BASE_URL.
	BaseURL            string
	Active             bool
	RateLimitPerMinute int
	RateLimitPerDay    int
}

func (p Provider) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	if p.Code == "" {
		return fmt.Errorf("provider code is required")
	}
	return nil
}
