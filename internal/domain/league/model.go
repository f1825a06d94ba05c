package league

import "fmt"

// League is a competition the provider publishes fixtures for.
// ExternalID is the provider's key, e.g. "soccer_epl".
type League struct {
	ID         string
	ProviderID string
	ExternalID string
	Name       string
	// Country is empty for international competitions.
	Country string
	LogoURL string
	Active  bool
}

func (l League) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("league id is required")
	}
	if l.ProviderID == "" {
		return fmt.Errorf("league provider id is required")
	}
	if l.ExternalID == "" {
		return fmt.Errorf("league external id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("league name is required")
	}
	return nil
}
