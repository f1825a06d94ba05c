package team

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAlreadyExists is returned by Repository.Create when the external id is taken.
var ErrAlreadyExists = errors.New("team already exists")

const externalIDPrefix = "team_"

// Team is a club or national side seen in provider fixtures.
type Team struct {
	ID         string
	ExternalID string
	Name       string
	ShortName  string
	Country    string
	LogoURL    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.ExternalID == "" {
		return fmt.Errorf("team external id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}

// ExternalIDFromName derives the stable team key from a provider name:
// lower-cased, every character outside [a-z0-9] replaced by '_', prefixed with "team_".
// "Arsenal" -> "team_arsenal", "Real Madrid" -> "team_real_madrid".
// Distinct names that fold to the same key share one team.
func ExternalIDFromName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(externalIDPrefix) + len(lowered))
	b.WriteString(externalIDPrefix)
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
