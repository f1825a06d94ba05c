package match

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyExists is returned by Repository.Create when the external id is taken.
var ErrAlreadyExists = errors.New("match already exists")

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusPostponed Status = "postponed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusFinished, StatusPostponed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Match is one provider fixture. ExternalID is the provider fixture id and
// the idempotency key of every sync run.
type Match struct {
	ID           string
	ExternalID   string
	LeagueID     string
	HomeTeamID   string
	AwayTeamID   string
	ScheduledAt  time.Time
	Status       Status
	HomeScore    *int
	AwayScore    *int
	Venue        string
	Round        string
	Season       string
	LastSyncedAt time.Time
	// OddsJSON is the merged provider fixture, stored verbatim.
	OddsJSON  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.ExternalID == "" {
		return fmt.Errorf("match external id is required")
	}
	if m.LeagueID == "" {
		return fmt.Errorf("match league id is required")
	}
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("match home and away team ids are required")
	}
	if m.ScheduledAt.IsZero() {
		return fmt.Errorf("match scheduled time is required")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid match status %q", m.Status)
	}
	return nil
}
