// Package oddsfeed models provider fixture payloads: parsing raw bodies,
// merging market-scoped responses and reading the fields the sync needs.
package oddsfeed

import (
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
)

// Field names of The Odds API fixture objects.
const (
	fieldID           = "id"
	fieldSportKey     = "sport_key"
	fieldCommenceTime = "commence_time"
	fieldHomeTeam     = "home_team"
	fieldAwayTeam     = "away_team"
	fieldBookmakers   = "bookmakers"
	fieldKey          = "key"
	fieldTitle        = "title"
	fieldLastUpdate   = "last_update"
	fieldMarkets      = "markets"
	fieldOutcomes     = "outcomes"
	fieldName         = "name"
	fieldPrice        = "price"
	fieldPoint        = "point"
	fieldDescription  = "description"
)

// FixtureRecord is one provider fixture object. All provider fields are kept
// so the record can be stored verbatim; accessors expose the ones the
// pipeline inspects.
type FixtureRecord struct {
	fields map[string]any
}

func NewFixtureRecord(fields map[string]any) FixtureRecord {
	if fields == nil {
		fields = map[string]any{}
	}
	return FixtureRecord{fields: fields}
}

func (r FixtureRecord) ID() string {
	return getString(r.fields, fieldID)
}

func (r FixtureRecord) SportKey() string {
	return getString(r.fields, fieldSportKey)
}

func (r FixtureRecord) HomeTeam() string {
	return getString(r.fields, fieldHomeTeam)
}

func (r FixtureRecord) AwayTeam() string {
	return getString(r.fields, fieldAwayTeam)
}

func (r FixtureRecord) CommenceTimeRaw() string {
	return getString(r.fields, fieldCommenceTime)
}

// CommenceTime parses the kickoff time as RFC3339 and returns it in UTC.
func (r FixtureRecord) CommenceTime() (time.Time, error) {
	raw := r.CommenceTimeRaw()
	if raw == "" {
		return time.Time{}, fmt.Errorf("commence_time is missing")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commence_time %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

// MarshalJSON returns the full provider object, including fields the pipeline does not model.
func (r FixtureRecord) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return sonic.Marshal(r.fields)
}

// Bookmakers is a typed view of the bookmaker listing. Malformed entries are skipped.
func (r FixtureRecord) Bookmakers() []Bookmaker {
	items, _ := r.fields[fieldBookmakers].([]any)
	out := make([]Bookmaker, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		bm := Bookmaker{
			Key:        getString(raw, fieldKey),
			Title:      getString(raw, fieldTitle),
			LastUpdate: getString(raw, fieldLastUpdate),
		}
		if bm.Key == "" {
			continue
		}
		markets, _ := raw[fieldMarkets].([]any)
		for _, m := range markets {
			if market, ok := parseMarket(m); ok {
				bm.Markets = append(bm.Markets, market)
			}
		}
		out = append(out, bm)
	}
	return out
}

// OddsSummary counts what the fixture carries after merging.
type OddsSummary struct {
	Bookmakers int
	Markets    int
	Outcomes   int
}

func (r FixtureRecord) Summary() OddsSummary {
	var out OddsSummary
	for _, bm := range r.Bookmakers() {
		out.Bookmakers++
		out.Markets += len(bm.Markets)
		for _, m := range bm.Markets {
			out.Outcomes += len(m.Outcomes)
		}
	}
	return out
}

func (r FixtureRecord) clone() FixtureRecord {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return FixtureRecord{fields: out}
}

type Bookmaker struct {
	Key        string
	Title      string
	LastUpdate string
	Markets    []Market
}

type Market struct {
	Key        string
	LastUpdate string
	Outcomes   []Outcome
}

type Outcome struct {
	Name        string
	Description string
	Price       float64
	// Point is the handicap or total line; nil for head-to-head outcomes.
	Point *float64
}

func parseMarket(v any) (Market, bool) {
	raw, ok := v.(map[string]any)
	if !ok {
		return Market{}, false
	}
	m := Market{Key: getString(raw, fieldKey), LastUpdate: getString(raw, fieldLastUpdate)}
	if m.Key == "" {
		return Market{}, false
	}

	outcomes, _ := raw[fieldOutcomes].([]any)
	for _, o := range outcomes {
		item, ok := o.(map[string]any)
		if !ok {
			continue
		}
		price, ok := getFloat(item, fieldPrice)
		if !ok {
			continue
		}
		outcome := Outcome{
			Name:        getString(item, fieldName),
			Description: getString(item, fieldDescription),
			Price:       price,
		}
		if point, ok := getFloat(item, fieldPoint); ok {
			outcome.Point = &point
		}
		m.Outcomes = append(m.Outcomes, outcome)
	}
	return m, true
}

func getString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", v))
	default:
		return ""
	}
}

func getFloat(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
