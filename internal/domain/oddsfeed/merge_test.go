package oddsfeed

import (
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
)

func mustParse(t *testing.T, body string) []FixtureRecord {
	t.Helper()
	result := Parse([]byte(body))
	if result.Shape != ShapeArray {
		t.Fatalf("expected array body, got %s (%s)", result.Shape, result.Message)
	}
	return result.Fixtures
}

func marketKeys(b Bookmaker) []string {
	keys := make([]string, 0, len(b.Markets))
	for _, m := range b.Markets {
		keys = append(keys, m.Key)
	}
	return keys
}

func bookmakerByKey(t *testing.T, rec FixtureRecord, key string) Bookmaker {
	t.Helper()
	for _, b := range rec.Bookmakers() {
		if b.Key == key {
			return b
		}
	}
	t.Fatalf("bookmaker %q not found in %s", key, rec.ID())
	return Bookmaker{}
}

func TestMerge_UnionsBookmakersAndMarkets(t *testing.T) {
	t.Parallel()

	primary := mustParse(t, `[{"id":"f1","home_team":"A","away_team":"B","bookmakers":[
		{"key":"bookA","markets":[{"key":"h2h","outcomes":[{"name":"A","price":2}]}]}
	]}]`)
	secondary := mustParse(t, `[{"id":"f1","home_team":"A","away_team":"B","bookmakers":[
		{"key":"bookA","markets":[{"key":"totals","outcomes":[{"name":"Over","price":1.9,"point":2.5}]}]},
		{"key":"bookB","markets":[{"key":"spreads","outcomes":[{"name":"A","price":1.8,"point":-1}]}]}
	]}]`)

	merged := Merge(primary, secondary)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged fixture, got %d", len(merged))
	}

	bookA := bookmakerByKey(t, merged[0], "bookA")
	if got := marketKeys(bookA); len(got) != 2 || got[0] != "h2h" || got[1] != "totals" {
		t.Fatalf("expected bookA markets [h2h totals], got %v", got)
	}
	bookB := bookmakerByKey(t, merged[0], "bookB")
	if got := marketKeys(bookB); len(got) != 1 || got[0] != "spreads" {
		t.Fatalf("expected bookB markets [spreads], got %v", got)
	}
}

func TestMerge_BookmakerCombinations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		primary   string
		secondary string
		want      map[string][]string
	}{
		{
			name:      "disjoint bookmakers",
			primary:   `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"h2h"}]}]}]`,
			secondary: `[{"id":"f","bookmakers":[{"key":"y","markets":[{"key":"btts"}]}]}]`,
			want:      map[string][]string{"x": {"h2h"}, "y": {"btts"}},
		},
		{
			name:      "fully overlapping bookmakers",
			primary:   `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"h2h"}]},{"key":"y","markets":[{"key":"spreads"}]}]}]`,
			secondary: `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"btts"}]},{"key":"y","markets":[{"key":"double_chance"}]}]}]`,
			want:      map[string][]string{"x": {"h2h", "btts"}, "y": {"spreads", "double_chance"}},
		},
		{
			name:      "primary without bookmakers",
			primary:   `[{"id":"f"}]`,
			secondary: `[{"id":"f","bookmakers":[{"key":"y","markets":[{"key":"btts"}]}]}]`,
			want:      map[string][]string{"y": {"btts"}},
		},
		{
			name:      "secondary empty listing",
			primary:   `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"h2h"}]}]}]`,
			secondary: `[{"id":"f","bookmakers":[]}]`,
			want:      map[string][]string{"x": {"h2h"}},
		},
	}

	for _, tc := range cases {
		merged := Merge(mustParse(t, tc.primary), mustParse(t, tc.secondary))
		if len(merged) != 1 {
			t.Fatalf("%s: expected 1 fixture, got %d", tc.name, len(merged))
		}
		books := merged[0].Bookmakers()
		if len(books) != len(tc.want) {
			t.Fatalf("%s: expected %d bookmakers, got %d", tc.name, len(tc.want), len(books))
		}
		for _, b := range books {
			want := tc.want[b.Key]
			got := marketKeys(b)
			if len(got) != len(want) {
				t.Fatalf("%s: bookmaker %s expected %v, got %v", tc.name, b.Key, want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%s: bookmaker %s expected %v, got %v", tc.name, b.Key, want, got)
				}
			}
		}
	}
}

func TestMerge_CarriesSecondaryOnlyFixtures(t *testing.T) {
	t.Parallel()

	primary := mustParse(t, `[{"id":"f1","bookmakers":[]}]`)
	secondary := mustParse(t, `[{"id":"f2","home_team":"C","bookmakers":[{"key":"x","markets":[{"key":"btts"}]}]}]`)

	merged := Merge(primary, secondary)
	if len(merged) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(merged))
	}
	if merged[0].ID() != "f1" || merged[1].ID() != "f2" {
		t.Fatalf("unexpected order: %s, %s", merged[0].ID(), merged[1].ID())
	}
	if merged[1].HomeTeam() != "C" || len(merged[1].Bookmakers()) != 1 {
		t.Fatalf("expected secondary-only fixture carried through unchanged")
	}
}

func TestMerge_SkipsMalformedBookmakers(t *testing.T) {
	t.Parallel()

	primary := mustParse(t, `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"h2h"}]}]}]`)
	secondary := mustParse(t, `[{"id":"f","bookmakers":[
		"not-an-object",
		{"title":"no key","markets":[{"key":"btts"}]},
		{"key":"x","markets":"broken"},
		{"key":"z","markets":[{"key":"totals"}]}
	]}]`)

	merged := Merge(primary, secondary)
	books := merged[0].Bookmakers()
	if len(books) != 2 {
		t.Fatalf("expected bookmakers x and z, got %+v", books)
	}
	if got := marketKeys(bookmakerByKey(t, merged[0], "x")); len(got) != 1 || got[0] != "h2h" {
		t.Fatalf("expected x to keep only h2h, got %v", got)
	}
}

func TestMerge_MalformedListingKeepsPrimary(t *testing.T) {
	t.Parallel()

	primary := mustParse(t, `[{"id":"f","bookmakers":{"unexpected":"object"}}]`)
	secondary := mustParse(t, `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"btts"}]}]}]`)

	merged := Merge(primary, secondary)
	if len(merged) != 1 {
		t.Fatalf("expected 1 fixture, got %d", len(merged))
	}
	stored, err := merged[0].MarshalJSON()
	if err != nil {
		t.Fatalf("marshal merged fixture: %v", err)
	}
	if !strings.Contains(string(stored), `"unexpected":"object"`) {
		t.Fatalf("expected primary bookmakers field to be kept, got %s", stored)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	primary := mustParse(t, `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"h2h"}]}]}]`)
	secondary := mustParse(t, `[{"id":"f","bookmakers":[{"key":"x","markets":[{"key":"btts"}]},{"key":"y","markets":[{"key":"totals"}]}]}]`)

	merged := Merge(primary, secondary)
	if len(merged[0].Bookmakers()) != 2 {
		t.Fatalf("expected merged record to hold 2 bookmakers")
	}

	books := primary[0].Bookmakers()
	if len(books) != 1 {
		t.Fatalf("primary record gained bookmakers: %+v", books)
	}
	if got := marketKeys(books[0]); len(got) != 1 || got[0] != "h2h" {
		t.Fatalf("primary bookmaker markets mutated: %v", got)
	}
	if got := marketKeys(secondary[0].Bookmakers()[0]); len(got) != 1 || got[0] != "btts" {
		t.Fatalf("secondary bookmaker markets mutated: %v", got)
	}
}

func TestMerge_MarshalKeepsAllFields(t *testing.T) {
	t.Parallel()

	merged := Merge(mustParse(t, eplFixtureJSON), nil)
	raw, err := merged[0].MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["sport_title"] != "EPL" || decoded["id"] != "abc123" {
		t.Fatalf("expected provider fields in payload, got %v", decoded)
	}
}
