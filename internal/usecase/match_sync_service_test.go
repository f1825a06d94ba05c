package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/oddsfeed"
	"github.com/riskibarqy/odds-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	eplMainBody = `[{"id":"abc123","sport_key":"soccer_epl","commence_time":"2026-03-07T15:00:00Z","home_team":"Arsenal","away_team":"Chelsea",
"bookmakers":[{"key":"pinnacle","title":"Pinnacle","last_update":"2026-03-01T08:00:00Z",
"markets":[{"key":"h2h","outcomes":[{"name":"Arsenal","price":2.1},{"name":"Chelsea","price":3.4},{"name":"Draw","price":3.3}]}]}]}]`
	eplAdditionalBody = `[{"id":"abc123","sport_key":"soccer_epl","commence_time":"2026-03-07T15:00:00Z","home_team":"Arsenal","away_team":"Chelsea",
"bookmakers":[{"key":"pinnacle","title":"Pinnacle",
"markets":[{"key":"btts","outcomes":[{"name":"Yes","price":1.8},{"name":"No","price":2.0}]}]}]}]`
)

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type syncHarness struct {
	service *MatchSyncService
	teams   *memory.TeamRepository
	matches *memory.MatchRepository
	odds    *fakeOdds
	clock   *mutableClock
}

func newSyncHarness(cfg MatchSyncConfig, odds *fakeOdds) *syncHarness {
	clock := &mutableClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	teams := memory.NewTeamRepository(nil)
	matches := memory.NewMatchRepository()

	resolver := NewTeamResolver(teams, &sequenceIDs{prefix: "team"}, nil)
	resolver.now = clock.Now
	upserter := NewMatchUpserter(matches, resolver, &sequenceIDs{prefix: "match"}, nil)
	upserter.now = clock.Now

	service := NewMatchSyncService(
		cfg,
		memory.NewProviderRepository(memory.SeedProviders()),
		memory.NewLeagueRepository(memory.SeedLeagues()),
		odds,
		upserter,
		nil,
	)
	service.now = clock.Now

	return &syncHarness{service: service, teams: teams, matches: matches, odds: odds, clock: clock}
}

func withAdditional() MatchSyncConfig {
	return MatchSyncConfig{AdditionalMarkets: DefaultAdditionalMarkets}
}

func TestMatchSyncService_SyncLeague_MergesMarketGroups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	odds := newFakeOdds().
		on(DefaultMainMarkets, eplMainBody).
		on(DefaultAdditionalMarkets, eplAdditionalBody)
	h := newSyncHarness(withAdditional(), odds)

	result, err := h.service.SyncLeague(ctx, "soccer_epl", 7)
	if err != nil {
		t.Fatalf("sync league: %v", err)
	}
	if result.Fetched != 1 || result.Upserted != 1 || result.Created != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.MainShape != string(oddsfeed.ShapeArray) || result.AdditionalShape != string(oddsfeed.ShapeArray) {
		t.Fatalf("unexpected shapes: main=%s additional=%s", result.MainShape, result.AdditionalShape)
	}
	if result.Bookmakers != 1 || result.Markets != 2 || result.Outcomes != 5 {
		t.Fatalf("expected merged counts 1/2/5, got bookmakers=%d markets=%d outcomes=%d", result.Bookmakers, result.Markets, result.Outcomes)
	}

	calls := h.odds.calls()
	if len(calls) != 2 {
		t.Fatalf("expected main and additional requests, got %d", len(calls))
	}
	start := h.clock.Now()
	for _, call := range calls {
		if call.LeagueKey != "soccer_epl" || call.Regions != DefaultRegions || call.OddsFormat != DefaultOddsFormat {
			t.Fatalf("unexpected query: %+v", call)
		}
		if call.From == nil || !call.From.Equal(start) || call.To == nil || !call.To.Equal(start.AddDate(0, 0, 7)) {
			t.Fatalf("unexpected window: from=%v to=%v", call.From, call.To)
		}
	}
	if calls[0].Markets != DefaultMainMarkets || calls[1].Markets != DefaultAdditionalMarkets {
		t.Fatalf("unexpected market order: %s then %s", calls[0].Markets, calls[1].Markets)
	}

	for _, key := range []string{"team_arsenal", "team_chelsea"} {
		if _, ok, _ := h.teams.GetByExternalID(ctx, key); !ok {
			t.Fatalf("expected team %s to be created", key)
		}
	}

	stored, ok, _ := h.matches.GetByExternalID(ctx, "abc123")
	if !ok {
		t.Fatalf("expected match abc123")
	}
	if stored.Status != "scheduled" || stored.LeagueID != memory.LeagueIDPremierLeague {
		t.Fatalf("unexpected match: %+v", stored)
	}
	if !stored.ScheduledAt.Equal(time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected kickoff: %s", stored.ScheduledAt)
	}

	stage := oddsfeed.Parse([]byte("[" + string(stored.OddsJSON) + "]"))
	if len(stage.Fixtures) != 1 {
		t.Fatalf("stored odds are not a fixture object: %s", stored.OddsJSON)
	}
	books := stage.Fixtures[0].Bookmakers()
	if len(books) != 1 {
		t.Fatalf("expected one merged bookmaker, got %d", len(books))
	}
	keys := map[string]bool{}
	for _, m := range books[0].Markets {
		keys[m.Key] = true
	}
	if !keys["h2h"] || !keys["btts"] {
		t.Fatalf("merged odds lost a market group: %v", keys)
	}
}

func TestMatchSyncService_SyncLeague_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(withAdditional(), newFakeOdds().on(DefaultMainMarkets, eplMainBody))

	if _, err := h.service.SyncLeague(ctx, "soccer_epl", 7); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	first, _, _ := h.matches.GetByExternalID(ctx, "abc123")

	h.clock.Advance(2 * time.Hour)
	second, err := h.service.SyncLeague(ctx, "soccer_epl", 7)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Created != 0 || second.Upserted != 1 {
		t.Fatalf("second run must update in place: %+v", second)
	}

	matches, _ := h.matches.List(ctx)
	teams, _ := h.teams.List(ctx)
	if len(matches) != 1 || len(teams) != 2 {
		t.Fatalf("expected 1 match and 2 teams, got %d and %d", len(matches), len(teams))
	}
	if !matches[0].LastSyncedAt.After(first.LastSyncedAt) {
		t.Fatalf("last synced must advance: before=%s after=%s", first.LastSyncedAt, matches[0].LastSyncedAt)
	}
	if !matches[0].CreatedAt.Equal(first.CreatedAt) || matches[0].ID != first.ID {
		t.Fatalf("identity changed on re-sync: before=%+v after=%+v", first, matches[0])
	}
}

func TestMatchSyncService_SyncLeague_IsolatesBadFixtures(t *testing.T) {
	t.Parallel()

	body := `[
{"id":"f1","commence_time":"2026-03-07T12:30:00Z","home_team":"Liverpool","away_team":"Everton"},
{"id":"f2","commence_time":"2026-03-07T15:00:00Z","away_team":"Fulham"},
{"id":"f3","commence_time":"2026-03-08T16:30:00Z","home_team":"Brentford","away_team":"Burnley"}
]`
	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds().on(DefaultMainMarkets, body))

	result, err := h.service.SyncLeague(context.Background(), "soccer_epl", 7)
	if err != nil {
		t.Fatalf("sync league: %v", err)
	}
	if result.Fetched != 3 || result.Upserted != 2 || result.Failed != 1 || result.Invalid != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok, _ := h.matches.GetByExternalID(context.Background(), "f3"); !ok {
		t.Fatalf("fixture after the bad one must still be stored")
	}
}

func TestMatchSyncService_SyncLeague_ErrorEnvelopeYieldsNoFixtures(t *testing.T) {
	t.Parallel()

	odds := newFakeOdds().on(DefaultMainMarkets, `{"message":"Usage quota has been reached","error_code":"OUT_OF_USAGE_CREDITS"}`)
	h := newSyncHarness(MatchSyncConfig{}, odds)

	result, err := h.service.SyncLeague(context.Background(), "soccer_epl", 3)
	if err != nil {
		t.Fatalf("envelope must not fail the league: %v", err)
	}
	if result.Fetched != 0 || result.Upserted != 0 || result.MainShape != string(oddsfeed.ShapeEnvelope) {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestMatchSyncService_SyncLeague_AdditionalFailureKeepsMainMarkets(t *testing.T) {
	t.Parallel()

	odds := newFakeOdds().
		on(DefaultMainMarkets, eplMainBody).
		fail(DefaultAdditionalMarkets, errors.New("upstream 503"))
	h := newSyncHarness(withAdditional(), odds)

	result, err := h.service.SyncLeague(context.Background(), "soccer_epl", 7)
	if err != nil {
		t.Fatalf("sync league: %v", err)
	}
	if result.Upserted != 1 || result.AdditionalShape != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestMatchSyncService_SyncLeague_MainFailureFailsLeague(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream 401")
	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds().fail(DefaultMainMarkets, upstream))

	_, err := h.service.SyncLeague(context.Background(), "soccer_epl", 7)
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestMatchSyncService_SyncLeague_UnknownLeagueOrProvider(t *testing.T) {
	t.Parallel()

	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds())
	if _, err := h.service.SyncLeague(context.Background(), "soccer_mars_premier", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown league, got %v", err)
	}
	if len(h.odds.calls()) != 0 {
		t.Fatalf("unknown league must not reach the provider")
	}

	h = newSyncHarness(MatchSyncConfig{ProviderCode: "SOMEONE_ELSE"}, newFakeOdds())
	if _, err := h.service.SyncLeague(context.Background(), "soccer_epl", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown provider, got %v", err)
	}
}

func TestMatchSyncService_ValidatesWindow(t *testing.T) {
	t.Parallel()

	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds())
	for _, days := range []int{0, -1, 31} {
		if _, err := h.service.SyncLeague(context.Background(), "soccer_epl", days); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("days=%d: expected ErrInvalidInput, got %v", days, err)
		}
	}

	now := h.clock.Now()
	if _, err := h.service.SyncLeagueWindow(context.Background(), "soccer_epl", now, now.Add(-time.Hour)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted window, got %v", err)
	}
}

func TestMatchSyncService_SyncAll_ContinuesPastFailedLeague(t *testing.T) {
	t.Parallel()

	cfg := MatchSyncConfig{LeagueKeys: []string{"soccer_epl", "soccer_unknown", "soccer_epl", " soccer_spain_la_liga "}}
	h := newSyncHarness(cfg, newFakeOdds().on(DefaultMainMarkets, eplMainBody))

	batch, err := h.service.SyncAllConfiguredLeagues(context.Background(), 7)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if len(batch.Leagues) != 3 {
		t.Fatalf("expected 3 distinct leagues, got %d", len(batch.Leagues))
	}
	if batch.LeaguesFailed != 1 || batch.Leagues[1].LeagueKey != "soccer_unknown" || batch.Leagues[1].Error == "" {
		t.Fatalf("unexpected failure accounting: %+v", batch)
	}
	if batch.Upserted != 2 {
		t.Fatalf("expected the shared fixture upserted by both healthy leagues, got %d", batch.Upserted)
	}
}

func TestMatchSyncService_SyncAll_FallsBackToActiveLeagues(t *testing.T) {
	t.Parallel()

	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds())
	batch, err := h.service.SyncAllConfiguredLeagues(context.Background(), 1)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}

	var got []string
	for _, call := range h.odds.calls() {
		got = append(got, call.LeagueKey)
	}
	want := "soccer_epl,soccer_germany_bundesliga,soccer_italy_serie_a,soccer_spain_la_liga"
	if strings.Join(got, ",") != want {
		t.Fatalf("unexpected leagues: %v", got)
	}
	if batch.LeaguesFailed != 0 {
		t.Fatalf("unexpected failures: %+v", batch)
	}
}

func TestMatchSyncService_SyncAll_UnknownProviderAborts(t *testing.T) {
	t.Parallel()

	h := newSyncHarness(MatchSyncConfig{ProviderCode: "SOMEONE_ELSE"}, newFakeOdds())
	if _, err := h.service.SyncAllConfiguredLeagues(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type panickyUpserter struct{}

func (panickyUpserter) Upsert(_ context.Context, fixture oddsfeed.FixtureRecord, _ league.League) (MatchUpsertResult, error) {
	if fixture.ID() == "boom" {
		var m map[string]int
		m["x"] = 1
	}
	return MatchUpsertResult{Created: true}, nil
}

func TestMatchSyncService_PanicInOneFixtureIsContained(t *testing.T) {
	t.Parallel()

	body := `[
{"id":"boom","commence_time":"2026-03-07T12:30:00Z","home_team":"A","away_team":"B"},
{"id":"ok","commence_time":"2026-03-07T15:00:00Z","home_team":"C","away_team":"D"}
]`
	service := NewMatchSyncService(
		MatchSyncConfig{},
		memory.NewProviderRepository(memory.SeedProviders()),
		memory.NewLeagueRepository(memory.SeedLeagues()),
		newFakeOdds().on(DefaultMainMarkets, body),
		panickyUpserter{},
		nil,
	)

	result, err := service.SyncLeague(context.Background(), "soccer_epl", 7)
	if err != nil {
		t.Fatalf("sync league: %v", err)
	}
	if result.Failed != 1 || result.Upserted != 1 || result.Invalid != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestMatchSyncService_ConcurrentSyncsConverge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newSyncHarness(MatchSyncConfig{}, newFakeOdds().on(DefaultMainMarkets, eplMainBody))

	var wg conc.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Go(func() {
			_, errs[i] = h.service.SyncLeague(ctx, "soccer_epl", 7)
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	matches, _ := h.matches.List(ctx)
	teams, _ := h.teams.List(ctx)
	if len(matches) != 1 || len(teams) != 2 {
		t.Fatalf("expected 1 match and 2 teams after concurrent syncs, got %d and %d", len(matches), len(teams))
	}
}

func TestMatchSyncService_ListProviderSports(t *testing.T) {
	t.Parallel()

	odds := newFakeOdds()
	odds.sports = []ProviderSport{{Key: "soccer_epl", Group: "Soccer", Title: "EPL", Active: true}}
	h := newSyncHarness(MatchSyncConfig{}, odds)

	sports, err := h.service.ListProviderSports(context.Background(), false)
	if err != nil || len(sports) != 1 || sports[0].Key != "soccer_epl" {
		t.Fatalf("unexpected sports: %+v err=%v", sports, err)
	}
}

func TestMatchSyncService_ConfiguredBaseURLWinsOverRegistry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		baseURL   string
		wantWarns int
	}{
		{name: "differs", baseURL: "https://odds-proxy.internal/v4", wantWarns: 1},
		{name: "matches", baseURL: "https://api.the-odds-api.com/v4/", wantWarns: 0},
		{name: "unset", baseURL: "", wantWarns: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.WarnLevel)
			h := newSyncHarness(MatchSyncConfig{BaseURL: tc.baseURL}, newFakeOdds().on(DefaultMainMarkets, eplMainBody))
			h.service.logger = logging.FromZap(zap.New(core))

			for range 2 {
				if _, err := h.service.SyncLeague(context.Background(), "soccer_epl", 7); err != nil {
					t.Fatalf("sync league: %v", err)
				}
			}

			got := logs.FilterMessage("provider registry base url differs from configured endpoint, using configured").Len()
			if got != tc.wantWarns {
				t.Fatalf("expected %d base url warnings, got %d", tc.wantWarns, got)
			}
		})
	}
}
