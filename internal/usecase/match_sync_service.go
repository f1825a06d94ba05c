package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/oddsfeed"
	"github.com/riskibarqy/odds-sync/internal/domain/provider"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/sourcegraph/conc/panics"
)

const (
	DefaultRegions           = "us,uk,eu"
	DefaultMainMarkets       = "h2h,spreads,totals"
	DefaultAdditionalMarkets = "btts,double_chance,alternate_totals,alternate_spreads"
	DefaultOddsFormat        = "decimal"

	maxSyncDays = 30
)

type MatchSyncConfig struct {
	ProviderCode string
	// LeagueKeys is the fixed list SyncAllConfiguredLeagues iterates. When empty,
	// the provider's active leagues are used.
	LeagueKeys        []string
	Regions           string
	MainMarkets       string
	AdditionalMarkets string
	OddsFormat        string
	// BaseURL is the endpoint the OddsProvider calls. It wins over the
	// provider registry's base_url, which is informational.
	BaseURL string
}

func (c MatchSyncConfig) withDefaults() MatchSyncConfig {
	if strings.TrimSpace(c.ProviderCode) == "" {
		c.ProviderCode = provider.CodeTheOddsAPI
	}
	if strings.TrimSpace(c.Regions) == "" {
		c.Regions = DefaultRegions
	}
	if strings.TrimSpace(c.MainMarkets) == "" {
		c.MainMarkets = DefaultMainMarkets
	}
	if strings.TrimSpace(c.OddsFormat) == "" {
		c.OddsFormat = DefaultOddsFormat
	}
	return c
}

type fixtureUpserting interface {
	Upsert(ctx context.Context, fixture oddsfeed.FixtureRecord, lg league.League) (MatchUpsertResult, error)
}

type LeagueSyncResult struct {
	LeagueKey       string    `json:"league_key"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Fetched         int       `json:"fetched"`
	Upserted        int       `json:"upserted"`
	Created         int       `json:"created"`
	Failed          int       `json:"failed"`
	Invalid         int       `json:"invalid"`
	Bookmakers      int       `json:"bookmakers"`
	Markets         int       `json:"markets"`
	Outcomes        int       `json:"outcomes"`
	MainShape       string    `json:"main_shape"`
	AdditionalShape string    `json:"additional_shape,omitempty"`
	Error           string    `json:"error,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
}

type BatchSyncResult struct {
	DaysAhead     int                `json:"days_ahead"`
	Upserted      int                `json:"upserted"`
	Failed        int                `json:"failed"`
	LeaguesFailed int                `json:"leagues_failed"`
	Leagues       []LeagueSyncResult `json:"leagues"`
}

// MatchSyncService pulls odds for leagues and time windows from the provider
// and reconciles them into teams and matches. One fixture failing never
// affects another; one league failing never stops a batch.
type MatchSyncService struct {
	cfg       MatchSyncConfig
	providers provider.Repository
	leagues   league.Repository
	odds      OddsProvider
	upserter  fixtureUpserting
	now       func() time.Time
	logger    *logging.Logger

	baseURLWarned atomic.Bool
}

func NewMatchSyncService(
	cfg MatchSyncConfig,
	providers provider.Repository,
	leagues league.Repository,
	odds OddsProvider,
	upserter fixtureUpserting,
	logger *logging.Logger,
) *MatchSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchSyncService{
		cfg:       cfg.withDefaults(),
		providers: providers,
		leagues:   leagues,
		odds:      odds,
		upserter:  upserter,
		now:       time.Now,
		logger:    logger,
	}
}

// SyncLeague syncs [now, now+daysAhead].
func (s *MatchSyncService) SyncLeague(ctx context.Context, leagueKey string, daysAhead int) (LeagueSyncResult, error) {
	if err := validateDays(daysAhead); err != nil {
		return LeagueSyncResult{}, err
	}
	from := s.now().UTC()
	return s.SyncLeagueWindow(ctx, leagueKey, from, from.AddDate(0, 0, daysAhead))
}

// SyncLeagueWindow syncs fixtures kicking off in [from, to]. It fails only when
// the provider or league is unknown, the window is invalid or the main-markets
// request fails; per-fixture problems are counted in the result.
func (s *MatchSyncService) SyncLeagueWindow(ctx context.Context, leagueKey string, from, to time.Time) (LeagueSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncLeagueWindow")
	defer span.End()

	prov, err := s.resolveProvider(ctx)
	if err != nil {
		return LeagueSyncResult{LeagueKey: leagueKey}, err
	}
	return s.syncLeague(ctx, prov, leagueKey, from, to)
}

// SyncAllConfiguredLeagues syncs every configured league for [now, now+daysAhead].
// League failures are logged and recorded; only an unusable provider aborts the batch.
func (s *MatchSyncService) SyncAllConfiguredLeagues(ctx context.Context, daysAhead int) (BatchSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncAllConfiguredLeagues")
	defer span.End()

	batch := BatchSyncResult{DaysAhead: daysAhead}
	if err := validateDays(daysAhead); err != nil {
		return batch, err
	}

	prov, err := s.resolveProvider(ctx)
	if err != nil {
		return batch, err
	}

	keys, err := s.leagueKeys(ctx, prov)
	if err != nil {
		return batch, err
	}

	from := s.now().UTC()
	to := from.AddDate(0, 0, daysAhead)
	for _, key := range keys {
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}

		result, err := s.syncLeague(ctx, prov, key, from, to)
		if err != nil {
			batch.LeaguesFailed++
			result.Error = err.Error()
			s.logger.WarnContext(ctx, "league sync failed", "league_key", key, "error", err)
		}
		batch.Upserted += result.Upserted
		batch.Failed += result.Failed
		batch.Leagues = append(batch.Leagues, result)
	}

	s.logger.InfoContext(ctx, "sync all leagues completed",
		"days_ahead", daysAhead,
		"leagues", len(keys),
		"leagues_failed", batch.LeaguesFailed,
		"upserted", batch.Upserted,
		"failed", batch.Failed,
	)
	return batch, nil
}

// ListProviderSports proxies the provider's sport catalogue, useful when choosing league keys.
func (s *MatchSyncService) ListProviderSports(ctx context.Context, all bool) ([]ProviderSport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.ListProviderSports")
	defer span.End()

	sports, err := s.odds.FetchSports(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("%w: list provider sports: %v", ErrDependencyUnavailable, err)
	}
	return sports, nil
}

func (s *MatchSyncService) syncLeague(ctx context.Context, prov provider.Provider, leagueKey string, from, to time.Time) (result LeagueSyncResult, err error) {
	started := s.now()
	leagueKey = strings.TrimSpace(leagueKey)
	from, to = from.UTC(), to.UTC()
	result = LeagueSyncResult{LeagueKey: leagueKey, From: from, To: to}
	defer func() { result.DurationMs = s.now().Sub(started).Milliseconds() }()

	if leagueKey == "" {
		return result, fmt.Errorf("%w: league key is required", ErrInvalidInput)
	}
	if !to.After(from) {
		return result, fmt.Errorf("%w: window end %s must be after start %s", ErrInvalidInput, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	lg, found, err := s.leagues.GetByExternalID(ctx, prov.ID, leagueKey)
	if err != nil {
		return result, fmt.Errorf("get league %s: %w", leagueKey, err)
	}
	if !found {
		return result, fmt.Errorf("%w: league %s for provider %s", ErrNotFound, leagueKey, prov.Code)
	}

	query := OddsQuery{
		LeagueKey:  leagueKey,
		Regions:    s.cfg.Regions,
		Markets:    s.cfg.MainMarkets,
		OddsFormat: s.cfg.OddsFormat,
		From:       &from,
		To:         &to,
	}
	mainRaw, err := s.odds.FetchOdds(ctx, query)
	if err != nil {
		return result, fmt.Errorf("fetch main markets for %s: %w", leagueKey, err)
	}
	main := s.parse(ctx, leagueKey, "main", mainRaw)
	result.MainShape = string(main.Shape)

	fixtures := main.Fixtures
	if strings.TrimSpace(s.cfg.AdditionalMarkets) != "" {
		query.Markets = s.cfg.AdditionalMarkets
		additionalRaw, fetchErr := s.odds.FetchOdds(ctx, query)
		if fetchErr != nil {
			s.logger.WarnContext(ctx, "additional markets unavailable, continuing with main markets",
				"league_key", leagueKey,
				"error", fetchErr,
			)
		} else {
			additional := s.parse(ctx, leagueKey, "additional", additionalRaw)
			result.AdditionalShape = string(additional.Shape)
			fixtures = oddsfeed.Merge(main.Fixtures, additional.Fixtures)
		}
	}
	result.Fetched = len(fixtures)

	for _, fixture := range fixtures {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if sport := fixture.SportKey(); sport != "" && sport != leagueKey {
			s.logger.WarnContext(ctx, "fixture sport key differs from requested league",
				"league_key", leagueKey,
				"fixture_id", fixture.ID(),
				"sport_key", sport,
			)
		}
		summary := fixture.Summary()
		result.Bookmakers += summary.Bookmakers
		result.Markets += summary.Markets
		result.Outcomes += summary.Outcomes

		upserted, upsertErr := s.upsertIsolated(ctx, fixture, lg)
		if upsertErr != nil {
			result.Failed++
			if errors.Is(upsertErr, ErrInvalidFixture) {
				result.Invalid++
			}
			s.logger.WarnContext(ctx, "fixture sync failed",
				"league_key", leagueKey,
				"fixture_id", fixture.ID(),
				"error", upsertErr,
			)
			continue
		}
		result.Upserted++
		if upserted.Created {
			result.Created++
		}
	}

	s.logger.InfoContext(ctx, "league sync completed",
		"league_key", leagueKey,
		"from", from,
		"to", to,
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"created", result.Created,
		"failed", result.Failed,
		"bookmakers", result.Bookmakers,
		"markets", result.Markets,
		"outcomes", result.Outcomes,
	)
	return result, nil
}

// upsertIsolated turns a panic inside one fixture's upsert into an error for that fixture.
func (s *MatchSyncService) upsertIsolated(ctx context.Context, fixture oddsfeed.FixtureRecord, lg league.League) (MatchUpsertResult, error) {
	var (
		out MatchUpsertResult
		err error
		pc  panics.Catcher
	)
	pc.Try(func() {
		out, err = s.upserter.Upsert(ctx, fixture, lg)
	})
	if recovered := pc.Recovered(); recovered != nil {
		return MatchUpsertResult{}, fmt.Errorf("fixture %s: %w", fixture.ID(), recovered.AsError())
	}
	return out, err
}

func (s *MatchSyncService) parse(ctx context.Context, leagueKey, group string, raw []byte) oddsfeed.ParseResult {
	parsed := oddsfeed.Parse(raw)
	switch parsed.Shape {
	case oddsfeed.ShapeEnvelope:
		s.logger.WarnContext(ctx, "provider returned error envelope",
			"league_key", leagueKey,
			"market_group", group,
			"message", parsed.Message,
		)
	case oddsfeed.ShapeInvalid:
		s.logger.WarnContext(ctx, "provider returned undecodable body",
			"league_key", leagueKey,
			"market_group", group,
			"message", parsed.Message,
		)
	}
	if parsed.Skipped > 0 {
		s.logger.WarnContext(ctx, "skipped non-object fixture entries", "league_key", leagueKey, "market_group", group, "skipped", parsed.Skipped)
	}
	return parsed
}

func (s *MatchSyncService) resolveProvider(ctx context.Context) (provider.Provider, error) {
	prov, found, err := s.providers.GetByCode(ctx, s.cfg.ProviderCode)
	if err != nil {
		return provider.Provider{}, fmt.Errorf("get provider %s: %w", s.cfg.ProviderCode, err)
	}
	if !found {
		return provider.Provider{}, fmt.Errorf("%w: provider %s", ErrNotFound, s.cfg.ProviderCode)
	}
	if !prov.Active {
		return provider.Provider{}, fmt.Errorf("%w: provider %s is inactive", ErrNotFound, s.cfg.ProviderCode)
	}
	s.checkBaseURL(ctx, prov)
	return prov, nil
}

func (s *MatchSyncService) checkBaseURL(ctx context.Context, prov provider.Provider) {
	registry := strings.TrimRight(strings.TrimSpace(prov.BaseURL), "/")
	configured := strings.TrimRight(strings.TrimSpace(s.cfg.BaseURL), "/")
	if registry == "" || configured == "" || strings.EqualFold(registry, configured) {
		return
	}
	if s.baseURLWarned.CompareAndSwap(false, true) {
		s.logger.WarnContext(ctx, "provider registry base url differs from configured endpoint, using configured",
			"provider_code", prov.Code,
			"registry_base_url", registry,
			"configured_base_url", configured,
		)
	}
}

func (s *MatchSyncService) leagueKeys(ctx context.Context, prov provider.Provider) ([]string, error) {
	keys := make([]string, 0, len(s.cfg.LeagueKeys))
	seen := make(map[string]struct{}, len(s.cfg.LeagueKeys))
	for _, key := range s.cfg.LeagueKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		return keys, nil
	}

	active, err := s.leagues.ListActiveByProvider(ctx, prov.ID)
	if err != nil {
		return nil, fmt.Errorf("list active leagues for provider %s: %w", prov.Code, err)
	}
	for _, lg := range active {
		keys = append(keys, lg.ExternalID)
	}
	return keys, nil
}

func validateDays(days int) error {
	if days < 1 || days > maxSyncDays {
		return fmt.Errorf("%w: days ahead must be between 1 and %d, got %d", ErrInvalidInput, maxSyncDays, days)
	}
	return nil
}
