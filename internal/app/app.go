package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/odds-sync/external/theoddsapi"
	"github.com/riskibarqy/odds-sync/internal/config"
	"github.com/riskibarqy/odds-sync/internal/domain/league"
	"github.com/riskibarqy/odds-sync/internal/domain/match"
	"github.com/riskibarqy/odds-sync/internal/domain/provider"
	"github.com/riskibarqy/odds-sync/internal/domain/team"
	"github.com/riskibarqy/odds-sync/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/odds-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/odds-sync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/odds-sync/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/odds-sync/internal/platform/id"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/riskibarqy/odds-sync/internal/platform/resilience"
	"github.com/riskibarqy/odds-sync/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// App is the assembled process: HTTP server, optional scheduler and the
// resources they share.
type App struct {
	Server    *http.Server
	Scheduler *usecase.SyncScheduler
	Sync      *usecase.MatchSyncService

	db *sqlx.DB
}

type repositories struct {
	providers provider.Repository
	leagues   league.Repository
	teams     team.Repository
	matches   match.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	out := &App{}
	repos, err := out.buildRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	odds := theoddsapi.NewClient(theoddsapi.ClientConfig{
		BaseURL:    cfg.OddsAPI.BaseURL,
		APIKey:     cfg.OddsAPI.APIKey,
		Timeout:    cfg.OddsAPI.Timeout,
		MaxRetries: cfg.OddsAPI.MaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OddsAPI.CircuitEnabled,
			FailureThreshold: cfg.OddsAPI.CircuitFailureCount,
			OpenTimeout:      cfg.OddsAPI.CircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OddsAPI.CircuitHalfOpenMaxReq,
		},
	})

	ids := idgen.NewUUIDGenerator()
	resolver := usecase.NewTeamResolver(repos.teams, ids, logger)
	upserter := usecase.NewMatchUpserter(repos.matches, resolver, ids, logger)
	out.Sync = usecase.NewMatchSyncService(
		usecase.MatchSyncConfig{
			ProviderCode:      cfg.OddsAPI.ProviderCode,
			LeagueKeys:        cfg.Sync.LeagueKeys,
			Regions:           cfg.OddsAPI.Regions,
			MainMarkets:       cfg.OddsAPI.MainMarkets,
			AdditionalMarkets: cfg.OddsAPI.AdditionalMarkets,
			OddsFormat:        cfg.OddsAPI.OddsFormat,
			BaseURL:           cfg.OddsAPI.BaseURL,
		},
		repos.providers,
		repos.leagues,
		odds,
		upserter,
		logger.Named("sync"),
	)

	if cfg.Sync.SchedulerEnabled {
		out.Scheduler, err = usecase.NewSyncScheduler(out.Sync, SyncTiers(cfg.Sync), cfg.Sync.RunOnStart, logger)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("build sync scheduler: %w", err)
		}
	}

	handler := httpapi.NewHandler(out.Sync, logger.Named("http"))
	out.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken, cfg.SyncWriteTimeout),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return out, nil
}

// SyncTiers maps the configured windows to scheduler tiers.
func SyncTiers(cfg config.SyncConfig) []usecase.SyncTier {
	return []usecase.SyncTier{
		{Name: "upcoming", DaysAhead: cfg.UpcomingDays, Interval: cfg.UpcomingInterval},
		{Name: "live", DaysAhead: cfg.LiveDays, Interval: cfg.LiveInterval},
	}
}

func (a *App) buildRepositories(ctx context.Context, cfg config.Config, logger *logging.Logger) (repositories, error) {
	var repos repositories
	if cfg.DBURL == "" {
		logger.Warn("DB_URL is empty, running on in-memory repositories")
		repos = repositories{
			providers: memory.NewProviderRepository(memory.SeedProviders()),
			leagues:   memory.NewLeagueRepository(memory.SeedLeagues()),
			teams:     memory.NewTeamRepository(nil),
			matches:   memory.NewMatchRepository(),
		}
	} else {
		db, err := openDB(cfg)
		if err != nil {
			return repositories{}, err
		}
		a.db = db

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = a.Close()
			return repositories{}, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			_ = a.Close()
			return repositories{}, err
		}

		repos = repositories{
			providers: postgres.NewProviderRepository(db),
			leagues:   postgres.NewLeagueRepository(db),
			teams:     postgres.NewTeamRepository(db),
			matches:   postgres.NewMatchRepository(db),
		}
	}

	repos.providers = cache.NewProviderRepository(repos.providers, cfg.LookupCacheTTL)
	repos.leagues = cache.NewLeagueRepository(repos.leagues, cfg.LookupCacheTTL)
	return repos, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := NormalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Close releases the scheduler pool and the database handle, if any.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Close()
	}
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}
