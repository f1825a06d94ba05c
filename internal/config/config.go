package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/odds-sync/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	// SyncWriteTimeout replaces WriteTimeout on /v1/internal/sync/ routes.
	SyncWriteTimeout   time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level
	LogFormat          logging.Format
	InternalJobToken   string
	LookupCacheTTL     time.Duration

	// DBURL selects the Postgres store; empty runs on in-memory repositories.
	DBURL                   string
	DBDisablePreparedBinary bool
	DBMaxOpenConns          int
	DBMaxIdleConns          int

	OddsAPI OddsAPIConfig
	Sync    SyncConfig

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

type OddsAPIConfig struct {
	BaseURL               string
	APIKey                string
	Timeout               time.Duration
	MaxRetries            int
	Regions               string
	MainMarkets           string
	AdditionalMarkets     string
	OddsFormat            string
	ProviderCode          string
	CircuitEnabled        bool
	CircuitFailureCount   int
	CircuitOpenTimeout    time.Duration
	CircuitHalfOpenMaxReq int
}

type SyncConfig struct {
	LeagueKeys       []string
	SchedulerEnabled bool
	RunOnStart       bool
	UpcomingDays     int
	UpcomingInterval time.Duration
	LiveDays         int
	LiveInterval     time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	logFormat := logging.FormatJSON
	if appEnv == EnvDev {
		logFormat = logging.FormatConsole
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))); raw != "" {
		switch logging.Format(raw) {
		case logging.FormatJSON, logging.FormatConsole:
			logFormat = logging.Format(raw)
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: valid values are json, console", raw)
		}
	}

	readTimeout, err := getEnvAsDuration("HTTP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("HTTP_WRITE_TIMEOUT", "120s")
	if err != nil {
		return Config{}, err
	}
	// Each league costs up to two provider calls of ODDS_API_TIMEOUT.
	syncWriteTimeout, err := getEnvAsDuration("SYNC_HTTP_WRITE_TIMEOUT", "15m")
	if err != nil {
		return Config{}, err
	}
	lookupCacheTTL, err := getEnvAsDuration("LOOKUP_CACHE_TTL", "60s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("SERVICE_NAME", "odds-sync"),
		ServiceVersion:     getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		SyncWriteTimeout:   syncWriteTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           logLevel,
		LogFormat:          logFormat,
		InternalJobToken:   strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		LookupCacheTTL:     lookupCacheTTL,
		DBURL:              strings.TrimSpace(getEnv("DB_URL", "")),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if appEnv != EnvDev && cfg.InternalJobToken == "" {
		return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required when APP_ENV=%s", appEnv)
	}

	if cfg.DBDisablePreparedBinary, err = getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", true); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxOpenConns, err = getEnvAsInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.DBMaxIdleConns, err = getEnvAsInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.DBMaxOpenConns < 1 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1 and DB_MAX_IDLE_CONNS >= 0")
	}

	if cfg.OddsAPI, err = loadOddsAPI(appEnv); err != nil {
		return Config{}, err
	}
	if cfg.Sync, err = loadSync(); err != nil {
		return Config{}, err
	}
	if err := loadObservability(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadOddsAPI(appEnv string) (OddsAPIConfig, error) {
	out := OddsAPIConfig{
		BaseURL:           strings.TrimSpace(getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4")),
		APIKey:            strings.TrimSpace(getEnv("ODDS_API_KEY", "")),
		Regions:           strings.TrimSpace(getEnv("ODDS_API_REGIONS", "us,uk,eu")),
		MainMarkets:       strings.TrimSpace(getEnv("ODDS_API_MAIN_MARKETS", "h2h,spreads,totals")),
		AdditionalMarkets: strings.TrimSpace(getEnv("ODDS_API_ADDITIONAL_MARKETS", "btts,double_chance,alternate_totals,alternate_spreads")),
		OddsFormat:        strings.TrimSpace(getEnv("ODDS_API_ODDS_FORMAT", "decimal")),
		ProviderCode:      strings.TrimSpace(getEnv("ODDS_API_PROVIDER_CODE", "THE_ODDS_API")),
	}
	if appEnv != EnvDev && out.APIKey == "" {
		return OddsAPIConfig{}, fmt.Errorf("ODDS_API_KEY is required when APP_ENV=%s", appEnv)
	}
	if strings.EqualFold(os.Getenv("ODDS_API_ADDITIONAL_MARKETS"), "none") {
		out.AdditionalMarkets = ""
	}

	var err error
	if out.Timeout, err = getEnvAsDuration("ODDS_API_TIMEOUT", "20s"); err != nil {
		return OddsAPIConfig{}, err
	}
	if out.MaxRetries, err = getEnvAsInt("ODDS_API_MAX_RETRIES", 0); err != nil {
		return OddsAPIConfig{}, fmt.Errorf("parse ODDS_API_MAX_RETRIES: %w", err)
	}
	if out.MaxRetries < 0 {
		return OddsAPIConfig{}, fmt.Errorf("ODDS_API_MAX_RETRIES must be >= 0")
	}
	if out.CircuitEnabled, err = getEnvAsBool("ODDS_API_CIRCUIT_ENABLED", true); err != nil {
		return OddsAPIConfig{}, err
	}
	if out.CircuitFailureCount, err = getEnvAsInt("ODDS_API_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return OddsAPIConfig{}, fmt.Errorf("parse ODDS_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if out.CircuitFailureCount < 1 {
		return OddsAPIConfig{}, fmt.Errorf("ODDS_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	if out.CircuitOpenTimeout, err = getEnvAsDuration("ODDS_API_CIRCUIT_OPEN_TIMEOUT", "30s"); err != nil {
		return OddsAPIConfig{}, err
	}
	if out.CircuitHalfOpenMaxReq, err = getEnvAsInt("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return OddsAPIConfig{}, fmt.Errorf("parse ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if out.CircuitHalfOpenMaxReq < 1 {
		return OddsAPIConfig{}, fmt.Errorf("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	if out.Regions == "" || out.MainMarkets == "" {
		return OddsAPIConfig{}, fmt.Errorf("ODDS_API_REGIONS and ODDS_API_MAIN_MARKETS cannot be empty")
	}
	return out, nil
}

func loadSync() (SyncConfig, error) {
	out := SyncConfig{LeagueKeys: splitCSV(getEnv("SYNC_LEAGUE_KEYS", ""))}

	var err error
	if out.SchedulerEnabled, err = getEnvAsBool("SYNC_SCHEDULER_ENABLED", false); err != nil {
		return SyncConfig{}, err
	}
	if out.RunOnStart, err = getEnvAsBool("SYNC_RUN_ON_START", true); err != nil {
		return SyncConfig{}, err
	}
	if out.UpcomingDays, err = getEnvAsInt("SYNC_UPCOMING_DAYS", 7); err != nil {
		return SyncConfig{}, fmt.Errorf("parse SYNC_UPCOMING_DAYS: %w", err)
	}
	if out.UpcomingInterval, err = getEnvAsDuration("SYNC_UPCOMING_INTERVAL", "6h"); err != nil {
		return SyncConfig{}, err
	}
	if out.LiveDays, err = getEnvAsInt("SYNC_LIVE_DAYS", 1); err != nil {
		return SyncConfig{}, fmt.Errorf("parse SYNC_LIVE_DAYS: %w", err)
	}
	if out.LiveInterval, err = getEnvAsDuration("SYNC_LIVE_INTERVAL", "2h"); err != nil {
		return SyncConfig{}, err
	}
	for key, days := range map[string]int{"SYNC_UPCOMING_DAYS": out.UpcomingDays, "SYNC_LIVE_DAYS": out.LiveDays} {
		if days < 1 || days > 30 {
			return SyncConfig{}, fmt.Errorf("%s must be between 1 and 30", key)
		}
	}
	return out, nil
}

func loadObservability(cfg *Config) error {
	var err error
	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", false); err != nil {
		return err
	}
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))

	if cfg.UptraceEnabled, err = getEnvAsBool("UPTRACE_ENABLED", false); err != nil {
		return err
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.UptraceLogsEnabled, err = getEnvAsBool("UPTRACE_LOGS_ENABLED", true); err != nil {
		return err
	}

	if cfg.PyroscopeEnabled, err = getEnvAsBool("PYROSCOPE_ENABLED", false); err != nil {
		return err
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

// getEnvAsDuration rejects non-positive durations.
func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}
	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
