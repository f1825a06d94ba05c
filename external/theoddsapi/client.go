// Package theoddsapi is the HTTP adapter for The Odds API v4.
package theoddsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/odds-sync/internal/platform/logging"
	"github.com/riskibarqy/odds-sync/internal/platform/resilience"
	"github.com/riskibarqy/odds-sync/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com/v4"
	// WireTimeLayout is the only commenceTimeFrom/commenceTimeTo format the provider accepts.
	WireTimeLayout = "2006-01-02T15:04:05Z"

	defaultTimeout    = 20 * time.Second
	defaultOddsFormat = "decimal"
	maxResponseBytes  = 8 << 20
	maxErrorBodyChars = 240
)

var (
	apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

	// errTransient marks failures worth counting against the circuit breaker and retrying.
	errTransient = crerr.New("the odds api transient failure")

	// ErrResponseTooLarge is returned when a body exceeds the configured size cap.
	ErrResponseTooLarge = crerr.New("the odds api response exceeds size limit")
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	// MaxRetries is 0 by default: a failed league simply waits for the next scheduled run.
	MaxRetries     int
	RetryBackoff   time.Duration
	// MaxResponseBytes caps a response body; larger bodies are an error. Defaults to 8 MiB.
	MaxResponseBytes int64
	Logger           *logging.Logger
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// Client implements usecase.OddsProvider.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	maxRetries   int
	retryBackoff time.Duration
	maxBody      int64
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       singleflight.Group
}

var _ usecase.OddsProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = timeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = maxResponseBytes
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		maxBody:      maxBody,
		logger:       logger.Named("theoddsapi"),
		breaker:      resilience.NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// FormatWireTime renders t in the provider's commence time format (UTC, second precision, trailing Z).
func FormatWireTime(t time.Time) string {
	return t.UTC().Format(WireTimeLayout)
}

// FetchOdds returns the raw body of GET /sports/{league}/odds. Shape problems in
// the body are left to the parser; only transport failures and non-2xx
// statuses are errors.
func (c *Client) FetchOdds(ctx context.Context, query usecase.OddsQuery) ([]byte, error) {
	leagueKey := strings.TrimSpace(query.LeagueKey)
	if leagueKey == "" {
		return nil, fmt.Errorf("%w: league key is required", usecase.ErrInvalidInput)
	}
	if strings.TrimSpace(query.Markets) == "" {
		return nil, fmt.Errorf("%w: markets are required", usecase.ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("regions", strings.TrimSpace(query.Regions))
	params.Set("markets", strings.TrimSpace(query.Markets))
	params.Set("oddsFormat", firstNonEmpty(query.OddsFormat, defaultOddsFormat))
	if query.From != nil {
		params.Set("commenceTimeFrom", FormatWireTime(*query.From))
	}
	if query.To != nil {
		params.Set("commenceTimeTo", FormatWireTime(*query.To))
	}

	return c.get(ctx, "/sports/"+url.PathEscape(leagueKey)+"/odds", params)
}

type sportItem struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// FetchSports lists provider sport keys. all=false returns in-season sports only.
func (c *Client) FetchSports(ctx context.Context, all bool) ([]usecase.ProviderSport, error) {
	params := url.Values{}
	if all {
		params.Set("all", "true")
	}

	raw, err := c.get(ctx, "/sports", params)
	if err != nil {
		return nil, err
	}

	var items []sportItem
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, crerr.Wrapf(err, "decode sports payload body=%s", abbreviateBody(raw))
	}

	out := make([]usecase.ProviderSport, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Key) == "" {
			continue
		}
		out = append(out, usecase.ProviderSport{
			Key:          item.Key,
			Group:        item.Group,
			Title:        item.Title,
			Description:  item.Description,
			Active:       item.Active,
			HasOutrights: item.HasOutrights,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: odds api key is not configured", usecase.ErrDependencyUnavailable)
	}

	// Overlapping sync tiers ask for identical league windows; share one upstream call.
	flightKey := path + "?" + params.Encode()

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("apiKey", c.apiKey)
	fullURL := c.baseURL + path + "?" + query.Encode()

	// The shared call outlives any single caller; each caller waits on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		var body []byte
		err := c.breaker.Execute(func() error {
			var reqErr error
			body, reqErr = c.executeRequest(flightCtx, fullURL)
			return reqErr
		}, isCircuitFailure)
		return body, err
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	out, err, shared := res.Val, res.Err, res.Shared

	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "circuit breaker rejected request", "path", path, "state", c.breaker.State())
		return nil, fmt.Errorf("%w: odds provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "shared in-flight provider response", "path", path)
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.doOnce(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !crerr.Is(err, errTransient) || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "provider request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %s", c.sanitize(err.Error()))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, crerr.Wrapf(ctxErr, "send request: %s", c.sanitize(err.Error()))
		}
		return nil, crerr.Wrapf(errTransient, "send request: %s", c.sanitize(err.Error()))
	}
	defer resp.Body.Close()

	c.logQuota(ctx, resp.Header)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxBody+1)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, crerr.Wrapf(ctxErr, "read response body: %s", c.sanitize(err.Error()))
		}
		return nil, crerr.Wrapf(errTransient, "read response body: %s", c.sanitize(err.Error()))
	}
	if int64(buf.Len()) > c.maxBody {
		return nil, crerr.Wrapf(ErrResponseTooLarge, "provider status=%d limit=%d", resp.StatusCode, c.maxBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := c.sanitize(abbreviateBody(buf.B))
		if isRetryableStatus(resp.StatusCode) {
			return nil, crerr.Wrapf(errTransient, "provider status=%d body=%s", resp.StatusCode, body)
		}
		return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, body)
	}

	// buf goes back to the pool; hand out a copy.
	return append([]byte(nil), buf.B...), nil
}

func (c *Client) logQuota(ctx context.Context, header http.Header) {
	remaining := header.Get("X-Requests-Remaining")
	if remaining == "" {
		return
	}
	c.logger.DebugContext(ctx, "provider quota",
		"requests_remaining", remaining,
		"requests_used", header.Get("X-Requests-Used"),
		"requests_last", header.Get("X-Requests-Last"),
	)
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return apiKeyParamRegex.ReplaceAllString(rawURL, "apiKey=REDACTED")
	}
	query := parsed.Query()
	if query.Has("apiKey") {
		query.Set("apiKey", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxErrorBodyChars {
		return text
	}
	return text[:maxErrorBodyChars] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
