package theoddsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/odds-sync/internal/platform/resilience"
	"github.com/riskibarqy/odds-sync/internal/usecase"
)

const testAPIKey = "secret-key-123"

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*ClientConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := ClientConfig{
		HTTPClient:   srv.Client(),
		BaseURL:      srv.URL + "/v4/",
		APIKey:       testAPIKey,
		RetryBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestFormatWireTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("WIB", 7*60*60)
	ts := time.Date(2025, 3, 1, 22, 0, 0, 123456789, loc)
	if got := FormatWireTime(ts); got != "2025-03-01T15:00:00Z" {
		t.Fatalf("unexpected wire time: %s", got)
	}
}

func TestFetchOdds_BuildsProviderRequest(t *testing.T) {
	t.Parallel()

	var gotPath, gotRawPath string
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query()
		w.Header().Set("X-Requests-Remaining", "480")
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	from := time.Date(2025, 3, 1, 15, 0, 0, 500, time.UTC)
	to := from.Add(7 * 24 * time.Hour)
	raw, err := client.FetchOdds(context.Background(), usecase.OddsQuery{
		LeagueKey: "soccer epl/x",
		Regions:   "us,uk,eu",
		Markets:   "h2h,spreads,totals",
		From:      &from,
		To:        &to,
	})
	if err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("unexpected body: %s", raw)
	}

	if gotPath != "/v4/sports/soccer epl/x/odds" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if !strings.Contains(gotRawPath, "soccer%20epl%2Fx") {
		t.Fatalf("expected league key to be escaped, got %s", gotRawPath)
	}

	want := map[string]string{
		"apiKey":           testAPIKey,
		"regions":          "us,uk,eu",
		"markets":          "h2h,spreads,totals",
		"oddsFormat":       "decimal",
		"commenceTimeFrom": "2025-03-01T15:00:00Z",
		"commenceTimeTo":   "2025-03-08T15:00:00Z",
	}
	for key, value := range want {
		if got := gotQuery[key]; len(got) != 1 || got[0] != value {
			t.Fatalf("query %s: expected %q, got %v", key, value, got)
		}
	}
}

func TestFetchOdds_OmitsWindowWhenUnset(t *testing.T) {
	t.Parallel()

	var rawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	if _, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}); err != nil {
		t.Fatalf("fetch odds: %v", err)
	}
	if strings.Contains(rawQuery, "commenceTime") {
		t.Fatalf("did not expect commence time params, got %s", rawQuery)
	}
}

func TestFetchOdds_ReturnsEnvelopeBodyOnSuccessStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}, nil)

	raw, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"})
	if err != nil {
		t.Fatalf("expected body to be returned for parser, got %v", err)
	}
	if !strings.Contains(string(raw), "rate limited") {
		t.Fatalf("unexpected body: %s", raw)
	}
}

func TestFetchOdds_NonSuccessStatusIsErrorWithoutAPIKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid apiKey=` + testAPIKey + `"}`))
	}, nil)

	_, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"})
	if err == nil {
		t.Fatalf("expected error for 401")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("api key leaked into error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
}

func TestFetchOdds_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	if _, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}); err == nil {
		t.Fatalf("expected error for 502")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call without retries, got %d", calls.Load())
	}
}

func TestFetchOdds_RetriesTransientWhenConfigured(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, func(cfg *ClientConfig) { cfg.MaxRetries = 2 })

	if _, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestFetchOdds_CircuitBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *ClientConfig) {
		cfg.CircuitBreaker = resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Hour}
	})

	query := usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}
	_, _ = client.FetchOdds(context.Background(), query)
	_, err := client.FetchOdds(context.Background(), query)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected breaker to stop second call, got %d calls", calls.Load())
	}
}

func TestFetchOdds_CancelledCallerDoesNotFailSharedWaiter(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`[{"id":"abc123"}]`))
	}, nil)
	unblock := sync.OnceFunc(func() { close(release) })
	t.Cleanup(unblock)
	query := usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := client.FetchOdds(ctxA, query)
		errA <- err
	}()
	<-started

	type result struct {
		raw []byte
		err error
	}
	resB := make(chan result, 1)
	go func() {
		raw, err := client.FetchOdds(context.Background(), query)
		resB <- result{raw: raw, err: err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to get context.Canceled, got %v", err)
	}

	unblock()
	got := <-resB
	if got.err != nil {
		t.Fatalf("expected independent caller to succeed, got %v", got.err)
	}
	if string(got.raw) != `[{"id":"abc123"}]` {
		t.Fatalf("unexpected body: %s", got.raw)
	}
}

func TestDoOnce_CancellationIsNotTransient(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.doOnce(ctx, client.baseURL+"/sports?apiKey="+testAPIKey)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if isCircuitFailure(err) {
		t.Fatalf("cancellation must not count against the circuit breaker: %v", err)
	}
}

func TestFetchOdds_OversizedBodyIsError(t *testing.T) {
	t.Parallel()

	body := `[` + strings.Repeat(`{"id":"x"},`, 20) + `{"id":"y"}]`
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}, func(cfg *ClientConfig) { cfg.MaxResponseBytes = 64 })

	_, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"})
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
}

func TestFetchOdds_BodyAtLimitIsAccepted(t *testing.T) {
	t.Parallel()

	body := `[{"id":"abc"}]`
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}, func(cfg *ClientConfig) { cfg.MaxResponseBytes = int64(len(body)) })

	raw, err := client.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"})
	if err != nil {
		t.Fatalf("expected body at limit to pass, got %v", err)
	}
	if string(raw) != body {
		t.Fatalf("unexpected body: %s", raw)
	}
}

func TestFetchOdds_ValidatesInput(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{APIKey: testAPIKey})
	if _, err := client.FetchOdds(context.Background(), usecase.OddsQuery{Markets: "h2h"}); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty league, got %v", err)
	}

	noKey := NewClient(ClientConfig{})
	if _, err := noKey.FetchOdds(context.Background(), usecase.OddsQuery{LeagueKey: "soccer_epl", Markets: "h2h"}); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable without api key, got %v", err)
	}
}

func TestFetchSports(t *testing.T) {
	t.Parallel()

	var gotAll string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAll = r.URL.Query().Get("all")
		_, _ = w.Write([]byte(`[
			{"key":"soccer_epl","group":"Soccer","title":"EPL","description":"English Premier League","active":true,"has_outrights":false},
			{"key":"","title":"broken"}
		]`))
	}, nil)

	sports, err := client.FetchSports(context.Background(), true)
	if err != nil {
		t.Fatalf("fetch sports: %v", err)
	}
	if gotAll != "true" {
		t.Fatalf("expected all=true, got %q", gotAll)
	}
	if len(sports) != 1 || sports[0].Key != "soccer_epl" || !sports[0].Active {
		t.Fatalf("unexpected sports: %+v", sports)
	}
}

func TestRedaction(t *testing.T) {
	t.Parallel()

	got := redactAPIURL("https://api.the-odds-api.com/v4/sports/x/odds?apiKey=abc&regions=us")
	if strings.Contains(got, "abc") {
		t.Fatalf("expected api key to be redacted, got %s", got)
	}

	client := NewClient(ClientConfig{APIKey: "abc"})
	if got := client.sanitize(`Get "https://host/odds?apiKey=abc": dial tcp`); strings.Contains(got, "abc") {
		t.Fatalf("expected sanitized error text, got %s", got)
	}
}
