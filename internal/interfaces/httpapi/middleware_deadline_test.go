package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type deadlineRecorder struct {
	*httptest.ResponseRecorder
	deadline time.Time
}

func (d *deadlineRecorder) SetWriteDeadline(t time.Time) error {
	d.deadline = t
	return nil
}

func TestExtendSyncWriteDeadline_OnlySyncRoutes(t *testing.T) {
	t.Parallel()

	handler := ExtendSyncWriteDeadline(10*time.Minute, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		path string
		want bool
	}{
		{path: "/v1/internal/sync/all", want: true},
		{path: "/v1/internal/sync/leagues/soccer_epl", want: true},
		{path: "/v1/internal/provider/sports", want: false},
		{path: "/healthz", want: false},
	}
	for _, tt := range tests {
		rec := &deadlineRecorder{ResponseRecorder: httptest.NewRecorder()}
		before := time.Now()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

		if got := !rec.deadline.IsZero(); got != tt.want {
			t.Fatalf("%s: expected deadline set=%v, got %v", tt.path, tt.want, got)
		}
		if tt.want && rec.deadline.Before(before.Add(9*time.Minute)) {
			t.Fatalf("%s: deadline too short: %s", tt.path, rec.deadline.Sub(before))
		}
	}
}

func TestExtendSyncWriteDeadline_OutlivesServerWriteTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{"upserted":3}}`))
	})
	srv := httptest.NewUnstartedServer(ExtendSyncWriteDeadline(5*time.Second, slow))
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Post(srv.URL+"/v1/internal/sync/all", "application/json", nil)
	if err != nil {
		t.Fatalf("expected response after server write timeout, got %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != `{"data":{"upserted":3}}` {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, body)
	}
}

func TestExtendSyncWriteDeadline_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	rec := &deadlineRecorder{ResponseRecorder: httptest.NewRecorder()}
	ExtendSyncWriteDeadline(0, next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/sync/all", nil))

	if !rec.deadline.IsZero() {
		t.Fatalf("expected no deadline when disabled")
	}
}
