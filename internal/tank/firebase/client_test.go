package firebase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

func newTestClient(t *testing.T, srv *httptest.Server, secret string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{
		DatabaseURL: srv.URL,
		Path:        "/UltraSonicSensor/",
		Secret:      secret,
		HTTPClient:  srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestFetchAllDecodesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/UltraSonicSensor.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("auth"); got != "s3cret" {
			t.Errorf("expected auth parameter, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"-Nabc": {"Time": "2024-01-01T00:00:00Z", "Distance": "10"},
			"-Nabd": {"Time": "2024-01-01T12:00:00Z", "Distance": 20},
			"-Nabe": 42,
			"-Nabf": {"Time": 1704067200, "Distance": "5"}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "s3cret")
	got, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got))
	}
	if got["-Nabc"].Distance != "10" || got["-Nabd"].Distance != "20" {
		t.Fatalf("unexpected records %+v", got)
	}
	for _, id := range []string{"-Nabe", "-Nabf"} {
		if got[id].DecodeErr == nil {
			t.Fatalf("%s: expected the decode error to be kept", id)
		}
	}
	if got["-Nabc"].DecodeErr != nil {
		t.Fatalf("unexpected decode error %v", got["-Nabc"].DecodeErr)
	}
	if c.Name() != "firebase:UltraSonicSensor" {
		t.Fatalf("unexpected name %q", c.Name())
	}
}

func TestFetchAllNoData(t *testing.T) {
	for _, body := range []string{"null", "{}"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		c := newTestClient(t, srv, "")
		_, err := c.FetchAll(context.Background())
		srv.Close()

		if !errors.Is(err, tank.ErrNoData) {
			t.Fatalf("body %s: expected ErrNoData, got %v", body, err)
		}
	}
}

func TestFetchAllRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"a": {"Time": "2024-01-01T00:00:00Z", "Distance": "1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	got, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected success on third attempt, got %d records after %d calls", len(got), calls)
	}
}

func TestFetchAllGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.FetchAll(context.Background())

	var fe *tank.FetchError
	if !errors.As(err, &fe) || !errors.Is(err, errServerError) {
		t.Fatalf("expected FetchError wrapping a server error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d calls", n)
	}
}

func TestFetchAllDoesNotRetryAuthFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Permission denied"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "wrong")
	_, err := c.FetchAll(context.Background())

	var fe *tank.FetchError
	if !errors.As(err, &fe) || !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected unauthorized FetchError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := BackoffConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 40 * time.Millisecond}.newBackoff()

	want := []time.Duration{10, 20, 40, 40}
	for i, w := range want {
		if got := b.Duration(); got != w*time.Millisecond {
			t.Fatalf("delay %d = %v, want %v", i, got, w*time.Millisecond)
		}
	}
}

func TestFetchAllStopsRetryingOnCancel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		DatabaseURL: srv.URL,
		Path:        "UltraSonicSensor",
		HTTPClient:  srv.Client(),
		Backoff: BackoffConfig{
			MaxRetries:      5,
			InitialInterval: time.Second,
			MaxInterval:     time.Second,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.FetchAll(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", n)
	}
}

func TestFetchAllRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	_, err := c.FetchAll(context.Background())
	var fe *tank.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	cases := []Config{
		{DatabaseURL: "", Path: "x"},
		{DatabaseURL: "ftp://example.com", Path: "x"},
		{DatabaseURL: "https://example.firebaseio.com", Path: "/"},
		{DatabaseURL: "https://example.firebaseio.com", Path: "x", Credentials: []byte("not json")},
	}
	for i, cfg := range cases {
		if _, err := NewClient(context.Background(), cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
