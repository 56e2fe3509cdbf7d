package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/i474232898/water-tank-dashboard/internal/tank"
)

// Scopes required to read a Realtime Database with a service account.
var scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/firebase.database",
}

// Config describes how to reach one Realtime Database path.
type Config struct {
	DatabaseURL string
	Path        string

	// Secret is a legacy database secret, sent as the auth query parameter.
	Secret string
	// Credentials is a service-account JSON key. Takes precedence over Secret.
	Credentials []byte

	HTTPClient *http.Client
	Backoff    BackoffConfig
}

// Client implements tank.Fetcher with a REST point read of the whole path.
type Client struct {
	name     string
	endpoint string
	secret   string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewClient validates cfg and builds a Client. When service-account
// credentials are given, requests carry OAuth2 bearer tokens.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid database url %q: scheme and host are required", cfg.DatabaseURL)
	}

	path := strings.Trim(cfg.Path, "/")
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	secret := cfg.Secret
	if len(cfg.Credentials) > 0 {
		jwtCfg, err := google.JWTConfigFromJSON(cfg.Credentials, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		// Token exchange goes through the configured client as well.
		authCtx := context.WithValue(ctx, oauth2.HTTPClient, client)
		client = &http.Client{
			Timeout:   client.Timeout,
			Transport: jwtCfg.Client(authCtx).Transport,
		}
		secret = ""
	}

	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "firebase",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:     "firebase:" + path,
		endpoint: strings.TrimRight(base.String(), "/") + "/" + escapePath(path) + ".json",
		secret:   secret,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: cb,
	}, nil
}

func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (c *Client) Name() string {
	return c.name
}

// FetchAll reads every record under the configured path. A missing path
// (JSON null) or an empty object yields tank.ErrNoData.
func (c *Client) FetchAll(ctx context.Context) (map[string]tank.RawObservation, error) {
	buildRequest := func() (*http.Request, error) {
		u := c.endpoint
		if c.secret != "" {
			values := url.Values{}
			values.Set("auth", c.secret)
			u = fmt.Sprintf("%s?%s", u, values.Encode())
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, &tank.FetchError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &tank.FetchError{Source: c.name, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(payload) == 0 {
		return nil, tank.ErrNoData
	}

	out := make(map[string]tank.RawObservation, len(payload))
	for id, rec := range payload {
		var obs tank.RawObservation
		if err := json.Unmarshal(rec, &obs); err != nil {
			// Reported as malformed by the aggregator.
			obs = tank.RawObservation{DecodeErr: err}
		}
		out[id] = obs
	}
	return out, nil
}
