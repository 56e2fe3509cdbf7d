package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sony/gobreaker"

	"github.com/i474232898/water-tank-dashboard/internal/common"
)

// BackoffConfig controls exponential backoff behaviour. Delays start at
// InitialInterval and double up to MaxInterval (10s when unset).
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c BackoffConfig) newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    c.InitialInterval,
		Max:    c.MaxInterval,
		Factor: 2,
	}
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errUnauthorized  = errors.New("unauthorized")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// permanent errors are returned without further attempts.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Auth failures and other 4xx answers (except 429) are not retried.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	b := cfg.Backoff.newBackoff()
	for retries := 0; ; retries++ {
		resp, err := attempt(ctx, cfg.Client, cb, buildRequest)
		if err == nil {
			return resp, nil
		}

		var perm permanentError
		if errors.As(err, &perm) {
			return nil, perm.err
		}
		if retries >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// attempt performs one request through the breaker. Errors that must not be
// retried come back as permanentError.
func attempt(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, permanentError{err}
	}

	req, err := buildRequest()
	if err != nil {
		return nil, permanentError{err}
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp)
		}
		return resp, nil
	})
	switch {
	case err == nil:
		resp, ok := result.(*http.Response)
		if !ok {
			return nil, permanentError{fmt.Errorf("unexpected result type from circuit breaker")}
		}
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, permanentError{fmt.Errorf("%w: %v", errCircuitOpen, err)}
	case ctx.Err() != nil:
		return nil, permanentError{ctx.Err()}
	}
	return nil, err
}

// statusError classifies a non-2xx response and releases its body.
func statusError(resp *http.Response) error {
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		common.HasAny(msg, "permission denied", "unauthorized request"):
		return permanentError{fmt.Errorf("%w: %d %s", errUnauthorized, resp.StatusCode, msg)}
	default:
		return permanentError{fmt.Errorf("%w: %d %s", errUnexpected, resp.StatusCode, msg)}
	}
}
