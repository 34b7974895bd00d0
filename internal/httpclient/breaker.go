package httpclient

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrServerUnavailable is returned without contacting the server while the
// breaker is open.
var ErrServerUnavailable = errors.New("server unavailable, circuit open")

// errServerFailure marks a 5xx answer inside the breaker. It never leaves
// RoundTrip.
var errServerFailure = errors.New("server error")

// BreakerSettings tunes a BreakerTransport.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit once reached.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
}

// DefaultBreakerSettings suits a sync that runs every few minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, Timeout: time.Minute}
}

// BreakerTransport implements http.RoundTripper and stops sending requests to
// a server that keeps failing. Network errors and 5xx answers count as
// failures; any other status is a success.
type BreakerTransport struct {
	Transport http.RoundTripper
	cb        *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerTransport wraps transport, or http.DefaultTransport if nil.
func NewBreakerTransport(name string, transport http.RoundTripper, settings BreakerSettings, logger *slog.Logger) *BreakerTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerTransport{Transport: transport, cb: cb}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.Transport.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, errServerFailure):
		// recorded as a failure, handed to the caller as a normal answer
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, ErrServerUnavailable
	}
	return resp, err
}

// State reports the breaker state: "closed", "half-open" or "open".
func (t *BreakerTransport) State() string {
	return t.cb.State().String()
}
