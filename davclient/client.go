// Package davclient discovers the calendar collections of a CalDAV account and
// exposes them as calendar.Source and calendar.Calendar.
package davclient

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/cyp0633/caldora-sync/internal/httpclient"
)

// Config holds the optional collaborators of a Client
type Config struct {
	// Client is the base HTTP client. Its transport is wrapped with Basic auth.
	Client *http.Client
	Logger *slog.Logger
	// Breaker stops requests to a server that keeps failing.
	Breaker BreakerSettings
}

// BreakerSettings tunes the circuit breaker: how many consecutive failures
// open it and how long it stays open.
type BreakerSettings = httpclient.BreakerSettings

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Client:  http.DefaultClient,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Breaker: httpclient.DefaultBreakerSettings(),
	}
}

// Option customizes a Client at construction.
type Option func(*Config)

// WithHTTPClient sets the HTTP client requests are sent through.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *Config) {
		if c != nil {
			cfg.Client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithBreaker tunes the circuit breaker in front of the server.
func WithBreaker(settings BreakerSettings) Option {
	return func(cfg *Config) {
		cfg.Breaker = settings
	}
}

// Client locates the calendars of one account. Discovery results are
// memoized per instance: the principal and home-set URLs for the client's
// lifetime, the calendar map until Refresh. Memo fields are atomic pointers,
// so concurrent callers may both compute a value and the last write wins.
type Client struct {
	baseURL *url.URL
	http    httpclient.HttpClientWrapper
	logger  *slog.Logger

	principal atomic.Pointer[url.URL]
	homeSet   atomic.Pointer[url.URL]
	calendars atomic.Pointer[map[calendar.ID]*RemoteCalendar]
}

var _ calendar.Source = (*Client)(nil)

// NewClient creates a client for the account at baseURL. Credentials are
// sent with Basic auth on every request, and a circuit breaker fails requests
// fast while the server keeps answering with errors.
func NewClient(baseURL, username, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("invalid URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL %q", baseURL)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	authed := *cfg.Client
	breaker := httpclient.NewBreakerTransport(u.Host, cfg.Client.Transport, cfg.Breaker, cfg.Logger)
	authed.Transport = httpclient.NewBasicAuthTransport(username, password, breaker, cfg.Logger)

	wrapper, err := httpclient.NewHttpClientWrapper(&authed, *u, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return newClient(u, wrapper, cfg.Logger), nil
}

func newClient(u *url.URL, wrapper httpclient.HttpClientWrapper, logger *slog.Logger) *Client {
	return &Client{baseURL: u, http: wrapper, logger: logger}
}

// Refresh forgets the memoized calendar list so the next call lists the
// home set again. Principal and home-set URLs are kept.
func (c *Client) Refresh() {
	c.calendars.Store(nil)
}

func (c *Client) resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return c.baseURL.ResolveReference(ref), nil
}
