package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests. Credentials are fixed at construction.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a clone of the request and delegates to the underlying transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err == nil {
			authed.Body = body
		}
	}

	if t.Logger.Enabled(req.Context(), slog.LevelDebug) {
		t.Logger.Debug("outgoing request",
			"method", req.Method,
			"url", req.URL.String(),
			"depth", req.Header.Get("Depth"),
			"body", peekBody(&authed.Body))
	}

	authed.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(authed)

	if err == nil && resp != nil && t.Logger.Enabled(req.Context(), slog.LevelDebug) {
		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"etag", resp.Header.Get("ETag"),
			"body", peekBody(&resp.Body))
	}

	return resp, err
}

// peekBody reads a body for logging and puts an identical reader back.
func peekBody(body *io.ReadCloser) string {
	if *body == nil || *body == http.NoBody {
		return ""
	}
	data, err := io.ReadAll(*body)
	(*body).Close()
	*body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return string(data)
}
