package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cyp0633/caldora-sync/internal/xml"
)

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality
type HttpClientWrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, props ...xml.Name) (*xml.MultistatusResponse, error)
	DoREPORT(ctx context.Context, url string, depth int, query *xml.CalendarQuery) (*xml.MultistatusResponse, error)
	DoPUT(ctx context.Context, url string, etag string, data []byte) (newEtag string, err error)
	DoDELETE(ctx context.Context, url string, etag string) error
	DoMKCALENDAR(ctx context.Context, url string, req *xml.MkcalendarRequest) error
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// NewHttpClientWrapper creates a new client wrapper. Relative URLs passed to
// its methods are resolved against baseURL.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// do sends one request and returns the response with its body fully read.
// Any status outside accept yields a *TransportError.
func (c *httpClientWrapper) do(ctx context.Context, method, urlStr string, body []byte, header http.Header, accept ...int) (*http.Response, []byte, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, nil, fmt.Errorf("failed to resolve URL %q: %w", urlStr, err)
	}
	target := resolvedURL.String()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "url", target, "error", err)
		return nil, nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Method: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("received response", "method", method, "url", target, "status", resp.Status)

	for _, code := range accept {
		if resp.StatusCode == code {
			return resp, respBody, nil
		}
	}
	c.logger.Debug("unexpected response status",
		"method", method,
		"status_code", resp.StatusCode,
		"status", resp.Status)
	return nil, nil, &TransportError{Method: method, URL: target, StatusCode: resp.StatusCode}
}

func depthHeader(depth int) http.Header {
	h := http.Header{}
	h.Set("Depth", strconv.Itoa(depth))
	h.Set("Content-Type", "application/xml; charset=utf-8")
	return h
}

func parseMultistatus(method, urlStr string, body []byte) (*xml.MultistatusResponse, error) {
	ms, err := xml.ParseMultistatus(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, urlStr, ErrMalformedResponse, err)
	}
	return ms, nil
}
