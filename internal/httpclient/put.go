package httpclient

import (
	"context"
	"net/http"
)

// DoPUT uploads a calendar object. A non-empty etag is sent as If-Match so a
// concurrent change on the server makes the write fail. The returned etag is
// empty when the server does not report one.
func (c *httpClientWrapper) DoPUT(ctx context.Context, urlStr string, etag string, data []byte) (newEtag string, err error) {
	c.logger.Debug("starting PUT request",
		"url", urlStr,
		"etag", etag,
		"data_length", len(data))

	header := http.Header{}
	if etag != "" {
		header.Set("If-Match", etag)
	}
	header.Set("Content-Type", "text/calendar; charset=utf-8")

	resp, _, err := c.do(ctx, http.MethodPut, urlStr, data, header,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return "", err
	}

	newEtag = resp.Header.Get("ETag")
	c.logger.Debug("PUT request complete",
		"status", resp.Status,
		"new_etag", newEtag)
	return newEtag, nil
}
