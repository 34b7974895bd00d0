package httpclient

import (
	"context"
	"net/http"

	"github.com/cyp0633/caldora-sync/internal/xml"
)

// DoREPORT executes a CalDAV calendar-query REPORT request
func (c *httpClientWrapper) DoREPORT(ctx context.Context, urlStr string, depth int, query *xml.CalendarQuery) (*xml.MultistatusResponse, error) {
	c.logger.Debug("starting REPORT request",
		"url", urlStr,
		"depth", depth,
		"component", query.Filter.ComponentName)

	body, err := xml.Marshal(query.ToXML())
	if err != nil {
		c.logger.Debug("failed to marshal query", "error", err)
		return nil, err
	}

	_, respBody, err := c.do(ctx, "REPORT", urlStr, body, depthHeader(depth), http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}

	ms, err := parseMultistatus("REPORT", urlStr, respBody)
	if err != nil {
		c.logger.Debug("failed to decode response", "error", err)
		return nil, err
	}

	c.logger.Debug("REPORT request complete", "response_count", len(ms.Responses))
	return ms, nil
}
