package httpclient

import (
	"context"
	"net/http"

	"github.com/cyp0633/caldora-sync/internal/xml"
)

// DoPROPFIND performs a PROPFIND request for the given properties and returns
// the parsed multistatus. Only 207 Multi-Status is accepted.
func (c *httpClientWrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, props ...xml.Name) (*xml.MultistatusResponse, error) {
	c.logger.Debug("starting PROPFIND request",
		"url", urlStr,
		"depth", depth,
		"properties", props)

	req := &xml.PropfindRequest{Props: props}
	body, err := xml.Marshal(req.ToXML())
	if err != nil {
		return nil, err
	}

	_, respBody, err := c.do(ctx, "PROPFIND", urlStr, body, depthHeader(depth), http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}

	ms, err := parseMultistatus("PROPFIND", urlStr, respBody)
	if err != nil {
		c.logger.Debug("failed to parse XML response", "error", err)
		return nil, err
	}

	c.logger.Debug("PROPFIND request complete", "response_count", len(ms.Responses))
	return ms, nil
}
