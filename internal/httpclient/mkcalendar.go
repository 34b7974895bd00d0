package httpclient

import (
	"context"
	"net/http"

	"github.com/cyp0633/caldora-sync/internal/xml"
)

// DoMKCALENDAR creates a calendar collection at url.
func (c *httpClientWrapper) DoMKCALENDAR(ctx context.Context, urlStr string, req *xml.MkcalendarRequest) error {
	c.logger.Debug("starting MKCALENDAR request",
		"url", urlStr,
		"name", req.DisplayName,
		"components", req.Components)

	body, err := xml.Marshal(req.ToXML())
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, _, err := c.do(ctx, "MKCALENDAR", urlStr, body, header, http.StatusCreated, http.StatusOK)
	if err != nil {
		return err
	}

	c.logger.Debug("MKCALENDAR request complete", "status", resp.Status)
	return nil
}
