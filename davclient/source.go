package davclient

import (
	"context"
	"fmt"
	"maps"
	"net/url"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/cyp0633/caldora-sync/internal/xml"
	"github.com/samber/mo"
)

// Calendars implements calendar.Source.
func (c *Client) Calendars(ctx context.Context) (map[calendar.ID]calendar.Calendar, error) {
	remote, err := c.RemoteCalendars(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[calendar.ID]calendar.Calendar, len(remote))
	for id, rc := range remote {
		out[id] = rc
	}
	return out, nil
}

// Calendar implements calendar.Source.
func (c *Client) Calendar(ctx context.Context, id calendar.ID) (mo.Option[calendar.Calendar], error) {
	remote, err := c.RemoteCalendars(ctx)
	if err != nil {
		return mo.None[calendar.Calendar](), err
	}
	rc, ok := remote[id]
	if !ok {
		return mo.None[calendar.Calendar](), nil
	}
	return mo.Some[calendar.Calendar](rc), nil
}

// CreateCalendar issues MKCALENDAR at the URL named by id and adds the new
// collection to the memoized calendar list.
func (c *Client) CreateCalendar(ctx context.Context, name string, id calendar.ID, components calendar.SupportedComponents) (calendar.Calendar, error) {
	existing, err := c.RemoteCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := existing[id]; ok {
		return nil, fmt.Errorf("calendar %s: %w", id, calendar.ErrAlreadyExists)
	}

	u, err := url.Parse(string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar URL %q: %w", id, err)
	}

	req := &xml.MkcalendarRequest{DisplayName: name, Components: components.Names()}
	if err := c.http.DoMKCALENDAR(ctx, u.String(), req); err != nil {
		return nil, fmt.Errorf("failed to create calendar %s: %w", id, err)
	}

	rc := newRemoteCalendar(id, name, components, u, c.http, c.logger)
	// an empty collection needs no initial listing
	rc.fetched = true

	for {
		old := c.calendars.Load()
		if old == nil {
			// refreshed meanwhile; the next listing includes the new collection
			break
		}
		next := maps.Clone(*old)
		next[id] = rc
		if c.calendars.CompareAndSwap(old, &next) {
			break
		}
	}

	c.logger.Info("created calendar", "id", id, "name", name, "components", components.String())
	return rc, nil
}
