package davclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/cyp0633/caldora-sync/internal/httpclient"
	"github.com/cyp0633/caldora-sync/internal/xml"
)

// noName is the display name of calendars that do not report one.
const noName = "<no name>"

// PrincipalURL returns the current user's principal URL, asking the server at
// most once per client.
func (c *Client) PrincipalURL(ctx context.Context) (*url.URL, error) {
	if u := c.principal.Load(); u != nil {
		return copyURL(u), nil
	}
	u, err := c.findHref(ctx, StagePrincipal, c.baseURL, xml.PropCurrentUserPrincipal)
	if err != nil {
		return nil, err
	}
	c.principal.Store(u)
	c.logger.Debug("found principal URL", "url", u.String())
	return copyURL(u), nil
}

// CalendarHomeSetURL returns the collection holding the user's calendars.
func (c *Client) CalendarHomeSetURL(ctx context.Context) (*url.URL, error) {
	if u := c.homeSet.Load(); u != nil {
		return copyURL(u), nil
	}
	principal, err := c.PrincipalURL(ctx)
	if err != nil {
		return nil, err
	}
	u, err := c.findHref(ctx, StageHomeSet, principal, xml.PropCalendarHomeSet)
	if err != nil {
		return nil, err
	}
	c.homeSet.Store(u)
	c.logger.Debug("found calendar home set", "url", u.String())
	return copyURL(u), nil
}

// RemoteCalendars lists the calendar collections of the home set. The map is
// shared with other callers until Refresh and must not be modified.
func (c *Client) RemoteCalendars(ctx context.Context) (map[calendar.ID]*RemoteCalendar, error) {
	if m := c.calendars.Load(); m != nil {
		return *m, nil
	}
	home, err := c.CalendarHomeSetURL(ctx)
	if err != nil {
		return nil, err
	}
	cals, err := c.listCalendars(ctx, home)
	if err != nil {
		return nil, err
	}
	c.calendars.Store(&cals)
	c.logger.Info("found calendars", "count", len(cals), "home_set", home.String())
	return cals, nil
}

// findHref runs one Depth 0 PROPFIND and returns the href nested in prop,
// resolved against the base URL.
func (c *Client) findHref(ctx context.Context, stage string, target *url.URL, prop xml.Name) (*url.URL, error) {
	ms, err := c.http.DoPROPFIND(ctx, target.String(), 0, prop)
	if err != nil {
		return nil, classify(stage, target, err)
	}

	for _, resp := range ms.Responses {
		p, ok := resp.Prop(prop)
		if !ok {
			continue
		}
		href, ok := p.FindHref()
		if !ok {
			continue
		}
		u, err := c.resolve(href)
		if err != nil {
			return nil, &ProtocolError{Stage: stage, URL: target.String(), Reason: fmt.Sprintf("invalid href %q", href), Err: err}
		}
		return u, nil
	}
	return nil, &ProtocolError{Stage: stage, URL: target.String(), Reason: fmt.Sprintf("no %s href in response", prop.Local)}
}

func (c *Client) listCalendars(ctx context.Context, home *url.URL) (map[calendar.ID]*RemoteCalendar, error) {
	ms, err := c.http.DoPROPFIND(ctx, home.String(), 1,
		xml.PropDisplayName, xml.PropResourceType, xml.PropSupportedCompSet)
	if err != nil {
		return nil, classify(StageCalendars, home, err)
	}

	cals := make(map[calendar.ID]*RemoteCalendar)
	for _, resp := range ms.Responses {
		rc, ok := c.calendarFromResponse(resp)
		if !ok {
			continue
		}
		cals[rc.ID()] = rc
	}
	return cals, nil
}

// calendarFromResponse applies the per-entry filters of the home-set listing.
// A rejected entry never fails the listing.
func (c *Client) calendarFromResponse(resp xml.Response) (*RemoteCalendar, bool) {
	rt, ok := resp.Prop(xml.PropResourceType)
	if !ok {
		c.logger.Debug("skipping entry without resourcetype", "href", resp.Href)
		return nil, false
	}
	if !hasChild(rt, xml.CalDAVName(xml.TagCalendar)) {
		c.logger.Debug("skipping non-calendar collection", "href", resp.Href)
		return nil, false
	}
	compSet, ok := resp.Prop(xml.PropSupportedCompSet)
	if !ok || len(compSet.Children) == 0 {
		c.logger.Debug("skipping calendar without supported components", "href", resp.Href)
		return nil, false
	}
	if resp.Href == "" {
		c.logger.Warn("skipping calendar without href")
		return nil, false
	}
	components, err := c.parseComponentSet(compSet)
	if err != nil {
		c.logger.Warn("skipping calendar with invalid component set", "href", resp.Href, "error", err)
		return nil, false
	}
	u, err := c.resolve(resp.Href)
	if err != nil {
		c.logger.Warn("skipping calendar with invalid href", "href", resp.Href, "error", err)
		return nil, false
	}

	name := noName
	if dn, ok := resp.Prop(xml.PropDisplayName); ok {
		name = dn.TextContent
	}

	return newRemoteCalendar(calendar.ID(u.String()), name, components, u, c.http, c.logger), true
}

// parseComponentSet reads supported-calendar-component-set. Children that
// are not a comp element with a non-empty name are skipped, as are names
// other than VEVENT and VTODO. A set in which no child is a named comp is
// invalid.
func (c *Client) parseComponentSet(set xml.Property) (calendar.SupportedComponents, error) {
	var components calendar.SupportedComponents
	named := 0
	for _, child := range set.Children {
		if child.Name != xml.TagComp || child.Namespace != xml.CalDAV {
			c.logger.Debug("ignoring unexpected element in component set", "element", child.Name)
			continue
		}
		name := strings.TrimSpace(child.GetAttr("name"))
		if name == "" {
			c.logger.Debug("ignoring comp element without name")
			continue
		}
		named++
		flag, ok := calendar.ComponentFromName(name)
		if !ok {
			c.logger.Debug("ignoring unsupported component", "component", name)
			continue
		}
		components |= flag
	}
	if named == 0 {
		return 0, errors.New("no named comp element")
	}
	return components, nil
}

func hasChild(p xml.Property, name xml.Name) bool {
	for _, child := range p.Children {
		if child.Name == name.Local && child.Namespace == name.Space {
			return true
		}
	}
	return false
}

// classify turns an unparsable body into a ProtocolError and passes
// transport errors through.
func classify(stage string, target *url.URL, err error) error {
	if errors.Is(err, httpclient.ErrMalformedResponse) {
		return &ProtocolError{Stage: stage, URL: target.String(), Reason: "unparsable response", Err: err}
	}
	return err
}

func copyURL(u *url.URL) *url.URL {
	cp := *u
	return &cp
}
