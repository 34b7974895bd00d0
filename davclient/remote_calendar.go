package davclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/cyp0633/caldora-sync/internal/httpclient"
	"github.com/cyp0633/caldora-sync/internal/xml"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// RemoteCalendar is a calendar collection on a CalDAV server. Items carry the
// status Synced with the object's etag as token. A server keeps no pending
// state, so MarkForDeletion deletes right away and SetSyncStatus only checks
// that the item exists.
type RemoteCalendar struct {
	id         calendar.ID
	name       string
	components calendar.SupportedComponents
	url        *url.URL
	http       httpclient.HttpClientWrapper
	logger     *slog.Logger

	// mu guards the fields below. HTTP calls run under it so mutations of one
	// collection are serialized.
	mu      sync.RWMutex
	fetched bool
	objects map[calendar.ItemID]*remoteObject
}

type remoteObject struct {
	item *calendar.Item
	href string
	etag string
	raw  *ical.Calendar
}

var _ calendar.Calendar = (*RemoteCalendar)(nil)

// timeNow is replaced in tests.
var timeNow = time.Now

func newRemoteCalendar(id calendar.ID, name string, components calendar.SupportedComponents, u *url.URL, wrapper httpclient.HttpClientWrapper, logger *slog.Logger) *RemoteCalendar {
	collection := *u
	if !strings.HasSuffix(collection.Path, "/") {
		collection.Path += "/"
	}
	return &RemoteCalendar{
		id:         id,
		name:       name,
		components: components,
		url:        &collection,
		http:       wrapper,
		logger:     logger.With("calendar", string(id)),
		objects:    make(map[calendar.ItemID]*remoteObject),
	}
}

func (c *RemoteCalendar) ID() calendar.ID { return c.id }

func (c *RemoteCalendar) Name() string { return c.name }

func (c *RemoteCalendar) SupportedComponents() calendar.SupportedComponents { return c.components }

// Items lists the VTODOs of the collection. Every call queries the server.
func (c *RemoteCalendar) Items(ctx context.Context) ([]*calendar.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fetchLocked(ctx); err != nil {
		return nil, err
	}
	items := make([]*calendar.Item, 0, len(c.objects))
	for _, obj := range c.objects {
		items = append(items, obj.item.Clone())
	}
	return items, nil
}

// Item returns an item from the last listing, listing first if needed.
func (c *RemoteCalendar) Item(ctx context.Context, id calendar.ItemID) (mo.Option[*calendar.Item], error) {
	c.mu.RLock()
	if c.fetched {
		defer c.mu.RUnlock()
		return c.lookupLocked(id), nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureFetchedLocked(ctx); err != nil {
		return mo.None[*calendar.Item](), err
	}
	return c.lookupLocked(id), nil
}

func (c *RemoteCalendar) lookupLocked(id calendar.ItemID) mo.Option[*calendar.Item] {
	obj, ok := c.objects[id]
	if !ok {
		return mo.None[*calendar.Item]()
	}
	return mo.Some(obj.item.Clone())
}

// AddItem uploads item, replacing the object of the same id if the server has
// one. The replace is conditional on the etag seen in the last listing.
func (c *RemoteCalendar) AddItem(ctx context.Context, item *calendar.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFetchedLocked(ctx); err != nil {
		return err
	}

	obj, ok := c.objects[item.ID()]
	if !ok {
		href, err := c.objectURL(item.ID())
		if err != nil {
			return err
		}
		obj = &remoteObject{href: href}
	}
	return c.putLocked(ctx, item, obj)
}

// UpdateItem applies fn to the item and uploads the result.
func (c *RemoteCalendar) UpdateItem(ctx context.Context, id calendar.ItemID, fn func(*calendar.Item)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFetchedLocked(ctx); err != nil {
		return err
	}
	obj, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	updated := obj.item.Clone()
	fn(updated)
	return c.putLocked(ctx, updated, obj)
}

// DeleteItem removes the object from the server. An object the server no
// longer has counts as deleted.
func (c *RemoteCalendar) DeleteItem(ctx context.Context, id calendar.ItemID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFetchedLocked(ctx); err != nil {
		return err
	}
	obj, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}

	err := c.http.DoDELETE(ctx, obj.href, obj.etag)
	if err != nil && !httpclient.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("failed to delete calendar object: %w", err)
	}
	delete(c.objects, id)
	c.logger.Debug("deleted calendar object", "item", id, "href", obj.href)
	return nil
}

// MarkForDeletion deletes the item immediately.
func (c *RemoteCalendar) MarkForDeletion(ctx context.Context, id calendar.ItemID) error {
	return c.DeleteItem(ctx, id)
}

// SetSyncStatus has nothing to record on a server; the status of a remote
// item always derives from its etag.
func (c *RemoteCalendar) SetSyncStatus(ctx context.Context, id calendar.ItemID, _ calendar.SyncStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureFetchedLocked(ctx); err != nil {
		return err
	}
	if _, ok := c.objects[id]; !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	return nil
}

func (c *RemoteCalendar) ensureFetchedLocked(ctx context.Context) error {
	if c.fetched {
		return nil
	}
	return c.fetchLocked(ctx)
}

// fetchLocked replaces the known objects with a fresh calendar-query listing.
func (c *RemoteCalendar) fetchLocked(ctx context.Context) error {
	ms, err := c.http.DoREPORT(ctx, c.url.String(), 1, xml.TodoQuery())
	if err != nil {
		return fmt.Errorf("failed to list calendar objects: %w", err)
	}

	objects := make(map[calendar.ItemID]*remoteObject, len(ms.Responses))
	for _, resp := range ms.Responses {
		obj, ok := c.objectFromResponse(ctx, resp)
		if !ok {
			continue
		}
		if dup, exists := objects[obj.item.ID()]; exists {
			c.logger.Warn("duplicate UID in collection", "item", obj.item.ID(), "href", obj.href, "other", dup.href)
			continue
		}
		objects[obj.item.ID()] = obj
	}

	c.objects = objects
	c.fetched = true
	c.logger.Debug("listed calendar objects", "count", len(objects))
	return nil
}

// objectFromResponse decodes one listed object. Objects the server reports
// as missing, without data, or that are not tasks are skipped. An object
// listed without an etag gets one through PROPFIND, since its token is the
// baseline of the next sync.
func (c *RemoteCalendar) objectFromResponse(ctx context.Context, resp xml.Response) (*remoteObject, bool) {
	if resp.Href == "" {
		return nil, false
	}
	if !resp.Found() {
		c.logger.Debug("skipping missing calendar object", "href", resp.Href, "status", resp.Status)
		return nil, false
	}
	data, ok := resp.Prop(xml.PropCalendarData)
	if !ok {
		c.logger.Debug("skipping object without calendar data", "href", resp.Href)
		return nil, false
	}

	href, err := c.resolve(resp.Href)
	if err != nil {
		c.logger.Warn("skipping object with invalid href", "href", resp.Href, "error", err)
		return nil, false
	}

	var etag string
	if p, ok := resp.Prop(xml.PropGetETag); ok {
		etag = strings.TrimSpace(p.TextContent)
	}
	if etag == "" {
		etag, err = c.fetchETag(ctx, href.String())
		if err != nil {
			c.logger.Warn("skipping object without etag", "href", resp.Href, "error", err)
			return nil, false
		}
	}

	fallbackID := calendar.ItemID(strings.TrimSuffix(path.Base(href.Path), ".ics"))
	item, raw, isTodo, err := todoFromBytes(data.TextContent, fallbackID, calendar.VersionToken(etag))
	if err != nil {
		c.logger.Warn("skipping malformed calendar object", "href", resp.Href, "error", err)
		return nil, false
	}
	if !isTodo {
		return nil, false
	}
	return &remoteObject{item: item, href: href.String(), etag: etag, raw: raw}, true
}

// putLocked uploads item to obj.href and records the stored result. The
// cached object is only replaced once the server accepted the upload.
func (c *RemoteCalendar) putLocked(ctx context.Context, item *calendar.Item, obj *remoteObject) error {
	data, raw, err := todoToBytes(item, obj.raw, timeNow())
	if err != nil {
		return err
	}

	etag, err := c.http.DoPUT(ctx, obj.href, obj.etag, data)
	if err != nil {
		return fmt.Errorf("failed to upload calendar object: %w", err)
	}
	if etag == "" {
		etag, err = c.fetchETag(ctx, obj.href)
		if err != nil {
			return err
		}
	}

	task, _ := item.Task()
	c.objects[item.ID()] = &remoteObject{
		item: calendar.RestoreTask(item.ID(), task, calendar.SyncedStatus(calendar.VersionToken(etag))),
		href: obj.href,
		etag: etag,
		raw:  raw,
	}
	c.logger.Debug("uploaded calendar object", "item", item.ID(), "href", obj.href, "etag", etag)
	return nil
}

// fetchETag asks for the etag of an object when PUT did not return one.
func (c *RemoteCalendar) fetchETag(ctx context.Context, href string) (string, error) {
	ms, err := c.http.DoPROPFIND(ctx, href, 0, xml.PropGetETag)
	if err != nil {
		return "", fmt.Errorf("failed to get new etag: %w", err)
	}
	for _, resp := range ms.Responses {
		if p, ok := resp.Prop(xml.PropGetETag); ok && strings.TrimSpace(p.TextContent) != "" {
			return strings.TrimSpace(p.TextContent), nil
		}
	}
	return "", fmt.Errorf("no etag found for %s", href)
}

func (c *RemoteCalendar) objectURL(id calendar.ItemID) (string, error) {
	// "./" keeps ids containing a colon from parsing as a scheme
	ref, err := url.Parse("./" + url.PathEscape(string(id)) + ".ics")
	if err != nil {
		return "", fmt.Errorf("failed to build object URL for %s: %w", id, err)
	}
	return c.url.ResolveReference(ref).String(), nil
}

func (c *RemoteCalendar) resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return c.url.ResolveReference(ref), nil
}
