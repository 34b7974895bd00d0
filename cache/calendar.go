package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/samber/mo"
)

// Calendar is one calendar of a Cache. Items are stored by value and handed
// out as clones.
type Calendar struct {
	id         calendar.ID
	name       string
	components calendar.SupportedComponents

	mu    sync.RWMutex
	items map[calendar.ItemID]*calendar.Item
}

var _ calendar.Calendar = (*Calendar)(nil)

func newCalendar(id calendar.ID, name string, components calendar.SupportedComponents) *Calendar {
	return &Calendar{
		id:         id,
		name:       name,
		components: components,
		items:      make(map[calendar.ItemID]*calendar.Item),
	}
}

func (c *Calendar) ID() calendar.ID { return c.id }

func (c *Calendar) Name() string { return c.name }

func (c *Calendar) SupportedComponents() calendar.SupportedComponents { return c.components }

func (c *Calendar) AddItem(_ context.Context, item *calendar.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[item.ID()] = item.Clone()
	return nil
}

func (c *Calendar) Item(_ context.Context, id calendar.ItemID) (mo.Option[*calendar.Item], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return mo.None[*calendar.Item](), nil
	}
	return mo.Some(item.Clone()), nil
}

// UpdateItem runs fn on the stored item while holding the write lock. Edits
// made through the item's setters update its sync status.
func (c *Calendar) UpdateItem(_ context.Context, id calendar.ItemID, fn func(*calendar.Item)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	fn(item)
	return nil
}

// MarkForDeletion records a pending deletion. An item that was never synced
// has no remote copy and is dropped at once.
func (c *Calendar) MarkForDeletion(_ context.Context, id calendar.ItemID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	if !item.MarkDeleted() {
		delete(c.items, id)
	}
	return nil
}

func (c *Calendar) DeleteItem(_ context.Context, id calendar.ItemID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	delete(c.items, id)
	return nil
}

func (c *Calendar) Items(_ context.Context) ([]*calendar.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]*calendar.Item, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item.Clone())
	}
	return items, nil
}

func (c *Calendar) SetSyncStatus(_ context.Context, id calendar.ItemID, status calendar.SyncStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, calendar.ErrNotFound)
	}
	item.SetStatus(status)
	return nil
}
