// Package cache is the local calendar store: in-memory maps guarded by
// RWMutexes, optionally persisted to a JSON file.
package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/samber/mo"
)

// Cache implements calendar.Source in memory.
type Cache struct {
	mu        sync.RWMutex
	calendars map[calendar.ID]*Calendar

	path   string
	logger *slog.Logger
}

var _ calendar.Source = (*Cache)(nil)

// Option customizes a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty cache that is never persisted.
func New(opts ...Option) *Cache {
	c := &Cache{
		calendars: make(map[calendar.ID]*Calendar),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calendars implements calendar.Source.
func (c *Cache) Calendars(_ context.Context) (map[calendar.ID]calendar.Calendar, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[calendar.ID]calendar.Calendar, len(c.calendars))
	for id, cal := range c.calendars {
		out[id] = cal
	}
	return out, nil
}

// Calendar implements calendar.Source.
func (c *Cache) Calendar(_ context.Context, id calendar.ID) (mo.Option[calendar.Calendar], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cal, ok := c.calendars[id]
	if !ok {
		return mo.None[calendar.Calendar](), nil
	}
	return mo.Some[calendar.Calendar](cal), nil
}

// CreateCalendar implements calendar.Source.
func (c *Cache) CreateCalendar(_ context.Context, name string, id calendar.ID, components calendar.SupportedComponents) (calendar.Calendar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.calendars[id]; exists {
		return nil, fmt.Errorf("calendar %s: %w", id, calendar.ErrAlreadyExists)
	}
	cal := newCalendar(id, name, components)
	c.calendars[id] = cal
	c.logger.Debug("created calendar", "id", id, "name", name)
	return cal, nil
}

// snapshot returns the calendars in no particular order.
func (c *Cache) snapshot() []*Calendar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Collect(maps.Values(c.calendars))
}
