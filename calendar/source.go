// Package calendar holds the data model shared by every calendar store and the
// capability interfaces the synchronization engine consumes.
package calendar

import (
	"context"
	"errors"

	"github.com/samber/mo"
)

// ID identifies a calendar. It is the canonical collection URL and never changes.
type ID string

var (
	// ErrNotFound is returned by mutators when the calendar or item does not exist.
	// Getters report absence with mo.None instead.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a calendar whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Source is a store of calendars, such as a local cache or a CalDAV server.
type Source interface {
	// Calendars lists every calendar of the source.
	Calendars(ctx context.Context) (map[ID]Calendar, error)
	// Calendar returns one calendar, or mo.None if it does not exist.
	Calendar(ctx context.Context, id ID) (mo.Option[Calendar], error)
	// CreateCalendar creates an empty calendar with the given identity.
	CreateCalendar(ctx context.Context, name string, id ID, components SupportedComponents) (Calendar, error)
}

// Calendar is a shared handle on one calendar of a Source. Reads may proceed
// concurrently; mutations are serialized per calendar.
type Calendar interface {
	ID() ID
	Name() string
	SupportedComponents() SupportedComponents

	// AddItem stores a copy of item, replacing any item with the same id.
	AddItem(ctx context.Context, item *Item) error
	// Item returns a copy of an item, or mo.None if it does not exist.
	Item(ctx context.Context, id ItemID) (mo.Option[*Item], error)
	// UpdateItem applies fn to the stored item under the calendar's write lock.
	UpdateItem(ctx context.Context, id ItemID, fn func(*Item)) error
	// MarkForDeletion records a pending deletion to be propagated by the next sync.
	MarkForDeletion(ctx context.Context, id ItemID) error
	// DeleteItem removes an item immediately.
	DeleteItem(ctx context.Context, id ItemID) error
	// Items returns a snapshot of every item, pending deletions included.
	Items(ctx context.Context) ([]*Item, error)
	// SetSyncStatus overrides the status of an item.
	SetSyncStatus(ctx context.Context, id ItemID, status SyncStatus) error
}
