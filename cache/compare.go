package cache

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/cyp0633/caldora-sync/calendar"
)

// Difference describes one mismatch found by Compare.
type Difference struct {
	CalendarID calendar.ID
	ItemID     calendar.ItemID
	Reason     string
}

func (d Difference) String() string {
	if d.ItemID == "" {
		return fmt.Sprintf("%s: %s", d.CalendarID, d.Reason)
	}
	return fmt.Sprintf("%s/%s: %s", d.CalendarID, d.ItemID, d.Reason)
}

// HasSameContents reports whether two sources hold the same calendars with the
// same items. Sync statuses are not compared.
func HasSameContents(ctx context.Context, a, b calendar.Source) (bool, error) {
	diffs, err := Compare(ctx, a, b)
	if err != nil {
		return false, err
	}
	return len(diffs) == 0, nil
}

// Compare lists the differences between two sources, ordered by calendar and
// item id. Calendars are matched by id; names and items must agree.
func Compare(ctx context.Context, a, b calendar.Source) ([]Difference, error) {
	calsA, err := a.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	calsB, err := b.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var diffs []Difference
	for _, id := range unionKeys(calsA, calsB) {
		calA, okA := calsA[id]
		calB, okB := calsB[id]
		switch {
		case !okA:
			diffs = append(diffs, Difference{CalendarID: id, Reason: "missing from first source"})
			continue
		case !okB:
			diffs = append(diffs, Difference{CalendarID: id, Reason: "missing from second source"})
			continue
		}
		if calA.Name() != calB.Name() {
			diffs = append(diffs, Difference{CalendarID: id, Reason: fmt.Sprintf("name %q differs from %q", calA.Name(), calB.Name())})
		}

		itemDiffs, err := compareItems(ctx, calA, calB)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, itemDiffs...)
	}
	return diffs, nil
}

func compareItems(ctx context.Context, a, b calendar.Calendar) ([]Difference, error) {
	itemsA, err := itemsByID(ctx, a)
	if err != nil {
		return nil, err
	}
	itemsB, err := itemsByID(ctx, b)
	if err != nil {
		return nil, err
	}

	var diffs []Difference
	for _, id := range unionKeys(itemsA, itemsB) {
		itemA, okA := itemsA[id]
		itemB, okB := itemsB[id]
		switch {
		case !okA:
			diffs = append(diffs, Difference{CalendarID: a.ID(), ItemID: id, Reason: "missing from first source"})
		case !okB:
			diffs = append(diffs, Difference{CalendarID: a.ID(), ItemID: id, Reason: "missing from second source"})
		case !itemA.HasSameContent(itemB):
			diffs = append(diffs, Difference{CalendarID: a.ID(), ItemID: id, Reason: "content differs"})
		}
	}
	return diffs, nil
}

func itemsByID(ctx context.Context, cal calendar.Calendar) (map[calendar.ItemID]*calendar.Item, error) {
	items, err := cal.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items of %s: %w", cal.ID(), err)
	}
	out := make(map[calendar.ItemID]*calendar.Item, len(items))
	for _, item := range items {
		out[item.ID()] = item
	}
	return out, nil
}

func unionKeys[K cmp.Ordered, A, B any](a map[K]A, b map[K]B) []K {
	seen := make(map[K]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}
