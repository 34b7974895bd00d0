package provider

import (
	"fmt"

	"github.com/cyp0633/caldora-sync/calendar"
)

// Side names one of the two sources of a Provider.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// SyncAbortError reports a write that failed and stopped the sync of one
// calendar. ItemID is empty when the calendar itself could not be prepared.
type SyncAbortError struct {
	CalendarID calendar.ID
	ItemID     calendar.ItemID
	Side       Side
	Err        error
}

func (e *SyncAbortError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("sync of calendar %s aborted on %s side: %v", e.CalendarID, e.Side, e.Err)
	}
	return fmt.Sprintf("sync of calendar %s aborted at item %s on %s side: %v", e.CalendarID, e.ItemID, e.Side, e.Err)
}

func (e *SyncAbortError) Unwrap() error {
	return e.Err
}
