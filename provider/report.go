package provider

import (
	"fmt"
	"time"
)

// Report contains statistics about one Sync run
type Report struct {
	Calendars        int
	CreatedCalendars int
	Aborted          int

	CreatedLocal  int
	CreatedRemote int
	UpdatedLocal  int
	UpdatedRemote int
	DeletedLocal  int
	DeletedRemote int
	Conflicts     int

	Duration time.Duration
}

// Changes is the number of item writes the run performed.
func (r *Report) Changes() int {
	return r.CreatedLocal + r.CreatedRemote +
		r.UpdatedLocal + r.UpdatedRemote +
		r.DeletedLocal + r.DeletedRemote
}

func (r *Report) String() string {
	return fmt.Sprintf(
		"%d calendars (%d created, %d aborted); local +%d ~%d -%d; remote +%d ~%d -%d; %d conflicts",
		r.Calendars, r.CreatedCalendars, r.Aborted,
		r.CreatedLocal, r.UpdatedLocal, r.DeletedLocal,
		r.CreatedRemote, r.UpdatedRemote, r.DeletedRemote,
		r.Conflicts)
}
