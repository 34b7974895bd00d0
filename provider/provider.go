// Package provider reconciles two calendar sources, a local one and a remote
// one, so that both end up holding the same items.
//
// Every item carries a sync status. An item that is NotSynced,
// LocallyModified or LocallyDeleted on a side changed there since the last
// sync; a remote item reported Synced under a token other than the local
// baseline changed as well. When both sides changed the same item the remote
// version wins, whole item, even if the two edits touched different fields.
package provider

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/cyp0633/caldora-sync/calendar"
)

// Provider synchronizes a local and a remote source.
type Provider struct {
	local  calendar.Source
	remote calendar.Source
	logger *slog.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Provider. The sources may be any calendar.Source.
func New(local, remote calendar.Source, opts ...Option) *Provider {
	p := &Provider{
		local:  local,
		remote: remote,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sync runs one reconciliation pass over every calendar of both sources.
// A failed write stops the affected calendar only; the returned error joins
// one *SyncAbortError per stopped calendar. The report is returned in every
// case except a failure to list calendars.
func (p *Provider) Sync(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	localCals, err := p.local.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local calendars: %w", err)
	}
	remoteCals, err := p.remote.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote calendars: %w", err)
	}

	var errs []error
	for _, id := range unionKeys(localCals, remoteCals) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report.Calendars++

		localCal, remoteCal, err := p.pair(ctx, id, localCals[id], remoteCals[id], report)
		if err == nil {
			err = p.syncCalendar(ctx, localCal, remoteCal, report)
		}
		if err != nil {
			report.Aborted++
			p.logger.Warn("calendar sync aborted", "calendar", id, "error", err)
			errs = append(errs, err)
		}
	}

	report.Duration = time.Since(start)
	p.logger.Info("sync finished", "report", report.String(), "duration", report.Duration)
	return report, errors.Join(errs...)
}

// pair returns both handles of a calendar, creating it empty on the side
// that lacks it.
func (p *Provider) pair(ctx context.Context, id calendar.ID, local, remote calendar.Calendar, report *Report) (calendar.Calendar, calendar.Calendar, error) {
	var err error
	switch {
	case local == nil:
		p.logger.Info("creating calendar locally", "calendar", id, "name", remote.Name())
		local, err = p.local.CreateCalendar(ctx, remote.Name(), id, remote.SupportedComponents())
		if err != nil {
			return nil, nil, &SyncAbortError{CalendarID: id, Side: SideLocal, Err: err}
		}
		report.CreatedCalendars++
	case remote == nil:
		p.logger.Info("creating calendar on remote", "calendar", id, "name", local.Name())
		remote, err = p.remote.CreateCalendar(ctx, local.Name(), id, local.SupportedComponents())
		if err != nil {
			return nil, nil, &SyncAbortError{CalendarID: id, Side: SideRemote, Err: err}
		}
		report.CreatedCalendars++
	}
	return local, remote, nil
}

func (p *Provider) syncCalendar(ctx context.Context, local, remote calendar.Calendar, report *Report) error {
	id := local.ID()
	logger := p.logger.With("calendar", id)

	localItems, err := local.Items(ctx)
	if err != nil {
		return &SyncAbortError{CalendarID: id, Side: SideLocal, Err: err}
	}
	remoteItems, err := remote.Items(ctx)
	if err != nil {
		return &SyncAbortError{CalendarID: id, Side: SideRemote, Err: err}
	}

	localByID := indexItems(localItems)
	remoteByID := indexItems(remoteItems)

	for _, itemID := range unionKeys(localByID, remoteByID) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sync of calendar %s interrupted: %w", id, err)
		}

		l, r := localByID[itemID], remoteByID[itemID]
		d := decide(l, r)
		if d.action == actionNone {
			continue
		}
		if d.conflict {
			report.Conflicts++
			logger.Info("conflict resolved in favor of remote", "item", itemID, "action", d.action.String())
		}
		logger.Debug("applying change", "item", itemID, "action", d.action.String())

		if err := p.apply(ctx, local, remote, l, r, d.action, report); err != nil {
			var abort *SyncAbortError
			if errors.As(err, &abort) {
				abort.CalendarID = id
				abort.ItemID = itemID
			}
			return err
		}
	}
	return nil
}

// apply performs one decision. Each handle call takes that handle's lock on
// its own, so no two calendar locks are ever held together. When both sides
// are written the remote goes first: a failed remote write then leaves the
// local item untouched for the next run.
func (p *Provider) apply(ctx context.Context, local, remote calendar.Calendar, l, r *calendar.Item, a action, report *Report) error {
	switch a {
	case actionPush:
		if err := remote.AddItem(ctx, l); err != nil {
			return &SyncAbortError{Side: SideRemote, Err: err}
		}
		if err := p.settle(ctx, local, remote, l.ID()); err != nil {
			return err
		}
		if r == nil {
			report.CreatedRemote++
		} else {
			report.UpdatedRemote++
		}

	case actionPull:
		if err := local.AddItem(ctx, r); err != nil {
			return &SyncAbortError{Side: SideLocal, Err: err}
		}
		if err := p.settle(ctx, local, remote, r.ID()); err != nil {
			return err
		}
		if l == nil {
			report.CreatedLocal++
		} else {
			report.UpdatedLocal++
		}

	case actionDeleteLocal:
		if err := local.DeleteItem(ctx, l.ID()); err != nil {
			return &SyncAbortError{Side: SideLocal, Err: err}
		}
		report.DeletedLocal++

	case actionDeleteRemote:
		if err := remote.DeleteItem(ctx, r.ID()); err != nil {
			return &SyncAbortError{Side: SideRemote, Err: err}
		}
		report.DeletedRemote++

	case actionDeleteBoth:
		if err := remote.DeleteItem(ctx, r.ID()); err != nil {
			return &SyncAbortError{Side: SideRemote, Err: err}
		}
		report.DeletedRemote++
		if err := local.DeleteItem(ctx, l.ID()); err != nil {
			return &SyncAbortError{Side: SideLocal, Err: err}
		}
		report.DeletedLocal++
	}
	return nil
}

// settle marks an item Synced on both sides under one token. The remote's own
// token is reused when it reports one, so a CalDAV etag becomes the baseline.
func (p *Provider) settle(ctx context.Context, local, remote calendar.Calendar, id calendar.ItemID) error {
	token := calendar.NewVersionToken()

	opt, err := remote.Item(ctx, id)
	if err != nil {
		return &SyncAbortError{Side: SideRemote, Err: err}
	}
	if item, ok := opt.Get(); ok && item.Status().IsSynced() && item.Status().Token != "" {
		token = item.Status().Token
	}

	status := calendar.SyncedStatus(token)
	if err := remote.SetSyncStatus(ctx, id, status); err != nil {
		return &SyncAbortError{Side: SideRemote, Err: err}
	}
	if err := local.SetSyncStatus(ctx, id, status); err != nil {
		return &SyncAbortError{Side: SideLocal, Err: err}
	}
	return nil
}

func indexItems(items []*calendar.Item) map[calendar.ItemID]*calendar.Item {
	out := make(map[calendar.ItemID]*calendar.Item, len(items))
	for _, item := range items {
		out[item.ID()] = item
	}
	return out
}

// unionKeys returns the keys of both maps, sorted.
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
