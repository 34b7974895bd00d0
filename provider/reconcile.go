package provider

import "github.com/cyp0633/caldora-sync/calendar"

type action int

const (
	actionNone action = iota
	// local content overwrites or creates the remote item
	actionPush
	// remote content overwrites or creates the local item
	actionPull
	actionDeleteLocal
	actionDeleteRemote
	actionDeleteBoth
)

func (a action) String() string {
	switch a {
	case actionPush:
		return "push"
	case actionPull:
		return "pull"
	case actionDeleteLocal:
		return "delete-local"
	case actionDeleteRemote:
		return "delete-remote"
	case actionDeleteBoth:
		return "delete-both"
	default:
		return "none"
	}
}

type decision struct {
	action   action
	conflict bool
}

// decide classifies one item id. Either item may be nil when the id is
// absent on that side. Conflicts are settled whole-item, remote wins.
func decide(local, remote *calendar.Item) decision {
	switch {
	case local == nil && remote == nil:
		return decision{action: actionNone}

	case remote == nil:
		switch local.Status().State {
		case calendar.NotSynced:
			return decision{action: actionPush}
		case calendar.LocallyModified:
			// edited here, deleted there
			return decision{action: actionDeleteLocal, conflict: true}
		default:
			return decision{action: actionDeleteLocal}
		}

	case local == nil:
		if remote.Status().IsDeleted() {
			return decision{action: actionDeleteRemote}
		}
		return decision{action: actionPull}
	}

	localChanged := local.Status().IsChanged()
	remoteChanged := remoteHasChanged(local.Status(), remote.Status())

	switch {
	case !localChanged && !remoteChanged:
		return decision{action: actionNone}

	case localChanged && !remoteChanged:
		if local.Status().IsDeleted() {
			return decision{action: actionDeleteBoth}
		}
		return decision{action: actionPush}

	case !localChanged && remoteChanged:
		if remote.Status().IsDeleted() {
			return decision{action: actionDeleteBoth}
		}
		return decision{action: actionPull}
	}

	if remote.Status().IsDeleted() {
		// deleted on both sides agrees, whatever else happened
		return decision{action: actionDeleteBoth, conflict: !local.Status().IsDeleted()}
	}
	return decision{action: actionPull, conflict: true}
}

// remoteHasChanged reports whether the remote item moved away from the
// version the local item was last synced with. A remote that reports Synced
// under another token was changed by someone else, and a local item without
// a baseline shares no version with the remote at all.
func remoteHasChanged(local, remote calendar.SyncStatus) bool {
	if remote.IsChanged() {
		return true
	}
	baseline, ok := local.Baseline()
	if !ok {
		return true
	}
	return remote.Token != baseline
}
