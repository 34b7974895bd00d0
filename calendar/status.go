package calendar

import (
	"fmt"

	"github.com/google/uuid"
)

// VersionToken is an opaque marker used to detect concurrent modification of an item.
// Its content is never interpreted, only compared.
type VersionToken string

// NewVersionToken returns a fresh random token.
func NewVersionToken() VersionToken {
	return VersionToken(uuid.New().String())
}

// SyncState is the tag of a SyncStatus.
type SyncState int

const (
	// NotSynced items have never been exchanged with the other side.
	NotSynced SyncState = iota
	// Synced items match the last exchanged state.
	Synced
	// LocallyModified items were edited since they were last Synced.
	LocallyModified
	// LocallyDeleted items are pending deletion since they were last Synced.
	LocallyDeleted
)

func (s SyncState) String() string {
	switch s {
	case NotSynced:
		return "not-synced"
	case Synced:
		return "synced"
	case LocallyModified:
		return "locally-modified"
	case LocallyDeleted:
		return "locally-deleted"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SyncState) MarshalText() ([]byte, error) {
	switch s {
	case NotSynced, Synced, LocallyModified, LocallyDeleted:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid sync state %d", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SyncState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not-synced":
		*s = NotSynced
	case "synced":
		*s = Synced
	case "locally-modified":
		*s = LocallyModified
	case "locally-deleted":
		*s = LocallyDeleted
	default:
		return fmt.Errorf("invalid sync state %q", text)
	}
	return nil
}

// SyncStatus tells whether an item changed since the last synchronization.
// Every state but NotSynced carries the token of the last synced version.
type SyncStatus struct {
	State SyncState    `json:"state"`
	Token VersionToken `json:"token,omitempty"`
}

// NotSyncedStatus returns the status of an item that was never exchanged.
func NotSyncedStatus() SyncStatus {
	return SyncStatus{State: NotSynced}
}

// SyncedStatus returns the status of an item whose content matches version token.
func SyncedStatus(token VersionToken) SyncStatus {
	return SyncStatus{State: Synced, Token: token}
}

// ModifiedStatus returns the status of an item edited after being synced at token.
func ModifiedStatus(token VersionToken) SyncStatus {
	return SyncStatus{State: LocallyModified, Token: token}
}

// DeletedStatus returns the status of an item deleted after being synced at token.
func DeletedStatus(token VersionToken) SyncStatus {
	return SyncStatus{State: LocallyDeleted, Token: token}
}

// IsSynced reports whether the item is unchanged since the last sync.
func (s SyncStatus) IsSynced() bool {
	return s.State == Synced
}

// IsChanged reports whether the item needs to be propagated.
func (s SyncStatus) IsChanged() bool {
	return s.State != Synced
}

// IsDeleted reports whether the item is pending deletion.
func (s SyncStatus) IsDeleted() bool {
	return s.State == LocallyDeleted
}

// Baseline returns the token of the last synced version, if any.
func (s SyncStatus) Baseline() (VersionToken, bool) {
	if s.State == NotSynced {
		return "", false
	}
	return s.Token, true
}

// modified returns the status after a local edit.
func (s SyncStatus) modified() SyncStatus {
	if s.State == Synced {
		return ModifiedStatus(s.Token)
	}
	return s
}

// deleted returns the status after a local deletion.
func (s SyncStatus) deleted() SyncStatus {
	switch s.State {
	case Synced, LocallyModified:
		return DeletedStatus(s.Token)
	default:
		return s
	}
}

func (s SyncStatus) String() string {
	if s.State == NotSynced {
		return s.State.String()
	}
	return fmt.Sprintf("%s(%s)", s.State, s.Token)
}
