package calendar

import "github.com/google/uuid"

// ItemID identifies an item. It is chosen by whichever side creates the item and
// preserved verbatim by both sides afterwards.
type ItemID string

// NewItemID returns a random item id.
func NewItemID() ItemID {
	return ItemID(uuid.New().String())
}

// Kind is the variant of an Item.
type Kind int

const (
	KindUnknown Kind = iota
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// Task is a to-do item.
type Task struct {
	Name      string
	Completed bool
}

// Item is a calendar item together with its sync status.
// Stores hand out clones; editing an Item never touches the store that produced it.
type Item struct {
	id     ItemID
	status SyncStatus
	task   *Task
}

// NewTask creates a task item that has never been synced.
func NewTask(id ItemID, name string) *Item {
	return &Item{
		id:     id,
		status: NotSyncedStatus(),
		task:   &Task{Name: name},
	}
}

// RestoreTask rebuilds a task item with an explicit status, e.g. when a store
// decodes its own representation.
func RestoreTask(id ItemID, task Task, status SyncStatus) *Item {
	t := task
	return &Item{id: id, status: status, task: &t}
}

func (i *Item) ID() ItemID {
	return i.id
}

func (i *Item) Status() SyncStatus {
	return i.status
}

// SetStatus overrides the sync status. Stores and the sync engine use it; user
// edits should go through SetName and SetCompleted.
func (i *Item) SetStatus(status SyncStatus) {
	i.status = status
}

func (i *Item) Kind() Kind {
	if i.task != nil {
		return KindTask
	}
	return KindUnknown
}

// Task returns the task payload, if the item is a task.
func (i *Item) Task() (Task, bool) {
	if i.task == nil {
		return Task{}, false
	}
	return *i.task, true
}

// Name returns the display name of the item.
func (i *Item) Name() string {
	if i.task != nil {
		return i.task.Name
	}
	return ""
}

// SetName renames the item and records the edit in its status.
func (i *Item) SetName(name string) {
	if i.task == nil {
		return
	}
	i.task.Name = name
	i.status = i.status.modified()
}

// SetCompleted sets the completion flag of a task and records the edit in its status.
func (i *Item) SetCompleted(completed bool) {
	if i.task == nil {
		return
	}
	i.task.Completed = completed
	i.status = i.status.modified()
}

// MarkDeleted records a pending deletion. It reports false when the item was never
// synced, in which case the caller should simply drop it.
func (i *Item) MarkDeleted() bool {
	if i.status.State == NotSynced {
		return false
	}
	i.status = i.status.deleted()
	return true
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	c := &Item{id: i.id, status: i.status}
	if i.task != nil {
		t := *i.task
		c.task = &t
	}
	return c
}

// HasSameContent compares everything but the sync status.
func (i *Item) HasSameContent(other *Item) bool {
	if other == nil || i.id != other.id || i.Kind() != other.Kind() {
		return false
	}
	if i.task != nil {
		return *i.task == *other.task
	}
	return true
}
