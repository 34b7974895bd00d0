package davclient

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cyp0633/caldora-sync/calendar"
	"github.com/emersion/go-ical"
)

const prodID = "-//github.com/cyp0633/caldora-sync//NONSGML v1.0//EN"

const (
	statusCompleted   = "COMPLETED"
	statusNeedsAction = "NEEDS-ACTION"

	// completion timestamp of a VTODO
	propCompleted = "COMPLETED"
)

// todoToBytes encodes item as a VCALENDAR holding one VTODO. When base is the
// object previously read from the server, its other properties are kept. base
// itself is left untouched; the returned calendar is a modified copy.
func todoToBytes(item *calendar.Item, base *ical.Calendar, now time.Time) ([]byte, *ical.Calendar, error) {
	task, ok := item.Task()
	if !ok {
		return nil, nil, fmt.Errorf("item %s is not a task", item.ID())
	}

	var cal *ical.Calendar
	if base != nil {
		cal = &ical.Calendar{Component: cloneComponent(base.Component)}
	} else {
		cal = ical.NewCalendar()
		cal.Props.SetText(ical.PropProductID, prodID)
		cal.Props.SetText(ical.PropVersion, "2.0")
	}

	todo := findTodo(cal)
	if todo == nil {
		todo = ical.NewComponent(ical.CompToDo)
		cal.Children = append(cal.Children, todo)
	}

	now = now.UTC()
	todo.Props.SetText(ical.PropUID, string(item.ID()))
	todo.Props.SetDateTime(ical.PropDateTimeStamp, now)
	todo.Props.SetDateTime(ical.PropLastModified, now)
	todo.Props.SetText(ical.PropSummary, task.Name)
	if task.Completed {
		todo.Props.SetText(ical.PropStatus, statusCompleted)
		if todo.Props.Get(propCompleted) == nil {
			todo.Props.SetDateTime(propCompleted, now)
		}
	} else {
		todo.Props.SetText(ical.PropStatus, statusNeedsAction)
		delete(todo.Props, propCompleted)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), cal, nil
}

// todoFromBytes decodes the first VTODO of a calendar object. ok is false for
// objects without a VTODO. fallbackID names the item when UID is missing.
func todoFromBytes(data string, fallbackID calendar.ItemID, token calendar.VersionToken) (item *calendar.Item, cal *ical.Calendar, ok bool, err error) {
	cal, err = ical.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to decode calendar data: %w", err)
	}

	todo := findTodo(cal)
	if todo == nil {
		return nil, cal, false, nil
	}

	id := fallbackID
	if uid, err := todo.Props.Text(ical.PropUID); err == nil && uid != "" {
		id = calendar.ItemID(uid)
	}

	var task calendar.Task
	if summary, err := todo.Props.Text(ical.PropSummary); err == nil {
		task.Name = summary
	}
	if status, err := todo.Props.Text(ical.PropStatus); err == nil {
		task.Completed = strings.EqualFold(status, statusCompleted)
	}

	return calendar.RestoreTask(id, task, calendar.SyncedStatus(token)), cal, true, nil
}

func cloneComponent(c *ical.Component) *ical.Component {
	cp := &ical.Component{Name: c.Name, Props: make(ical.Props, len(c.Props))}
	for name, props := range c.Props {
		cp.Props[name] = slices.Clone(props)
	}
	for _, child := range c.Children {
		cp.Children = append(cp.Children, cloneComponent(child))
	}
	return cp
}

func findTodo(cal *ical.Calendar) *ical.Component {
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			return child
		}
	}
	return nil
}
