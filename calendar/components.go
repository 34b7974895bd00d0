package calendar

import "strings"

// SupportedComponents is the set of iCalendar components a calendar accepts.
type SupportedComponents uint8

const (
	// ComponentEvent is an event, such as a calendar meeting.
	ComponentEvent SupportedComponents = 1 << iota
	// ComponentTodo is a to-do item, such as a reminder.
	ComponentTodo
)

var componentNames = []struct {
	flag SupportedComponents
	name string
}{
	{ComponentEvent, "VEVENT"},
	{ComponentTodo, "VTODO"},
}

// ComponentFromName maps an iCalendar component name to its flag.
func ComponentFromName(name string) (SupportedComponents, bool) {
	for _, c := range componentNames {
		if strings.EqualFold(c.name, name) {
			return c.flag, true
		}
	}
	return 0, false
}

// Has reports whether every flag in other is set.
func (c SupportedComponents) Has(other SupportedComponents) bool {
	return c&other == other
}

// Names returns the iCalendar names of the set flags.
func (c SupportedComponents) Names() []string {
	var names []string
	for _, comp := range componentNames {
		if c.Has(comp.flag) {
			names = append(names, comp.name)
		}
	}
	return names
}

func (c SupportedComponents) String() string {
	if c == 0 {
		return "none"
	}
	return strings.Join(c.Names(), "|")
}
