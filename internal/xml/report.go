package xml

import "github.com/beevik/etree"

// Filter represents a calendar query comp-filter, nested through SubFilter
type Filter struct {
	ComponentName string
	SubFilter     *Filter
}

func (f *Filter) toElement(parent *etree.Element) {
	compFilter := createElement(parent, CalDAVName("comp-filter"))
	compFilter.CreateAttr("name", f.ComponentName)
	if f.SubFilter != nil {
		f.SubFilter.toElement(compFilter)
	}
}

// CalendarQuery represents a calendar-query REPORT request
type CalendarQuery struct {
	Props  []Name
	Filter Filter
}

// TodoQuery returns the query listing every VTODO of a collection with its
// etag and data.
func TodoQuery() *CalendarQuery {
	return &CalendarQuery{
		Props: []Name{PropGetETag, PropCalendarData},
		Filter: Filter{
			ComponentName: "VCALENDAR",
			SubFilter:     &Filter{ComponentName: "VTODO"},
		},
	}
}

// ToXML converts a CalendarQuery to an XML document
func (q *CalendarQuery) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := createElement(&doc.Element, CalDAVName("calendar-query"))
	AddNamespaces(doc)

	if len(q.Props) > 0 {
		prop := createElement(root, DAVName(TagProp))
		for _, name := range q.Props {
			createElement(prop, name)
		}
	}

	filter := createElement(root, CalDAVName("filter"))
	if q.Filter.ComponentName != "" {
		q.Filter.toElement(filter)
	}
	return doc
}
