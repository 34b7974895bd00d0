package xml

import (
	"fmt"

	"github.com/beevik/etree"
)

// Properties requested during discovery and listing.
var (
	PropCurrentUserPrincipal = DAVName("current-user-principal")
	PropCalendarHomeSet      = CalDAVName("calendar-home-set")
	PropDisplayName          = DAVName("displayname")
	PropResourceType         = DAVName("resourcetype")
	PropGetETag              = DAVName("getetag")
	PropSupportedCompSet     = CalDAVName("supported-calendar-component-set")
	PropCalendarData         = CalDAVName("calendar-data")
)

// PropfindRequest represents a PROPFIND request
type PropfindRequest struct {
	Props []Name
}

// ToXML converts a PropfindRequest to an XML document
func (r *PropfindRequest) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := createElement(&doc.Element, DAVName(TagPropfind))
	AddNamespaces(doc)

	prop := createElement(root, DAVName(TagProp))
	for _, name := range r.Props {
		createElement(prop, name)
	}
	return doc
}

// MkcalendarRequest represents the body of an MKCALENDAR request
type MkcalendarRequest struct {
	DisplayName string
	Components  []string
}

// ToXML converts a MkcalendarRequest to an XML document
func (r *MkcalendarRequest) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := createElement(&doc.Element, CalDAVName("mkcalendar"))
	AddNamespaces(doc)

	set := createElement(root, DAVName(TagSet))
	prop := createElement(set, DAVName(TagProp))
	if r.DisplayName != "" {
		createElement(prop, PropDisplayName).SetText(r.DisplayName)
	}
	if len(r.Components) > 0 {
		compSet := createElement(prop, PropSupportedCompSet)
		for _, c := range r.Components {
			createElement(compSet, CalDAVName(TagComp)).CreateAttr("name", c)
		}
	}
	return doc
}

// Marshal serializes a request document.
func Marshal(doc *etree.Document) ([]byte, error) {
	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	return body, nil
}
