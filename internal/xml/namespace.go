package xml

import "github.com/beevik/etree"

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
)

// prefixes used when this package writes a document
var prefixes = map[string]string{
	DAV:            "D",
	CalDAV:         "C",
	CalendarServer: "CS",
}

// Name is a namespaced element name.
type Name struct {
	Space string
	Local string
}

// DAVName returns a name in the DAV: namespace.
func DAVName(local string) Name {
	return Name{Space: DAV, Local: local}
}

// CalDAVName returns a name in the CalDAV namespace.
func CalDAVName(local string) Name {
	return Name{Space: CalDAV, Local: local}
}

// prefixed returns the "prefix:local" tag used when writing n.
func (n Name) prefixed() string {
	prefix, ok := prefixes[n.Space]
	if !ok {
		return n.Local
	}
	return prefix + ":" + n.Local
}

// AddNamespaces declares the standard CalDAV prefixes on the document root.
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns:D", DAV)
	root.CreateAttr("xmlns:C", CalDAV)
	root.CreateAttr("xmlns:CS", CalendarServer)
}

// createElement adds a child named n under parent, using the standard prefixes.
func createElement(parent *etree.Element, n Name) *etree.Element {
	return parent.CreateElement(n.prefixed())
}
