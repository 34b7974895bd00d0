package xml

import "github.com/beevik/etree"

// Common XML tag names used in CalDAV
const (
	TagPropfind    = "propfind"
	TagProp        = "prop"
	TagSet         = "set"
	TagMultistatus = "multistatus"
	TagResponse    = "response"
	TagHref        = "href"
	TagPropstat    = "propstat"
	TagStatus      = "status"
	TagCalendar    = "calendar"
	TagComp        = "comp"
)

// Property represents a generic XML property
type Property struct {
	Name        string
	Namespace   string
	TextContent string
	Children    []Property
	Attributes  map[string]string
}

// FromElement populates a Property from an etree.Element. Namespace holds the
// resolved namespace URI, whatever prefix the document used.
func (p *Property) FromElement(elem *etree.Element) {
	p.Name = elem.Tag
	p.Namespace = elem.NamespaceURI()
	p.TextContent = elem.Text()
	p.Children = nil
	p.Attributes = make(map[string]string)

	for _, attr := range elem.Attr {
		// namespace declarations are not attributes of the property
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			continue
		}
		p.Attributes[attr.Key] = attr.Value
	}

	for _, child := range elem.ChildElements() {
		childProp := Property{}
		childProp.FromElement(child)
		p.Children = append(p.Children, childProp)
	}
}

// GetAttr returns the value of an attribute, or empty string if not found
func (p *Property) GetAttr(name string) string {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes[name]
}

// Find returns the first descendant with the given local name, depth first.
func (p *Property) Find(name string) (Property, bool) {
	for _, c := range p.Children {
		if c.Name == name {
			return c, true
		}
		if found, ok := c.Find(name); ok {
			return found, true
		}
	}
	return Property{}, false
}
