package xml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	// Status is the response-level status line, set when the server reports
	// the resource itself instead of its properties.
	Status string
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []Property
	Status string
}

// OK reports whether the propstat carries found properties. Servers may omit
// the status line, which is read as success.
func (p PropStat) OK() bool {
	if strings.TrimSpace(p.Status) == "" {
		return true
	}
	return StatusCode(p.Status) == 200
}

// StatusCode extracts the numeric code of an HTTP status line such as
// "HTTP/1.1 404 Not Found". It returns 0 when the line cannot be read.
func StatusCode(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// ParseMultistatus reads a multistatus body.
func ParseMultistatus(body []byte) (*MultistatusResponse, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	ms := &MultistatusResponse{}
	if err := ms.Parse(doc); err != nil {
		return nil, err
	}
	return ms, nil
}

// Parse parses a multistatus response from an XML document
func (m *MultistatusResponse) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if root.Tag != TagMultistatus || root.NamespaceURI() != DAV {
		return fmt.Errorf("invalid root tag: %s", root.FullTag())
	}

	m.Responses = nil

	for _, respElem := range root.SelectElements(TagResponse) {
		resp := Response{}

		if hrefElem := respElem.SelectElement(TagHref); hrefElem != nil {
			resp.Href = strings.TrimSpace(hrefElem.Text())
		}
		if statusElem := respElem.SelectElement(TagStatus); statusElem != nil {
			resp.Status = strings.TrimSpace(statusElem.Text())
		}

		for _, propstatElem := range respElem.SelectElements(TagPropstat) {
			propstat := PropStat{}

			if propElem := propstatElem.SelectElement(TagProp); propElem != nil {
				for _, prop := range propElem.ChildElements() {
					property := Property{}
					property.FromElement(prop)
					propstat.Props = append(propstat.Props, property)
				}
			}

			if statusElem := propstatElem.SelectElement(TagStatus); statusElem != nil {
				propstat.Status = strings.TrimSpace(statusElem.Text())
			}

			resp.PropStats = append(resp.PropStats, propstat)
		}

		m.Responses = append(m.Responses, resp)
	}

	return nil
}

// Found reports whether the resource exists. A response-level status other
// than 2xx, such as a 404 for an object deleted while listing, means it does
// not; an absent status line is read as success.
func (r *Response) Found() bool {
	if r.Status == "" {
		return true
	}
	code := StatusCode(r.Status)
	return code >= 200 && code < 300
}

// Prop returns the first successfully returned property with the given name.
// Properties reported under a non-200 propstat are ignored.
func (r *Response) Prop(name Name) (Property, bool) {
	for _, ps := range r.PropStats {
		if !ps.OK() {
			continue
		}
		for _, p := range ps.Props {
			if p.Name == name.Local && p.Namespace == name.Space {
				return p, true
			}
		}
	}
	return Property{}, false
}

// FindHref returns the href nested in a property, as in current-user-principal.
func (p *Property) FindHref() (string, bool) {
	href, ok := p.Find(TagHref)
	if !ok || href.Namespace != DAV {
		return "", false
	}
	text := strings.TrimSpace(href.TextContent)
	if text == "" {
		return "", false
	}
	return text, true
}
