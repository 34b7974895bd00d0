package davclient

import (
	"bytes"
	stdxml "encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
)

const (
	testUser     = "alice"
	testPassword = "secret"
)

type fakeObject struct {
	data string
	etag string
}

type fakeCollection struct {
	name       string
	components []string
	objects    map[string]*fakeObject
}

type fakeResponse struct {
	status int
	body   string
}

// fakeServer is a minimal CalDAV server: one principal, one home set, and
// collections of calendar objects with numeric etags.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	collections map[string]*fakeCollection
	overrides   map[string]fakeResponse
	requests    map[string]int
	etagSeq     int
	omitPutETag bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{
		t:           t,
		collections: make(map[string]*fakeCollection),
		overrides:   make(map[string]fakeResponse),
		requests:    make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) url(p string) string {
	return f.srv.URL + p
}

func (f *fakeServer) newClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(f.url("/"), testUser, testPassword, WithHTTPClient(f.srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeServer) addCollection(p, name string, components ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[p] = &fakeCollection{name: name, components: components, objects: make(map[string]*fakeObject)}
}

func (f *fakeServer) putObject(collection, name, data string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	etag := f.nextETag()
	f.collections[collection].objects[name] = &fakeObject{data: data, etag: etag}
	return etag
}

func (f *fakeServer) object(collection, name string) (*fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.collections[collection].objects[name]
	if !ok {
		return nil, false
	}
	cp := *obj
	return &cp, true
}

func (f *fakeServer) override(method, p string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[method+" "+p] = fakeResponse{status: status, body: body}
}

func (f *fakeServer) count(method, p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+p]
}

func (f *fakeServer) nextETag() string {
	f.etagSeq++
	return fmt.Sprintf(`"%d"`, f.etagSeq)
}

func (f *fakeServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != testUser || pass != testPassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.requests[key]++
	if o, ok := f.overrides[key]; ok {
		w.WriteHeader(o.status)
		_, _ = io.WriteString(w, o.body)
		return
	}

	switch r.Method {
	case "PROPFIND":
		f.propfind(w, r)
	case "REPORT":
		f.report(w, r)
	case http.MethodPut:
		f.put(w, r, body)
	case http.MethodDelete:
		f.deleteObject(w, r)
	case "MKCALENDAR":
		f.mkcalendar(w, r, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeServer) propfind(w http.ResponseWriter, r *http.Request) {
	switch p := r.URL.Path; {
	case p == "/":
		writeMultistatus(w, response("/", prop(`<D:current-user-principal><D:href>/principals/alice/</D:href></D:current-user-principal>`)))
	case p == "/principals/alice/":
		writeMultistatus(w, response(p, prop(`<C:calendar-home-set><D:href>/calendars/alice/</D:href></C:calendar-home-set>`)))
	case p == "/calendars/alice/":
		entries := []string{response(p, prop(`<D:resourcetype><D:collection/></D:resourcetype>`))}
		paths := make([]string, 0, len(f.collections))
		for cp := range f.collections {
			paths = append(paths, cp)
		}
		sort.Strings(paths)
		for _, cp := range paths {
			col := f.collections[cp]
			var comps strings.Builder
			for _, c := range col.components {
				fmt.Fprintf(&comps, `<C:comp name="%s"/>`, c)
			}
			entries = append(entries, response(cp, prop(
				`<D:resourcetype><D:collection/><C:calendar/></D:resourcetype>`+
					`<D:displayname>`+escape(col.name)+`</D:displayname>`+
					`<C:supported-calendar-component-set>`+comps.String()+`</C:supported-calendar-component-set>`)))
		}
		writeMultistatus(w, entries...)
	default:
		dir, name := path.Split(p)
		col, ok := f.collections[dir]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		obj, ok := col.objects[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeMultistatus(w, response(p, prop(`<D:getetag>`+escape(obj.etag)+`</D:getetag>`)))
	}
}

func (f *fakeServer) report(w http.ResponseWriter, r *http.Request) {
	col, ok := f.collections[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	names := make([]string, 0, len(col.objects))
	for name := range col.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []string
	for _, name := range names {
		obj := col.objects[name]
		entries = append(entries, response(r.URL.Path+name, prop(
			`<D:getetag>`+escape(obj.etag)+`</D:getetag>`+
				`<C:calendar-data>`+escape(obj.data)+`</C:calendar-data>`)))
	}
	writeMultistatus(w, entries...)
}

func (f *fakeServer) put(w http.ResponseWriter, r *http.Request, body []byte) {
	dir, name := path.Split(r.URL.Path)
	col, ok := f.collections[dir]
	if !ok {
		w.WriteHeader(http.StatusConflict)
		return
	}
	existing, exists := col.objects[name]
	if match := r.Header.Get("If-Match"); match != "" {
		if !exists || existing.etag != match {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
	}
	etag := f.nextETag()
	col.objects[name] = &fakeObject{data: string(body), etag: etag}
	if !f.omitPutETag {
		w.Header().Set("ETag", etag)
	}
	if exists {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

func (f *fakeServer) deleteObject(w http.ResponseWriter, r *http.Request) {
	dir, name := path.Split(r.URL.Path)
	col, ok := f.collections[dir]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	existing, exists := col.objects[name]
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if match := r.Header.Get("If-Match"); match != "" && match != existing.etag {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	delete(col.objects, name)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeServer) mkcalendar(w http.ResponseWriter, r *http.Request, body []byte) {
	if _, ok := f.collections[r.URL.Path]; ok {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var comps []string
	if bytes.Contains(body, []byte(`name="VTODO"`)) {
		comps = append(comps, "VTODO")
	}
	f.collections[r.URL.Path] = &fakeCollection{components: comps, objects: make(map[string]*fakeObject)}
	w.WriteHeader(http.StatusCreated)
}

func response(href, propstat string) string {
	return `<D:response><D:href>` + escape(href) + `</D:href>` + propstat + `</D:response>`
}

func prop(inner string) string {
	return `<D:propstat><D:prop>` + inner + `</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat>`
}

func multistatus(entries ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">` +
		strings.Join(entries, "") + `</D:multistatus>`
}

func writeMultistatus(w http.ResponseWriter, entries ...string) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = io.WriteString(w, multistatus(entries...))
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = stdxml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func todoData(uid, summary, status string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VTODO",
	}
	if uid != "" {
		lines = append(lines, "UID:"+uid)
	}
	lines = append(lines,
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:"+summary,
		"STATUS:"+status,
		"END:VTODO",
		"END:VCALENDAR",
		"",
	)
	return strings.Join(lines, "\r\n")
}
