package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropfindRequest_ToXML(t *testing.T) {
	req := &PropfindRequest{Props: []Name{PropDisplayName, PropCalendarHomeSet}}
	body, err := Marshal(req.ToXML())
	require.NoError(t, err)

	want := `<D:propfind xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:CS="http://calendarserver.org/ns/">` +
		`<D:prop><D:displayname/><C:calendar-home-set/></D:prop></D:propfind>`
	assert.Equal(t, want, normalizeXML(string(body)))
}

func TestCalendarQuery_ToXML(t *testing.T) {
	body, err := Marshal(TodoQuery().ToXML())
	require.NoError(t, err)

	want := `<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:CS="http://calendarserver.org/ns/">` +
		`<D:prop><D:getetag/><C:calendar-data/></D:prop>` +
		`<C:filter><C:comp-filter name="VCALENDAR"><C:comp-filter name="VTODO"/></C:comp-filter></C:filter>` +
		`</C:calendar-query>`
	assert.Equal(t, want, normalizeXML(string(body)))
}

func TestMkcalendarRequest_ToXML(t *testing.T) {
	req := &MkcalendarRequest{DisplayName: "Chores", Components: []string{"VTODO"}}
	body, err := Marshal(req.ToXML())
	require.NoError(t, err)

	want := `<C:mkcalendar xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:CS="http://calendarserver.org/ns/">` +
		`<D:set><D:prop><D:displayname>Chores</D:displayname>` +
		`<C:supported-calendar-component-set><C:comp name="VTODO"/></C:supported-calendar-component-set>` +
		`</D:prop></D:set></C:mkcalendar>`
	assert.Equal(t, want, normalizeXML(string(body)))
}

func TestParseMultistatus(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "prefixed",
			body: `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/dav/calendars/alice/</d:href>
    <d:propstat>
      <d:prop>
        <cal:calendar-home-set><d:href>/dav/calendars/alice/</d:href></cal:calendar-home-set>
        <d:current-user-principal><d:href>/dav/principals/alice/</d:href></d:current-user-principal>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`,
		},
		{
			name: "default namespace",
			body: `<multistatus xmlns="DAV:">
  <response>
    <href>/dav/calendars/alice/</href>
    <propstat>
      <prop>
        <calendar-home-set xmlns="urn:ietf:params:xml:ns:caldav"><href xmlns="DAV:">/dav/calendars/alice/</href></calendar-home-set>
        <current-user-principal><href>/dav/principals/alice/</href></current-user-principal>
      </prop>
    </propstat>
  </response>
</multistatus>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := ParseMultistatus([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, ms.Responses, 1)

			resp := ms.Responses[0]
			assert.Equal(t, "/dav/calendars/alice/", resp.Href)

			principal, ok := resp.Prop(PropCurrentUserPrincipal)
			require.True(t, ok)
			href, ok := principal.FindHref()
			require.True(t, ok)
			assert.Equal(t, "/dav/principals/alice/", href)

			home, ok := resp.Prop(PropCalendarHomeSet)
			require.True(t, ok)
			href, ok = home.FindHref()
			require.True(t, ok)
			assert.Equal(t, "/dav/calendars/alice/", href)
		})
	}
}

func TestResponse_PropIgnoresFailedPropstat(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/</D:href>
    <D:propstat>
      <D:prop><D:displayname>Visible</D:displayname></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
    <D:propstat>
      <D:prop><D:getetag/></D:prop>
      <D:status>HTTP/1.1 404 Not Found</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

	ms, err := ParseMultistatus([]byte(body))
	require.NoError(t, err)
	resp := ms.Responses[0]

	name, ok := resp.Prop(PropDisplayName)
	require.True(t, ok)
	assert.Equal(t, "Visible", name.TextContent)

	_, ok = resp.Prop(PropGetETag)
	assert.False(t, ok)

	// same local name, wrong namespace
	_, ok = resp.Prop(Name{Space: CalDAV, Local: "displayname"})
	assert.False(t, ok)
}

func TestParseMultistatus_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "this is not xml <"},
		{"empty", ""},
		{"wrong root", `<D:propfind xmlns:D="DAV:"/>`},
		{"root outside DAV namespace", `<multistatus xmlns="urn:example"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMultistatus([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 200, StatusCode("HTTP/1.1 200 OK"))
	assert.Equal(t, 404, StatusCode("HTTP/1.1 404 Not Found"))
	assert.Equal(t, 0, StatusCode("garbage"))
	assert.True(t, PropStat{}.OK())
	assert.False(t, PropStat{Status: "HTTP/1.1 403 Forbidden"}.OK())
}

func TestResponse_Found(t *testing.T) {
	body := `<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/a.ics</D:href>
    <D:propstat><D:prop><D:getetag>"1"</D:getetag></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat>
  </D:response>
  <D:response>
    <D:href>/cal/gone.ics</D:href>
    <D:status>HTTP/1.1 404 Not Found</D:status>
  </D:response>
</D:multistatus>`

	ms, err := ParseMultistatus([]byte(body))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 2)

	assert.True(t, ms.Responses[0].Found())
	assert.Empty(t, ms.Responses[0].Status)
	assert.False(t, ms.Responses[1].Found())
	assert.Equal(t, "HTTP/1.1 404 Not Found", ms.Responses[1].Status)
}
