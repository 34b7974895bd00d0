package davclient

import "fmt"

// Discovery stages, as reported in ProtocolError.Stage
const (
	StagePrincipal = "current-user-principal"
	StageHomeSet   = "calendar-home-set"
	StageCalendars = "calendar-list"
)

// ProtocolError reports a server response that discovery cannot use, such as a
// missing href or an unparsable multistatus.
type ProtocolError struct {
	Stage  string
	URL    string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("caldav discovery failed at %s (%s): %s", e.Stage, e.URL, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
