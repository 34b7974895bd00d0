package httpclient

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped when a multistatus body cannot be parsed.
var ErrMalformedResponse = errors.New("malformed multistatus response")

// TransportError reports a network failure or an unexpected HTTP status.
// StatusCode is zero when no response was received.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a TransportError carrying the given status.
func IsStatus(err error, code int) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == code
}
