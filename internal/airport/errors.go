package airport

import "errors"

// Error kinds. Every error returned by Lookup and Store.Refresh matches
// exactly one of these with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid ICAO code")
	ErrNotFound        = errors.New("airport not found")
	ErrMalformedRecord = errors.New("malformed airport record")
	ErrFetchFailed     = errors.New("airport dataset fetch failed")
)

// LookupError carries the failing operation, the code involved and the
// underlying cause alongside the error kind.
type LookupError struct {
	Op   string
	ICAO string
	Kind error
	Err  error
}

func (e *LookupError) Error() string {
	msg := e.Op
	if e.ICAO != "" {
		msg += " " + e.ICAO
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
