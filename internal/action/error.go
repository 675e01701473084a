package action

// Error is returned by handlers that already know the human readable reason
// of a failure, so callers do not have to scrape it from provider text.
type Error struct {
	Reason string
	Err    error
}

// Reject wraps err with a human readable reason.
func Reject(reason string, err error) error {
	return &Error{Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
