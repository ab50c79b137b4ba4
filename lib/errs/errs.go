// Package errs holds the failure kinds a pipeline stage can report.
// Stages wrap one of these with fmt.Errorf("...: %w") and the
// orchestrator classifies them with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// FetchError is a network or decode failure reaching or reading a source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedRowError is returned when an extracted row does not have the
// shape the selector describes. Row is the index within the kept rows,
// -1 when the table itself could not be located.
type MalformedRowError struct {
	Row   int
	Field string
	Got   int
	Want  int
	Err   error
}

func (e *MalformedRowError) Error() string {
	switch {
	case e.Row < 0:
		return fmt.Sprintf("malformed table: %s", e.Err)
	case e.Field != "":
		return fmt.Sprintf("malformed row %d: field %s: %s", e.Row, e.Field, e.Err)
	default:
		return fmt.Sprintf("malformed row %d: got %d cells, want at least %d", e.Row, e.Got, e.Want)
	}
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// SerializationError is a local write failure.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("write %s: %s", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// PublishError is a remote commit failure.
type PublishError struct {
	Repo string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %s", e.Repo, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// NotifyError is an email send failure. It is logged and never escalated.
type NotifyError struct {
	Err error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify: %s", e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Kind names the failure category of err, or "" if it is not one of the
// kinds above.
func Kind(err error) string {
	var (
		fetch     *FetchError
		malformed *MalformedRowError
		serialize *SerializationError
		publish   *PublishError
		notify    *NotifyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fetch):
		return "FetchError"
	case errors.As(err, &malformed):
		return "MalformedRowError"
	case errors.As(err, &serialize):
		return "SerializationError"
	case errors.As(err, &publish):
		return "PublishError"
	case errors.As(err, &notify):
		return "NotifyError"
	}
	return ""
}
