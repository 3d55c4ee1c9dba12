package api

import "fmt"

// Error is the uniform failure shape for backend calls. Status 0 means the
// request never got an HTTP response (connection refused, DNS failure,
// timeout), mirroring the status-0 convention the web client keyed its
// connectivity hints on.
type Error struct {
	Status  int
	Message string // backend-provided message, when the payload carried one
	Err     error  // underlying transport error, when Status is 0
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("backend error (%d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Unreachable reports whether the failure was a connection-level one.
func (e *Error) Unreachable() bool { return e.Status == 0 }

// StatusOf returns the HTTP status of err when it is an *Error, -1 otherwise.
func StatusOf(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Status
	}
	return -1
}

// MessageOf returns the backend message of err when it carries one.
func MessageOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	return ""
}
