package enrichment

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by stores when the requested content item does not exist.
var ErrNotFound = errors.New("not found")

// Error is a hard failure carrying an HTTP-status-like severity so callers can decide
// whether to retry or alert.
type Error struct {
	Status  int
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest reports input that prevents any meaningful attempt.
func BadRequest(op, msg string) error {
	return &Error{Status: http.StatusBadRequest, Op: op, Message: msg}
}

// NotFound reports content that does not exist or is inaccessible.
func NotFound(op, msg string) error {
	return &Error{Status: http.StatusNotFound, Op: op, Message: msg}
}

// ServiceUnavailable reports an exhausted retry budget; err is the last underlying failure.
func ServiceUnavailable(op string, err error) error {
	return &Error{Status: http.StatusServiceUnavailable, Op: op, Message: "service unavailable", Err: err}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) error {
	return &Error{Status: http.StatusInternalServerError, Op: op, Message: "internal error", Err: err}
}

// StatusOf returns the severity attached to err, or 500 for untyped errors and 0 for nil.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// IsServiceUnavailable reports whether err carries the service-unavailable severity.
func IsServiceUnavailable(err error) bool {
	return StatusOf(err) == http.StatusServiceUnavailable
}
