package api

import (
	"errors"
	"fmt"
	"net/http"

	"expensetracker/internal/core"
)

var (
	// ErrTransport wraps failures that happen before a response arrives.
	ErrTransport = errors.New("transport error")
	// ErrDecode wraps responses whose body is not the expected JSON.
	ErrDecode = errors.New("decode response")
	// ErrEmptyToken is returned when login succeeds without a token.
	ErrEmptyToken = errors.New("login returned an empty token")
	// ErrMissingParam is returned when a path parameter is empty.
	ErrMissingParam = errors.New("missing path parameter")
	// ErrSuperseded marks results discarded because a newer request replaced them.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// UnknownAlert is the alert text used when the server gave no message.
const UnknownAlert = "Unknown"

// Error is a non-2xx response from the API.
type Error struct {
	Op         string
	Method     string
	Path       string
	StatusCode int
	Payload    core.Message
}

func (e *Error) Error() string {
	if e.Payload.Msg != "" {
		return fmt.Sprintf("%s: %s %s: %d %s: %s", e.Op, e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Payload.Msg)
	}
	return fmt.Sprintf("%s: %s %s: %d %s", e.Op, e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// API response error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// AlertMessage returns the text to show a user for err: the server's msg when
// present, otherwise UnknownAlert.
func AlertMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Payload.Msg != "" {
		return apiErr.Payload.Msg
	}
	return UnknownAlert
}
