package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSourceResolution marks a failure to obtain the bytes or name of a job's source.
	ErrSourceResolution = errors.New("source resolution failed")
	// ErrStorageCommit marks a failed durable write (platform upload or metadata mirror).
	ErrStorageCommit = errors.New("storage commit failed")
	ErrNotFound      = errors.New("not found")
	// ErrNotAvailable marks an artifact that exists but cannot be served.
	ErrNotAvailable = errors.New("not available")
	// ErrTooLarge marks a primary-storage rejection because of the size limit.
	ErrTooLarge    = errors.New("too large for direct download")
	ErrUpstream    = errors.New("upstream error")
	ErrUnavailable = errors.New("upstream unavailable")
	ErrTransient   = errors.New("transient failure")
	ErrValidation  = errors.New("validation error")
)

// Error is a classified failure produced by Wrap. Message is the part safe
// to show to end users; the rest is operator context.
type Error struct {
	Marker    error
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Marker, detail)
}

// Unwrap exposes both the marker and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Component: strings.TrimSpace(component),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// UserMessage returns the message of the outermost error built by Wrap, or
// "" when err carries none.
func UserMessage(err error) string {
	var wrapped *Error
	if !errors.As(err, &wrapped) {
		return ""
	}
	return wrapped.Message
}

// HTTPStatus maps an error to the response code the retrieval handlers return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAvailable):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrTooLarge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
