package retrieval

import (
	"errors"
	"fmt"
)

// Response bodies for retrieval failures.
const (
	MessageLegacyArtifact     = "File was uploaded before FastTelethon integration and cannot be downloaded via MTProto. Please re-upload the file."
	MessageProxyUpstream      = "Failed to retrieve file from download service"
	MessageProxyUnavailable   = "Download service temporarily unavailable"
	MessageProxyNotConfigured = "Large file download service not configured"
	MessageLookupFailed       = "Failed to retrieve file from storage"
	MessageDownloadFailed     = "Failed to download file from storage"
	MessageNotFound           = "File not found"
)

// Error is a classified retrieval failure.
type Error struct {
	Marker  error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: retrieval: %s: %v", e.Marker, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: retrieval: %s", e.Marker, e.Message)
}

// Unwrap exposes both the marker and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

func failure(marker error, message string, err error) *Error {
	return &Error{Marker: marker, Message: message, Err: err}
}

// PublicMessage returns the response body for err.
func PublicMessage(err error) string {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return MessageLookupFailed
}
