package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fileslink/internal/services"
)

// APIError is a failed Bot API call.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, strings.TrimSpace(e.Description))
}

// Temporary reports whether repeating the call may succeed.
func (e *APIError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Is classifies the Bot API refusing to serve a file above its download
// limit as services.ErrTooLarge.
func (e *APIError) Is(target error) bool {
	return target == services.ErrTooLarge && e.fileTooBig()
}

func (e *APIError) fileTooBig() bool {
	return e.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Description), "file is too big")
}

// IsMessageNotModified reports the harmless error returned when an edit
// repeats the current text.
func IsMessageNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Description, "message is not modified")
}
