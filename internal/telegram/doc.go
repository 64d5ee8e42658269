// Package telegram is a minimal Telegram Bot API client covering the calls the
// relay needs: long-polling updates, sending and editing messages, copying
// media into the storage channel by file_id, uploading documents, and
// resolving and downloading stored files.
//
// Errors returned by the API are surfaced as *APIError so callers can match on
// the status code and description. A refusal to serve a file above the
// download limit also matches services.ErrTooLarge under errors.Is.
package telegram
