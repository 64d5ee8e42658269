package metadata

import "time"

// Artifact describes a relayed file. UniqueID, TelegramFileID and FileSize
// never change after creation; FileName changes only through Store.Rename.
type Artifact struct {
	UniqueID       string `json:"unique_id"`
	TelegramFileID string `json:"telegram_file_id"`
	FileName       string `json:"file_name"`
	MimeType       string `json:"mime_type,omitempty"`
	FileSize       int64  `json:"file_size"`
	UploadedAt     int64  `json:"uploaded_at"`
	// MessageID locates the upload in the storage channel for the
	// large-object proxy. Zero means the artifact predates proxy support.
	MessageID int64 `json:"message_id,omitempty"`
}

// UploadedTime returns UploadedAt as a time.
func (a Artifact) UploadedTime() time.Time {
	return time.Unix(a.UploadedAt, 0)
}

// HasProxyCoordinates reports whether the proxy can serve this artifact.
func (a Artifact) HasProxyCoordinates() bool {
	return a.MessageID != 0
}

type document struct {
	Files map[string]Artifact `json:"files"`
}
