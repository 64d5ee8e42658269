package telegram

// User is the subset of the Bot API User object the relay reads.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// PhotoSize is one resolution of a photo.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Document is a general file attachment.
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Video is a video attachment.
type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	Duration     int    `json:"duration"`
}

// Animation is a GIF or silent H.264 clip.
type Animation struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Message is the subset of the Bot API Message object the relay reads.
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Date      int64       `json:"date"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Document  *Document   `json:"document,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Video     *Video      `json:"video,omitempty"`
	Animation *Animation  `json:"animation,omitempty"`
}

// Update is one entry returned by getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// File is the result of getFile. FilePath is only present when the file can
// be downloaded through the Bot API.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// BotCommand is one entry of the command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// MediaKind names the send method used to copy an attachment.
type MediaKind string

const (
	MediaDocument  MediaKind = "document"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
)

// Valid reports whether k is a supported attachment kind.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaDocument, MediaPhoto, MediaVideo, MediaAnimation:
		return true
	default:
		return false
	}
}

// StoredFile returns the file reference carried by a sent message for the
// given kind. Photos report the largest resolution.
func (m *Message) StoredFile(kind MediaKind) (fileID string, ok bool) {
	if m == nil {
		return "", false
	}
	switch kind {
	case MediaDocument:
		if m.Document != nil {
			return m.Document.FileID, true
		}
	case MediaPhoto:
		if n := len(m.Photo); n > 0 {
			return m.Photo[n-1].FileID, true
		}
	case MediaVideo:
		if m.Video != nil {
			return m.Video.FileID, true
		}
	case MediaAnimation:
		if m.Animation != nil {
			return m.Animation.FileID, true
		}
	}
	return "", false
}
