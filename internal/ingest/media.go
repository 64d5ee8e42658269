package ingest

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"fileslink/internal/queue"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

// storeMedia copies an existing attachment into the storage channel with the
// identifier as caption.
func (p *Pipeline) storeMedia(ctx context.Context, src queue.MediaSource, displayName, id string) (stored, error) {
	name, mimeType := mediaDefaults(src, displayName, id)

	msg, err := p.platform.SendMedia(ctx, p.storageChannel, src.Kind, src.FileID, id)
	if err != nil {
		return stored{}, services.Wrap(services.ErrStorageCommit, "ingest", "copy "+string(src.Kind), "storage channel rejected the attachment", err)
	}
	fileID, ok := msg.StoredFile(src.Kind)
	if !ok || fileID == "" {
		return stored{}, services.Wrap(services.ErrStorageCommit, "ingest", "copy "+string(src.Kind), "could not get file_id from stored message", nil)
	}
	return stored{
		fileID:    fileID,
		messageID: msg.MessageID,
		fileName:  name,
		mimeType:  mimeType,
		size:      src.FileSize,
	}, nil
}

// mediaDefaults picks the display name and MIME type for an attachment.
// An explicit display name always wins; otherwise each kind has its own
// naming rule and a generic file_<id> covers the rest.
func mediaDefaults(src queue.MediaSource, displayName, id string) (string, string) {
	name := strings.TrimSpace(displayName)
	mimeType := strings.TrimSpace(src.MimeType)

	switch src.Kind {
	case telegram.MediaDocument:
		if name == "" {
			name = strings.TrimSpace(src.FileName)
		}
	case telegram.MediaPhoto:
		if name == "" {
			name = fmt.Sprintf("photo_%s.jpg", id)
		}
		mimeType = "image/jpeg"
	case telegram.MediaVideo:
		if name == "" {
			name = fmt.Sprintf("video_%s.mp4", id)
		}
		if mimeType == "" {
			mimeType = "video/mp4"
		}
	case telegram.MediaAnimation:
		if name == "" {
			ext := "mp4"
			if essence(mimeType) == "image/gif" {
				ext = "gif"
			}
			name = fmt.Sprintf("animation_%s.%s", id, ext)
		}
		if mimeType == "" {
			mimeType = "video/mp4"
		}
	}
	if name == "" {
		name = "file_" + id
	}
	if mimeType == "" {
		mimeType = mimeFromName(name)
	}
	return name, mimeType
}

// mimeFromName guesses a MIME type from the file extension, without
// parameters. It returns "" when the extension is unknown.
func mimeFromName(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return essence(mime.TypeByExtension(strings.ToLower(ext)))
}

func essence(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	}
	return mediaType
}
