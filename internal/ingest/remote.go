package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"fileslink/internal/logging"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

const userAgent = "fileslink/1.0"

// storeURL downloads rawURL and uploads the body to the storage channel as
// a document.
func (p *Pipeline) storeURL(ctx context.Context, logger *slog.Logger, rawURL, displayName, id string) (stored, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download", "invalid url", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download", "failed to download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download",
			fmt.Sprintf("remote server returned %s", resp.Status), nil)
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = remoteFileName(resp.Header.Get("Content-Disposition"), rawURL)
	}
	if name == "" {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download", "could not determine file name", nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download", "failed to read file bytes", err)
	}
	if len(data) == 0 {
		return stored{}, services.Wrap(services.ErrSourceResolution, "ingest", "download", "remote file is empty", nil)
	}
	logger.Info("remote file downloaded",
		logging.String("file_name", name),
		logging.String("size", humanize.IBytes(uint64(len(data)))),
	)

	msg, err := p.platform.UploadDocument(ctx, p.storageChannel, name, data, id)
	if err != nil {
		return stored{}, services.Wrap(services.ErrStorageCommit, "ingest", "upload", "failed to upload to storage channel", err)
	}
	fileID, ok := msg.StoredFile(telegram.MediaDocument)
	if !ok || fileID == "" {
		return stored{}, services.Wrap(services.ErrStorageCommit, "ingest", "upload", "no document in uploaded message", nil)
	}
	return stored{
		fileID:    fileID,
		messageID: msg.MessageID,
		fileName:  name,
		mimeType:  remoteMIME(name, data),
		size:      int64(len(data)),
	}, nil
}

// remoteFileName prefers the Content-Disposition filename and falls back to
// the last path segment of the URL.
func remoteFileName(disposition, rawURL string) string {
	if name := dispositionFileName(disposition); name != "" {
		return name
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segment := path.Base(parsed.Path)
	if segment == "." || segment == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	return strings.TrimSpace(segment)
}

func dispositionFileName(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else if _, after, found := strings.Cut(header, "filename="); found {
		after, _, _ = strings.Cut(after, ";")
		name = strings.Trim(strings.TrimSpace(after), `"`)
	}
	// Drop any directory components a server may include.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// remoteMIME infers from the name first, then from the content.
func remoteMIME(name string, data []byte) string {
	if m := mimeFromName(name); m != "" {
		return m
	}
	detected := mimetype.Detect(data)
	if detected == nil || detected.Is("application/octet-stream") {
		return ""
	}
	return detected.String()
}
