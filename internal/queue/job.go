package queue

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

// summaryURLLimit bounds the URL prefix shown in queue summaries.
const summaryURLLimit = 48

// Handle addresses one chat message.
type Handle struct {
	ChatID    int64
	MessageID int64
}

// Source is the byte origin of a job. It is implemented only by MediaSource
// and URLSource.
type Source interface {
	// SourceKind names the source for logs and metrics.
	SourceKind() string
	isSource()
}

// MediaSource references an attachment already held by the platform.
type MediaSource struct {
	Kind     telegram.MediaKind
	FileID   string
	FileName string
	MimeType string
	FileSize int64
}

// SourceKind returns the media kind.
func (m MediaSource) SourceKind() string { return string(m.Kind) }

func (MediaSource) isSource() {}

// URLSource is a remote http(s) resource.
type URLSource struct {
	URL string
}

// SourceKind returns "url".
func (URLSource) SourceKind() string { return "url" }

func (URLSource) isSource() {}

// Job is one pending upload. Build jobs with NewMediaJob or NewURLJob.
type Job struct {
	ID         string
	EnqueuedAt time.Time

	origin      Handle
	status      Handle
	source      Source
	displayName string
}

// NewMediaJob builds a job for a platform attachment.
func NewMediaJob(origin, status Handle, media MediaSource, displayName string) (*Job, error) {
	if !media.Kind.Valid() {
		return nil, services.Wrap(services.ErrValidation, "queue", "new media job",
			fmt.Sprintf("unsupported media kind %q", media.Kind), nil)
	}
	media.FileID = strings.TrimSpace(media.FileID)
	if media.FileID == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new media job", "file id is required", nil)
	}
	return newJob(origin, status, media, displayName), nil
}

// NewURLJob builds a job for a remote http(s) resource.
func NewURLJob(origin, status Handle, rawURL, displayName string) (*Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new url job", "url is required", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "queue", "new url job", "invalid url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new url job",
			fmt.Sprintf("unsupported url scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new url job", "url host is required", errors.New(rawURL))
	}
	return newJob(origin, status, URLSource{URL: rawURL}, displayName), nil
}

func newJob(origin, status Handle, source Source, displayName string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		EnqueuedAt:  time.Now(),
		origin:      origin,
		status:      status,
		source:      source,
		displayName: strings.TrimSpace(displayName),
	}
}

// Origin is the message that submitted the job.
func (j *Job) Origin() Handle { return j.origin }

// Status is the progress message edited while the job runs.
func (j *Job) Status() Handle { return j.status }

// Source returns the job's byte origin.
func (j *Job) Source() Source { return j.source }

// DisplayName is the optional name override.
func (j *Job) DisplayName() string { return j.displayName }

// Media returns the media source when the job carries one.
func (j *Job) Media() (MediaSource, bool) {
	m, ok := j.source.(MediaSource)
	return m, ok
}

// URL returns the remote address when the job carries one.
func (j *Job) URL() (string, bool) {
	u, ok := j.source.(URLSource)
	return u.URL, ok
}

// Summary renders the job for queue listings.
func (j *Job) Summary() string {
	if j.displayName != "" {
		return j.displayName
	}
	switch src := j.source.(type) {
	case URLSource:
		return "URL: " + truncateRunes(src.URL, summaryURLLimit)
	case MediaSource:
		return "file_id: " + src.FileID
	}
	return "<unknown>"
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
