package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"fileslink/internal/config"
	"fileslink/internal/linkcodec"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/queue"
	"fileslink/internal/retry"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

// Platform is the slice of the Bot API the pipeline drives.
type Platform interface {
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts telegram.SendOptions) error
	SendMedia(ctx context.Context, chatID int64, kind telegram.MediaKind, fileID, caption string) (*telegram.Message, error)
	UploadDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) (*telegram.Message, error)
}

// ArtifactWriter commits artifact metadata durably.
type ArtifactWriter interface {
	Put(a metadata.Artifact) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets the client used to download remote URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "ingest")
		}
	}
}

// WithStatusRetry overrides the status-edit retry policy.
func WithStatusRetry(policy retry.Policy) Option {
	return func(p *Pipeline) {
		p.statusRetry = policy
	}
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs ingestion attempts for the queue worker.
type Pipeline struct {
	platform       Platform
	store          ArtifactWriter
	storageChannel int64
	linkFor        func(string) string

	httpClient  *http.Client
	statusRetry retry.Policy
	logger      *slog.Logger
	newID       func() (string, error)
	now         func() time.Time
}

// New builds a Pipeline. Transfers target cfg's storage channel and links
// are built from its file domain.
func New(cfg *config.Config, platform Platform, store ArtifactWriter, opts ...Option) *Pipeline {
	policy := retry.Default()
	if cfg.Queue.StatusRetryAttempts > 0 {
		policy.MaxAttempts = cfg.Queue.StatusRetryAttempts
	}
	p := &Pipeline{
		platform:       platform,
		store:          store,
		storageChannel: cfg.Telegram.StorageChannelID,
		linkFor:        cfg.LinkFor,
		httpClient:     &http.Client{},
		statusRetry:    policy,
		logger:         logging.NewComponentLogger(logging.NewNop(), "ingest"),
		newID:          linkcodec.NewID,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process implements queue.Processor.
func (p *Pipeline) Process(ctx context.Context, job *queue.Job) (queue.Link, error) {
	return p.Ingest(ctx, job)
}

// stored is the outcome of the transfer step.
type stored struct {
	fileID    string
	messageID int64
	fileName  string
	mimeType  string
	size      int64
}

// Ingest runs one attempt for job.
func (p *Pipeline) Ingest(ctx context.Context, job *queue.Job) (queue.Link, error) {
	if job == nil {
		return queue.Link{}, services.Wrap(services.ErrValidation, "ingest", "start", "nil job", nil)
	}
	logger := logging.WithContext(ctx, p.logger)

	p.editStatus(ctx, logger, job, "Processing file...", telegram.SendOptions{})

	id, err := p.newID()
	if err != nil {
		return queue.Link{}, p.fail(ctx, logger, job, services.Wrap(services.ErrTransient, "ingest", "identifier", "", err))
	}
	logger = logger.With(logging.String(logging.FieldUniqueID, id))

	var out stored
	switch src := job.Source().(type) {
	case queue.MediaSource:
		out, err = p.storeMedia(ctx, src, job.DisplayName(), id)
	case queue.URLSource:
		out, err = p.storeURL(ctx, logger, src.URL, job.DisplayName(), id)
	default:
		err = services.Wrap(services.ErrSourceResolution, "ingest", "resolve", fmt.Sprintf("unsupported source %T", src), nil)
	}
	if err != nil {
		return queue.Link{}, p.fail(ctx, logger, job, err)
	}
	logger.Debug("artifact transferred to storage channel",
		logging.String("file_id", out.fileID),
		logging.Int64("message_id", out.messageID),
	)

	artifact := metadata.Artifact{
		UniqueID:       id,
		TelegramFileID: out.fileID,
		FileName:       out.fileName,
		MimeType:       out.mimeType,
		FileSize:       out.size,
		UploadedAt:     p.now().Unix(),
		MessageID:      out.messageID,
	}
	if err := p.store.Put(artifact); err != nil {
		return queue.Link{}, p.fail(ctx, logger, job, err)
	}

	link := queue.Link{
		UniqueID: id,
		FileName: artifact.FileName,
		FileSize: artifact.FileSize,
		URL:      p.linkFor(linkcodec.Encode(id, artifact.FileName)),
	}
	logger.Info("artifact stored",
		logging.String("file_name", artifact.FileName),
		logging.Int64("file_size", artifact.FileSize),
		logging.String("link", link.URL),
		logging.String(logging.FieldEventType, "artifact_stored"),
	)

	p.editStatus(ctx, logger, job, successMessage(link), telegram.SendOptions{ParseMode: telegram.ParseModeHTML, DisableWebPagePreview: true})
	return link, nil
}

// editStatus rewrites the job's status message under the retry policy.
// Failures are logged and never abort the attempt.
func (p *Pipeline) editStatus(ctx context.Context, logger *slog.Logger, job *queue.Job, text string, opts telegram.SendOptions) {
	handle := job.Status()
	err := p.statusRetry.Do(ctx, func(ctx context.Context, attempt int) error {
		err := p.platform.EditMessageText(ctx, handle.ChatID, handle.MessageID, text, opts)
		if err == nil || telegram.IsMessageNotModified(err) {
			return nil
		}
		if attempt < p.statusRetry.MaxAttempts {
			logger.Debug("status edit failed; retrying",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logger, "status edit failed", "status_edit_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the requester will not see this progress update"),
		)
	}
}

// fail reports err to the requester and returns it unchanged.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, err error) error {
	if ctx.Err() != nil {
		return err
	}
	p.editStatus(ctx, logger, job, failureMessage(err), telegram.SendOptions{})
	return err
}
