package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fileslink/internal/config"
	"fileslink/internal/linkcodec"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/proxy"
	"fileslink/internal/retry"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

const defaultContentType = "application/octet-stream"

// Platform is the slice of the Bot API used for direct downloads.
type Platform interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
}

// Proxy fetches large artifacts by storage coordinate.
type Proxy interface {
	Fetch(ctx context.Context, namespace, messageID int64) (*proxy.Response, error)
}

// Lookup reads artifact metadata.
type Lookup interface {
	Get(id string) (metadata.Artifact, bool)
}

// Route names the path that produced a payload.
type Route string

const (
	RouteDirect Route = "direct"
	RouteProxy  Route = "proxy"
)

// Payload is a resolved artifact ready to be written to a response.
type Payload struct {
	Artifact    metadata.Artifact
	Body        []byte
	ContentType string
	Disposition string
	Route       Route
}

// FileName returns the artifact display name.
func (p *Payload) FileName() string { return p.Artifact.FileName }

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "retrieval")
		}
	}
}

// WithLookupRetry overrides the getFile retry policy. The too-big
// classification is always treated as final.
func WithLookupRetry(policy retry.Policy) Option {
	return func(s *Service) {
		s.lookupRetry = policy
	}
}

// Service resolves link paths.
type Service struct {
	platform    Platform
	proxy       Proxy
	store       Lookup
	namespace   int64
	lookupRetry retry.Policy
	logger      *slog.Logger
}

// New constructs a Service. proxyClient may be nil when no proxy is
// configured; oversized artifacts then fail as unavailable.
func New(cfg *config.Config, platform Platform, proxyClient Proxy, store Lookup, opts ...Option) *Service {
	s := &Service{
		platform:    platform,
		proxy:       proxyClient,
		store:       store,
		namespace:   cfg.Telegram.StorageChannelID,
		lookupRetry: retry.Default(),
		logger:      logging.NewComponentLogger(logging.NewNop(), "retrieval"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve maps a link path to its bytes.
func (s *Service) Resolve(ctx context.Context, path string) (*Payload, error) {
	id := linkcodec.Decode(strings.TrimPrefix(path, "/"))
	if id == "" {
		return nil, failure(services.ErrNotFound, MessageNotFound, nil)
	}
	artifact, ok := s.store.Get(id)
	if !ok {
		return nil, failure(services.ErrNotFound, MessageNotFound, fmt.Errorf("unknown identifier %q", id))
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldUniqueID, id))

	file, err := s.lookup(ctx, artifact.TelegramFileID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrTooLarge):
		logger.Info("file too large for bot api; using proxy",
			logging.String("file_name", artifact.FileName),
			logging.Int64("file_size", artifact.FileSize),
			logging.String(logging.FieldEventType, "proxy_fallback"),
		)
		return s.viaProxy(ctx, logger, artifact)
	default:
		logging.ErrorWithContext(logger, "bot api file lookup failed", "file_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bot token and storage channel membership"),
		)
		return nil, failure(services.ErrTransient, MessageLookupFailed, err)
	}

	if strings.TrimSpace(file.FilePath) == "" {
		return nil, failure(services.ErrTransient, MessageLookupFailed, errors.New("bot api returned no file path"))
	}
	data, err := s.platform.DownloadFile(ctx, file.FilePath)
	if err != nil {
		logging.ErrorWithContext(logger, "bot api download failed", "file_download_failed", logging.Error(err))
		return nil, failure(services.ErrTransient, MessageDownloadFailed, err)
	}
	logger.Debug("artifact downloaded", logging.Int("bytes", len(data)))

	return &Payload{
		Artifact:    artifact,
		Body:        data,
		ContentType: contentTypeFor(artifact),
		Disposition: AttachmentDisposition(artifact.FileName),
		Route:       RouteDirect,
	}, nil
}

func (s *Service) lookup(ctx context.Context, fileID string) (*telegram.File, error) {
	policy := s.lookupRetry
	retryable := policy.Retryable
	policy.Retryable = func(err error) bool {
		if errors.Is(err, services.ErrTooLarge) || errors.Is(err, context.Canceled) {
			return false
		}
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return false
		}
		if retryable != nil {
			return retryable(err)
		}
		return true
	}

	var file *telegram.File
	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		var callErr error
		file, callErr = s.platform.GetFile(ctx, fileID)
		return callErr
	})
	return file, err
}

func (s *Service) viaProxy(ctx context.Context, logger *slog.Logger, artifact metadata.Artifact) (*Payload, error) {
	if !artifact.HasProxyCoordinates() {
		logging.WarnWithContext(logger, "artifact has no message id; proxy cannot serve it", "legacy_artifact",
			logging.String(logging.FieldErrorHint, "re-upload the file to record its message id"),
		)
		return nil, failure(services.ErrNotAvailable, MessageLegacyArtifact, nil)
	}
	if s.proxy == nil {
		return nil, failure(services.ErrUnavailable, MessageProxyNotConfigured, nil)
	}

	resp, err := s.proxy.Fetch(ctx, s.namespace, artifact.MessageID)
	if err != nil {
		logging.ErrorWithContext(logger, "proxy download failed", "proxy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the download service is running"),
		)
		if errors.Is(err, services.ErrUnavailable) {
			return nil, failure(services.ErrUnavailable, MessageProxyUnavailable, err)
		}
		return nil, failure(services.ErrUpstream, MessageProxyUpstream, err)
	}
	logger.Info("artifact served by proxy", logging.Int("bytes", len(resp.Body)))

	contentType := resp.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	disposition := resp.ContentDisposition
	if disposition == "" {
		disposition = AttachmentDisposition(artifact.FileName)
	}
	return &Payload{
		Artifact:    artifact,
		Body:        resp.Body,
		ContentType: contentType,
		Disposition: disposition,
		Route:       RouteProxy,
	}, nil
}

func contentTypeFor(a metadata.Artifact) string {
	if strings.TrimSpace(a.MimeType) == "" {
		return defaultContentType
	}
	return a.MimeType
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// AttachmentDisposition builds `attachment; filename="<name>"`.
func AttachmentDisposition(name string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(name) + `"`
}
