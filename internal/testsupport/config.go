package testsupport

import (
	"path/filepath"
	"testing"

	"fileslink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// StorageChannelID is the storage channel stamped into generated configs.
const StorageChannelID int64 = -1001234567890

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Telegram.BotToken = "123456:test-token"
	cfgVal.Telegram.StorageChannelID = StorageChannelID
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.HTTP.Bind = "127.0.0.1:0"
	cfgVal.HTTP.FileDomain = "https://files.test/files/"
	cfgVal.Metrics.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTelegramAPI points the Bot API client at a test server.
func WithTelegramAPI(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.APIURL = url
	}
}

// WithFilesRoute toggles the HTML listing route.
func WithFilesRoute(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.HTTP.EnableFilesRoute = enabled
	}
}

// WithAllowAll admits every chat and user.
func WithAllowAll() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Access.AllowAll = true
	}
}

// WithMetrics toggles the Prometheus endpoint.
func WithMetrics(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
