package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Telegram contains Bot API credentials and the storage channel coordinates.
type Telegram struct {
	BotToken         string `toml:"bot_token"`
	APIURL           string `toml:"api_url"`
	StorageChannelID int64  `toml:"storage_channel_id"`
	PollTimeout      int    `toml:"poll_timeout"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// HTTP contains the retrieval server settings.
type HTTP struct {
	Bind             string `toml:"bind"`
	FileDomain       string `toml:"file_domain"`
	EnableFilesRoute bool   `toml:"enable_files_route"`
}

// Proxy contains the large-object download service settings.
type Proxy struct {
	URL            string `toml:"url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// AccessChat grants a chat access to the bot. An empty Users list admits every sender.
type AccessChat struct {
	ID    int64   `toml:"id"`
	Users []int64 `toml:"users"`
}

// Access controls which chats and users may submit files and run commands.
type Access struct {
	AllowAll bool         `toml:"allow_all"`
	Chats    []AccessChat `toml:"chats"`
}

// Queue contains ingestion worker tuning.
type Queue struct {
	StatusRetryAttempts  int `toml:"status_retry_attempts"`
	FailureRetryInterval int `toml:"failure_retry_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Failures       bool   `toml:"failures"`
	QueueDrained   bool   `toml:"queue_drained"`
	QueueMinItems  int    `toml:"queue_min_items"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for fileslink.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Telegram: bot credentials, API endpoint, storage channel
//   - HTTP: retrieval server bind address and public link prefix
//   - Proxy: large-object download service
//   - Access: chat/user allow-list for the bot
//   - Queue: status edit retries and failure re-trigger
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus endpoint toggle
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Telegram      Telegram      `toml:"telegram"`
	HTTP          HTTP          `toml:"http"`
	Proxy         Proxy         `toml:"proxy"`
	Access        Access        `toml:"access"`
	Queue         Queue         `toml:"queue"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Values from a
// .env file in the working directory and from the process environment are
// applied on top of the file. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fileslink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MirrorPath is the JSON document holding the artifact metadata collection.
func (c *Config) MirrorPath() string {
	return filepath.Join(c.Paths.DataDir, "file_mappings.json")
}

// HistoryPath is the SQLite database journaling ingestion attempts.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockPath is the single-instance lock held by the running daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "fileslink.lock")
}

// LinkFor builds the public download URL for an encoded link path.
func (c *Config) LinkFor(encodedPath string) string {
	return c.HTTP.FileDomain + encodedPath
}

// HasAccess reports whether userID may use the bot from chatID.
func (c *Config) HasAccess(chatID, userID int64) bool {
	if c.Access.AllowAll {
		return true
	}
	for _, chat := range c.Access.Chats {
		if chat.ID != chatID {
			continue
		}
		if len(chat.Users) == 0 {
			return true
		}
		for _, user := range chat.Users {
			if user == userID {
				return true
			}
		}
		return false
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
