package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateAccess(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("telegram.bot_token is required. Set BOT_TOKEN env var or edit %s (create with 'fileslink config init')", defaultPath)
	}
	if c.Telegram.StorageChannelID == 0 {
		return errors.New("telegram.storage_channel_id is required (or set STORAGE_CHANNEL_ID)")
	}
	if err := validateHTTPURL("telegram.api_url", c.Telegram.APIURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if !strings.HasPrefix(c.HTTP.FileDomain, "http://") && !strings.HasPrefix(c.HTTP.FileDomain, "https://") {
		return fmt.Errorf("http.file_domain must be an http(s) URL prefix, got %q", c.HTTP.FileDomain)
	}
	return nil
}

func (c *Config) validateProxy() error {
	if c.Proxy.URL == "" {
		return nil
	}
	return validateHTTPURL("proxy.url", c.Proxy.URL)
}

func (c *Config) validateAccess() error {
	seen := make(map[int64]struct{}, len(c.Access.Chats))
	for _, chat := range c.Access.Chats {
		if chat.ID == 0 {
			return errors.New("access.chats entries must set a non-zero id")
		}
		if _, dup := seen[chat.ID]; dup {
			return fmt.Errorf("access.chats lists chat %d more than once", chat.ID)
		}
		seen[chat.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.QueueMinItems < 1 {
		return errors.New("notifications.queue_min_items must be >= 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func validateHTTPURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}
