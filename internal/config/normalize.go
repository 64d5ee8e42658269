package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelegram()
	c.normalizeHTTP()
	c.normalizeProxy()
	c.normalizeQueue()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.APIURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIURL), "/")
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = defaultTelegramAPIURL
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Telegram.RequestTimeout < 0 {
		c.Telegram.RequestTimeout = defaultTelegramTimeout
	}
}

func (c *Config) normalizeHTTP() {
	c.HTTP.Bind = strings.TrimSpace(c.HTTP.Bind)
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = defaultHTTPBind
	}
	c.HTTP.FileDomain = strings.TrimSpace(c.HTTP.FileDomain)
	if c.HTTP.FileDomain == "" {
		c.HTTP.FileDomain = defaultFileDomain
	}
}

func (c *Config) normalizeProxy() {
	c.Proxy.URL = strings.TrimRight(strings.TrimSpace(c.Proxy.URL), "/")
	if c.Proxy.RequestTimeout < 0 {
		c.Proxy.RequestTimeout = 0
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.StatusRetryAttempts <= 0 {
		c.Queue.StatusRetryAttempts = defaultStatusRetryAttempts
	}
	if c.Queue.FailureRetryInterval < 0 {
		c.Queue.FailureRetryInterval = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
