package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const dotEnvFile = ".env"

// loadDotEnv populates the process environment from a .env file. Variables
// already set in the environment win. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if value, ok := lookupEnv("BOT_TOKEN"); ok {
		c.Telegram.BotToken = value
	}
	if value, ok := lookupEnv("TELEGRAM_API_URL"); ok {
		c.Telegram.APIURL = value
	}
	if value, ok := lookupEnv("STORAGE_CHANNEL_ID"); ok {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("STORAGE_CHANNEL_ID: %w", err)
		}
		c.Telegram.StorageChannelID = id
	}
	if value, ok := lookupEnv("FILE_DOMAIN"); ok {
		c.HTTP.FileDomain = value
	}
	if value, ok := lookupEnv("FASTTELETHON_URL"); ok {
		c.Proxy.URL = value
	}
	if value, ok := lookupEnv("ENABLE_FILES_ROUTE"); ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("ENABLE_FILES_ROUTE: %w", err)
		}
		c.HTTP.EnableFilesRoute = enabled
	}
	if value, ok := lookupEnv("FILESLINK_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
