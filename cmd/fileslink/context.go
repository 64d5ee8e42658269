package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"fileslink/internal/config"
	"fileslink/internal/metadata"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openFiles loads the metadata mirror for read-only use.
func (c *commandContext) openFiles() (*metadata.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store := metadata.New(cfg.MirrorPath())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return store, nil
}

// withExclusiveFiles runs fn with the mirror loaded while holding the
// instance lock, so a running daemon cannot overwrite the change.
func (c *commandContext) withExclusiveFiles(fn func(*metadata.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("a fileslink daemon is running; use the bot commands (/edit, /delete) instead")
	}
	defer func() { _ = lock.Unlock() }()

	store, err := c.openFiles()
	if err != nil {
		return err
	}
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
