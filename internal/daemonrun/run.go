// Package daemonrun assembles the fileslink runtime from configuration and
// blocks until the process is signalled.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fileslink/internal/bot"
	"fileslink/internal/config"
	"fileslink/internal/daemon"
	"fileslink/internal/history"
	"fileslink/internal/ingest"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/metrics"
	"fileslink/internal/notifications"
	"fileslink/internal/proxy"
	"fileslink/internal/queue"
	"fileslink/internal/retrieval"
	"fileslink/internal/telegram"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the fileslink daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("fileslink-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update fileslink.log link: %v\n", err)
	}
	logConfigSnapshot(logger, cfg)
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, "fileslink-*.log", logPath, cfg.Logging.RetentionDays)

	pidPath := filepath.Join(cfg.Paths.DataDir, "fileslink.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	files := metadata.New(cfg.MirrorPath())
	if err := files.Load(); err != nil {
		logging.ErrorWithContext(logger, "load metadata mirror", "metadata_load_failed",
			logging.Error(err),
			logging.String("path", cfg.MirrorPath()),
			logging.String(logging.FieldErrorHint, "fix or move the mirror file; it is never overwritten while unreadable"),
		)
		return err
	}

	journal, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}

	client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.APIURL,
		telegram.WithTimeout(telegramTimeout(cfg)))
	if err != nil {
		_ = journal.Close()
		return fmt.Errorf("create bot api client: %w", err)
	}

	var proxyClient retrieval.Proxy
	if strings.TrimSpace(cfg.Proxy.URL) != "" {
		proxyClient = proxy.New(cfg.Proxy.URL,
			proxy.WithTimeout(time.Duration(cfg.Proxy.RequestTimeout)*time.Second))
	}

	var recorder metrics.Metrics = metrics.Noop{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewProm()
	}
	notifier := notifications.NewQueueNotifier(notifications.NewService(cfg), logger, cfg.Notifications.QueueMinItems)

	pipeline := ingest.New(cfg, client, files, ingest.WithLogger(logger))
	manager := queue.NewManager(pipeline, client, queue.Options{
		Logger:               logger,
		Observer:             queue.Observers(recorder, history.NewRecorder(journal, logger), notifier),
		FailureRetryInterval: time.Duration(cfg.Queue.FailureRetryInterval) * time.Second,
	})

	d, err := daemon.New(cfg, logger, daemon.Components{
		Files:     files,
		History:   journal,
		Queue:     manager,
		Bot:       bot.New(cfg, client, manager, files, logger),
		Retrieval: retrieval.New(cfg, client, proxyClient, files, retrieval.WithLogger(logger)),
		Metrics:   recorder,
		Drainers:  []daemon.Drainer{notifier},
	})
	if err != nil {
		_ = journal.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the bind address and that no other instance holds the lock"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("fileslink daemon shutting down")
	return nil
}

// telegramTimeout keeps the HTTP deadline above the long-poll window so
// idle polls are not reported as failures.
func telegramTimeout(cfg *config.Config) time.Duration {
	timeout := time.Duration(cfg.Telegram.RequestTimeout) * time.Second
	if timeout <= 0 {
		return 0
	}
	floor := time.Duration(cfg.Telegram.PollTimeout+10) * time.Second
	if timeout < floor {
		return floor
	}
	return timeout
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "fileslink.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("bot_token_present", strings.TrimSpace(cfg.Telegram.BotToken) != ""),
		logging.Int64("storage_channel_id", cfg.Telegram.StorageChannelID),
		logging.String("http_bind", cfg.HTTP.Bind),
		logging.String("file_domain", cfg.HTTP.FileDomain),
		logging.Bool("files_route", cfg.HTTP.EnableFilesRoute),
		logging.Bool("proxy_configured", strings.TrimSpace(cfg.Proxy.URL) != ""),
		logging.Bool("allow_all", cfg.Access.AllowAll),
		logging.Int("access_chats", len(cfg.Access.Chats)),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("metrics_enabled", cfg.Metrics.Enabled),
		logging.String("mirror_path", cfg.MirrorPath()),
	)
}
