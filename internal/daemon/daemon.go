package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"fileslink/internal/config"
	"fileslink/internal/history"
	"fileslink/internal/logging"
	"fileslink/internal/metadata"
	"fileslink/internal/metrics"
	"fileslink/internal/queue"
	"fileslink/internal/retrieval"
)

// Poller consumes platform updates until ctx is cancelled.
type Poller interface {
	Run(ctx context.Context) error
}

// Resolver turns a link path into a downloadable payload.
type Resolver interface {
	Resolve(ctx context.Context, path string) (*retrieval.Payload, error)
}

// Drainer waits for background work started by queue callbacks.
type Drainer interface {
	Wait()
}

// Components are the collaborators the daemon runs. Files, Queue, and
// Retrieval are required.
type Components struct {
	Files     *metadata.Store
	History   *history.Store
	Queue     *queue.Manager
	Bot       Poller
	Retrieval Resolver
	Metrics   metrics.Metrics
	Drainers  []Drainer
}

// Daemon owns the process lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	c      Components
	server *httpServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	botWG   sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	QueueDepth   int    `json:"queue_depth"`
	Files        int    `json:"files"`
	Address      string `json:"address,omitempty"`
	MirrorPath   string `json:"mirror_path"`
	LockFilePath string `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, c Components) (*Daemon, error) {
	if cfg == nil || c.Files == nil || c.Queue == nil || c.Retrieval == nil {
		return nil, errors.New("daemon requires config, metadata store, queue, and retrieval service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		c:        c,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = newHTTPServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the queue worker, the HTTP
// server, and the bot poller.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fileslink daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.c.Queue.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start queue: %w", err)
	}
	if err := d.server.start(d.ctx); err != nil {
		d.c.Queue.Stop()
		d.abortStart()
		return err
	}
	if d.c.Bot != nil {
		d.botWG.Add(1)
		go d.runBot(d.ctx)
	}
	d.c.Metrics.SetArtifacts(d.c.Files.Len())

	d.running.Store(true)
	d.logger.Info("fileslink daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.address()),
		logging.Int("files", d.c.Files.Len()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

func (d *Daemon) runBot(ctx context.Context) {
	defer d.botWG.Done()
	err := d.c.Bot.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.ErrorWithContext(d.logger, "bot stopped", "bot_stopped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the bot token and network access"),
		)
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.botWG.Wait()
	d.c.Queue.Stop()
	d.server.stop()
	for _, drainer := range d.c.Drainers {
		drainer.Wait()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("fileslink daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.c.History != nil {
		return d.c.History.Close()
	}
	return nil
}

// Addr returns the bound HTTP address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.server.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		QueueDepth:   d.c.Queue.Depth(),
		Files:        d.c.Files.Len(),
		Address:      d.server.address(),
		MirrorPath:   d.c.Files.Path(),
		LockFilePath: d.lockPath,
	}
}
