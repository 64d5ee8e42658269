package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileslink/internal/logging"
	"fileslink/internal/services"
	"fileslink/internal/telegram"
)

// Processor runs one ingestion attempt for a job.
type Processor interface {
	Process(ctx context.Context, job *Job) (Link, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job *Job) (Link, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, job *Job) (Link, error) { return f(ctx, job) }

// StatusEditor rewrites a progress message.
type StatusEditor interface {
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts telegram.SendOptions) error
}

// Options configures a Manager.
type Options struct {
	Logger   *slog.Logger
	Observer Observer
	// FailureRetryInterval re-signals the worker after a failed attempt.
	// Zero leaves a failed head waiting for the next Enqueue.
	FailureRetryInterval time.Duration
}

// Manager owns the pending job sequence and its single worker.
type Manager struct {
	processor Processor
	editor    StatusEditor
	logger    *slog.Logger
	observer  Observer
	retry     time.Duration

	mu   sync.Mutex
	jobs []*Job
	wake chan struct{}

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager constructs a Manager. The editor may be nil when progress
// messages are not wanted.
func NewManager(processor Processor, editor StatusEditor, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Manager{
		processor: processor,
		editor:    editor,
		logger:    logging.NewComponentLogger(logger, "queue"),
		observer:  observer,
		retry:     opts.FailureRetryInterval,
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue appends job at the tail and returns its 1-based position.
func (m *Manager) Enqueue(job *Job) (int, error) {
	if job == nil || job.source == nil {
		return 0, services.Wrap(services.ErrValidation, "queue", "enqueue", "job has no source", nil)
	}
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	depth := len(m.jobs)
	m.mu.Unlock()

	m.signal()
	m.observer.JobEnqueued(job, depth)
	m.logger.Debug("job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", job.source.SourceKind()),
		logging.Int("position", depth),
	)
	return depth, nil
}

// Snapshot returns the queue depth and up to limit summaries in queue order,
// each formatted "<pos>. <summary>".
func (m *Manager) Snapshot(limit int) (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.jobs)
	if limit < 0 || limit > total {
		limit = total
	}
	items := make([]string, 0, limit)
	for i, job := range m.jobs[:limit] {
		items = append(items, fmt.Sprintf("%d. %s", i+1, job.Summary()))
	}
	return total, items
}

// ClearAll discards every pending job and returns how many were removed.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	n := len(m.jobs)
	m.jobs = nil
	m.mu.Unlock()

	m.observer.QueueCleared(n)
	if n > 0 {
		m.logger.Info("queue cleared",
			logging.Int("discarded", n),
			logging.String(logging.FieldEventType, "queue_cleared"),
		)
	}
	return n
}

// Depth returns the number of pending jobs, including one in flight.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Start runs the worker in the background until Stop or ctx cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return errors.New("queue worker already running")
	}
	if m.processor == nil {
		return errors.New("queue processor not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		_ = m.Run(runCtx)
	}()
	return nil
}

// Stop cancels the worker and waits for the in-flight attempt to return.
func (m *Manager) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.cancel = nil
	m.runMu.Unlock()

	cancel()
	<-done
}

// Run processes jobs until ctx is cancelled. At most one attempt is in
// flight at any time.
func (m *Manager) Run(ctx context.Context) error {
	// Jobs queued before the worker started still need a pass.
	if m.Depth() > 0 {
		m.signal()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		}

		job := m.head()
		if job == nil {
			continue
		}
		m.processHead(ctx, job)
	}
}

func (m *Manager) processHead(ctx context.Context, job *Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithChatID(jobCtx, job.origin.ChatID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, m.logger)

	logger.Info("processing job",
		logging.String("summary", job.Summary()),
		logging.String("source", job.source.SourceKind()),
		logging.String(logging.FieldEventType, "job_started"),
	)

	started := time.Now()
	link, err := m.processor.Process(jobCtx, job)
	elapsed := time.Since(started)

	result := Result{Job: job, Link: link, Err: err, StartedAt: started, Elapsed: elapsed}
	if err != nil {
		result.Remaining = m.Depth()
		m.observer.JobFinished(jobCtx, result)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("job interrupted by shutdown", logging.Duration("elapsed", elapsed))
			return
		}
		logging.ErrorWithContext(logger, "job failed", "ingest_failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldErrorHint, "the job stays at the head of the queue until the next submission"),
		)
		m.scheduleRetry(ctx)
		return
	}

	next, remaining, removed := m.removeHead(job)
	result.Remaining = remaining
	m.observer.JobFinished(jobCtx, result)
	logger.Info("job completed",
		logging.String(logging.FieldUniqueID, link.UniqueID),
		logging.Duration("elapsed", elapsed),
		logging.Int("remaining", remaining),
		logging.String(logging.FieldEventType, "job_completed"),
	)
	if !removed {
		logger.Debug("queue changed during attempt; head left untouched")
	}
	if next == nil {
		return
	}
	m.announceRemaining(ctx, next, remaining)
	m.signal()
}

// removeHead drops job when it is still the head. A ClearAll during the
// attempt leaves the new sequence intact.
func (m *Manager) removeHead(job *Job) (*Job, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	if len(m.jobs) > 0 && m.jobs[0] == job {
		m.jobs[0] = nil
		m.jobs = m.jobs[1:]
		removed = true
	}
	var next *Job
	if len(m.jobs) > 0 {
		next = m.jobs[0]
	}
	return next, len(m.jobs), removed
}

func (m *Manager) announceRemaining(ctx context.Context, next *Job, remaining int) {
	if m.editor == nil {
		return
	}
	text := fmt.Sprintf("File processed. Remaining files in queue: %d", remaining)
	if err := m.editor.EditMessageText(ctx, next.status.ChatID, next.status.MessageID, text, telegram.SendOptions{}); err != nil {
		m.logger.Warn("queue progress update failed",
			logging.String(logging.FieldJobID, next.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "status_edit_failed"),
		)
	}
}

func (m *Manager) scheduleRetry(ctx context.Context) {
	if m.retry <= 0 {
		return
	}
	time.AfterFunc(m.retry, func() {
		if ctx.Err() == nil {
			m.signal()
		}
	})
}

func (m *Manager) head() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobs) == 0 {
		return nil
	}
	return m.jobs[0]
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
