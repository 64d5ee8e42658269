package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fileslink/internal/logging"
	"fileslink/internal/queue"
)

// QueueNotifier publishes failure alerts and drained-queue summaries from
// queue callbacks. Publishing runs on its own goroutine so a slow ntfy
// server never stalls the worker.
type QueueNotifier struct {
	service  Service
	logger   *slog.Logger
	minItems int
	timeout  time.Duration

	mu        sync.Mutex
	processed int
	failed    int
	started   time.Time
	wg        sync.WaitGroup
}

// NewQueueNotifier wraps service. A drain summary is sent once at least
// minItems jobs were stored since the queue was last empty.
func NewQueueNotifier(service Service, logger *slog.Logger, minItems int) *QueueNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if minItems < 1 {
		minItems = 1
	}
	return &QueueNotifier{
		service:  service,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		minItems: minItems,
		timeout:  30 * time.Second,
	}
}

func (q *QueueNotifier) JobEnqueued(_ *queue.Job, depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if depth == 1 && q.processed == 0 && q.failed == 0 {
		q.started = time.Now()
	}
}

func (q *QueueNotifier) JobFinished(_ context.Context, result queue.Result) {
	if !result.Succeeded() {
		q.mu.Lock()
		q.failed++
		q.mu.Unlock()
		summary := ""
		if result.Job != nil {
			summary = result.Job.Summary()
		}
		q.publish(EventIngestFailed, Payload{"summary": summary, "error": result.Err})
		return
	}

	q.mu.Lock()
	q.processed++
	if result.Remaining > 0 {
		q.mu.Unlock()
		return
	}
	processed, failed, started := q.processed, q.failed, q.started
	q.processed, q.failed, q.started = 0, 0, time.Time{}
	q.mu.Unlock()

	if processed < q.minItems {
		return
	}
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	q.publish(EventQueueCompleted, Payload{"processed": processed, "failed": failed, "duration": elapsed})
}

func (q *QueueNotifier) QueueCleared(int) {
	q.mu.Lock()
	q.processed, q.failed, q.started = 0, 0, time.Time{}
	q.mu.Unlock()
}

// Wait blocks until in-flight publishes return.
func (q *QueueNotifier) Wait() {
	q.wg.Wait()
}

func (q *QueueNotifier) publish(event Event, payload Payload) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.service.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(q.logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}
