package queue

import (
	"context"
	"time"
)

// Link describes a stored artifact produced by a successful attempt.
type Link struct {
	UniqueID string
	FileName string
	FileSize int64
	URL      string
}

// Result is passed to observers after every attempt.
type Result struct {
	Job       *Job
	Link      Link
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
	// Remaining is the queue depth after the attempt settled.
	Remaining int
}

// Succeeded reports whether the attempt committed an artifact.
func (r Result) Succeeded() bool { return r.Err == nil }

// Observer follows queue activity. Callbacks run on the caller's goroutine
// and must not block for long.
type Observer interface {
	JobEnqueued(job *Job, depth int)
	JobFinished(ctx context.Context, result Result)
	QueueCleared(discarded int)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) JobEnqueued(*Job, int)               {}
func (NopObserver) JobFinished(context.Context, Result) {}
func (NopObserver) QueueCleared(int)                    {}

type multiObserver []Observer

// Observers fans callbacks out to each non-nil observer in order.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return NopObserver{}
	}
	return out
}

func (m multiObserver) JobEnqueued(job *Job, depth int) {
	for _, o := range m {
		o.JobEnqueued(job, depth)
	}
}

func (m multiObserver) JobFinished(ctx context.Context, result Result) {
	for _, o := range m {
		o.JobFinished(ctx, result)
	}
}

func (m multiObserver) QueueCleared(discarded int) {
	for _, o := range m {
		o.QueueCleared(discarded)
	}
}
