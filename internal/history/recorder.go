package history

import (
	"context"
	"log/slog"

	"fileslink/internal/logging"
	"fileslink/internal/queue"
)

// Recorder journals every finished queue attempt.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder returns a queue observer that writes attempts to store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

func (r *Recorder) JobEnqueued(*queue.Job, int) {}

func (r *Recorder) QueueCleared(int) {}

func (r *Recorder) JobFinished(ctx context.Context, result queue.Result) {
	if r == nil || r.store == nil || result.Job == nil {
		return
	}
	attempt := Attempt{
		JobID:      result.Job.ID,
		Summary:    result.Job.Summary(),
		SourceKind: result.Job.Source().SourceKind(),
		Outcome:    OutcomeSucceeded,
		UniqueID:   result.Link.UniqueID,
		FileName:   result.Link.FileName,
		FileSize:   result.Link.FileSize,
		StartedAt:  result.StartedAt,
		FinishedAt: result.StartedAt.Add(result.Elapsed),
	}
	if result.Err != nil {
		attempt.Outcome = OutcomeFailed
		attempt.Error = result.Err.Error()
	}
	// The attempt is over; a cancelled worker context must not drop the row.
	if _, err := r.store.Record(context.WithoutCancel(ctx), attempt); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to journal attempt", "history_write_failed",
			logging.String(logging.FieldJobID, result.Job.ID),
			logging.Error(err),
		)
	}
}
