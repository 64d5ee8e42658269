package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal state of one ingestion attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Attempt is one journal row.
type Attempt struct {
	ID         int64
	JobID      string
	Summary    string
	SourceKind string
	Outcome    Outcome
	UniqueID   string
	FileName   string
	FileSize   int64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration reports how long the attempt ran.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.Before(a.StartedAt) {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Stats aggregates attempt outcomes.
type Stats struct {
	Succeeded int
	Failed    int
}

// Total returns the number of recorded attempts.
func (s Stats) Total() int { return s.Succeeded + s.Failed }

// Record appends an attempt and returns its row id.
func (s *Store) Record(ctx context.Context, a Attempt) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(a.JobID) == "" {
		return 0, fmt.Errorf("record attempt: job id is required")
	}
	if a.Outcome != OutcomeSucceeded && a.Outcome != OutcomeFailed {
		return 0, fmt.Errorf("record attempt: unknown outcome %q", a.Outcome)
	}
	if a.FinishedAt.IsZero() {
		a.FinishedAt = time.Now()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = a.FinishedAt
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO attempts (
                job_id, summary, source_kind, outcome, unique_id, file_name,
                file_size, error_message, started_at, finished_at, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.JobID,
			a.Summary,
			a.SourceKind,
			string(a.Outcome),
			nullableString(a.UniqueID),
			nullableString(a.FileName),
			a.FileSize,
			nullableString(a.Error),
			formatTime(a.StartedAt),
			formatTime(a.FinishedAt),
			a.Duration().Milliseconds(),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, summary, source_kind, outcome, unique_id, file_name,
                file_size, error_message, started_at, finished_at
           FROM attempts
          ORDER BY finished_at DESC, id DESC
          LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// Stats counts attempts by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM attempts GROUP BY outcome")
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch Outcome(outcome) {
		case OutcomeSucceeded:
			stats.Succeeded = count
		case OutcomeFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (Attempt, error) {
	var (
		a                           Attempt
		outcome                     string
		uniqueID, fileName, errText sql.NullString
		started, finished           string
	)
	if err := row.Scan(&a.ID, &a.JobID, &a.Summary, &a.SourceKind, &outcome, &uniqueID, &fileName,
		&a.FileSize, &errText, &started, &finished); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Outcome = Outcome(outcome)
	a.UniqueID = uniqueID.String
	a.FileName = fileName.String
	a.Error = errText.String
	a.StartedAt = parseTime(started)
	a.FinishedAt = parseTime(finished)
	return a, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// timeLayout keeps a fixed fraction width so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
