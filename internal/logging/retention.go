package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes per-run log files in dir matching pattern whose last
// write is older than keepDays. The file at current is never removed, and a
// keepDays value of 0 disables pruning. It returns the number of files removed.
func PruneRunLogs(logger *slog.Logger, dir, pattern, current string, keepDays int) int {
	if keepDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	keep, _ := filepath.Abs(current)

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && abs == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old run log not removed", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on logging.log_dir"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
