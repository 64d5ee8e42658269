package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// leadKeys are written first, in this order, so the interesting part of a
// line survives terminal truncation.
var leadKeys = []string{
	FieldEventType,
	"error",
	FieldErrorHint,
	"file_name",
	"source",
	"file_size",
	"size",
	"bytes",
	"position",
	"elapsed",
	"link",
}

const maxErrorLen = 200

// orderFields returns attrs with the lead keys first and, unless verbose,
// without the identifiers operators only need while debugging.
func orderFields(attrs []kv, verbose bool) []kv {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	out := make([]kv, 0, len(attrs))
	for _, key := range leadKeys {
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			out = append(out, attr)
			break
		}
	}
	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		if !verbose && isDebugOnlyKey(attr.key) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "", FieldCorrelationID, FieldUserID, "file_id", "message_id", "attempt":
		return true
	}
	return strings.HasSuffix(key, "_path") && key != "mirror_path"
}

// consoleValue formats v for a console line, rendering byte counts and
// durations for people.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case isByteSizeKey(key) && v.Kind() == slog.KindInt64:
		if n := v.Int64(); n >= 0 {
			return quoteIfNeeded(humanize.IBytes(uint64(n)))
		}
	case isByteSizeKey(key) && v.Kind() == slog.KindUint64:
		return quoteIfNeeded(humanize.IBytes(v.Uint64()))
	case v.Kind() == slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case key == "error":
		return quoteIfNeeded(truncate(attrString(v), maxErrorLen))
	}
	return formatValue(v)
}

func isByteSizeKey(key string) bool {
	return key == "size" || key == "bytes" || strings.HasSuffix(key, "_size") || strings.HasSuffix(key, "_bytes")
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second)
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	default:
		return d.Round(time.Microsecond)
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}
