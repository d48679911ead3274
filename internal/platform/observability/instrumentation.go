package observability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// OperationStats 单个操作的累计统计
type OperationStats struct {
	Count    int64         `json:"count"`
	Errors   int64         `json:"errors"`
	Total    time.Duration `json:"total"`
	MaxSpent time.Duration `json:"max"`
}

var (
	statsMu sync.Mutex
	stats   = make(map[string]*OperationStats)
)

// StartSpan times an operation such as "voice.identify" and returns the
// function that closes the span with its outcome.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	start := time.Now()
	if logger != nil && cfg.Enabled {
		logger.LogAttrs(ctx, slog.LevelDebug, "[Trace] span start",
			slog.String("component", component),
			slog.String("operation", operation),
		)
	}

	return ctx, func(err error) {
		spent := time.Since(start)
		track(component+"."+operation, spent, err)

		if logger == nil || !cfg.Enabled {
			return
		}
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", spent),
		}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "[Trace] span end", attrs...)
	}
}

// RecordMetric emits a metric datapoint, e.g. identification candidate counts.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "[Trace] metric", attrs...)
}

func track(key string, spent time.Duration, err error) {
	statsMu.Lock()
	defer statsMu.Unlock()

	s, ok := stats[key]
	if !ok {
		s = &OperationStats{}
		stats[key] = s
	}
	s.Count++
	s.Total += spent
	if spent > s.MaxSpent {
		s.MaxSpent = spent
	}
	if err != nil {
		s.Errors++
	}
}

// Snapshot returns a copy of the span statistics whose key starts with prefix.
func Snapshot(prefix string) map[string]OperationStats {
	statsMu.Lock()
	defer statsMu.Unlock()

	out := make(map[string]OperationStats, len(stats))
	for k, v := range stats {
		if strings.HasPrefix(k, prefix) {
			out[k] = *v
		}
	}
	return out
}

// Reset clears span statistics.
func Reset() {
	statsMu.Lock()
	stats = make(map[string]*OperationStats)
	statsMu.Unlock()
}
