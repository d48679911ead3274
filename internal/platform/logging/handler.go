package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

var (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// 模块标签对应的控制台颜色
var tagColors = map[string]string{
	"[Bootstrap]": "\x1b[96m",
	"[HTTP]":      "\x1b[95m",
	"[Voice]":     "\x1b[92m",
	"[Identify]":  "\x1b[32m",
	"[Command]":   "\x1b[34m",
	"[Auth]":      "\x1b[94m",
	"[Audit]":     "\x1b[97m",
	"[Store]":     "\x1b[35m",
	"[Trace]":     "\x1b[90m",
}

// consoleHandler 控制台彩色文本输出
type consoleHandler struct {
	writer  io.Writer
	level   slog.Level
	noColor bool
	mu      sync.Mutex
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	msg := r.Message

	var b strings.Builder
	if color, ok := h.tagColor(msg); ok {
		b.WriteString(h.paint(colorTime, "["+timeStr+"]"))
		b.WriteString(" ")
		b.WriteString(h.paint(color, msg))
	} else {
		b.WriteString(h.paint(colorTime, "["+timeStr+"]"))
		b.WriteString(" ")
		b.WriteString(h.paint(levelColor(r.Level), "["+r.Level.String()+"]"))
		b.WriteString(" ")
		b.WriteString(msg)
	}

	if r.NumAttrs() > 0 {
		b.WriteString(" {")
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteString("\n")

	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

func (h *consoleHandler) tagColor(msg string) (string, bool) {
	end := strings.IndexByte(msg, ']')
	if !strings.HasPrefix(msg, "[") || end < 0 {
		return "", false
	}
	color, ok := tagColors[msg[:end+1]]
	return color, ok
}

func (h *consoleHandler) paint(color, s string) string {
	if h.noColor {
		return s
	}
	return color + s + colorReset
}

func levelColor(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return colorDebug
	case slog.LevelInfo:
		return colorInfo
	case slog.LevelWarn:
		return colorWarn
	case slog.LevelError:
		return colorError
	default:
		return colorReset
	}
}
