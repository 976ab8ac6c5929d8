package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// Entry is the teed view of a log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	// Group is the accumulated dot-separated slog group name.
	Group string
	// Error is the value of the record's "error" attribute, if any.
	Error string
}

// EntryCallback receives every record at or above the tee threshold.
type EntryCallback func(Entry)

// TeeHandler wraps a base [slog.Handler] and tees records at or above minLevel
// to a callback. All records are forwarded to the base handler regardless of
// level; only the callback invocation is gated by minLevel.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	errAttr  string // "error" attribute added through WithAttrs
}

// NewTeeHandler creates a TeeHandler. A nil callback makes it a plain
// pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler; the tee threshold does not widen or
// narrow what is logged.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler, then invokes the callback
// when the record's level meets minLevel. The callback runs even if the base
// handler failed.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		entry := Entry{
			Time:    record.Time,
			Level:   record.Level,
			Message: record.Message,
			Group:   h.group,
			Error:   h.errAttr,
		}
		record.Attrs(func(a slog.Attr) bool {
			if a.Key == "error" {
				entry.Error = a.Value.String()
				return false
			}
			return true
		})
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Written to stderr, not slog, so a panicking callback cannot recurse.
					fmt.Fprintf(os.Stderr, "[logging] tee callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(entry)
		}()
	}

	return err
}

// WithAttrs returns a TeeHandler whose base handler carries attrs.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	next.base = h.base.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == "error" {
			next.errAttr = a.Value.String()
		}
	}
	return next
}

// WithGroup returns a TeeHandler whose base handler is wrapped with name.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.base = h.base.WithGroup(name)
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return next
}

func (h *TeeHandler) clone() *TeeHandler {
	c := *h
	return &c
}
