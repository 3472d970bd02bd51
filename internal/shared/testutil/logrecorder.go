// Package testutil holds helpers shared by the package tests: a recording
// slog handler and sample grids.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call. Attribute keys inside groups are
// flattened as "group.key".
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordLog struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record in memory. Loggers
// derived through With or WithGroup write to the same log.
type LogRecorder struct {
	log    *recordLog
	prefix string
	attrs  map[string]any
	t      testing.TB
}

// NewTestLogger returns a logger backed by a fresh LogRecorder. Records are
// echoed through t.Logf so they show up with -v.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{log: &recordLog{}, attrs: map[string]any{}, t: t}
	return slog.New(rec), rec
}

func (h *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})

	h.log.mu.Lock()
	h.log.records = append(h.log.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.log.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *LogRecorder) WithAttrs(as []slog.Attr) slog.Handler {
	next := h.derive(h.prefix)
	for _, a := range as {
		flatten(next.attrs, h.prefix, a)
	}
	return next
}

func (h *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(h.prefix + name + ".")
}

func (h *LogRecorder) derive(prefix string) *LogRecorder {
	attrs := make(map[string]any, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &LogRecorder{log: h.log, prefix: prefix, attrs: attrs, t: h.t}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// GetRecords returns a snapshot of everything logged so far
func (h *LogRecorder) GetRecords() []LogRecord {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	return append([]LogRecord(nil), h.log.records...)
}

func (h *LogRecorder) GetRecordsByLevel(level slog.Level) []LogRecord {
	return h.filter(func(r LogRecord) bool { return r.Level == level })
}

func (h *LogRecorder) Count() int {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	return len(h.log.records)
}

// ContainsMessage reports whether any record's message contains substr
func (h *LogRecorder) ContainsMessage(substr string) bool {
	return len(h.filter(func(r LogRecord) bool { return strings.Contains(r.Message, substr) })) > 0
}

func (h *LogRecorder) filter(keep func(LogRecord) bool) []LogRecord {
	var out []LogRecord
	for _, r := range h.GetRecords() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// AssertLogContains fails the test unless a record at level contains message
func AssertLogContains(t testing.TB, h *LogRecorder, level slog.Level, message string) {
	t.Helper()
	records := h.GetRecordsByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s log containing %q", level, message)
	for _, r := range records {
		t.Logf("  - %s", r.Message)
	}
}

// AssertLogAttr fails the test unless some record carries key=want. Integer
// attributes are stored as int64.
func AssertLogAttr(t testing.TB, h *LogRecorder, key string, want any) {
	t.Helper()
	for _, r := range h.GetRecords() {
		if got, ok := r.Attrs[key]; ok && got == want {
			return
		}
	}
	t.Errorf("no log with %s=%v", key, want)
}
