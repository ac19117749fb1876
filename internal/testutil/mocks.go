package testutil

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Record is a flattened slog record kept by RecordingHandler.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]slog.Value
}

// RecordingHandler is an slog.Handler that keeps every record it receives.
// Handlers derived through WithAttrs share the same storage.
type RecordingHandler struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
	level   slog.Level
}

// NewRecordingHandler returns a handler that records records at or above level.
func NewRecordingHandler(level slog.Level) *RecordingHandler {
	return &RecordingHandler{
		mu:      &sync.Mutex{},
		records: &[]Record{},
		level:   level,
	}
}

// NewRecordingLogger returns a debug-level logger and the handler behind it.
func NewRecordingLogger() (*slog.Logger, *RecordingHandler) {
	h := NewRecordingHandler(slog.LevelDebug)
	return slog.New(h), h
}

func (h *RecordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *RecordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := Record{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]slog.Value, r.NumAttrs()+len(h.attrs)),
	}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RecordingHandler{mu: h.mu, records: h.records, attrs: merged, level: h.level}
}

// WithGroup is a no-op; groups are not used by taskrun loggers.
func (h *RecordingHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of everything recorded so far.
func (h *RecordingHandler) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(*h.records))
	copy(out, *h.records)
	return out
}

// Messages returns the messages of records at the given level.
func (h *RecordingHandler) Messages(level slog.Level) []string {
	var out []string
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

// ConcurrencyTracker records the peak number of simultaneously running callers.
type ConcurrencyTracker struct {
	current atomic.Int32
	peak    atomic.Int32
}

// Enter marks the start of a concurrent section and returns the matching exit func.
func (c *ConcurrencyTracker) Enter() func() {
	n := c.current.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { c.current.Add(-1) }
}

// Peak returns the highest concurrency observed.
func (c *ConcurrencyTracker) Peak() int32 {
	return c.peak.Load()
}
