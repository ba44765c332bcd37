// internal/terminal/sinks.go
package terminal

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Buffer keeps the most recent entries in memory.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewBuffer creates a buffer holding at most limit entries; limit <= 0 means
// unbounded.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

func (b *Buffer) Emit(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if b.limit > 0 && len(b.entries) > b.limit {
		b.entries = append([]Entry(nil), b.entries[len(b.entries)-b.limit:]...)
	}
}

// Entries returns a copy, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Entry(nil), b.entries...)
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

// ZapSink mirrors entries into a zap logger. Error entries log at warn level:
// they describe rejected user actions, not faults of the process.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("terminal")}
}

func (z *ZapSink) Emit(e Entry) {
	fields := []zap.Field{
		zap.Stringer("severity", e.Severity),
		zap.Time("at", e.Timestamp),
	}
	if e.Severity == Error {
		z.logger.Warn(e.Text, fields...)
		return
	}
	z.logger.Info(e.Text, fields...)
}

var palette = map[Severity]*color.Color{
	Info:    color.New(color.FgWhite),
	Success: color.New(color.FgGreen),
	Error:   color.New(color.FgRed),
	System:  color.New(color.FgCyan, color.Bold),
}

// Render writes one colored line for e.
func Render(w io.Writer, e Entry) {
	c, ok := palette[e.Severity]
	if !ok {
		fmt.Fprintln(w, e.Text)
		return
	}
	c.Fprintln(w, e.Text)
}

// Writer renders every entry to w as it arrives.
func Writer(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		Render(w, e)
	})
}
