// Package terminal carries the structured log lines the editor shows in its
// terminal pane. The core only emits entries; rendering is left to sinks.
package terminal

import (
	"fmt"
	"time"
)

// Severity is the closed set of log entry kinds.
type Severity int

const (
	Info Severity = iota
	Success
	Error
	System
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Error:
		return "error"
	case System:
		return "system"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info":
		return Info, nil
	case "success":
		return Success, nil
	case "error":
		return Error, nil
	case "system":
		return System, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Text      string    `json:"text"`
}

// Sink receives log entries. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Emit(e Entry) { f(e) }

// Discard drops every entry.
var Discard Sink = SinkFunc(func(Entry) {})

type multi []Sink

func (m multi) Emit(e Entry) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans an entry out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}
