// Package remote simulates push and pull. Nothing is transferred: the calls
// only print the lines a real sync would print.
package remote

import (
	"context"
	"time"

	"codepad/internal/terminal"
)

const DefaultURL = "https://github.com/user/project.git"

type Options struct {
	URL       string
	PushDelay time.Duration
	PullDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		URL:       DefaultURL,
		PushDelay: time.Second,
		PullDelay: 800 * time.Millisecond,
	}
}

// Simulator holds no repository state, so it cannot change any.
type Simulator struct {
	opts Options
	sink terminal.Sink
	now  func() time.Time
}

func New(opts Options, sink terminal.Sink) *Simulator {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if sink == nil {
		sink = terminal.Discard
	}
	return &Simulator{opts: opts, sink: sink, now: time.Now}
}

// Push prints the push command immediately and the transfer summary after
// the push delay.
func (s *Simulator) Push(ctx context.Context) error {
	s.emit(terminal.System, "> git push origin main")
	if err := s.wait(ctx, s.opts.PushDelay); err != nil {
		return err
	}
	s.emit(terminal.Info, "Enumerating objects: 5, done.")
	s.emit(terminal.Info, "Writing objects: 100% (3/3), 283 bytes | 283.00 KiB/s, done.")
	s.emit(terminal.Info, "To "+s.opts.URL)
	s.emit(terminal.Success, "   34a2...5b1  main -> main")
	return nil
}

func (s *Simulator) Pull(ctx context.Context) error {
	s.emit(terminal.System, "> git pull origin main")
	if err := s.wait(ctx, s.opts.PullDelay); err != nil {
		return err
	}
	s.emit(terminal.Info, "Already up to date.")
	return nil
}

func (s *Simulator) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Simulator) emit(sev terminal.Severity, text string) {
	s.sink.Emit(terminal.Entry{Timestamp: s.now(), Severity: sev, Text: text})
}
