package repo

import (
	"context"
	"fmt"

	"codepad/internal/assist"
	"codepad/internal/errors"
	"codepad/internal/extensions"
	"codepad/internal/terminal"
	"codepad/internal/workspace"

	"go.uber.org/zap"
)

// guard is one of the in-flight flags on Repository. Running code and asking
// the assistant are tracked separately, so a run can proceed while an
// explanation is pending.
type guard int

const (
	guardAssist guard = iota
	guardRun
)

func (r *Repository) flag(g guard) *bool {
	if g == guardRun {
		return &r.running
	}
	return &r.assisting
}

// begin claims guard g and returns the file the call works on. The service
// is called without holding the repository lock, so results are applied by
// id afterwards.
func (r *Repository) begin(g guard, id string) (workspace.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.assist == nil {
		return workspace.FileRecord{}, r.fail(errors.Internal("code intelligence is not configured"), "")
	}
	busy := r.flag(g)
	if *busy {
		msg := "assistant is busy"
		if g == guardRun {
			msg = "code is already running"
		}
		return workspace.FileRecord{}, r.fail(errors.Conflict(msg), "")
	}
	f, ok := r.files.Get(id)
	if !ok {
		return workspace.FileRecord{}, r.fail(errors.NotFound(fmt.Sprintf("file not found: %s", id)), "")
	}
	*busy = true
	return f, nil
}

func (r *Repository) end(g guard, action string, err error) {
	r.mu.Lock()
	*r.flag(g) = false
	r.mu.Unlock()

	r.metrics.Assist(action, err)
	if err != nil {
		r.logger.Warn("Assist call failed", zap.String("action", action), zap.Error(err))
	}
}

// Assisting reports whether a code intelligence call is in flight.
func (r *Repository) Assisting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assisting
}

// Running reports whether a run is in flight.
func (r *Repository) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run simulates executing a file and logs its output. While the live server
// is running, non-empty output is mirrored to it.
func (r *Repository) Run(ctx context.Context, id string) (output string, err error) {
	f, err := r.begin(guardRun, id)
	if err != nil {
		return "", err
	}
	defer func() { r.end(guardRun, "run", err) }()

	r.Emit(terminal.System, "> python "+f.Name)
	output, err = r.assist.Run(ctx, f.Content)
	if err != nil {
		r.Emit(terminal.Error, "Failed to execute code.")
		return "", err
	}
	r.Emit(terminal.Info, output)

	if output != "" {
		r.mu.Lock()
		if r.live.Running {
			r.live.Content = output
		}
		r.mu.Unlock()
	}
	return output, nil
}

func (r *Repository) Explain(ctx context.Context, id string) (text string, err error) {
	f, err := r.begin(guardAssist, id)
	if err != nil {
		return "", err
	}
	defer func() { r.end(guardAssist, "explain", err) }()

	text, err = r.assist.Explain(ctx, f.Content)
	if err != nil {
		r.Emit(terminal.Error, "Error connecting to AI Assistant.")
		return "", err
	}
	return text, nil
}

// Fix asks for corrected code. With apply set, the result replaces the file
// content.
func (r *Repository) Fix(ctx context.Context, id string, apply bool) (code string, err error) {
	f, err := r.begin(guardAssist, id)
	if err != nil {
		return "", err
	}
	defer func() { r.end(guardAssist, "fix", err) }()

	code, err = r.assist.Fix(ctx, f.Content)
	if err != nil {
		r.Emit(terminal.Error, "Error connecting to AI Assistant.")
		return "", err
	}
	if !apply {
		return code, nil
	}
	if err = r.apply(id, code); err != nil {
		return "", err
	}
	r.Emit(terminal.Success, "Code updated with AI fix.")
	return code, nil
}

// Format reformats a file in place. It needs the Prettier extension.
func (r *Repository) Format(ctx context.Context, id string) (code string, err error) {
	if err := r.requireExtension(extensions.PrettierPython); err != nil {
		return "", err
	}
	f, err := r.begin(guardAssist, id)
	if err != nil {
		return "", err
	}
	defer func() { r.end(guardAssist, "format", err) }()

	code, err = r.assist.Format(ctx, f.Content)
	if err != nil {
		r.Emit(terminal.Error, "Formatting failed.")
		return "", err
	}
	// apply logs its own rejection
	if err = r.apply(id, code); err != nil {
		return "", err
	}
	r.Emit(terminal.Success, "Code formatted successfully.")
	return code, nil
}

// Complete suggests text to insert at the end of the file.
func (r *Repository) Complete(ctx context.Context, id string) (suggestion string, err error) {
	f, err := r.begin(guardAssist, id)
	if err != nil {
		return "", err
	}
	defer func() { r.end(guardAssist, "complete", err) }()

	return r.assist.Complete(ctx, f.Content)
}

// Chat streams an answer to onChunk, using the given file as context.
func (r *Repository) Chat(ctx context.Context, id string, history []assist.Message, message string, onChunk func(string)) (err error) {
	f, err := r.begin(guardAssist, id)
	if err != nil {
		return err
	}
	defer func() { r.end(guardAssist, "chat", err) }()

	return r.assist.Chat(ctx, history, f.Content, message, onChunk)
}

// ApplyCode replaces a file's content with code taken from a chat answer.
func (r *Repository) ApplyCode(id, code string) error {
	if err := r.apply(id, code); err != nil {
		return err
	}
	r.Emit(terminal.Success, "Copilot code applied to editor.")
	return nil
}

func (r *Repository) apply(id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutate(func() error { return r.files.Edit(id, code) }); err != nil {
		return r.fail(err, "")
	}
	return nil
}
