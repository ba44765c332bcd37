package repo

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codepad/internal/assist"
	"codepad/internal/errors"
	"codepad/internal/extensions"
	"codepad/internal/terminal"
	"codepad/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssist struct {
	reply string
	err   error
	// block, when set, is waited on before replying. blockOn limits it to
	// one action.
	block   chan struct{}
	blockOn string

	mu    sync.Mutex
	calls []string
}

func (f *fakeAssist) do(ctx context.Context, action, code string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, action+":"+code)
	f.mu.Unlock()
	if f.block != nil && (f.blockOn == "" || f.blockOn == action) {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeAssist) Run(ctx context.Context, code string) (string, error) {
	return f.do(ctx, "run", code)
}
func (f *fakeAssist) Explain(ctx context.Context, code string) (string, error) {
	return f.do(ctx, "explain", code)
}
func (f *fakeAssist) Fix(ctx context.Context, code string) (string, error) {
	return f.do(ctx, "fix", code)
}
func (f *fakeAssist) Format(ctx context.Context, code string) (string, error) {
	return f.do(ctx, "format", code)
}
func (f *fakeAssist) Complete(ctx context.Context, code string) (string, error) {
	return f.do(ctx, "complete", code)
}
func (f *fakeAssist) Chat(ctx context.Context, _ []assist.Message, fileContext, msg string, onChunk func(string)) error {
	reply, err := f.do(ctx, "chat", fileContext)
	if err != nil {
		return err
	}
	onChunk(reply)
	return nil
}

func setupAssistRepo(t *testing.T, svc assist.Service) (*Repository, *terminal.Buffer) {
	t.Helper()
	buf := terminal.NewBuffer(0)
	r, err := New(Options{
		Sink:       buf,
		Assist:     svc,
		Seed:       []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "print(1)"}},
		Extensions: []string{extensions.PrettierPython},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, buf
}

func texts(buf *terminal.Buffer) []string {
	var out []string
	for _, e := range buf.Entries() {
		out = append(out, e.Severity.String()+": "+e.Text)
	}
	return out
}

func TestRun(t *testing.T) {
	svc := &fakeAssist{reply: "1\n"}
	r, buf := setupAssistRepo(t, svc)

	out, err := r.Run(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
	assert.Equal(t, []string{"system: > python main.py", "info: 1\n"}, texts(buf))
	assert.Equal(t, []string{"run:print(1)"}, svc.calls)
	assert.False(t, r.Running())
}

func TestRun_Failure(t *testing.T) {
	r, buf := setupAssistRepo(t, &fakeAssist{err: stderrors.New("offline")})

	_, err := r.Run(context.Background(), "A")
	require.Error(t, err)
	assert.Equal(t, []string{"system: > python main.py", "error: Failed to execute code."}, texts(buf))

	f, _ := r.File("A")
	assert.Equal(t, "print(1)", f.Content, "failed assist leaves files untouched")
}

func TestFix(t *testing.T) {
	svc := &fakeAssist{reply: "print(2)"}
	r, buf := setupAssistRepo(t, svc)

	code, err := r.Fix(context.Background(), "A", false)
	require.NoError(t, err)
	assert.Equal(t, "print(2)", code)
	f, _ := r.File("A")
	assert.Equal(t, "print(1)", f.Content, "preview does not apply")

	_, err = r.Fix(context.Background(), "A", true)
	require.NoError(t, err)
	f, _ = r.File("A")
	assert.Equal(t, "print(2)", f.Content)
	assert.Equal(t, "success: Code updated with AI fix.", texts(buf)[len(buf.Entries())-1])
	assert.Len(t, r.Status().Modified, 1)
}

func TestFormat(t *testing.T) {
	r, buf := setupAssistRepo(t, &fakeAssist{reply: "print( 1 )"})

	_, err := r.Format(context.Background(), "A")
	require.NoError(t, err)
	f, _ := r.File("A")
	assert.Equal(t, "print( 1 )", f.Content)
	assert.Equal(t, []string{"success: Code formatted successfully."}, texts(buf))

	failing, fbuf := setupAssistRepo(t, &fakeAssist{err: stderrors.New("boom")})
	_, err = failing.Format(context.Background(), "A")
	require.Error(t, err)
	assert.Equal(t, []string{"error: Formatting failed."}, texts(fbuf))
}

func TestFormat_RequiresPrettier(t *testing.T) {
	svc := &fakeAssist{reply: "print( 1 )"}
	buf := terminal.NewBuffer(0)
	r, err := New(Options{
		Sink:   buf,
		Assist: svc,
		Seed:   []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "print(1)"}},
	})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Format(context.Background(), "A")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, svc.calls)
	assert.Equal(t, []string{"error: Prettier - Python extension is not installed"}, texts(buf))

	_, err = r.ToggleExtension(extensions.PrettierPython)
	require.NoError(t, err)
	_, err = r.Format(context.Background(), "A")
	require.NoError(t, err)
}

func TestFormat_FileDeletedMidCallLogsOnce(t *testing.T) {
	svc := &fakeAssist{reply: "print( 2 )", block: make(chan struct{})}
	r, buf := setupAssistRepo(t, svc)
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Format(context.Background(), b.ID)
		done <- err
	}()

	require.Eventually(t, r.Assisting, time.Second, time.Millisecond)
	require.NoError(t, r.DeleteFile(b.ID))
	close(svc.block)

	err = <-done
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Equal(t, []string{"error: file not found: " + b.ID}, texts(buf))
}

func TestExplainCompleteChat(t *testing.T) {
	svc := &fakeAssist{reply: "answer"}
	r, _ := setupAssistRepo(t, svc)

	text, err := r.Explain(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	text, err = r.Complete(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	var chunks []string
	err = r.Chat(context.Background(), "A", nil, "hi", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"answer"}, chunks)
	assert.Equal(t, "chat:print(1)", svc.calls[len(svc.calls)-1])
}

func TestAssist_Busy(t *testing.T) {
	svc := &fakeAssist{reply: "ok", block: make(chan struct{})}
	r, _ := setupAssistRepo(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := r.Explain(context.Background(), "A")
		done <- err
	}()

	require.Eventually(t, r.Assisting, time.Second, time.Millisecond)

	_, err := r.Fix(context.Background(), "A", true)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	close(svc.block)
	require.NoError(t, <-done)
	assert.False(t, r.Assisting())
}

func TestRun_WhileAssistantBusy(t *testing.T) {
	svc := &fakeAssist{reply: "ok", block: make(chan struct{}), blockOn: "explain"}
	r, _ := setupAssistRepo(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := r.Explain(context.Background(), "A")
		done <- err
	}()
	require.Eventually(t, r.Assisting, time.Second, time.Millisecond)

	out, err := r.Run(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.False(t, r.Running())
	assert.True(t, r.Assisting())

	close(svc.block)
	require.NoError(t, <-done)
}

func TestRun_Busy(t *testing.T) {
	svc := &fakeAssist{reply: "ok", block: make(chan struct{}), blockOn: "run"}
	r, _ := setupAssistRepo(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "A")
		done <- err
	}()
	require.Eventually(t, r.Running, time.Second, time.Millisecond)

	_, err := r.Run(context.Background(), "A")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	_, err = r.Explain(context.Background(), "A")
	assert.NoError(t, err, "the assistant is free while code runs")

	close(svc.block)
	require.NoError(t, <-done)
	assert.False(t, r.Running())
}

func TestFix_FileDeletedMidCall(t *testing.T) {
	svc := &fakeAssist{reply: "print(2)", block: make(chan struct{})}
	r, _ := setupAssistRepo(t, svc)
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Fix(context.Background(), b.ID, true)
		done <- err
	}()

	require.Eventually(t, r.Assisting, time.Second, time.Millisecond)
	require.NoError(t, r.DeleteFile(b.ID))
	close(svc.block)

	err = <-done
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	f, _ := r.File("A")
	assert.Equal(t, "print(1)", f.Content)
}

func TestAssist_NotConfigured(t *testing.T) {
	r, _ := setupRepo(t, "x")
	_, err := r.Run(context.Background(), "A")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestApplyCode(t *testing.T) {
	r, buf := setupAssistRepo(t, &fakeAssist{})

	require.NoError(t, r.ApplyCode("A", "x = 1"))
	f, _ := r.File("A")
	assert.Equal(t, "x = 1", f.Content)
	assert.Equal(t, []string{"success: Copilot code applied to editor."}, texts(buf))

	assert.True(t, errors.IsType(r.ApplyCode("ghost", "y"), errors.ErrorTypeNotFound))
}
