package repo

import (
	"testing"
	"time"

	"codepad/internal/errors"
	"codepad/internal/metrics"
	"codepad/internal/safe"
	"codepad/internal/storage"
	"codepad/internal/terminal"
	"codepad/internal/workspace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T, content string) (*Repository, *terminal.Buffer) {
	t.Helper()
	buf := terminal.NewBuffer(0)
	r, err := New(Options{
		Sink: buf,
		Seed: []workspace.FileRecord{{ID: "A", Name: "main.py", Content: content}},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, buf
}

func lastEntry(t *testing.T, buf *terminal.Buffer) terminal.Entry {
	t.Helper()
	entries := buf.Entries()
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}

func TestNew_SeedsInitialCommit(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)

	files := r.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "main.py", files[0].Name)
	assert.Equal(t, files[0].ID, r.Active().ID)

	log := r.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "Initial commit", log[0].Message())
	assert.Equal(t, "System", log[0].Author())
	assert.Empty(t, log[0].Parent())
	assert.Equal(t, files, log[0].Files())
}

func TestFileLifecycle(t *testing.T) {
	r, buf := setupRepo(t, "x")

	b, err := r.CreateFile("util.py")
	require.NoError(t, err)
	assert.Equal(t, workspace.DefaultContent, b.Content)
	assert.Equal(t, b.ID, r.Active().ID, "new file becomes active")

	c, err := r.CreateFile("")
	require.NoError(t, err)
	assert.Equal(t, workspace.DefaultName, c.Name)

	require.NoError(t, r.RenameFile(b.ID, "helpers.py"))
	require.NoError(t, r.EditFile(b.ID, "def f(): pass\n"))

	got, err := r.File(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "helpers.py", got.Name)
	assert.Equal(t, "def f(): pass\n", got.Content)

	err = r.RenameFile(b.ID, "  ")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, terminal.Error, lastEntry(t, buf).Severity)

	err = r.EditFile("missing", "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	ids := map[string]bool{}
	for _, f := range r.Files() {
		assert.False(t, ids[f.ID], "duplicate id %s", f.ID)
		ids[f.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestDeleteFile_MovesActive(t *testing.T) {
	r, _ := setupRepo(t, "x")

	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	require.Equal(t, b.ID, r.Active().ID)

	require.NoError(t, r.DeleteFile(b.ID))
	assert.Equal(t, "A", r.Active().ID)
	assert.Len(t, r.Files(), 1)
}

func TestDeleteFile_Last(t *testing.T) {
	r, buf := setupRepo(t, "x")

	err := r.DeleteFile("A")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Len(t, r.Files(), 1)

	entry := lastEntry(t, buf)
	assert.Equal(t, terminal.Error, entry.Severity)
	assert.Equal(t, "Cannot delete the last file.", entry.Text)
}

func TestDeleteFile_Unstages(t *testing.T) {
	r, _ := setupRepo(t, "x")

	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	added, err := r.Stage(b.ID)
	require.NoError(t, err)
	require.True(t, added)

	require.NoError(t, r.DeleteFile(b.ID))
	assert.Empty(t, r.Status().Staged)

	_, err = r.Commit("nothing left")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestDeleteFile_KeepsHistory(t *testing.T) {
	r, _ := setupRepo(t, "x")

	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	_, err = r.Stage(b.ID)
	require.NoError(t, err)
	p, err := r.Commit("add b")
	require.NoError(t, err)
	<-p.Done()

	require.NoError(t, r.DeleteFile(b.ID))
	_, ok := r.Head().File(b.ID)
	assert.True(t, ok, "deleting a working file never removes it from history")
	assert.Empty(t, r.Status().Modified)
}

func TestSelectFile(t *testing.T) {
	r, _ := setupRepo(t, "x")
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	require.NoError(t, r.SelectFile("A"))
	assert.Equal(t, "A", r.Active().ID)

	require.NoError(t, r.UpdateActive("y"))
	got, err := r.File("A")
	require.NoError(t, err)
	assert.Equal(t, "y", got.Content)

	err = r.SelectFile("nope")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Equal(t, "A", r.Active().ID)

	_, err = r.File(b.ID)
	assert.NoError(t, err)
}

func TestResolve(t *testing.T) {
	r, _ := setupRepo(t, "x")
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	f, err := r.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, "A", f.ID)

	f, err = r.Resolve("b.py")
	require.NoError(t, err)
	assert.Equal(t, b.ID, f.ID)

	f, err = r.Resolve(b.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, b.ID, f.ID)

	_, err = r.Resolve("zzz.py")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = r.CreateFile("b.py")
	require.NoError(t, err)
	_, err = r.Resolve("b.py")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestStatus_Partition(t *testing.T) {
	r, _ := setupRepo(t, "x")
	require.NoError(t, r.EditFile("A", "y"))
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	c, err := r.CreateFile("c.py")
	require.NoError(t, err)
	_, err = r.Stage(c.ID)
	require.NoError(t, err)

	snap := r.Status()
	require.Len(t, snap.Modified, 1)
	assert.Equal(t, "A", snap.Modified[0].ID)
	require.Len(t, snap.Untracked, 2)
	assert.Equal(t, b.ID, snap.Untracked[0].ID)
	require.Len(t, snap.Staged, 1)
	assert.Equal(t, c.ID, snap.Staged[0].ID)

	pending := make([]string, 0, len(snap.Pending))
	for _, f := range snap.Pending {
		pending = append(pending, f.ID)
	}
	assert.Equal(t, []string{"A", b.ID}, pending)
}

func TestStage_IgnoresUnchangedAndUnknown(t *testing.T) {
	r, _ := setupRepo(t, "x")

	added, err := r.Stage("A")
	require.NoError(t, err)
	assert.False(t, added, "unchanged file is not staged")

	added, err = r.Stage("ghost")
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, r.EditFile("A", "y"))
	added, err = r.Stage("A")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Stage("A")
	require.NoError(t, err)
	assert.False(t, added, "staging twice is a no-op")
}

func TestStageThenUnstage_RestoresStatus(t *testing.T) {
	r, _ := setupRepo(t, "x")
	require.NoError(t, r.EditFile("A", "y"))
	before := r.Status()

	_, err := r.Stage("A")
	require.NoError(t, err)
	removed, err := r.Unstage("A")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, before, r.Status())

	removed, err = r.Unstage("A")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStageAll(t *testing.T) {
	r, _ := setupRepo(t, "x")
	require.NoError(t, r.EditFile("A", "y"))
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	added, err := r.StageAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", b.ID}, added)
	assert.Empty(t, r.Status().Pending)
}

func TestStageIDs(t *testing.T) {
	r, _ := setupRepo(t, "x")
	require.NoError(t, r.EditFile("A", "y"))
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	added, err := r.StageIDs([]string{b.ID, "ghost", "A", b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, "A"}, added)

	staged := r.Status().Staged
	require.Len(t, staged, 2)
}

func TestStageIDs_SaveFailureStagesNothing(t *testing.T) {
	db, err := storage.OpenDB("", nil)
	require.NoError(t, err)
	contentSafe, err := safe.New(db, safe.Options{})
	require.NoError(t, err)

	r, err := New(Options{
		Store: storage.NewStateStore(db, contentSafe),
		Seed:  []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "x"}},
	})
	require.NoError(t, err)
	require.NoError(t, r.EditFile("A", "y"))
	b, err := r.CreateFile("b.py")
	require.NoError(t, err)

	require.NoError(t, db.Close())

	_, err = r.StageIDs([]string{"A", b.ID})
	require.Error(t, err)
	assert.Empty(t, r.Status().Staged)
	assert.Len(t, r.Files(), 2)
}

func TestDiff(t *testing.T) {
	r, _ := setupRepo(t, "a\nb\n")
	require.NoError(t, r.EditFile("A", "a\nc\n"))

	res, err := r.Diff("A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Additions)
	assert.Equal(t, 1, res.Stats.Deletions)

	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	res, err = r.Diff(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Deletions)
	assert.Positive(t, res.Stats.Additions)

	_, err = r.Diff("ghost")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestRebind(t *testing.T) {
	r, buf := setupRepo(t, "x")

	require.NoError(t, r.Rebind("kb-run", "Ctrl+R"))
	b, ok := r.Keymap().Lookup("Ctrl+R")
	require.True(t, ok)
	assert.Equal(t, "kb-run", b.ID)

	entry := lastEntry(t, buf)
	assert.Equal(t, terminal.System, entry.Severity)
	assert.Equal(t, "Shortcut updated: Ctrl+R", entry.Text)

	assert.Error(t, r.Rebind("nope", "Ctrl+Q"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r, err := New(Options{
		Metrics: m,
		Seed:    []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "x"}},
	})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.CreateFile("b.py")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WorkingFiles))

	_ = r.DeleteFile("ghost")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Rejections.WithLabelValues("NOT_FOUND")))
}

func openStore(t *testing.T, dir string) *storage.StateStore {
	t.Helper()
	db, err := storage.OpenDB(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	contentSafe, err := safe.New(db, safe.Options{CacheSize: 16})
	require.NoError(t, err)
	return storage.NewStateStore(db, contentSafe)
}

func TestPersistence_Reopen(t *testing.T) {
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	db, err := storage.OpenDB(dir, nil)
	require.NoError(t, err)
	contentSafe, err := safe.New(db, safe.Options{CacheSize: 16})
	require.NoError(t, err)

	r, err := New(Options{
		Store: storage.NewStateStore(db, contentSafe),
		Clock: clock,
		Seed:  []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "x"}},
	})
	require.NoError(t, err)

	require.NoError(t, r.EditFile("A", "y"))
	_, err = r.Stage("A")
	require.NoError(t, err)
	p, err := r.Commit("update")
	require.NoError(t, err)
	<-p.Done()

	b, err := r.CreateFile("b.py")
	require.NoError(t, err)
	_, err = r.Stage(b.ID)
	require.NoError(t, err)

	wantLog := r.Log()
	r.Close()
	require.NoError(t, db.Close())

	reopened, err := New(Options{Store: openStore(t, dir), Clock: clock})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, b.ID, reopened.Active().ID)
	require.Len(t, reopened.Files(), 2)
	assert.Equal(t, []workspace.FileRecord{{ID: b.ID, Name: "b.py", Content: workspace.DefaultContent}}, reopened.Status().Staged)

	gotLog := reopened.Log()
	require.Len(t, gotLog, len(wantLog))
	for i := range wantLog {
		assert.Equal(t, wantLog[i].Hash(), gotLog[i].Hash())
		assert.Equal(t, wantLog[i].Files(), gotLog[i].Files())
	}
	head, ok := reopened.Head().File("A")
	require.True(t, ok)
	assert.Equal(t, "y", head.Content)
}
