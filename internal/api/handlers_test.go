package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codepad/internal/assist"
	"codepad/internal/commit"
	"codepad/internal/errors"
	"codepad/internal/extensions"
	"codepad/internal/keymap"
	"codepad/internal/remote"
	"codepad/internal/repo"
	"codepad/internal/safe"
	"codepad/internal/storage"
	"codepad/internal/terminal"
	"codepad/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssist struct {
	reply  string
	chunks []string
}

func (s *stubAssist) Run(context.Context, string) (string, error)      { return s.reply, nil }
func (s *stubAssist) Explain(context.Context, string) (string, error)  { return s.reply, nil }
func (s *stubAssist) Fix(context.Context, string) (string, error)      { return s.reply, nil }
func (s *stubAssist) Format(context.Context, string) (string, error)   { return s.reply, nil }
func (s *stubAssist) Complete(context.Context, string) (string, error) { return s.reply, nil }
func (s *stubAssist) Chat(_ context.Context, _ []assist.Message, _, _ string, onChunk func(string)) error {
	for _, c := range s.chunks {
		onChunk(c)
	}
	return nil
}

type testServer struct {
	mux  *http.ServeMux
	repo *repo.Repository
	logs *terminal.Buffer
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	logs := terminal.NewBuffer(100)
	r, err := repo.New(repo.Options{
		Sink:   logs,
		Assist: &stubAssist{reply: "out", chunks: []string{"Hel", "lo"}},
		Seed:   []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "x"}},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	sim := remote.New(remote.Options{}, logs)
	mux := http.NewServeMux()
	NewHandler(r, sim, logs, nil).Register(mux)
	return &testServer{mux: mux, repo: r, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestFiles(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/files", CreateFileRequest{Name: "b.py"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[workspace.FileRecord](t, rec)
	assert.Equal(t, "b.py", created.Name)

	rec = s.do(t, "GET", "/api/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decode[FilesResponse](t, rec)
	assert.Len(t, files.Files, 2)
	assert.Equal(t, created.ID, files.ActiveID)

	rec = s.do(t, "PUT", "/api/files/"+created.ID+"/content", EditFileRequest{Content: "print(2)"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "print(2)", decode[workspace.FileRecord](t, rec).Content)

	rec = s.do(t, "PUT", "/api/files/"+created.ID+"/name", RenameFileRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "POST", "/api/files/A/select", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A", decode[FilesResponse](t, rec).ActiveID)

	rec = s.do(t, "DELETE", "/api/files/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, "DELETE", "/api/files/A", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decode[errors.Error](t, rec)
	assert.Equal(t, errors.ErrorTypeValidation, e.Type)

	rec = s.do(t, "GET", "/api/files/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitFlow(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "PUT", "/api/files/A/content", EditFileRequest{Content: "y"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[repo.Snapshot](t, rec)
	require.Len(t, snap.Modified, 1)

	rec = s.do(t, "POST", "/api/commits", CommitRequest{Message: "m"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing staged")

	rec = s.do(t, "POST", "/api/stage", StageRequest{IDs: []string{"A"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"A"}, decode[StageResponse](t, rec).Staged)

	rec = s.do(t, "POST", "/api/commits", CommitRequest{Message: "m"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	created := decode[CommitResponse](t, rec)
	assert.Equal(t, created.Hash[:7], created.Short)

	rec = s.do(t, "GET", "/api/commits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	log := decode[[]commit.View](t, rec)
	require.Len(t, log, 2)
	assert.Equal(t, created.Hash, log[0].Hash)
	assert.Equal(t, log[1].Hash, log[0].Parent)

	rec = s.do(t, "GET", "/api/commits/"+created.Hash[:6], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m", decode[commit.View](t, rec).Message)

	rec = s.do(t, "POST", "/api/commits", CommitRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStageAllAndUnstage(t *testing.T) {
	s := setupServer(t)
	s.do(t, "POST", "/api/files", CreateFileRequest{Name: "b.py"})

	rec := s.do(t, "POST", "/api/stage/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[StageResponse](t, rec).Staged, 1)

	staged := s.repo.Status().Staged
	rec = s.do(t, "POST", "/api/unstage", StageRequest{IDs: []string{staged[0].ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[repo.Snapshot](t, rec).Staged)

	rec = s.do(t, "POST", "/api/stage", StageRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiff(t *testing.T) {
	s := setupServer(t)
	s.do(t, "PUT", "/api/files/A/content", EditFileRequest{Content: "y"})

	rec := s.do(t, "GET", "/api/files/A/diff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[DiffResponse](t, rec)
	assert.Equal(t, 1, d.Result.Stats.Additions)
	assert.Contains(t, d.Text, "+ y")
}

func TestPushPull(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/push", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		for _, e := range s.logs.Entries() {
			if e.Text == "   34a2...5b1  main -> main" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	rec = s.do(t, "POST", "/api/pull", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, s.repo.Log(), 1, "sync never touches history")
}

func TestAssistEndpoints(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/files/A/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out", decode[TextResponse](t, rec).Text)

	rec = s.do(t, "POST", "/api/files/A/fix", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, _ := s.repo.File("A")
	assert.Equal(t, "x", f.Content)

	rec = s.do(t, "POST", "/api/files/A/fix?apply=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, _ = s.repo.File("A")
	assert.Equal(t, "out", f.Content)

	rec = s.do(t, "POST", "/api/files/A/apply", ApplyRequest{Code: "z"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "z", decode[workspace.FileRecord](t, rec).Content)

	rec = s.do(t, "POST", "/api/files/ghost/explain", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/chat", ChatRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var chunks []ChatChunk
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var c ChatChunk
		require.NoError(t, json.Unmarshal(sc.Bytes(), &c))
		chunks = append(chunks, c)
	}
	assert.Equal(t, []ChatChunk{{Text: "Hel"}, {Text: "lo"}, {Done: true}}, chunks)

	rec = s.do(t, "POST", "/api/chat", ChatRequest{
		Message: "hi",
		History: []assist.Message{{Role: "robot", Text: "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeybindings(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "GET", "/api/keybindings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]keymap.Binding](t, rec), len(keymap.DefaultBindings()))

	rec = s.do(t, "PUT", "/api/keybindings/kb-run", RebindRequest{Keys: "Ctrl+R"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "POST", "/api/keys", DispatchRequest{Keys: "Ctrl+R"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[DispatchResponse](t, rec)
	assert.True(t, resp.Bound)
	assert.Equal(t, keymap.ActionRun, resp.Binding.Action)
	assert.Equal(t, "out", resp.Output)

	rec = s.do(t, "POST", "/api/keys", DispatchRequest{Keys: "Ctrl+B"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, keymap.ViewGit, decode[DispatchResponse](t, rec).View)

	rec = s.do(t, "POST", "/api/keys", DispatchRequest{Keys: "Ctrl+Q"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[DispatchResponse](t, rec).Bound)
}

func TestLogs(t *testing.T) {
	s := setupServer(t)
	s.do(t, "DELETE", "/api/files/A", nil)

	rec := s.do(t, "GET", "/api/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]terminal.Entry](t, rec)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, terminal.Error, last.Severity)
	assert.True(t, strings.HasPrefix(last.Text, "Cannot delete"))

	rec = s.do(t, "DELETE", "/api/logs", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.logs.Entries())
}

func TestRejectedRequestsAreLogged(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/commits", CommitRequest{Message: ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrorTypeValidation, decode[errors.Error](t, rec).Type)

	rec = s.do(t, "PUT", "/api/files/A/name", RenameFileRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs int
	for _, e := range s.logs.Entries() {
		if e.Severity == terminal.Error {
			errs++
		}
	}
	assert.Equal(t, 2, errs)
	assert.Len(t, s.repo.Log(), 1)
	f, _ := s.repo.File("A")
	assert.Equal(t, "main.py", f.Name)
}

func TestExtensionEndpoints(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "GET", "/api/extensions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]extensions.Extension](t, rec), len(extensions.Catalog()))

	rec = s.do(t, "POST", "/api/files/A/format", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "POST", "/api/extensions/prettier-python/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[extensions.Extension](t, rec).Installed)

	rec = s.do(t, "POST", "/api/files/A/format", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, _ := s.repo.File("A")
	assert.Equal(t, "out", f.Content)

	rec = s.do(t, "POST", "/api/extensions/ghost/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveServerEndpoints(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, "POST", "/api/live/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.do(t, "POST", "/api/extensions/live-server/toggle", nil)

	rec = s.do(t, "POST", "/api/live/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repo.LiveServer{Running: true, Content: "out"}, decode[repo.LiveServer](t, rec))

	rec = s.do(t, "GET", "/api/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[repo.LiveServer](t, rec).Running)
}

func TestObjectsEndpoint(t *testing.T) {
	db, err := storage.OpenDB("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	contentSafe, err := safe.New(db, safe.Options{})
	require.NoError(t, err)

	r, err := repo.New(repo.Options{
		Store: storage.NewStateStore(db, contentSafe),
		Seed:  []workspace.FileRecord{{ID: "A", Name: "main.py", Content: "x"}},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	mux := http.NewServeMux()
	NewHandler(r, remote.New(remote.Options{}, nil), terminal.NewBuffer(10), nil).Register(mux)
	s := &testServer{mux: mux, repo: r}

	rec := s.do(t, "GET", "/api/commits/"+r.Head().Hash()+"/objects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	objects := decode[[]storage.Object](t, rec)
	require.Len(t, objects, 1)
	assert.Equal(t, "main.py", objects[0].Name)
	assert.True(t, objects[0].Stored)
	assert.Equal(t, int64(1), objects[0].Size)

	rec = s.do(t, "GET", "/api/commits/zzzz/objects", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetBindingsEndpoint(t *testing.T) {
	s := setupServer(t)

	s.do(t, "PUT", "/api/keybindings/kb-run", RebindRequest{Keys: "Ctrl+R"})
	rec := s.do(t, "POST", "/api/keybindings/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, keymap.DefaultBindings(), decode[[]keymap.Binding](t, rec))
}
