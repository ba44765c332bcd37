// Package repo ties the working set, staging area and commit history together
// behind a single lock. Every mutation of repository state goes through a
// Repository.
package repo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"codepad/internal/assist"
	"codepad/internal/change"
	"codepad/internal/commit"
	"codepad/internal/diff"
	"codepad/internal/errors"
	"codepad/internal/extensions"
	"codepad/internal/history"
	"codepad/internal/keymap"
	"codepad/internal/metrics"
	"codepad/internal/staging"
	"codepad/internal/storage"
	"codepad/internal/terminal"
	"codepad/internal/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultAuthor      = "User"
	DefaultCommitDelay = 500 * time.Millisecond

	systemAuthor   = "System"
	initialMessage = "Initial commit"
)

// DefaultSeed is the working set a fresh repository starts with.
func DefaultSeed() []workspace.FileRecord {
	return []workspace.FileRecord{{
		ID:   uuid.New().String(),
		Name: "main.py",
		Content: `def greet(name):
    return f"Hello, {name}!"

print(greet("World"))
`,
	}}
}

type Options struct {
	Author string
	// CommitDelay is how long a commit stays in progress. Zero completes
	// immediately.
	CommitDelay time.Duration
	Sink        terminal.Sink
	Logger      *zap.Logger
	// Store persists state when set. A saved state takes precedence over Seed.
	Store   *storage.StateStore
	Metrics *metrics.Collector
	Assist  assist.Service
	Keymap  *keymap.Keymap
	Clock   func() time.Time
	Seed    []workspace.FileRecord
	// Extensions are installed on a fresh repository, or on restored state
	// that predates extension tracking.
	Extensions []string
}

// Repository is the owned store of one simulated repository.
type Repository struct {
	mu sync.Mutex

	files    *workspace.FileStore
	staged   *staging.Area
	history  *history.History
	activeID string

	committing bool
	assisting  bool
	running    bool
	inflight   sync.WaitGroup

	extensions *extensions.Registry
	live       LiveServer

	author  string
	delay   time.Duration
	builder *commit.Builder
	differ  *diff.Engine
	clock   func() time.Time

	sink    terminal.Sink
	logger  *zap.Logger
	store   *storage.StateStore
	metrics *metrics.Collector
	assist  assist.Service
	keymap  *keymap.Keymap
}

// Snapshot is the classified view of the working set shown by status.
type Snapshot struct {
	Modified  []workspace.FileRecord `json:"modified"`
	Untracked []workspace.FileRecord `json:"untracked"`
	Staged    []workspace.FileRecord `json:"staged"`
	Pending   []workspace.FileRecord `json:"pending"`
}

// New opens a repository. With a store holding saved state, that state is
// restored; otherwise the seed files become the initial commit.
func New(opts Options) (*Repository, error) {
	if opts.Author == "" {
		opts.Author = DefaultAuthor
	}
	if opts.CommitDelay < 0 {
		opts.CommitDelay = 0
	}
	if opts.Sink == nil {
		opts.Sink = terminal.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Keymap == nil {
		opts.Keymap = keymap.New(nil)
	}

	r := &Repository{
		author:  opts.Author,
		delay:   opts.CommitDelay,
		builder: commit.NewBuilder(opts.Clock),
		differ:  diff.NewEngine(3),
		clock:   opts.Clock,
		sink:    opts.Sink,
		logger:  opts.Logger.Named("repo"),
		store:   opts.Store,
		metrics: opts.Metrics,
		assist:  opts.Assist,
		keymap:  opts.Keymap,

		extensions: extensions.New(opts.Extensions...),
	}

	if opts.Store != nil {
		state, err := opts.Store.Load()
		if err != nil {
			return nil, fmt.Errorf("loading repository state: %w", err)
		}
		if state != nil {
			if err := r.restore(state); err != nil {
				return nil, err
			}
			r.logger.Info("Repository restored",
				zap.Int("files", r.files.Len()),
				zap.Int("commits", r.history.Len()))
			r.observe()
			return r, nil
		}
	}

	seed := opts.Seed
	if len(seed) == 0 {
		seed = DefaultSeed()
	}
	if err := r.init(seed); err != nil {
		return nil, err
	}
	r.logger.Info("Repository initialized", zap.Int("files", r.files.Len()))
	r.observe()
	return r, nil
}

func (r *Repository) init(seed []workspace.FileRecord) error {
	files, err := workspace.NewFileStore(seed)
	if err != nil {
		return errors.ValidationError(err.Error(), nil)
	}

	initial, err := r.builder.Initial(initialMessage, systemAuthor, files.List())
	if err != nil {
		return fmt.Errorf("creating initial commit: %w", err)
	}

	r.files = files
	r.staged = staging.New()
	r.history = history.New(initial)
	r.activeID = files.First().ID

	if r.store != nil {
		if err := r.store.AppendCommit(initial, 0, r.workspaceState()); err != nil {
			return fmt.Errorf("saving initial commit: %w", err)
		}
	}
	return nil
}

func (r *Repository) restore(state *storage.State) error {
	if len(state.History) == 0 || len(state.Workspace.Files) == 0 {
		return errors.Internal("saved repository state is incomplete")
	}
	files, err := workspace.NewFileStore(state.Workspace.Files)
	if err != nil {
		return fmt.Errorf("restoring working set: %w", err)
	}

	r.files = files
	r.staged = staging.New(state.Workspace.Staged...)
	r.staged.Retain(files.Contains)
	r.history = history.New(state.History...)
	r.activeID = state.Workspace.ActiveID
	if !files.Contains(r.activeID) {
		r.activeID = files.First().ID
	}
	if state.Workspace.Extensions != nil {
		r.extensions.Set(state.Workspace.Extensions)
	}
	return nil
}

// Close waits for an in-flight commit to complete.
func (r *Repository) Close() {
	r.inflight.Wait()
}

// Author is the identity recorded on commits made through this repository.
func (r *Repository) Author() string {
	return r.author
}

// Emit writes an entry to the repository's log sink.
func (r *Repository) Emit(sev terminal.Severity, text string) {
	r.sink.Emit(terminal.Entry{Timestamp: r.clock(), Severity: sev, Text: text})
}

// fail logs a rejected operation and returns err unchanged.
func (r *Repository) fail(err error, text string) error {
	if text == "" {
		text = err.Error()
	}
	r.Emit(terminal.Error, text)
	r.metrics.Rejected(string(errors.As(err).Type))
	r.logger.Debug("Operation rejected", zap.Error(err))
	return err
}

func (r *Repository) observe() {
	r.metrics.Sizes(r.files.Len(), r.staged.Len(), r.history.Len())
}

func (r *Repository) workspaceState() storage.WorkspaceState {
	return storage.WorkspaceState{
		Files:      r.files.List(),
		ActiveID:   r.activeID,
		Staged:     r.staged.IDs(),
		Extensions: r.extensions.InstalledIDs(),
	}
}

// mutate applies fn and persists the result. If fn or persistence fails the
// in-memory state is rolled back.
func (r *Repository) mutate(fn func() error) error {
	prev := r.workspaceState()
	if err := fn(); err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.SaveWorkspace(r.workspaceState()); err != nil {
			r.rollback(prev)
			return fmt.Errorf("saving workspace: %w", err)
		}
	}
	r.observe()
	return nil
}

func (r *Repository) rollback(prev storage.WorkspaceState) {
	files, err := workspace.NewFileStore(prev.Files)
	if err != nil {
		r.logger.Error("Rollback failed", zap.Error(err))
		return
	}
	r.files = files
	r.staged = staging.New(prev.Staged...)
	r.activeID = prev.ActiveID
	r.extensions.Set(prev.Extensions)
}

func (r *Repository) head() *commit.Commit {
	// history is seeded at construction and only grows
	c, _ := r.history.Head()
	return c
}

func (r *Repository) classify() change.Status {
	return change.Classify(r.files.List(), r.head().Files())
}

// CreateFile adds a file with default content and makes it active.
func (r *Repository) CreateFile(name string) (workspace.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var created workspace.FileRecord
	err := r.mutate(func() error {
		created = r.files.Create(name)
		r.activeID = created.ID
		return nil
	})
	if err != nil {
		return workspace.FileRecord{}, err
	}
	r.logger.Debug("File created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (r *Repository) RenameFile(id, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutate(func() error { return r.files.Rename(id, newName) }); err != nil {
		return r.fail(err, "")
	}
	return nil
}

func (r *Repository) EditFile(id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutate(func() error { return r.files.Edit(id, content) }); err != nil {
		return r.fail(err, "")
	}
	return nil
}

// UpdateActive replaces the content of the active file.
func (r *Repository) UpdateActive(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.mutate(func() error { return r.files.Edit(r.activeID, content) }); err != nil {
		return r.fail(err, "")
	}
	return nil
}

// DeleteFile removes a file from the working set. Its staged mark goes with
// it, and if it was active the first remaining file becomes active. Copies
// inside commits are unaffected.
func (r *Repository) DeleteFile(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.mutate(func() error {
		if err := r.files.Delete(id); err != nil {
			return err
		}
		r.staged.Unstage(id)
		if r.activeID == id {
			r.activeID = r.files.First().ID
		}
		return nil
	})
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeValidation) {
			return r.fail(err, "Cannot delete the last file.")
		}
		return r.fail(err, "")
	}
	return nil
}

func (r *Repository) SelectFile(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.mutate(func() error {
		if !r.files.Contains(id) {
			return errors.NotFound(fmt.Sprintf("file not found: %s", id))
		}
		r.activeID = id
		return nil
	})
	if err != nil {
		return r.fail(err, "")
	}
	return nil
}

func (r *Repository) Active() workspace.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, _ := r.files.Get(r.activeID)
	return f
}

func (r *Repository) Files() []workspace.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files.List()
}

func (r *Repository) File(id string) (workspace.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files.Get(id)
	if !ok {
		return workspace.FileRecord{}, errors.NotFound(fmt.Sprintf("file not found: %s", id))
	}
	return f, nil
}

// Resolve finds a working file by exact id, exact name, or unique id prefix,
// in that order.
func (r *Repository) Resolve(ref string) (workspace.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files.Get(ref); ok {
		return f, nil
	}

	files := r.files.List()
	var byName []workspace.FileRecord
	for _, f := range files {
		if f.Name == ref {
			byName = append(byName, f)
		}
	}
	switch len(byName) {
	case 1:
		return byName[0], nil
	case 0:
	default:
		return workspace.FileRecord{}, errors.ValidationError(fmt.Sprintf("ambiguous file name: %s", ref), nil)
	}

	if ref != "" {
		var match *workspace.FileRecord
		for i := range files {
			if !strings.HasPrefix(files[i].ID, ref) {
				continue
			}
			if match != nil {
				return workspace.FileRecord{}, errors.ValidationError(fmt.Sprintf("ambiguous file reference: %s", ref), nil)
			}
			match = &files[i]
		}
		if match != nil {
			return *match, nil
		}
	}
	return workspace.FileRecord{}, errors.NotFound(fmt.Sprintf("file not found: %s", ref))
}

// Status classifies the working set against head. It is recomputed on every
// call.
func (r *Repository) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.classify()
	staged := r.staged.IDs()
	snap := Snapshot{
		Modified:  st.Modified,
		Untracked: st.Untracked,
		Pending:   st.Pending(staged),
	}
	for _, f := range r.files.List() {
		if r.staged.Has(f.ID) {
			snap.Staged = append(snap.Staged, f)
		}
	}
	return snap
}

// Stage marks a changed file for the next commit. Unknown, unchanged or
// already staged ids are ignored. Reports whether the staging set grew.
func (r *Repository) Stage(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added bool
	err := r.mutate(func() error {
		added = r.staged.Stage(id, r.classify())
		return nil
	})
	return added, err
}

// StageIDs stages several ids as one change and returns those newly staged.
func (r *Repository) StageIDs(ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	err := r.mutate(func() error {
		st := r.classify()
		for _, id := range ids {
			if r.staged.Stage(id, st) {
				added = append(added, id)
			}
		}
		return nil
	})
	return added, err
}

// StageAll stages every changed file and returns the ids newly staged.
func (r *Repository) StageAll() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	err := r.mutate(func() error {
		st := r.classify()
		for _, f := range st.Changed() {
			if r.staged.Stage(f.ID, st) {
				added = append(added, f.ID)
			}
		}
		return nil
	})
	return added, err
}

// Unstage removes id from the staging set. Reports whether it was staged.
func (r *Repository) Unstage(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed bool
	err := r.mutate(func() error {
		removed = r.staged.Unstage(id)
		return nil
	})
	return removed, err
}

// Diff compares the head version of a working file with its current content.
// Untracked files diff against empty content.
func (r *Repository) Diff(id string) (*diff.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files.Get(id)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("file not found: %s", id))
	}
	var old string
	if prev, ok := r.head().File(id); ok {
		old = prev.Content
	}
	return r.differ.Diff(old, f.Content), nil
}

// Bindings returns the current key bindings.
func (r *Repository) Bindings() []keymap.Binding {
	return r.keymap.Bindings()
}

// Keymap exposes the key bindings for dispatching.
func (r *Repository) Keymap() *keymap.Keymap {
	return r.keymap
}

// ResetBindings restores the default key bindings.
func (r *Repository) ResetBindings() {
	r.keymap.Reset()
	r.logger.Debug("Key bindings reset")
}

// Rebind assigns keys to a binding and announces it in the log.
func (r *Repository) Rebind(id, keys string) error {
	if err := r.keymap.Rebind(id, keys); err != nil {
		return r.fail(err, "")
	}
	r.Emit(terminal.System, "Shortcut updated: "+keys)
	return nil
}
