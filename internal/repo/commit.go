package repo

import (
	"context"
	"fmt"
	"time"

	"codepad/internal/commit"
	"codepad/internal/errors"
	"codepad/internal/storage"
	"codepad/internal/terminal"

	"go.uber.org/zap"
)

// Pending is a commit that is already in history but whose completion has
// not been announced yet.
type Pending struct {
	commit *commit.Commit
	done   chan struct{}
}

func (p *Pending) Commit() *commit.Commit {
	return p.commit
}

// Done is closed once the commit's success lines were logged and new commits
// are accepted again.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the commit completes or ctx is done. Cancelling ctx does
// not cancel the commit.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commit snapshots the staged files into a new head. Building, persisting,
// prepending and clearing the staging set happen as one step; the success
// lines are logged once the commit delay has elapsed. Only one commit may be
// in progress at a time.
func (r *Repository) Commit(message string) (*Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.committing {
		return nil, r.fail(errors.Conflict("commit already in progress"), "")
	}

	c, err := r.builder.Build(message, r.author, r.files.List(), r.staged.IDs(), r.head())
	if err != nil {
		return nil, r.fail(err, "")
	}

	if r.store != nil {
		next := r.workspaceState()
		next.Staged = nil
		if err := r.store.AppendCommit(c, r.history.Len(), next); err != nil {
			return nil, r.fail(fmt.Errorf("saving commit: %w", err), "Failed to save commit.")
		}
	}

	r.history.Prepend(c)
	r.staged.Clear()
	r.committing = true
	r.metrics.CommitAdded(r.history.Len())
	r.observe()

	r.logger.Info("Commit created",
		zap.String("hash", c.Hash()),
		zap.String("parent", c.Parent()),
		zap.Int("files", len(c.Files())))

	p := &Pending{commit: c, done: make(chan struct{})}
	r.inflight.Add(1)
	go r.complete(p)
	return p, nil
}

func (r *Repository) complete(p *Pending) {
	defer r.inflight.Done()

	time.Sleep(r.delay)

	c := p.commit
	r.Emit(terminal.Success, fmt.Sprintf("> git commit -m \"%s\"", c.Message()))
	r.Emit(terminal.Info, fmt.Sprintf("[master %s] %s", c.Short(), c.Message()))

	r.mu.Lock()
	r.committing = false
	r.mu.Unlock()
	close(p.done)
}

// Committing reports whether a commit is still in progress.
func (r *Repository) Committing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committing
}

func (r *Repository) Head() *commit.Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head()
}

// Log returns history newest first.
func (r *Repository) Log() []*commit.Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.List()
}

// Show resolves a commit by full hash or unique prefix.
func (r *Repository) Show(ref string) (*commit.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Find(ref)
}

// Objects reports the stored blob behind each file of a commit's snapshot.
func (r *Repository) Objects(ref string) ([]storage.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.history.Find(ref)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		return nil, errors.Internal("repository has no object store")
	}
	return r.store.Objects(c.Files())
}
