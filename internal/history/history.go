// Package history keeps the prepend-only list of commits.
package history

import (
	"fmt"
	"strings"

	"codepad/internal/commit"
	"codepad/internal/errors"
)

// History stores commits oldest first so Prepend is an append.
type History struct {
	commits []*commit.Commit
}

// New builds a history from commits given newest first.
func New(newestFirst ...*commit.Commit) *History {
	h := &History{commits: make([]*commit.Commit, 0, len(newestFirst))}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		h.commits = append(h.commits, newestFirst[i])
	}
	return h
}

func (h *History) Prepend(c *commit.Commit) {
	h.commits = append(h.commits, c)
}

// Head returns the newest commit.
func (h *History) Head() (*commit.Commit, error) {
	if len(h.commits) == 0 {
		return nil, errors.NotFound("history is empty")
	}
	return h.commits[len(h.commits)-1], nil
}

func (h *History) Len() int {
	return len(h.commits)
}

// List returns commits newest first.
func (h *History) List() []*commit.Commit {
	out := make([]*commit.Commit, len(h.commits))
	for i, c := range h.commits {
		out[len(h.commits)-1-i] = c
	}
	return out
}

// Find resolves a full hash or a unique prefix of at least 4 characters.
func (h *History) Find(ref string) (*commit.Commit, error) {
	if len(ref) < 4 {
		return nil, errors.ValidationError("commit reference too short", map[string]string{"ref": ref})
	}

	var match *commit.Commit
	for _, c := range h.commits {
		if !strings.HasPrefix(c.Hash(), ref) {
			continue
		}
		if match != nil {
			return nil, errors.ValidationError(fmt.Sprintf("ambiguous commit reference: %s", ref), nil)
		}
		match = c
	}
	if match == nil {
		return nil, errors.NotFound(fmt.Sprintf("commit not found: %s", ref))
	}
	return match, nil
}
