// internal/storage/state.go
package storage

import (
	"errors"
	"fmt"
	"time"

	"codepad/internal/commit"
	"codepad/internal/safe"
	"codepad/internal/workspace"

	"github.com/dgraph-io/badger/v4"
)

const workspaceKey = "current"

// WorkspaceState is the mutable part of a repository.
type WorkspaceState struct {
	Files    []workspace.FileRecord
	ActiveID string
	Staged   []string
	// Extensions is nil when the state predates extension tracking.
	Extensions []string
}

// State is everything needed to reopen a repository. History is newest first.
type State struct {
	Workspace WorkspaceState
	History   []*commit.Commit
}

// fileRef points at content kept in the safe.
type fileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Blob string `json:"blob"`
}

type commitRecord struct {
	Seq       int       `json:"seq"`
	Hash      string    `json:"hash"`
	Parent    string    `json:"parent"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Files     []fileRef `json:"files"`
}

func (c *commitRecord) GetID() string {
	return fmt.Sprintf("%020d", c.Seq)
}

type workspaceRecord struct {
	ID         string    `json:"id"`
	Files      []fileRef `json:"files"`
	ActiveID   string    `json:"active_id"`
	Staged     []string  `json:"staged"`
	Extensions []string  `json:"extensions"`
}

func (w *workspaceRecord) GetID() string {
	return w.ID
}

// StateStore persists repository state. Commits are keyed by their position
// in history so iteration order is commit order.
type StateStore struct {
	db        *badger.DB
	safe      *safe.Safe
	commits   *BadgerStore
	workspace *BadgerStore
}

func NewStateStore(db *badger.DB, contentSafe *safe.Safe) *StateStore {
	return &StateStore{
		db:        db,
		safe:      contentSafe,
		commits:   NewBadgerStore("commit"),
		workspace: NewBadgerStore("workspace"),
	}
}

// Load returns the saved state, or nil if nothing was saved yet.
func (s *StateStore) Load() (*State, error) {
	var state *State
	err := s.db.View(func(txn *badger.Txn) error {
		var ws workspaceRecord
		if err := s.workspace.GetTxn(txn, workspaceKey, &ws); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return fmt.Errorf("loading workspace: %w", err)
		}

		files, err := s.resolve(txn, ws.Files)
		if err != nil {
			return fmt.Errorf("loading workspace files: %w", err)
		}

		var records []commitRecord
		if err := s.commits.ListTxn(txn, &records); err != nil {
			return fmt.Errorf("loading history: %w", err)
		}

		history := make([]*commit.Commit, len(records))
		for i, rec := range records {
			if rec.Seq != i {
				return fmt.Errorf("history gap at %d (found seq %d)", i, rec.Seq)
			}
			snapshot, err := s.resolve(txn, rec.Files)
			if err != nil {
				return fmt.Errorf("loading commit %s: %w", rec.Hash, err)
			}
			c := commit.Restore(rec.Hash, rec.Parent, rec.Message, rec.Author, rec.Timestamp, snapshot)
			if commit.Hash(c) != rec.Hash {
				return fmt.Errorf("commit %s failed integrity check", rec.Hash)
			}
			history[len(records)-1-i] = c
		}

		state = &State{
			Workspace: WorkspaceState{
				Files:      files,
				ActiveID:   ws.ActiveID,
				Staged:     ws.Staged,
				Extensions: ws.Extensions,
			},
			History:   history,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Object describes where a file's content lives in the safe.
type Object struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Blob       string `json:"blob"`
	Stored     bool   `json:"stored"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed"`
}

// Objects reports the blob behind each file. Size and Compressed are only
// known for stored blobs.
func (s *StateStore) Objects(files []workspace.FileRecord) ([]Object, error) {
	objects := make([]Object, len(files))
	for i, f := range files {
		hash := safe.HashContent([]byte(f.Content))
		obj := Object{ID: f.ID, Name: f.Name, Blob: hash}

		stored, err := s.safe.Exists(hash)
		if err != nil {
			return nil, fmt.Errorf("checking blob for %s: %w", f.ID, err)
		}
		if stored {
			meta, err := s.safe.Meta(hash)
			if err != nil {
				return nil, fmt.Errorf("reading blob metadata for %s: %w", f.ID, err)
			}
			obj.Stored = true
			obj.Size = meta.Size
			obj.Compressed = meta.Compressed
		}
		objects[i] = obj
	}
	return objects, nil
}

// SaveWorkspace replaces the stored working set, active file and staging set.
func (s *StateStore) SaveWorkspace(ws WorkspaceState) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.putWorkspace(txn, ws)
	})
}

// AppendCommit stores c at position seq together with the workspace state
// that results from it, in one transaction.
func (s *StateStore) AppendCommit(c *commit.Commit, seq int, ws WorkspaceState) error {
	return s.db.Update(func(txn *badger.Txn) error {
		refs, err := s.store(txn, c.Files())
		if err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}

		rec := &commitRecord{
			Seq:       seq,
			Hash:      c.Hash(),
			Parent:    c.Parent(),
			Message:   c.Message(),
			Author:    c.Author(),
			Timestamp: c.Timestamp(),
			Files:     refs,
		}
		if err := s.commits.CreateTxn(txn, rec); err != nil {
			return fmt.Errorf("storing commit: %w", err)
		}

		return s.putWorkspace(txn, ws)
	})
}

func (s *StateStore) putWorkspace(txn *badger.Txn, ws WorkspaceState) error {
	refs, err := s.store(txn, ws.Files)
	if err != nil {
		return fmt.Errorf("storing workspace files: %w", err)
	}

	return s.workspace.PutTxn(txn, &workspaceRecord{
		ID:         workspaceKey,
		Files:      refs,
		ActiveID:   ws.ActiveID,
		Staged:     ws.Staged,
		Extensions: ws.Extensions,
	})
}

func (s *StateStore) store(txn *badger.Txn, files []workspace.FileRecord) ([]fileRef, error) {
	refs := make([]fileRef, len(files))
	for i, f := range files {
		hash, err := s.safe.StoreTxn(txn, []byte(f.Content))
		if err != nil {
			return nil, err
		}
		refs[i] = fileRef{ID: f.ID, Name: f.Name, Blob: hash}
	}
	return refs, nil
}

func (s *StateStore) resolve(txn *badger.Txn, refs []fileRef) ([]workspace.FileRecord, error) {
	files := make([]workspace.FileRecord, len(refs))
	for i, ref := range refs {
		content, err := s.safe.GetTxn(txn, ref.Blob)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", ref.ID, err)
		}
		files[i] = workspace.FileRecord{ID: ref.ID, Name: ref.Name, Content: string(content)}
	}
	return files, nil
}
