// internal/commit/types.go
package commit

import (
	"time"

	"codepad/internal/workspace"
)

// Commit is an immutable full snapshot of the tracked files.
type Commit struct {
	hash      string
	parent    string
	message   string
	author    string
	timestamp time.Time
	files     []workspace.FileRecord
}

// Restore rebuilds a commit from persisted fields. The hash is taken as
// stored; files are copied.
func Restore(hash, parent, message, author string, timestamp time.Time, files []workspace.FileRecord) *Commit {
	return &Commit{
		hash:      hash,
		parent:    parent,
		message:   message,
		author:    author,
		timestamp: timestamp,
		files:     workspace.CopyAll(files),
	}
}

func (c *Commit) Hash() string         { return c.hash }
func (c *Commit) Parent() string       { return c.parent }
func (c *Commit) Message() string      { return c.message }
func (c *Commit) Author() string       { return c.author }
func (c *Commit) Timestamp() time.Time { return c.timestamp }

// Short is the abbreviated hash shown in logs.
func (c *Commit) Short() string {
	if len(c.hash) < 7 {
		return c.hash
	}
	return c.hash[:7]
}

// Files returns a copy of the snapshot.
func (c *Commit) Files() []workspace.FileRecord {
	return workspace.CopyAll(c.files)
}

// File looks up the snapshot entry for id.
func (c *Commit) File(id string) (workspace.FileRecord, bool) {
	for _, f := range c.files {
		if f.ID == id {
			return f.Copy(), true
		}
	}
	return workspace.FileRecord{}, false
}

// View is the serializable form of a commit used by the API.
type View struct {
	Hash      string                 `json:"hash"`
	Parent    string                 `json:"parent,omitempty"`
	Message   string                 `json:"message"`
	Author    string                 `json:"author"`
	Timestamp time.Time              `json:"timestamp"`
	Files     []workspace.FileRecord `json:"files"`
}

func (c *Commit) View() View {
	return View{
		Hash:      c.hash,
		Parent:    c.parent,
		Message:   c.message,
		Author:    c.author,
		Timestamp: c.timestamp,
		Files:     c.Files(),
	}
}
