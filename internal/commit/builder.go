// internal/commit/builder.go
package commit

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strings"
	"time"

	"codepad/internal/errors"
	"codepad/internal/workspace"
)

// Builder assembles new commits. It never modifies its inputs.
type Builder struct {
	now func() time.Time
}

func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build snapshots the staged working files, then carries every other head
// file forward unchanged. Staged ids missing from the working set are skipped.
// head may be nil only for the initial commit.
func (b *Builder) Build(message, author string, workingSet []workspace.FileRecord, staged []string, head *Commit) (*Commit, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.ValidationError("commit message is required", nil)
	}

	byID := make(map[string]workspace.FileRecord, len(workingSet))
	for _, f := range workingSet {
		byID[f.ID] = f
	}

	taken := make(map[string]bool, len(staged))
	files := make([]workspace.FileRecord, 0, len(staged))
	for _, id := range staged {
		f, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		files = append(files, f.Copy())
		taken[id] = true
	}
	if len(files) == 0 {
		return nil, errors.ValidationError("nothing staged to commit", nil)
	}

	var parent string
	if head != nil {
		parent = head.hash
		for _, f := range head.files {
			if !taken[f.ID] {
				files = append(files, f.Copy())
			}
		}
	}

	c := &Commit{
		parent:    parent,
		message:   message,
		author:    author,
		timestamp: b.now(),
		files:     files,
	}
	c.hash = Hash(c)
	return c, nil
}

// Initial creates the root commit from a set of seed files.
func (b *Builder) Initial(message, author string, files []workspace.FileRecord) (*Commit, error) {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return b.Build(message, author, files, ids, nil)
}

// Hash derives the commit id from its parent, metadata and full snapshot.
func Hash(c *Commit) string {
	h := sha256.New()
	writeField(h, c.parent)
	writeField(h, c.author)
	writeField(h, c.message)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(c.timestamp.UnixNano()))
	h.Write(ts[:])
	for _, f := range c.files {
		writeField(h, f.ID)
		writeField(h, f.Name)
		writeField(h, f.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// length-prefixed so field boundaries can't be shifted
func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
