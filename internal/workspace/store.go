// internal/workspace/store.go
package workspace

import (
	"fmt"
	"strings"

	"codepad/internal/errors"

	"github.com/google/uuid"
)

// FileStore owns the mutable working set. Iteration order is insertion order.
// It is not safe for concurrent use; the repository serializes access.
type FileStore struct {
	order []string
	files map[string]*FileRecord
	newID func() string
}

// NewFileStore creates a store seeded with the given records. Seed ids must
// be unique and non-empty.
func NewFileStore(seed []FileRecord) (*FileStore, error) {
	s := &FileStore{
		files: make(map[string]*FileRecord, len(seed)),
		newID: func() string { return uuid.New().String() },
	}
	for _, f := range seed {
		if f.ID == "" {
			return nil, fmt.Errorf("seed file %q has no id", f.Name)
		}
		if _, ok := s.files[f.ID]; ok {
			return nil, fmt.Errorf("duplicate file id: %s", f.ID)
		}
		rec := f.Copy()
		s.files[f.ID] = &rec
		s.order = append(s.order, f.ID)
	}
	return s, nil
}

// Create appends a new file with default content. It never fails.
func (s *FileStore) Create(name string) FileRecord {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}

	id := s.newID()
	for s.files[id] != nil {
		id = s.newID()
	}

	rec := &FileRecord{ID: id, Name: name, Content: DefaultContent}
	s.files[id] = rec
	s.order = append(s.order, id)
	return rec.Copy()
}

func (s *FileStore) Rename(id, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return errors.ValidationError("file name cannot be empty", map[string]string{"id": id})
	}
	rec, ok := s.files[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("file not found: %s", id))
	}
	rec.Name = newName
	return nil
}

func (s *FileStore) Edit(id, content string) error {
	rec, ok := s.files[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("file not found: %s", id))
	}
	rec.Content = content
	return nil
}

// Delete removes a file. The last remaining file cannot be deleted. Picking a
// new active file is up to the caller.
func (s *FileStore) Delete(id string) error {
	if _, ok := s.files[id]; !ok {
		return errors.NotFound(fmt.Sprintf("file not found: %s", id))
	}
	if len(s.order) <= 1 {
		return errors.ValidationError("cannot delete last file", map[string]string{"id": id})
	}

	delete(s.files, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *FileStore) Get(id string) (FileRecord, bool) {
	rec, ok := s.files[id]
	if !ok {
		return FileRecord{}, false
	}
	return rec.Copy(), true
}

func (s *FileStore) Contains(id string) bool {
	_, ok := s.files[id]
	return ok
}

// List returns deep copies of all files in insertion order.
func (s *FileStore) List() []FileRecord {
	out := make([]FileRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.files[id].Copy())
	}
	return out
}

// First returns the first file in insertion order.
func (s *FileStore) First() FileRecord {
	return s.files[s.order[0]].Copy()
}

func (s *FileStore) Len() int {
	return len(s.order)
}
