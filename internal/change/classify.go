// internal/change/classify.go
package change

import (
	"codepad/internal/workspace"

	"github.com/samber/lo"
)

// Status is the classification of a working set against a head snapshot.
// Every working file appears in exactly one of the three lists, in working
// set order.
type Status struct {
	Modified  []workspace.FileRecord `json:"modified"`
	Untracked []workspace.FileRecord `json:"untracked"`
	Unchanged []workspace.FileRecord `json:"unchanged"`
}

// Classify compares each working file with the head entry of the same id.
// Only content counts; a rename alone leaves a file unchanged.
func Classify(workingSet []workspace.FileRecord, head []workspace.FileRecord) Status {
	index := lo.KeyBy(head, func(f workspace.FileRecord) string { return f.ID })

	var st Status
	for _, f := range workingSet {
		prev, tracked := index[f.ID]
		switch {
		case !tracked:
			st.Untracked = append(st.Untracked, f.Copy())
		case prev.Content != f.Content:
			st.Modified = append(st.Modified, f.Copy())
		default:
			st.Unchanged = append(st.Unchanged, f.Copy())
		}
	}
	return st
}

// Changed returns modified files followed by untracked ones.
func (s Status) Changed() []workspace.FileRecord {
	out := make([]workspace.FileRecord, 0, len(s.Modified)+len(s.Untracked))
	out = append(out, s.Modified...)
	return append(out, s.Untracked...)
}

// IsChanged reports whether id is modified or untracked.
func (s Status) IsChanged(id string) bool {
	_, ok := lo.Find(s.Changed(), func(f workspace.FileRecord) bool { return f.ID == id })
	return ok
}

// Pending returns the changed files that are not staged.
func (s Status) Pending(staged []string) []workspace.FileRecord {
	return lo.Reject(s.Changed(), func(f workspace.FileRecord, _ int) bool {
		return lo.Contains(staged, f.ID)
	})
}
