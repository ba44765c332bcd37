// internal/workspace/types.go
package workspace

// DefaultContent is what a freshly created file starts with.
const DefaultContent = "# New Python Script\n\n"

// DefaultName is used when a file is created without a name.
const DefaultName = "untitled.py"

// FileRecord is one logical file. The ID is assigned once at creation and
// survives renames and edits.
type FileRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Copy returns an independent value of the record.
func (f FileRecord) Copy() FileRecord {
	return FileRecord{ID: f.ID, Name: f.Name, Content: f.Content}
}

// CopyAll deep-copies a slice of records.
func CopyAll(files []FileRecord) []FileRecord {
	out := make([]FileRecord, len(files))
	for i, f := range files {
		out[i] = f.Copy()
	}
	return out
}
