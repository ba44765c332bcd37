// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
	OldNum  int      `json:"old_num,omitempty"`
	NewNum  int      `json:"new_num,omitempty"`
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

func (t LineType) String() string {
	switch t {
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	default:
		return "context"
	}
}

func (t LineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Stats summarizes a diff.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// Result contains the complete diff information
type Result struct {
	Hunks []Hunk `json:"hunks"`
	Stats Stats  `json:"stats"`
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Lines    []Line `json:"lines"`
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// maxCells caps the LCS table. A changed region needing more is shown as a
// whole replacement.
const maxCells = 1 << 22

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent string) *Result {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	// only the region between the common prefix and suffix needs the table
	pre := 0
	for pre < len(oldLines) && pre < len(newLines) && oldLines[pre] == newLines[pre] {
		pre++
	}
	suf := 0
	for suf < len(oldLines)-pre && suf < len(newLines)-pre &&
		oldLines[len(oldLines)-1-suf] == newLines[len(newLines)-1-suf] {
		suf++
	}

	var script []Line
	for k := 0; k < pre; k++ {
		script = append(script, Line{Type: Context, Content: oldLines[k], OldNum: k + 1, NewNum: k + 1})
	}
	script = append(script, e.editScript(oldLines[pre:len(oldLines)-suf], newLines[pre:len(newLines)-suf], pre)...)
	for k := suf; k > 0; k-- {
		i, j := len(oldLines)-k, len(newLines)-k
		script = append(script, Line{Type: Context, Content: oldLines[i], OldNum: i + 1, NewNum: j + 1})
	}

	result := &Result{Hunks: e.group(script)}
	for _, l := range script {
		switch l.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// computeLCS creates a suffix matrix for longest common subsequence
func (e *Engine) computeLCS(oldLines, newLines []string) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				matrix[i][j] = matrix[i+1][j+1] + 1
			} else {
				matrix[i][j] = max(matrix[i+1][j], matrix[i][j+1])
			}
		}
	}

	return matrix
}

// editScript diffs a changed region starting offset lines into both files,
// emitting deletions before additions for each run of changes.
func (e *Engine) editScript(oldLines, newLines []string, offset int) []Line {
	var script []Line
	if len(oldLines)*len(newLines) > maxCells {
		for i, l := range oldLines {
			script = append(script, Line{Type: Deletion, Content: l, OldNum: offset + i + 1})
		}
		for j, l := range newLines {
			script = append(script, Line{Type: Addition, Content: l, NewNum: offset + j + 1})
		}
		return script
	}

	lcs := e.computeLCS(oldLines, newLines)
	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j]:
			script = append(script, Line{Type: Context, Content: oldLines[i], OldNum: offset + i + 1, NewNum: offset + j + 1})
			i++
			j++
		case i < len(oldLines) && (j == len(newLines) || lcs[i+1][j] >= lcs[i][j+1]):
			script = append(script, Line{Type: Deletion, Content: oldLines[i], OldNum: offset + i + 1})
			i++
		default:
			script = append(script, Line{Type: Addition, Content: newLines[j], NewNum: offset + j + 1})
			j++
		}
	}
	return script
}

// group cuts the edit script into hunks, keeping contextLines of unchanged
// lines around each change and merging hunks whose context overlaps.
func (e *Engine) group(script []Line) []Hunk {
	var hunks []Hunk
	var current *Hunk
	lastChange := -1

	for idx, l := range script {
		if l.Type == Context {
			continue
		}

		start := max(0, idx-e.contextLines)
		if current != nil && start <= lastChange+e.contextLines+1 {
			start = lastChange + 1
		} else {
			if current != nil {
				e.closeHunk(current, script, lastChange)
				hunks = append(hunks, *current)
			}
			current = &Hunk{}
		}

		for k := start; k <= idx; k++ {
			current.Lines = append(current.Lines, script[k])
		}
		lastChange = idx
	}

	if current != nil {
		e.closeHunk(current, script, lastChange)
		hunks = append(hunks, *current)
	}

	for i := range hunks {
		hunks[i].count()
	}
	return hunks
}

func (e *Engine) closeHunk(h *Hunk, script []Line, lastChange int) {
	end := min(len(script)-1, lastChange+e.contextLines)
	for k := lastChange + 1; k <= end; k++ {
		if script[k].Type != Context {
			break
		}
		h.Lines = append(h.Lines, script[k])
	}
}

func (h *Hunk) count() {
	h.OldLines, h.NewLines = 0, 0
	h.OldStart, h.NewStart = 0, 0
	for _, l := range h.Lines {
		if l.Type != Addition {
			h.OldLines++
			if h.OldStart == 0 {
				h.OldStart = l.OldNum
			}
		}
		if l.Type != Deletion {
			h.NewLines++
			if h.NewStart == 0 {
				h.NewStart = l.NewNum
			}
		}
	}
}

// Empty reports whether there is nothing to show.
func (r *Result) Empty() bool {
	return len(r.Hunks) == 0
}

// Format returns a string representation of the diff
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
