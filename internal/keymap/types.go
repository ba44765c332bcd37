// Package keymap maps key chords to editor actions.
package keymap

import "fmt"

// Action is the closed set of things a key binding can trigger.
type Action int

const (
	ActionRun Action = iota
	ActionExplain
	ActionFix
	ActionToggleSidebar
	ActionFocusGit
)

var actionNames = map[Action]string{
	ActionRun:           "run",
	ActionExplain:       "explain",
	ActionFix:           "fix",
	ActionToggleSidebar: "toggle_sidebar",
	ActionFocusGit:      "focus_git",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	v, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// View is the closed set of sidebar panels.
type View int

const (
	ViewExplorer View = iota
	ViewGit
	ViewChat
	ViewExtensions
	ViewSettings
)

var viewNames = [...]string{"explorer", "git", "chat", "extensions", "settings"}

func (v View) String() string {
	if v >= 0 && int(v) < len(viewNames) {
		return viewNames[v]
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// Next is the panel the sidebar toggle moves to.
func (v View) Next() View {
	switch v {
	case ViewExplorer:
		return ViewGit
	case ViewGit:
		return ViewChat
	case ViewChat:
		return ViewExtensions
	case ViewExtensions:
		return ViewSettings
	default:
		return ViewExplorer
	}
}

func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *View) UnmarshalText(text []byte) error {
	for i, name := range viewNames {
		if name == string(text) {
			*v = View(i)
			return nil
		}
	}
	return fmt.Errorf("unknown view %q", text)
}

// Binding ties a chord such as "Ctrl+Enter" to an action.
type Binding struct {
	ID     string `json:"id" yaml:"id"`
	Action Action `json:"action" yaml:"action"`
	Label  string `json:"label" yaml:"label"`
	Keys   string `json:"keys" yaml:"keys"`
}

// DefaultBindings returns a fresh copy of the built-in bindings.
func DefaultBindings() []Binding {
	return []Binding{
		{ID: "kb-run", Action: ActionRun, Label: "Run Code", Keys: "Ctrl+Enter"},
		{ID: "kb-explain", Action: ActionExplain, Label: "Explain Code", Keys: "Ctrl+Shift+E"},
		{ID: "kb-fix", Action: ActionFix, Label: "Fix Code", Keys: "Ctrl+Shift+F"},
		{ID: "kb-sidebar", Action: ActionToggleSidebar, Label: "Toggle Sidebar", Keys: "Ctrl+B"},
		{ID: "kb-git", Action: ActionFocusGit, Label: "Focus Source Control", Keys: "Ctrl+Shift+G"},
	}
}
