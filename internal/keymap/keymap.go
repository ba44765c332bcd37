// internal/keymap/keymap.go
package keymap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codepad/internal/errors"
)

// Modifiers held while a key is pressed.
type Modifiers struct {
	Ctrl, Meta, Alt, Shift bool
}

var modifierKeys = map[string]bool{"CONTROL": true, "SHIFT": true, "ALT": true, "META": true}

// Chord builds the canonical chord string: modifiers in Ctrl, Meta, Alt,
// Shift order, then the upper-cased key. A bare modifier press is not a
// chord and yields "".
func Chord(mods Modifiers, key string) string {
	main := strings.ToUpper(key)
	switch main {
	case "ENTER":
		main = "Enter"
	case " ":
		main = "Space"
	case "":
		return ""
	}
	if modifierKeys[main] {
		return ""
	}

	var keys []string
	if mods.Ctrl {
		keys = append(keys, "Ctrl")
	}
	if mods.Meta {
		keys = append(keys, "Meta")
	}
	if mods.Alt {
		keys = append(keys, "Alt")
	}
	if mods.Shift {
		keys = append(keys, "Shift")
	}
	return strings.Join(append(keys, main), "+")
}

// Keymap is a mutable, concurrency-safe set of bindings.
type Keymap struct {
	mu       sync.RWMutex
	bindings []Binding
}

func New(bindings []Binding) *Keymap {
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}
	return &Keymap{bindings: append([]Binding(nil), bindings...)}
}

func (k *Keymap) Bindings() []Binding {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]Binding(nil), k.bindings...)
}

// Lookup finds the binding for an exact chord.
func (k *Keymap) Lookup(keys string) (Binding, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, b := range k.bindings {
		if b.Keys == keys {
			return b, true
		}
	}
	return Binding{}, false
}

// Rebind assigns new keys to the binding with the given id.
func (k *Keymap) Rebind(id, keys string) error {
	if strings.TrimSpace(keys) == "" {
		return errors.ValidationError("keys cannot be empty", map[string]string{"id": id})
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range k.bindings {
		if k.bindings[i].ID == id {
			k.bindings[i].Keys = keys
			return nil
		}
	}
	return errors.NotFound(fmt.Sprintf("binding not found: %s", id))
}

// Replace swaps in a whole new set, falling back to defaults when empty.
func (k *Keymap) Replace(bindings []Binding) {
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}
	k.mu.Lock()
	k.bindings = append([]Binding(nil), bindings...)
	k.mu.Unlock()
}

func (k *Keymap) Reset() {
	k.Replace(nil)
}

// Handler runs an editor action.
type Handler func(ctx context.Context) error

// Dispatcher resolves chords to actions and tracks the sidebar view.
type Dispatcher struct {
	keymap   *Keymap
	handlers map[Action]Handler

	mu   sync.Mutex
	view View
}

func NewDispatcher(km *Keymap, handlers map[Action]Handler) *Dispatcher {
	return &Dispatcher{keymap: km, handlers: handlers, view: ViewExplorer}
}

func (d *Dispatcher) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

func (d *Dispatcher) SetView(v View) {
	d.mu.Lock()
	d.view = v
	d.mu.Unlock()
}

// Dispatch runs the action bound to keys. ok is false when nothing is bound.
// View actions are handled here; the rest go to the registered handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, keys string) (Binding, bool, error) {
	b, ok := d.keymap.Lookup(keys)
	if !ok {
		return Binding{}, false, nil
	}

	switch b.Action {
	case ActionToggleSidebar:
		d.mu.Lock()
		d.view = d.view.Next()
		d.mu.Unlock()
		return b, true, nil
	case ActionFocusGit:
		d.SetView(ViewGit)
		return b, true, nil
	}

	h, ok := d.handlers[b.Action]
	if !ok {
		return b, true, fmt.Errorf("no handler for action %s", b.Action)
	}
	return b, true, h(ctx)
}
