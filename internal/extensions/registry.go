// Package extensions tracks the optional editor features a user can install.
// Some features are gated on them: formatting needs the Prettier extension
// and the live preview needs Live Server.
package extensions

import (
	"fmt"

	"codepad/internal/errors"

	"github.com/samber/lo"
)

const (
	PrettierPython = "prettier-python"
	LiveServer     = "live-server"
	MaterialIcons  = "material-icons"
)

type Extension struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Version     string `json:"version"`
	Installed   bool   `json:"installed"`
}

// Catalog lists every known extension, none installed.
func Catalog() []Extension {
	return []Extension{
		{
			ID:          PrettierPython,
			Name:        "Prettier - Python",
			Description: "Formats Python source in the editor.",
			Icon:        "align-left",
			Version:     "1.2.0",
		},
		{
			ID:          LiveServer,
			Name:        "Live Server",
			Description: "Mirrors program output to a live preview panel.",
			Icon:        "radio",
			Version:     "5.7.9",
		},
		{
			ID:          MaterialIcons,
			Name:        "Material Icon Theme",
			Description: "File icons for the explorer.",
			Icon:        "folder",
			Version:     "4.32.0",
		},
	}
}

// Registry holds install state for the catalog. It is not safe for
// concurrent use; the repository serializes access.
type Registry struct {
	items []Extension
}

// New creates a registry with the given ids installed. Unknown ids are
// ignored.
func New(installed ...string) *Registry {
	r := &Registry{items: Catalog()}
	r.Set(installed)
	return r
}

// Set installs exactly the given ids and uninstalls the rest.
func (r *Registry) Set(installed []string) {
	for i := range r.items {
		r.items[i].Installed = lo.Contains(installed, r.items[i].ID)
	}
}

func (r *Registry) List() []Extension {
	return append([]Extension(nil), r.items...)
}

func (r *Registry) Get(id string) (Extension, bool) {
	return lo.Find(r.items, func(e Extension) bool { return e.ID == id })
}

func (r *Registry) Installed(id string) bool {
	e, ok := r.Get(id)
	return ok && e.Installed
}

// InstalledIDs returns the installed ids in catalog order.
func (r *Registry) InstalledIDs() []string {
	return lo.FilterMap(r.items, func(e Extension, _ int) (string, bool) {
		return e.ID, e.Installed
	})
}

// SetInstalled installs or uninstalls id and returns the updated extension.
func (r *Registry) SetInstalled(id string, installed bool) (Extension, error) {
	_, i, ok := lo.FindIndexOf(r.items, func(e Extension) bool { return e.ID == id })
	if !ok {
		return Extension{}, errors.NotFound(fmt.Sprintf("extension not found: %s", id))
	}
	r.items[i].Installed = installed
	return r.items[i], nil
}

// Toggle flips the install state of id.
func (r *Registry) Toggle(id string) (Extension, error) {
	e, ok := r.Get(id)
	if !ok {
		return Extension{}, errors.NotFound(fmt.Sprintf("extension not found: %s", id))
	}
	return r.SetInstalled(id, !e.Installed)
}
