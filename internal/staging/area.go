// Package staging tracks which files go into the next commit.
package staging

import (
	"slices"

	"codepad/internal/change"
)

// Area is an insertion-ordered set of file ids.
type Area struct {
	ids []string
}

func New(ids ...string) *Area {
	a := &Area{}
	for _, id := range ids {
		if !a.Has(id) {
			a.ids = append(a.ids, id)
		}
	}
	return a
}

// Stage adds id if it is currently changed. Ids that are already staged or
// not changed are ignored without error. Reports whether the set grew.
func (a *Area) Stage(id string, status change.Status) bool {
	if a.Has(id) || !status.IsChanged(id) {
		return false
	}
	a.ids = append(a.ids, id)
	return true
}

// Unstage removes id. Reports whether it was present.
func (a *Area) Unstage(id string) bool {
	i := slices.Index(a.ids, id)
	if i < 0 {
		return false
	}
	a.ids = slices.Delete(a.ids, i, i+1)
	return true
}

// Retain drops every id for which keep returns false.
func (a *Area) Retain(keep func(id string) bool) {
	a.ids = slices.DeleteFunc(a.ids, func(id string) bool { return !keep(id) })
}

func (a *Area) Clear() {
	a.ids = nil
}

func (a *Area) Has(id string) bool {
	return slices.Contains(a.ids, id)
}

// IDs returns the staged ids in staging order.
func (a *Area) IDs() []string {
	return slices.Clone(a.ids)
}

func (a *Area) Len() int {
	return len(a.ids)
}
