package api

import (
	"context"
	"net/http"

	"codepad/internal/commit"
	"codepad/internal/validation"
)

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.Status())
}

func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[StageRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	staged, err := h.repo.StageIDs(req.IDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if staged == nil {
		staged = []string{}
	}
	writeJSON(w, http.StatusOK, StageResponse{Staged: staged})
}

func (h *Handler) StageAll(w http.ResponseWriter, r *http.Request) {
	added, err := h.repo.StageAll()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	writeJSON(w, http.StatusOK, StageResponse{Staged: added})
}

func (h *Handler) Unstage(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[StageRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	for _, id := range req.IDs {
		if _, err := h.repo.Unstage(id); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.Status(w, r)
}

// Commit records the commit and answers 202 Accepted: the commit is in
// history, but its completion lines are logged after the commit delay.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[CommitRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.repo.Commit(req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c := p.Commit()
	writeJSON(w, http.StatusAccepted, CommitResponse{
		Hash:    c.Hash(),
		Short:   c.Short(),
		Message: c.Message(),
	})
}

func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	log := h.repo.Log()
	views := make([]commit.View, len(log))
	for i, c := range log {
		views[i] = c.View()
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Show(r.PathValue("ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

// Objects lists the stored blobs behind a commit's snapshot.
func (h *Handler) Objects(w http.ResponseWriter, r *http.Request) {
	objects, err := h.repo.Objects(r.PathValue("ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objects)
}

func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.repo.Diff(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DiffResponse{FileID: id, Result: res, Text: res.Format()})
}

// Push and Pull run the simulation in the background so the response does
// not wait for the simulated transfer. The lines show up in the log.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	go h.remote.Push(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	go h.remote.Pull(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}
