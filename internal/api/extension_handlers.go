package api

import (
	"net/http"
)

func (h *Handler) Extensions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.Extensions())
}

func (h *Handler) ToggleExtension(w http.ResponseWriter, r *http.Request) {
	ext, err := h.repo.ToggleExtension(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func (h *Handler) LiveServer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.LiveServer())
}

// ToggleLiveServer starts or stops the preview. Starting it runs the active
// file before responding.
func (h *Handler) ToggleLiveServer(w http.ResponseWriter, r *http.Request) {
	live, err := h.repo.ToggleLiveServer(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}
