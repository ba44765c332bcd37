// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"codepad/internal/errors"
	"codepad/internal/keymap"
	"codepad/internal/logging"
	"codepad/internal/remote"
	"codepad/internal/repo"
	"codepad/internal/terminal"
	"codepad/internal/validation"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler serves the editor API over one repository.
type Handler struct {
	repo       *repo.Repository
	remote     *remote.Simulator
	logs       *terminal.Buffer
	dispatcher *keymap.Dispatcher
	validate   *validator.Validate
	logger     *logging.Logger
}

func NewHandler(r *repo.Repository, sim *remote.Simulator, logs *terminal.Buffer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	h := &Handler{
		repo:     r,
		remote:   sim,
		logs:     logs,
		validate: validation.New(),
		logger:   logger,
	}
	h.dispatcher = keymap.NewDispatcher(r.Keymap(), h.actions())
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/files", h.ListFiles)
	mux.HandleFunc("POST /api/files", h.CreateFile)
	mux.HandleFunc("GET /api/files/{id}", h.GetFile)
	mux.HandleFunc("PUT /api/files/{id}/content", h.EditFile)
	mux.HandleFunc("PUT /api/files/{id}/name", h.RenameFile)
	mux.HandleFunc("DELETE /api/files/{id}", h.DeleteFile)
	mux.HandleFunc("POST /api/files/{id}/select", h.SelectFile)

	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("POST /api/stage", h.Stage)
	mux.HandleFunc("POST /api/stage/all", h.StageAll)
	mux.HandleFunc("POST /api/unstage", h.Unstage)
	mux.HandleFunc("POST /api/commits", h.Commit)
	mux.HandleFunc("GET /api/commits", h.Log)
	mux.HandleFunc("GET /api/commits/{ref}", h.Show)
	mux.HandleFunc("GET /api/commits/{ref}/objects", h.Objects)
	mux.HandleFunc("GET /api/files/{id}/diff", h.Diff)
	mux.HandleFunc("POST /api/push", h.Push)
	mux.HandleFunc("POST /api/pull", h.Pull)

	mux.HandleFunc("POST /api/files/{id}/run", h.Run)
	mux.HandleFunc("POST /api/files/{id}/explain", h.Explain)
	mux.HandleFunc("POST /api/files/{id}/fix", h.Fix)
	mux.HandleFunc("POST /api/files/{id}/format", h.Format)
	mux.HandleFunc("POST /api/files/{id}/complete", h.Complete)
	mux.HandleFunc("POST /api/files/{id}/apply", h.Apply)
	mux.HandleFunc("POST /api/chat", h.Chat)

	mux.HandleFunc("GET /api/keybindings", h.Bindings)
	mux.HandleFunc("PUT /api/keybindings/{id}", h.Rebind)
	mux.HandleFunc("POST /api/keybindings/reset", h.ResetBindings)
	mux.HandleFunc("POST /api/keys", h.Dispatch)

	mux.HandleFunc("GET /api/extensions", h.Extensions)
	mux.HandleFunc("POST /api/extensions/{id}/toggle", h.ToggleExtension)
	mux.HandleFunc("GET /api/live", h.LiveServer)
	mux.HandleFunc("POST /api/live/toggle", h.ToggleLiveServer)

	mux.HandleFunc("GET /api/logs", h.Logs)
	mux.HandleFunc("DELETE /api/logs", h.ClearLogs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status. Errors without a type are
// reported as internal.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := errors.As(err)
	if e.Code >= http.StatusInternalServerError {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, e.Code, e)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FilesResponse{
		Files:    h.repo.Files(),
		ActiveID: h.repo.Active().ID,
	})
}

func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[CreateFileRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	f, err := h.repo.CreateFile(req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.repo.File(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) EditFile(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[EditFileRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := h.repo.EditFile(id, req.Content); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetFile(w, r)
}

func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[RenameFileRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.repo.RenameFile(r.PathValue("id"), req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetFile(w, r)
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteFile(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.SelectFile(r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ListFiles(w, r)
}

func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	entries := h.logs.Entries()
	if entries == nil {
		entries = []terminal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	h.logs.Clear()
	w.WriteHeader(http.StatusNoContent)
}
