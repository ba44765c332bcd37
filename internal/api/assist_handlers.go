package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"codepad/internal/errors"
	"codepad/internal/keymap"
	"codepad/internal/validation"
)

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.repo.Run)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.repo.Explain)
}

// Fix previews a fix; ?apply=true writes it into the file.
func (h *Handler) Fix(w http.ResponseWriter, r *http.Request) {
	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	h.text(w, r, func(ctx context.Context, id string) (string, error) {
		return h.repo.Fix(ctx, id, apply)
	})
}

func (h *Handler) Format(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.repo.Format)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.repo.Complete)
}

func (h *Handler) text(w http.ResponseWriter, r *http.Request, call func(context.Context, string) (string, error)) {
	text, err := call(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[ApplyRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.ApplyCode(r.PathValue("id"), req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.GetFile(w, r)
}

// Chat streams the reply as newline-delimited JSON chunks. Errors after the
// first chunk are reported in-band.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[ChatRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.FileID == "" {
		req.FileID = h.repo.Active().ID
	}

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false
	start := func() {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
	}

	err = h.repo.Chat(r.Context(), req.FileID, req.History, req.Message, func(chunk string) {
		start()
		enc.Encode(ChatChunk{Text: chunk})
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil && !started {
		h.writeError(w, r, err)
		return
	}

	start()
	if err != nil {
		enc.Encode(ChatChunk{Error: errors.As(err).Message})
		return
	}
	enc.Encode(ChatChunk{Done: true})
}

func (h *Handler) Bindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.Bindings())
}

func (h *Handler) Rebind(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[RebindRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.Rebind(r.PathValue("id"), req.Keys); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Bindings(w, r)
}

func (h *Handler) ResetBindings(w http.ResponseWriter, r *http.Request) {
	h.repo.ResetBindings()
	h.Bindings(w, r)
}

type outputKey struct{}

// actions wires key-bound actions to the active file. Any text an action
// produces is handed back through the request context.
func (h *Handler) actions() map[keymap.Action]keymap.Handler {
	withOutput := func(call func(context.Context, string) (string, error)) keymap.Handler {
		return func(ctx context.Context) error {
			text, err := call(ctx, h.repo.Active().ID)
			if out, ok := ctx.Value(outputKey{}).(*string); ok {
				*out = text
			}
			return err
		}
	}
	return map[keymap.Action]keymap.Handler{
		keymap.ActionRun:     withOutput(h.repo.Run),
		keymap.ActionExplain: withOutput(h.repo.Explain),
		keymap.ActionFix: withOutput(func(ctx context.Context, id string) (string, error) {
			return h.repo.Fix(ctx, id, false)
		}),
	}
}

// Dispatch runs whatever action is bound to the pressed keys.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Decode[DispatchRequest](h.validate, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var output string
	ctx := context.WithValue(r.Context(), outputKey{}, &output)
	b, bound, err := h.dispatcher.Dispatch(ctx, req.Keys)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DispatchResponse{
		Bound:   bound,
		Binding: b,
		View:    h.dispatcher.View(),
		Output:  output,
	})
}
