package api

import (
	"codepad/internal/assist"
	"codepad/internal/diff"
	"codepad/internal/keymap"
	"codepad/internal/workspace"
)

type CreateFileRequest struct {
	Name string `json:"name" validate:"max=255"`
}

// RenameFileRequest and CommitRequest carry no validation tags: the
// repository rejects blank values itself so the rejection is logged.
type RenameFileRequest struct {
	Name string `json:"name"`
}

type EditFileRequest struct {
	Content string `json:"content"`
}

type CommitRequest struct {
	Message string `json:"message"`
}

type StageRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type FixRequest struct {
	Apply bool `json:"apply"`
}

type ApplyRequest struct {
	Code string `json:"code"`
}

type ChatRequest struct {
	FileID  string           `json:"file_id"`
	Message string           `json:"message" validate:"required"`
	History []assist.Message `json:"history" validate:"dive"`
}

type RebindRequest struct {
	Keys string `json:"keys" validate:"required,max=64"`
}

type DispatchRequest struct {
	Keys string `json:"keys" validate:"required"`
}

type FilesResponse struct {
	Files    []workspace.FileRecord `json:"files"`
	ActiveID string                 `json:"active_id"`
}

type StageResponse struct {
	Staged []string `json:"staged"`
}

type CommitResponse struct {
	Hash    string `json:"hash"`
	Short   string `json:"short"`
	Message string `json:"message"`
}

type DiffResponse struct {
	FileID string       `json:"file_id"`
	Result *diff.Result `json:"result"`
	Text   string       `json:"text"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type DispatchResponse struct {
	Bound   bool           `json:"bound"`
	Binding keymap.Binding `json:"binding,omitempty"`
	View    keymap.View    `json:"view"`
	Output  string         `json:"output,omitempty"`
}

// ChatChunk is one line of a streamed chat reply.
type ChatChunk struct {
	Text  string `json:"text,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}
