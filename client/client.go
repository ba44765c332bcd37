// Package client talks to a running codepad server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codepad/internal/api"
	"codepad/internal/commit"
	"codepad/internal/errors"
	"codepad/internal/extensions"
	"codepad/internal/repo"
	"codepad/internal/terminal"
	"codepad/internal/workspace"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// do sends body as JSON and decodes the response into out when it is not
// nil. Non-2xx responses come back as *errors.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr errors.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Files(ctx context.Context) (*api.FilesResponse, error) {
	var out api.FilesResponse
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateFile(ctx context.Context, name string) (*workspace.FileRecord, error) {
	var out workspace.FileRecord
	if err := c.do(ctx, http.MethodPost, "/api/files", api.CreateFileRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EditFile(ctx context.Context, id, content string) error {
	return c.do(ctx, http.MethodPut, "/api/files/"+id+"/content", api.EditFileRequest{Content: content}, nil)
}

func (c *Client) RenameFile(ctx context.Context, id, name string) error {
	return c.do(ctx, http.MethodPut, "/api/files/"+id+"/name", api.RenameFileRequest{Name: name}, nil)
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+id, nil, nil)
}

func (c *Client) Status(ctx context.Context) (*repo.Snapshot, error) {
	var out repo.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stage returns the ids that were newly staged.
func (c *Client) Stage(ctx context.Context, ids ...string) ([]string, error) {
	var out api.StageResponse
	if err := c.do(ctx, http.MethodPost, "/api/stage", api.StageRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return out.Staged, nil
}

func (c *Client) Unstage(ctx context.Context, ids ...string) error {
	return c.do(ctx, http.MethodPost, "/api/unstage", api.StageRequest{IDs: ids}, nil)
}

func (c *Client) Commit(ctx context.Context, message string) (*api.CommitResponse, error) {
	var out api.CommitResponse
	if err := c.do(ctx, http.MethodPost, "/api/commits", api.CommitRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Log(ctx context.Context) ([]commit.View, error) {
	var out []commit.View
	if err := c.do(ctx, http.MethodGet, "/api/commits", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Push(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/push", nil, nil)
}

func (c *Client) Pull(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/pull", nil, nil)
}

func (c *Client) Logs(ctx context.Context) ([]terminal.Entry, error) {
	var out []terminal.Entry
	if err := c.do(ctx, http.MethodGet, "/api/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Extensions(ctx context.Context) ([]extensions.Extension, error) {
	var out []extensions.Extension
	if err := c.do(ctx, http.MethodGet, "/api/extensions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ToggleExtension(ctx context.Context, id string) (*extensions.Extension, error) {
	var out extensions.Extension
	if err := c.do(ctx, http.MethodPost, "/api/extensions/"+id+"/toggle", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
