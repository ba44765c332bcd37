package repo

import (
	"context"
	"fmt"

	"codepad/internal/errors"
	"codepad/internal/extensions"

	"go.uber.org/zap"
)

// LiveServer is the live preview state. Content mirrors the latest non-empty
// run output produced while the server was running.
type LiveServer struct {
	Running bool   `json:"running"`
	Content string `json:"content"`
}

func (r *Repository) Extensions() []extensions.Extension {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extensions.List()
}

// ToggleExtension flips whether an extension is installed.
func (r *Repository) ToggleExtension(id string) (extensions.Extension, error) {
	return r.updateExtension(id, func(installed bool) bool { return !installed })
}

// SetExtension installs or uninstalls an extension. Setting the current
// state is a no-op.
func (r *Repository) SetExtension(id string, installed bool) (extensions.Extension, error) {
	return r.updateExtension(id, func(bool) bool { return installed })
}

func (r *Repository) updateExtension(id string, next func(bool) bool) (extensions.Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ext extensions.Extension
	err := r.mutate(func() error {
		cur, ok := r.extensions.Get(id)
		if !ok {
			return errors.NotFound(fmt.Sprintf("extension not found: %s", id))
		}
		var err error
		ext, err = r.extensions.SetInstalled(id, next(cur.Installed))
		return err
	})
	if err != nil {
		return extensions.Extension{}, r.fail(err, "")
	}

	// uninstalling stops the preview
	if ext.ID == extensions.LiveServer && !ext.Installed {
		r.live = LiveServer{}
	}
	r.logger.Debug("Extension updated", zap.String("id", ext.ID), zap.Bool("installed", ext.Installed))
	return ext, nil
}

// requireExtension rejects the calling action unless id is installed.
func (r *Repository) requireExtension(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.extensions.Installed(id) {
		return nil
	}
	name := id
	if ext, ok := r.extensions.Get(id); ok {
		name = ext.Name
	}
	return r.fail(errors.ValidationError(
		fmt.Sprintf("%s extension is not installed", name),
		map[string]string{"extension": id},
	), "")
}

func (r *Repository) LiveServer() LiveServer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// ToggleLiveServer starts or stops the live preview. Starting it runs the
// active file once; a failed run is logged by Run and leaves the server up.
func (r *Repository) ToggleLiveServer(ctx context.Context) (LiveServer, error) {
	if err := r.requireExtension(extensions.LiveServer); err != nil {
		return LiveServer{}, err
	}

	r.mu.Lock()
	r.live.Running = !r.live.Running
	starting := r.live.Running
	active := r.activeID
	r.mu.Unlock()

	if starting {
		if _, err := r.Run(ctx, active); err != nil {
			r.logger.Debug("Live server run failed", zap.Error(err))
		}
	}
	return r.LiveServer(), nil
}
