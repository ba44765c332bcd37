// Package app wires a repository and its collaborators from configuration.
package app

import (
	"fmt"

	"codepad/internal/assist"
	"codepad/internal/config"
	"codepad/internal/keymap"
	"codepad/internal/metrics"
	"codepad/internal/remote"
	"codepad/internal/repo"
	"codepad/internal/safe"
	"codepad/internal/storage"
	"codepad/internal/terminal"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App owns the database and everything built on it.
type App struct {
	Repo    *repo.Repository
	Remote  *remote.Simulator
	Keymap  *keymap.Keymap
	Metrics *metrics.Collector

	db     *badger.DB
	logger *zap.Logger
}

type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Sink receives terminal entries in addition to the zap logger.
	Sink terminal.Sink
	// Registerer enables metrics when set.
	Registerer prometheus.Registerer
	// Assist overrides the Gemini service built from config.
	Assist assist.Service
}

func Open(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := storage.OpenDB(cfg.Database.Path, logger.Named("badger"))
	if err != nil {
		return nil, err
	}

	contentSafe, err := safe.New(db, safe.Options{CacheSize: 1000})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing content safe: %w", err)
	}

	sink := terminal.Sink(terminal.NewZapSink(logger))
	if opts.Sink != nil {
		sink = terminal.Multi(opts.Sink, sink)
	}

	var collector *metrics.Collector
	if opts.Registerer != nil {
		collector = metrics.New(opts.Registerer)
	}

	service := opts.Assist
	if service == nil {
		service = assist.NewGemini(assist.GeminiOptions{
			APIKey:  cfg.Assist.APIKey,
			Model:   cfg.Assist.Model,
			Timeout: cfg.Assist.Timeout,
			Logger:  logger,
		})
	}

	km := keymap.New(cfg.Keybindings)

	r, err := repo.New(repo.Options{
		Author:      cfg.Repository.Author,
		CommitDelay: cfg.Repository.CommitDelay,
		Sink:        sink,
		Logger:      logger,
		Store:       storage.NewStateStore(db, contentSafe),
		Metrics:     collector,
		Assist:      service,
		Keymap:      km,
		Extensions:  cfg.Extensions,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	return &App{
		Repo: r,
		Remote: remote.New(remote.Options{
			URL:       cfg.Remote.URL,
			PushDelay: cfg.Remote.PushDelay,
			PullDelay: cfg.Remote.PullDelay,
		}, sink),
		Keymap:  km,
		Metrics: collector,
		db:      db,
		logger:  logger,
	}, nil
}

// Reload applies the parts of a new configuration that can change at runtime.
func (a *App) Reload(cfg *config.Config) {
	a.Keymap.Replace(cfg.Keybindings)
	a.logger.Info("Key bindings reloaded", zap.Int("bindings", len(cfg.Keybindings)))
}

// Close waits for an in-flight commit and closes the database.
func (a *App) Close() error {
	a.Repo.Close()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
