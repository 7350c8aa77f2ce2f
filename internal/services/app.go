// Package services wires the vault, tag index, workspace and dispatch
// controller into an App and implements the operations behind each CLI
// command on top of it.
package services

import (
	"context"
	"fmt"

	"github.com/conneroisu/autotemplar/internal/config"
	"github.com/conneroisu/autotemplar/internal/dispatch"
	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/render"
	"github.com/conneroisu/autotemplar/internal/settings"
	"github.com/conneroisu/autotemplar/internal/tagindex"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/conneroisu/autotemplar/internal/workspace"
)

// App holds the long-lived components of one vault.
type App struct {
	Config     *config.Config
	Logger     logging.Logger
	Store      *vault.FSStore
	Settings   settings.Store
	Index      *tagindex.Index
	Workspace  *workspace.Workspace
	Controller *dispatch.Controller

	cancel context.CancelFunc
}

// NewApp opens the configured vault and loads its settings and tag index.
// Views created by the app live until Close.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := vault.NewFSStore(cfg.Vault.Path)
	if err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Settings: settings.NewFileStore(cfg.SettingsPath()),
		Index:    tagindex.New(store, logger),
		cancel:   cancel,
	}

	app.Workspace = workspace.New(appCtx, store, app.newPipeline, logger)
	app.Controller = dispatch.New(store, app.Index, app.Settings, app.Workspace, logger)
	app.Workspace.OnOpen(app.Controller.HandleOpen)

	if err := app.Controller.Load(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("loading vault %s: %w", store.Root(), err)
	}

	logger.Debug(ctx, "Vault loaded",
		"root", store.Root(),
		"folder", app.Controller.TemplatesFolder(),
		"templates", app.Index.Templates())
	return app, nil
}

// newPipeline gives every opened note its own render pipeline.
func (a *App) newPipeline(*vault.Document) editor.DecorationProvider {
	loader := render.NewContentLoader(a.Store, a.Controller.TemplatesFolder, a.Logger)
	return render.NewPipeline(loader, nil, a.Logger)
}

// Close releases the workspace and cancels outstanding renders.
func (a *App) Close() {
	if a.Workspace != nil {
		a.Workspace.Close()
	}
	a.cancel()
}
