package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conneroisu/autotemplar/internal/preview"
	"github.com/conneroisu/autotemplar/internal/watcher"
)

// ServeService runs the file watcher and the preview server.
type ServeService struct {
	app *App
}

// NewServeService creates a new serve service
func NewServeService(app *App) *ServeService {
	return &ServeService{app: app}
}

// ServeOptions contains options for the serve process
type ServeOptions struct {
	// NoWatch disables the file watcher; changes on disk are then only
	// picked up when a note is reopened.
	NoWatch bool
}

// ServeResult contains the result of a serve operation
type ServeResult struct {
	ServerURL string
	Watching  bool
	Success   bool
	Error     error
}

// ServerInfo contains information about the server configuration
type ServerInfo struct {
	Host            string
	Port            int
	ServerURL       string
	VaultRoot       string
	TemplatesFolder string
}

// GetServerInfo returns information about the server configuration
func (s *ServeService) GetServerInfo() *ServerInfo {
	cfg := s.app.Config
	return &ServerInfo{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ServerURL:       "http://" + cfg.Address(),
		VaultRoot:       s.app.Store.Root(),
		TemplatesFolder: s.app.Controller.TemplatesFolder(),
	}
}

// Serve watches the vault and serves the preview until ctx ends.
func (s *ServeService) Serve(ctx context.Context, opts ServeOptions) (*ServeResult, error) {
	result := &ServeResult{
		ServerURL: "http://" + s.app.Config.Address(),
		Success:   true,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !opts.NoWatch {
		fw, err := s.NewWatcher(ctx)
		if err != nil {
			result.Success = false
			result.Error = fmt.Errorf("starting file watcher: %w", err)
			return result, result.Error
		}
		defer func() {
			if err := fw.Stop(); err != nil {
				s.app.Logger.Warn(context.Background(), err, "Stopping file watcher failed")
			}
		}()
		result.Watching = true
	}

	srv := preview.New(s.app.Config.Address(), s.app.Store, s.app.Workspace, s.app.Controller, s.app.Logger)
	if err := srv.Start(ctx); err != nil {
		result.Success = false
		result.Error = err
		return result, err
	}
	return result, nil
}

// NewWatcher starts a watcher over the whole vault that feeds debounced,
// vault-relative change batches to the dispatch controller.
func (s *ServeService) NewWatcher(ctx context.Context) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(s.app.Config.Watcher.Debounce, s.app.Logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(s.vaultFilter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		return s.handleChanges(ctx, events)
	})

	if err := fw.AddRecursive(s.app.Store.Root()); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}

// vaultFilter keeps notes inside the vault, skipping hidden entries such as
// the settings directory. Extensionless paths pass so that a deleted
// template folder is still reported.
func (s *ServeService) vaultFilter(abs string) bool {
	rel, ok := s.app.Store.Rel(abs)
	if !ok || !watcher.NoHiddenFilter(rel) {
		return false
	}
	return watcher.MarkdownFilter(rel) || filepath.Ext(rel) == ""
}

func (s *ServeService) handleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	relative := make([]watcher.ChangeEvent, 0, len(events))
	for _, event := range events {
		rel, ok := s.app.Store.Rel(event.Path)
		if !ok {
			continue
		}
		s.app.Store.Invalidate(rel)
		event.Path = rel
		relative = append(relative, event)
	}
	if len(relative) == 0 {
		return nil
	}
	return s.app.Controller.HandleEvents(ctx, relative)
}
