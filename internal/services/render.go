package services

import (
	"context"
	"fmt"

	"github.com/conneroisu/autotemplar/internal/dispatch"
	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/render"
	"github.com/conneroisu/autotemplar/internal/tagindex"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/conneroisu/autotemplar/internal/workspace"
)

// RenderNote opens a note, dispatches its matches and returns the HTML of
// the injected block once it has rendered. Notes without matches yield "".
func (a *App) RenderNote(ctx context.Context, path string) (string, error) {
	view, err := a.Workspace.Open(ctx, path)
	if err != nil {
		return "", err
	}
	return a.awaitBlock(ctx, view, path)
}

// RenderSource renders the block for content as if it were saved at path.
// The content sits in memory over the vault; nothing is written to disk and
// the app's own workspace is left untouched.
func (a *App) RenderSource(ctx context.Context, path, content string) (string, error) {
	path = vault.NormalizePath(path)
	store := vault.NewLayeredStore(vault.NewMemStore(map[string]string{path: content}), a.Store)

	ws := workspace.New(ctx, store, a.newPipeline, a.Logger)
	defer ws.Close()
	ctrl := dispatch.New(store, tagindex.New(store, a.Logger), a.Settings, ws, a.Logger)
	ws.OnOpen(ctrl.HandleOpen)
	if err := ctrl.Load(ctx); err != nil {
		return "", fmt.Errorf("loading vault: %w", err)
	}

	view, err := ws.Open(ctx, path)
	if err != nil {
		return "", err
	}
	return a.awaitBlock(ctx, view, path)
}

func (a *App) awaitBlock(ctx context.Context, view *editor.View, path string) (string, error) {
	block := view.Block()
	if block == nil {
		return "", nil
	}

	container, ok := block.(*render.Container)
	if !ok {
		select {
		case <-block.Done():
			return block.HTML(), nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	status, err := container.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("waiting for block of %s: %w", path, err)
	}
	if err := container.Err(); err != nil {
		return "", fmt.Errorf("rendering block of %s: %w", path, err)
	}
	a.Logger.Debug(ctx, "Block rendered", "path", path, "status", status.String())
	return container.HTML(), nil
}
