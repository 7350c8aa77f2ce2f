// Package workspace tracks which note is open. Only one note is active at a
// time; opening another closes the previous view.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/vault"
)

// ErrNotMarkdown is returned when opening a document that is not a note.
var ErrNotMarkdown = errors.New("not a markdown document")

// ProviderFactory builds the decoration provider of a new view.
type ProviderFactory func(doc *vault.Document) editor.DecorationProvider

// OpenListener is called after a document became active.
type OpenListener func(ctx context.Context, doc *vault.Document)

// Workspace holds the active view.
type Workspace struct {
	ctx       context.Context
	store     vault.Store
	providers ProviderFactory
	logger    logging.Logger

	mutex     sync.RWMutex
	active    *editor.View
	listeners []OpenListener
}

// New creates an empty workspace. Views live until ctx ends or they are
// replaced.
func New(ctx context.Context, store vault.Store, providers ProviderFactory, logger logging.Logger) *Workspace {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workspace{
		ctx:       ctx,
		store:     store,
		providers: providers,
		logger:    logger.WithComponent("workspace"),
	}
}

// OnOpen registers a listener for documents becoming active.
func (w *Workspace) OnOpen(listener OpenListener) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.listeners = append(w.listeners, listener)
}

// Open reads the note at path, shows it in a fresh view and makes that view
// active.
func (w *Workspace) Open(ctx context.Context, path string) (*editor.View, error) {
	doc := w.store.Resolve(path)
	if doc == nil {
		return nil, fmt.Errorf("opening %s: %w", path, vault.ErrNotFound)
	}
	if !doc.IsMarkdown() {
		return nil, fmt.Errorf("opening %s: %w", doc.Path, ErrNotMarkdown)
	}

	text, err := w.store.Read(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", doc.Path, err)
	}

	var provider editor.DecorationProvider
	if w.providers != nil {
		provider = w.providers(doc)
	}
	view := editor.NewView(w.ctx, doc, text, provider)

	w.mutex.Lock()
	previous := w.active
	w.active = view
	listeners := append([]OpenListener(nil), w.listeners...)
	w.mutex.Unlock()

	if previous != nil {
		previous.Close()
	}
	w.logger.Debug(ctx, "Document opened", "path", doc.Path)

	for _, listener := range listeners {
		listener(ctx, doc)
	}
	return view, nil
}

// ActiveView returns the active view, or nil.
func (w *Workspace) ActiveView() *editor.View {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.active
}

// ActiveDocument returns the document of the active view, or nil.
func (w *Workspace) ActiveDocument() *vault.Document {
	view := w.ActiveView()
	if view == nil {
		return nil
	}
	return view.Document()
}

// IsActive reports whether path names the active document.
func (w *Workspace) IsActive(path string) bool {
	doc := w.ActiveDocument()
	return doc != nil && doc.Path == vault.NormalizePath(path)
}

// Reload re-reads the active document from the store when path names it.
// It reports whether the view was updated.
func (w *Workspace) Reload(ctx context.Context, path string) (bool, error) {
	view := w.ActiveView()
	if view == nil || view.Document().Path != vault.NormalizePath(path) {
		return false, nil
	}

	text, err := w.store.Read(ctx, view.Document())
	if err != nil {
		return false, fmt.Errorf("reloading %s: %w", path, err)
	}
	if text == view.State().Text() {
		return false, nil
	}
	view.Dispatch(editor.ReplaceDoc(text))
	return true, nil
}

// Close closes the active view.
func (w *Workspace) Close() {
	w.mutex.Lock()
	view := w.active
	w.active = nil
	w.mutex.Unlock()
	if view != nil {
		view.Close()
	}
}
