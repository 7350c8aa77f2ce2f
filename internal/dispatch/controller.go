// Package dispatch recomputes the template matches of the active note and
// publishes them into its view.
//
// The Controller reacts to three kinds of events: a note being opened, the
// active note changing on disk, and the template folder changing. The last
// one rebuilds the tag index before matches are recomputed. Notes inside the
// template folder never receive matches.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/frontmatter"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/settings"
	"github.com/conneroisu/autotemplar/internal/tagindex"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/conneroisu/autotemplar/internal/watcher"
	"github.com/conneroisu/autotemplar/internal/workspace"
)

// Controller owns the tag index and the persisted settings.
type Controller struct {
	store     vault.Store
	index     *tagindex.Index
	settings  settings.Store
	workspace *workspace.Workspace
	logger    logging.Logger

	// mutex serialises event handling.
	mutex sync.Mutex

	folderMu sync.RWMutex
	folder   string
}

// New creates a controller. The template folder is empty until Load.
func New(store vault.Store, index *tagindex.Index, settingsStore settings.Store, ws *workspace.Workspace, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:     store,
		index:     index,
		settings:  settingsStore,
		workspace: ws,
		logger:    logger.WithComponent("dispatch"),
	}
}

// TemplatesFolder returns the current template folder.
func (c *Controller) TemplatesFolder() string {
	c.folderMu.RLock()
	defer c.folderMu.RUnlock()
	return c.folder
}

func (c *Controller) setFolder(folder string) {
	c.folderMu.Lock()
	c.folder = settings.CleanFolder(folder)
	c.folderMu.Unlock()
}

// Index returns the tag index.
func (c *Controller) Index() *tagindex.Index {
	return c.index
}

// Load reads the settings, rebuilds the index and dispatches for the
// active note. Unreadable settings fall back to the defaults.
func (c *Controller) Load(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s, err := c.settings.Load()
	if err != nil {
		c.logger.Warn(ctx, err, "Using default settings")
	}
	c.setFolder(s.TemplatesFolder)

	if err := c.index.Rebuild(ctx, c.TemplatesFolder()); err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	_, err = c.dispatch(ctx)
	return err
}

// SetTemplateFolder persists a new template folder, rebuilds the index and
// dispatches.
func (c *Controller) SetTemplateFolder(ctx context.Context, folder string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s, err := c.settings.Load()
	if err != nil {
		c.logger.Warn(ctx, err, "Overwriting unreadable settings")
		s = settings.Default()
	}
	s.TemplatesFolder = settings.CleanFolder(folder)
	if err := c.settings.Save(s); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	c.setFolder(s.TemplatesFolder)
	c.logger.Info(ctx, "Template folder changed", "folder", s.TemplatesFolder)

	if err := c.index.Rebuild(ctx, s.TemplatesFolder); err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	_, err = c.dispatch(ctx)
	return err
}

// Dispatch recomputes the matches of the active note and publishes them.
// It returns the published set, or nil when nothing was published.
func (c *Controller) Dispatch(ctx context.Context) (*editor.MatchSet, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.dispatch(ctx)
}

func (c *Controller) dispatch(ctx context.Context) (*editor.MatchSet, error) {
	view := c.workspace.ActiveView()
	if view == nil {
		return nil, nil
	}
	doc := view.Document()
	if doc.InFolder(c.TemplatesFolder()) {
		c.logger.Debug(ctx, "Skipping template note", "path", doc.Path)
		return nil, nil
	}

	content, err := c.store.Read(ctx, doc)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		c.logger.Warn(ctx, err, "Reading note tags failed", "path", doc.Path)
		content = ""
	}

	matches := editor.NewMatchSet(c.match(frontmatter.Tags(content)))

	if c.workspace.ActiveView() != view {
		c.logger.Debug(ctx, "Active note changed during dispatch, dropping matches", "path", doc.Path)
		return nil, nil
	}
	view.Dispatch(editor.Transaction{Effects: []editor.Effect{editor.SetMatches(matches)}})
	c.logger.Debug(ctx, "Matches published", "path", doc.Path, "pairs", matches.Len(), "version", matches.Version)
	return matches, nil
}

// match cross-references tags with the index: tag order first, then the
// order of templates under each tag. A template matched by several tags
// appears once per tag.
func (c *Controller) match(tags []string) []editor.TemplateTag {
	var pairs []editor.TemplateTag
	for _, tag := range tags {
		for _, template := range c.index.Lookup(tag) {
			pairs = append(pairs, editor.TemplateTag{Tag: tag, Template: template})
		}
	}
	return pairs
}

// HandleOpen reacts to a document becoming active.
func (c *Controller) HandleOpen(ctx context.Context, doc *vault.Document) {
	if !doc.IsMarkdown() {
		return
	}
	if _, err := c.Dispatch(ctx); err != nil {
		c.logger.Warn(ctx, err, "Dispatch after open failed", "path", doc.Path)
	}
}

// HandleModify reacts to a document changing in the store. Only the active
// document is considered.
func (c *Controller) HandleModify(ctx context.Context, doc *vault.Document) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.handleModify(ctx, doc.Path)
}

func (c *Controller) handleModify(ctx context.Context, path string) error {
	if !c.workspace.IsActive(path) {
		return nil
	}
	if _, err := c.workspace.Reload(ctx, path); err != nil {
		c.logger.Warn(ctx, err, "Reloading active note failed", "path", path)
	}
	_, err := c.dispatch(ctx)
	return err
}

// HandleEvents reacts to a batch of vault-relative change events. Any change
// inside the template folder rebuilds the index; a change to the active
// note reloads it, even when that note is a template. Matches are
// recomputed once per batch.
func (c *Controller) HandleEvents(ctx context.Context, events []watcher.ChangeEvent) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	folder := c.TemplatesFolder()
	var rebuild bool
	var activeChanged string
	for _, event := range events {
		path := vault.NormalizePath(event.Path)
		doc := vault.NewDocument(path)
		if folder != "" && (path == folder || doc.InFolder(folder)) {
			rebuild = true
		}
		if c.workspace.IsActive(path) && event.Type != watcher.EventTypeDeleted {
			activeChanged = path
		}
	}

	if rebuild {
		c.logger.Debug(ctx, "Template folder changed", "folder", folder, "events", len(events))
		if err := c.index.Rebuild(ctx, folder); err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}
	}
	if activeChanged != "" {
		return c.handleModify(ctx, activeChanged)
	}
	if rebuild {
		_, err := c.dispatch(ctx)
		return err
	}
	return nil
}
