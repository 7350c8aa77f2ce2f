// Package render keeps the injected template block of a view in step with
// the view's match set.
//
// A Pipeline is the decoration provider of one view. On every state
// transition it checks whether the match set changed since it last built a
// block; if not, the previous decorations are returned untouched. Otherwise
// it finds the end of the note's front-matter and places a single block
// widget there. Mounting the widget loads the matched templates and renders
// them in the background; results of mounts that a newer mount superseded
// are discarded.
package render

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/editor/syntax"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/vault"
)

// Loader produces the markdown for a match set.
type Loader interface {
	LoadMatches(ctx context.Context, matches *editor.MatchSet) (string, error)
}

// Pipeline implements editor.DecorationProvider.
type Pipeline struct {
	loader   Loader
	renderer MarkdownRenderer
	logger   logging.Logger

	mu       sync.Mutex
	lastUsed *editor.MatchSet
	builds   int

	ticket atomic.Uint64
}

var _ editor.DecorationProvider = (*Pipeline)(nil)

// NewPipeline creates a pipeline for one view.
func NewPipeline(loader Loader, renderer MarkdownRenderer, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if renderer == nil {
		renderer = NewGoldmarkRenderer()
	}
	return &Pipeline{
		loader:   loader,
		renderer: renderer,
		logger:   logger.WithComponent("render_pipeline"),
	}
}

// Refresh implements editor.DecorationProvider.
func (p *Pipeline) Refresh(state *editor.State, previous *editor.DecorationSet) *editor.DecorationSet {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := state.Matches()
	if current == p.lastUsed {
		if previous != nil {
			return previous
		}
		return editor.NewDecorationSet()
	}
	p.lastUsed = current
	p.builds++

	widget := &Widget{
		Matches:  current,
		pipeline: p,
	}
	if doc := state.Document(); doc != nil {
		widget.Filename = doc.Basename
		widget.Source = doc.Path
	}

	return editor.NewDecorationSet(editor.Decoration{
		Pos:    InsertionPoint(state.Text()),
		Block:  true,
		Widget: widget,
	})
}

// Builds returns how many times Refresh built a new decoration set.
func (p *Pipeline) Builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builds
}

// InsertionPoint returns the offset just past the note's leading
// front-matter block, or 0 when there is none.
func InsertionPoint(doc string) int {
	pos := 0
	syntax.Parse(doc).Iterate(func(n *syntax.Node) bool {
		if n.Kind == syntax.KindFrontmatter && n.NextSibling() == nil {
			pos = n.To + 1
		}
		return n.Kind == syntax.KindDocument || n.Kind == syntax.KindFrontmatterBlock
	})
	if pos > len(doc) {
		pos = len(doc)
	}
	return pos
}

// Widget is the block decoration placed by a Pipeline.
type Widget struct {
	Matches *editor.MatchSet
	// Filename is the base name of the note the block is shown in.
	Filename string
	// Source is the vault path of that note.
	Source string

	pipeline *Pipeline
}

// Mount implements editor.Widget. The returned container fills in the
// background; an empty match set yields an empty container immediately.
func (w *Widget) Mount(ctx context.Context) editor.Element {
	return w.mount(ctx)
}

func (w *Widget) mount(ctx context.Context) *Container {
	c := newContainer(w.Source)
	ticket := w.pipeline.ticket.Add(1)

	if w.Matches.Len() == 0 {
		c.settle(StatusEmpty, "", nil)
		return c
	}

	go w.pipeline.fill(ctx, ticket, c, w)
	return c
}

func (p *Pipeline) superseded(ticket uint64) bool {
	return p.ticket.Load() != ticket
}

func (p *Pipeline) fill(ctx context.Context, ticket uint64, c *Container, w *Widget) {
	op := logging.StartOperation(p.logger, "render_block")

	content, err := p.loader.LoadMatches(ctx, w.Matches)
	if err != nil {
		p.logger.Warn(ctx, err, "Loading templates failed", "note", w.Source)
		c.settle(StatusEmpty, "", err)
		return
	}
	if p.superseded(ticket) {
		c.settle(StatusDiscarded, "", nil)
		return
	}

	var buf bytes.Buffer
	sourcePath := w.Source
	if sourcePath == "" {
		sourcePath = w.Filename + "." + vault.MarkdownExtension
	}
	if err := p.renderer.Render(ctx, content, &buf, sourcePath); err != nil {
		p.logger.Warn(ctx, err, "Rendering templates failed", "note", w.Source)
		c.settle(StatusEmpty, "", err)
		return
	}
	if p.superseded(ticket) {
		c.settle(StatusDiscarded, "", nil)
		return
	}

	c.settle(StatusReady, buf.String(), nil)
	op.End(ctx, "note", w.Source, "templates", len(w.Matches.Templates()))
}
