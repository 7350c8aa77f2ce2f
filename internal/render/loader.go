package render

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/frontmatter"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/vault"
)

// ContentLoader reads template bodies from the template folder.
type ContentLoader struct {
	store  vault.Store
	folder func() string
	logger logging.Logger
}

// NewContentLoader creates a loader. folder is consulted on every load so
// a changed setting takes effect without rebuilding the loader.
func NewContentLoader(store vault.Store, folder func() string, logger logging.Logger) *ContentLoader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ContentLoader{
		store:  store,
		folder: folder,
		logger: logger.WithComponent("content_loader"),
	}
}

// TemplatePath returns the vault path of a template identifier.
func (l *ContentLoader) TemplatePath(id string) string {
	return vault.NormalizePath(l.folder()) + "/" + id + "." + vault.MarkdownExtension
}

// LoadTemplateContent returns the body of a template with its front-matter
// removed and surrounding whitespace trimmed. A template that does not
// exist yields an empty body.
func (l *ContentLoader) LoadTemplateContent(ctx context.Context, id string) (string, error) {
	doc := l.store.Resolve(l.TemplatePath(id))
	if doc == nil {
		return "", nil
	}

	content, err := l.store.CachedRead(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", id, err)
	}
	return frontmatter.Strip(content), nil
}

// LoadMatches loads every distinct template of matches, in first-seen
// order, and joins the bodies with newlines. A template that fails to load
// contributes an empty body.
func (l *ContentLoader) LoadMatches(ctx context.Context, matches *editor.MatchSet) (string, error) {
	templates := matches.Templates()
	if len(templates) == 0 {
		return "", nil
	}

	bodies := make([]string, len(templates))
	var wg sync.WaitGroup
	for i, id := range templates {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			body, err := l.LoadTemplateContent(ctx, id)
			if err != nil {
				l.logger.Warn(ctx, err, "Template skipped", "template", id)
				return
			}
			bodies[i] = body
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(bodies, "\n"), nil
}
