package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownRenderer turns markdown into display HTML written to w.
// sourcePath names the note the markdown is shown in, for resolving
// relative references.
type MarkdownRenderer interface {
	Render(ctx context.Context, markdown string, w io.Writer, sourcePath string) error
}

var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
	policyOnce       sync.Once
	policyInstance   *bluemonday.Policy
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithASTTransformers(util.Prioritized(linkResolver{}, 100)),
			),
		)
	})
	return markdownInstance
}

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "div", "span")
		policyInstance = policy
	})
	return policyInstance
}

// GoldmarkRenderer renders GitHub flavoured markdown and sanitises the
// result. Raw HTML in templates is escaped by goldmark and whatever
// survives conversion is filtered by a user-content policy.
type GoldmarkRenderer struct{}

// NewGoldmarkRenderer returns the default renderer.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	return &GoldmarkRenderer{}
}

// Render implements MarkdownRenderer.
func (r *GoldmarkRenderer) Render(ctx context.Context, md string, w io.Writer, sourcePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if md == "" {
		return nil
	}

	pctx := parser.NewContext()
	pctx.Set(sourcePathKey, sourcePath)

	var buf bytes.Buffer
	if err := markdown().Convert([]byte(md), &buf, parser.WithContext(pctx)); err != nil {
		return fmt.Errorf("rendering markdown for %s: %w", sourcePath, err)
	}
	if _, err := sanitizer().SanitizeReader(&buf).WriteTo(w); err != nil {
		return fmt.Errorf("writing rendered markdown: %w", err)
	}
	return nil
}

var sourcePathKey = parser.NewContextKey()

// linkResolver rewrites relative link and image destinations so they are
// rooted at the vault: "../b.md" seen from "notes/a.md" becomes "/b.md".
// Destinations that would leave the vault are left alone.
type linkResolver struct{}

func (linkResolver) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	source, _ := pc.Get(sourcePathKey).(string)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			node.Destination = resolveDestination(source, node.Destination)
		case *ast.Image:
			node.Destination = resolveDestination(source, node.Destination)
		}
		return ast.WalkContinue, nil
	})
}

func resolveDestination(source string, dest []byte) []byte {
	raw := string(dest)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "/") {
		return dest
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return dest
	}
	resolved := path.Join(path.Dir(source), u.Path)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return dest
	}
	u.Path = "/" + resolved
	return []byte(u.String())
}
