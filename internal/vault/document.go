// Package vault provides access to the notes the template pipeline works on.
//
// A vault is a directory tree of markdown notes addressed by slash-separated
// paths relative to its root. The Store interface is the narrow contract the
// rest of the module consumes; FSStore serves a real directory and MemStore
// keeps everything in memory.
package vault

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MarkdownExtension is the extension of notes and templates.
const MarkdownExtension = "md"

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a handle to a note in the vault.
type Document struct {
	// Path is relative to the vault root, slash separated, NFC normalised.
	Path string
	// Basename is the file name without its extension.
	Basename string
	// Extension is the file extension without the leading dot.
	Extension string
}

// NewDocument builds a handle for a vault-relative path.
func NewDocument(p string) *Document {
	p = NormalizePath(p)
	base := path.Base(p)
	ext := path.Ext(base)
	return &Document{
		Path:      p,
		Basename:  strings.TrimSuffix(base, ext),
		Extension: strings.TrimPrefix(ext, "."),
	}
}

// IsMarkdown reports whether the document is a markdown note.
func (d *Document) IsMarkdown() bool {
	return d != nil && d.Extension == MarkdownExtension
}

// InFolder reports whether the document lies anywhere below folder.
// An empty folder contains nothing.
func (d *Document) InFolder(folder string) bool {
	if d == nil {
		return false
	}
	folder = NormalizePath(folder)
	if folder == "" {
		return false
	}
	return strings.HasPrefix(d.Path, folder+"/")
}

// NormalizePath cleans a vault-relative path: forward slashes, no leading
// "./" or "/", no trailing slash, Unicode NFC.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	return norm.NFC.String(p)
}

// Store is the document store the pipeline reads notes through.
type Store interface {
	// Read returns the current content of a document.
	Read(ctx context.Context, doc *Document) (string, error)
	// CachedRead may return content cached from an earlier read.
	CachedRead(ctx context.Context, doc *Document) (string, error)
	// ListMarkdownDocuments returns every markdown note, ordered by path.
	ListMarkdownDocuments(ctx context.Context) ([]*Document, error)
	// Resolve returns a handle for an existing document, or nil.
	Resolve(path string) *Document
}

func notFound(p string) error {
	return &os.PathError{Op: "read", Path: p, Err: ErrNotFound}
}
