package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FSStore serves a vault from a directory on disk.
type FSStore struct {
	root string

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	content string
	modTime time.Time
	size    int64
}

// NewFSStore creates a store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &FSStore{
		root:  abs,
		cache: make(map[string]cacheEntry),
	}, nil
}

// Root returns the absolute vault directory.
func (s *FSStore) Root() string {
	return s.root
}

// Abs maps a vault-relative path onto the file system.
func (s *FSStore) Abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(NormalizePath(p)))
}

// Rel maps an absolute file system path back into the vault. ok is false
// for paths outside the root.
func (s *FSStore) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return NormalizePath(filepath.ToSlash(rel)), true
}

// Read returns the current content of a document and refreshes the cache.
func (s *FSStore) Read(ctx context.Context, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := s.Abs(doc.Path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", notFound(doc.Path)
		}
		return "", fmt.Errorf("stat %s: %w", doc.Path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", doc.Path, err)
	}

	content := string(data)
	s.mu.Lock()
	s.cache[doc.Path] = cacheEntry{content: content, modTime: info.ModTime(), size: info.Size()}
	s.mu.Unlock()
	return content, nil
}

// CachedRead returns cached content while the file's mod time and size are
// unchanged, and falls back to Read otherwise.
func (s *FSStore) CachedRead(ctx context.Context, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	entry, ok := s.cache[doc.Path]
	s.mu.RUnlock()

	if ok {
		info, err := os.Stat(s.Abs(doc.Path))
		if err == nil && info.ModTime().Equal(entry.modTime) && info.Size() == entry.size {
			return entry.content, nil
		}
	}
	return s.Read(ctx, doc)
}

// Invalidate drops the cached content of a document.
func (s *FSStore) Invalidate(p string) {
	s.mu.Lock()
	delete(s.cache, NormalizePath(p))
	s.mu.Unlock()
}

// ListMarkdownDocuments walks the vault for markdown notes. Hidden
// directories (".git", ".autotemplar", ...) are skipped.
func (s *FSStore) ListMarkdownDocuments(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != "."+MarkdownExtension {
			return nil
		}
		rel, ok := s.Rel(p)
		if !ok {
			return nil
		}
		docs = append(docs, NewDocument(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing vault %s: %w", s.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Resolve returns a handle for an existing regular file, or nil.
func (s *FSStore) Resolve(p string) *Document {
	p = NormalizePath(p)
	if p == "" {
		return nil
	}
	info, err := os.Stat(s.Abs(p))
	if err != nil || info.IsDir() {
		return nil
	}
	return NewDocument(p)
}
