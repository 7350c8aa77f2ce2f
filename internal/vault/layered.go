package vault

import (
	"context"
	"errors"
	"sort"
)

// LayeredStore reads from an in-memory layer first and falls back to a base
// store, so unsaved content can be shown alongside the rest of the vault.
type LayeredStore struct {
	top  *MemStore
	base Store
}

// NewLayeredStore stacks top over base.
func NewLayeredStore(top *MemStore, base Store) *LayeredStore {
	return &LayeredStore{top: top, base: base}
}

func (s *LayeredStore) Read(ctx context.Context, doc *Document) (string, error) {
	content, err := s.top.Read(ctx, doc)
	if errors.Is(err, ErrNotFound) {
		return s.base.Read(ctx, doc)
	}
	return content, err
}

func (s *LayeredStore) CachedRead(ctx context.Context, doc *Document) (string, error) {
	content, err := s.top.CachedRead(ctx, doc)
	if errors.Is(err, ErrNotFound) {
		return s.base.CachedRead(ctx, doc)
	}
	return content, err
}

// ListMarkdownDocuments merges both layers; a path present in both is
// listed once.
func (s *LayeredStore) ListMarkdownDocuments(ctx context.Context) ([]*Document, error) {
	docs, err := s.base.ListMarkdownDocuments(ctx)
	if err != nil {
		return nil, err
	}
	overlay, err := s.top.ListMarkdownDocuments(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.Path] = true
	}
	for _, doc := range overlay {
		if !seen[doc.Path] {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *LayeredStore) Resolve(p string) *Document {
	if doc := s.top.Resolve(p); doc != nil {
		return doc
	}
	return s.base.Resolve(p)
}
