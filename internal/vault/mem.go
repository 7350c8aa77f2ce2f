package vault

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory vault.
type MemStore struct {
	mu    sync.RWMutex
	files map[string]string
	reads map[string]int
}

// NewMemStore creates a store holding the given path -> content pairs.
func NewMemStore(files map[string]string) *MemStore {
	s := &MemStore{
		files: make(map[string]string, len(files)),
		reads: make(map[string]int),
	}
	for p, content := range files {
		s.files[NormalizePath(p)] = content
	}
	return s
}

// Put creates or replaces a document.
func (s *MemStore) Put(p, content string) *Document {
	doc := NewDocument(p)
	s.mu.Lock()
	s.files[doc.Path] = content
	s.mu.Unlock()
	return doc
}

// Remove deletes a document.
func (s *MemStore) Remove(p string) {
	s.mu.Lock()
	delete(s.files, NormalizePath(p))
	s.mu.Unlock()
}

// Reads reports how many times a document's content has been read.
func (s *MemStore) Reads(p string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[NormalizePath(p)]
}

func (s *MemStore) Read(ctx context.Context, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[doc.Path]
	if !ok {
		return "", notFound(doc.Path)
	}
	s.reads[doc.Path]++
	return content, nil
}

// CachedRead is the same as Read; memory is the cache.
func (s *MemStore) CachedRead(ctx context.Context, doc *Document) (string, error) {
	return s.Read(ctx, doc)
}

func (s *MemStore) ListMarkdownDocuments(ctx context.Context) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.files))
	for p := range s.files {
		if doc := NewDocument(p); doc.IsMarkdown() {
			docs = append(docs, doc)
		}
	}
	s.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *MemStore) Resolve(p string) *Document {
	p = NormalizePath(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[p]; !ok {
		return nil
	}
	return NewDocument(p)
}
