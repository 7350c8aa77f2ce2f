// Package tagindex maps front-matter tags to the templates that declare them.
//
// The index is built by scanning every markdown note below the configured
// template folder. Each template is identified by its base name and listed
// under every tag its own front-matter declares. A rebuild computes a fresh
// mapping off to the side and swaps it in under the lock, so readers see
// either the old index or the new one and never a half-built map.
package tagindex

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	tperrors "github.com/conneroisu/autotemplar/internal/errors"
	"github.com/conneroisu/autotemplar/internal/frontmatter"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/vault"
)

// Event is broadcast after the index has been replaced.
type Event struct {
	Type      EventType
	Folder    string
	Tags      int
	Templates int
	Timestamp time.Time
}

// EventType represents the type of index event
type EventType int

const (
	EventTypeRebuilt EventType = iota
	EventTypeCleared
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeRebuilt:
		return "rebuilt"
	case EventTypeCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Index holds the tag -> template identifiers mapping.
type Index struct {
	store   vault.Store
	logger  logging.Logger
	workers int

	// rebuildMu serialises rebuilds; mutex guards the published fields.
	rebuildMu sync.Mutex
	mutex     sync.RWMutex
	entries   map[string][]string
	folder    string
	templates int
	issues    []tperrors.Issue
	watchers  []chan Event
}

// New creates an empty index reading templates through store.
func New(store vault.Store, logger logging.Logger) *Index {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &Index{
		store:   store,
		logger:  logger.WithComponent("tagindex"),
		workers: workers,
		entries: make(map[string][]string),
	}
}

type scanJob struct {
	pos int
	doc *vault.Document
}

type scanResult struct {
	doc  *vault.Document
	tags []string
}

// Rebuild replaces the index with one computed from templateFolder. An empty
// folder clears the index. Unreadable templates and broken front-matter
// contribute no tags and are recorded as issues; only listing failures and
// cancellation return an error, in which case the previous index is kept.
func (ix *Index) Rebuild(ctx context.Context, templateFolder string) error {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	folder := vault.NormalizePath(templateFolder)
	if folder == "" {
		ix.publish(folder, make(map[string][]string), 0, nil, EventTypeCleared)
		ix.logger.Debug(ctx, "Template folder not set, index cleared")
		return nil
	}

	perf := logging.StartOperation(ix.logger, "rebuild")

	docs, err := ix.store.ListMarkdownDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing templates in %s: %w", folder, err)
	}

	templates := make([]*vault.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.InFolder(folder) {
			templates = append(templates, doc)
		}
	}

	issues := tperrors.NewIssueCollector()
	results, err := ix.scan(ctx, templates, issues)
	if err != nil {
		return err
	}

	entries := make(map[string][]string)
	for _, result := range results {
		for _, tag := range result.tags {
			if !contains(entries[tag], result.doc.Basename) {
				entries[tag] = append(entries[tag], result.doc.Basename)
			}
		}
	}

	collected := issues.Issues()
	for _, issue := range collected {
		if issue.Severity >= tperrors.SeverityWarning {
			ix.logger.Warn(ctx, nil, "Template contributes no tags", "path", issue.Path, "reason", issue.Message)
		} else {
			ix.logger.Debug(ctx, "Template contributes no tags", "path", issue.Path, "reason", issue.Message)
		}
	}

	ix.publish(folder, entries, len(templates), collected, EventTypeRebuilt)
	perf.End(ctx, "folder", folder, "templates", len(templates), "tags", len(entries))
	return nil
}

// scan reads the tags of every template through a bounded pool of workers.
// Results keep the order of docs.
func (ix *Index) scan(ctx context.Context, docs []*vault.Document, issues *tperrors.IssueCollector) ([]scanResult, error) {
	results := make([]scanResult, len(docs))
	if len(docs) == 0 {
		return results, nil
	}

	workers := ix.workers
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan scanJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results[job.pos] = scanResult{doc: job.doc, tags: ix.readTags(ctx, job.doc, issues)}
			}
		}()
	}

	var cancelled error
	for pos, doc := range docs {
		select {
		case jobs <- scanJob{pos: pos, doc: doc}:
		case <-ctx.Done():
			cancelled = ctx.Err()
		}
		if cancelled != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (ix *Index) readTags(ctx context.Context, doc *vault.Document, issues *tperrors.IssueCollector) []string {
	content, err := ix.store.Read(ctx, doc)
	if err != nil {
		issues.Warn(doc.Path, "unreadable: %v", err)
		return nil
	}
	tags, err := frontmatter.Inspect(content)
	switch {
	case errors.Is(err, frontmatter.ErrNoBlock):
		issues.Add(tperrors.Issue{Path: doc.Path, Message: "no front-matter", Severity: tperrors.SeverityInfo})
	case err != nil:
		issues.Warn(doc.Path, "%v", err)
	case len(tags) == 0:
		issues.Add(tperrors.Issue{Path: doc.Path, Message: "no tags declared", Severity: tperrors.SeverityInfo})
	}
	return tags
}

func (ix *Index) publish(folder string, entries map[string][]string, templates int, issues []tperrors.Issue, eventType EventType) {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	ix.entries = entries
	ix.folder = folder
	ix.templates = templates
	ix.issues = issues

	event := Event{
		Type:      eventType,
		Folder:    folder,
		Tags:      len(entries),
		Templates: templates,
		Timestamp: time.Now(),
	}
	for _, watcher := range ix.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Lookup returns the template identifiers registered for tag, in discovery
// order, or nil.
func (ix *Index) Lookup(tag string) []string {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	templates := ix.entries[tag]
	if len(templates) == 0 {
		return nil
	}
	out := make([]string, len(templates))
	copy(out, templates)
	return out
}

// Snapshot returns a deep copy of the whole mapping.
func (ix *Index) Snapshot() map[string][]string {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	out := make(map[string][]string, len(ix.entries))
	for tag, templates := range ix.entries {
		out[tag] = append([]string(nil), templates...)
	}
	return out
}

// Tags returns every indexed tag, sorted.
func (ix *Index) Tags() []string {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	tags := make([]string, 0, len(ix.entries))
	for tag := range ix.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Folder returns the template folder of the last rebuild.
func (ix *Index) Folder() string {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()
	return ix.folder
}

// Templates returns how many templates the last rebuild scanned.
func (ix *Index) Templates() int {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()
	return ix.templates
}

// Issues returns the problems found by the last rebuild.
func (ix *Index) Issues() []tperrors.Issue {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()
	return append([]tperrors.Issue(nil), ix.issues...)
}

// Watch returns a channel that receives index events
func (ix *Index) Watch() <-chan Event {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	ch := make(chan Event, 16)
	ix.watchers = append(ix.watchers, ch)
	return ch
}

// Unwatch removes a watcher channel and closes it
func (ix *Index) Unwatch(ch <-chan Event) {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	for i, watcher := range ix.watchers {
		if watcher == ch {
			close(watcher)
			ix.watchers = append(ix.watchers[:i], ix.watchers[i+1:]...)
			break
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
