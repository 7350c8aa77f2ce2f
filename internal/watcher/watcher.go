// Package watcher turns file system notifications for a vault into batches
// of debounced change events.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/fsnotify/fsnotify"
)

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

var eventTypeNames = [...]string{
	EventTypeCreated:  "created",
	EventTypeModified: "modified",
	EventTypeDeleted:  "deleted",
	EventTypeRenamed:  "renamed",
}

func (e EventType) String() string {
	if e < 0 || int(e) >= len(eventTypeNames) {
		return "unknown"
	}
	return eventTypeNames[e]
}

// FileFilter reports whether a path is of interest.
type FileFilter func(path string) bool

// ChangeHandler receives one debounced batch.
type ChangeHandler func(events []ChangeEvent) error

// FileWatcher watches directory trees and delivers changes in batches once
// the tree has been quiet for the debounce delay.
type FileWatcher struct {
	fs     *fsnotify.Watcher
	delay  time.Duration
	logger logging.Logger

	mutex    sync.RWMutex
	filters  []FileFilter
	handlers []ChangeHandler

	stopOnce sync.Once
}

// NewFileWatcher creates a watcher. Nothing is watched until AddRecursive.
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileWatcher{
		fs:     w,
		delay:  debounceDelay,
		logger: logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter; an event is kept only if every filter accepts it.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	fw.filters = append(fw.filters, filter)
	fw.mutex.Unlock()
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	fw.handlers = append(fw.handlers, handler)
	fw.mutex.Unlock()
}

// AddRecursive watches root and every non-hidden directory below it.
func (fw *FileWatcher) AddRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != abs && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return fw.fs.Add(path)
	})
}

// Start runs the watch loop until ctx ends or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.run(ctx)
	return nil
}

// Stop releases the underlying watcher. Safe to call twice.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.fs.Close()
	})
	return err
}

func (fw *FileWatcher) run(ctx context.Context) {
	pending := newBatch()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.fs.Events:
			if !ok {
				return
			}
			changes := fw.translate(ctx, event)
			if len(changes) == 0 {
				continue
			}
			for _, change := range changes {
				pending.add(change)
			}
			timer.Reset(fw.delay)

		case err, ok := <-fw.fs.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")

		case <-timer.C:
			fw.deliver(ctx, pending.drain())
		}
	}
}

// translate converts an fsnotify event. A new directory joins the watch set
// and is reported as the creation of every file already inside it, which
// covers folders moved in from outside the tree.
func (fw *FileWatcher) translate(ctx context.Context, event fsnotify.Event) []ChangeEvent {
	info, statErr := os.Stat(event.Name)
	if statErr == nil && info.IsDir() {
		if !event.Has(fsnotify.Create) || isHidden(filepath.Base(event.Name)) {
			return nil
		}
		if err := fw.AddRecursive(event.Name); err != nil {
			fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
		}
		return fw.arrivals(ctx, event.Name)
	}
	if !fw.accepts(event.Name) {
		return nil
	}

	change := ChangeEvent{Path: event.Name, Type: EventTypeModified}
	switch {
	case event.Has(fsnotify.Create):
		change.Type = EventTypeCreated
	case event.Has(fsnotify.Remove):
		change.Type = EventTypeDeleted
	case event.Has(fsnotify.Rename):
		change.Type = EventTypeRenamed
	}
	if statErr == nil {
		change.ModTime = info.ModTime()
		change.Size = info.Size()
	}
	return []ChangeEvent{change}
}

// arrivals lists the files below a newly created directory as created.
func (fw *FileWatcher) arrivals(ctx context.Context, dir string) []ChangeEvent {
	var changes []ChangeEvent
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !fw.accepts(path) {
			return nil
		}
		change := ChangeEvent{Path: path, Type: EventTypeCreated}
		if info, err := d.Info(); err == nil {
			change.ModTime = info.ModTime()
			change.Size = info.Size()
		}
		changes = append(changes, change)
		return nil
	})
	if err != nil {
		fw.logger.Warn(ctx, err, "Failed to list new directory", "path", dir)
	}
	return changes
}

// accepts reports whether every filter keeps path.
func (fw *FileWatcher) accepts(path string) bool {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()
	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) deliver(ctx context.Context, events []ChangeEvent) {
	if len(events) == 0 {
		return
	}
	fw.mutex.RLock()
	handlers := fw.handlers
	fw.mutex.RUnlock()

	fw.logger.Debug(ctx, "Delivering changes", "events", len(events))
	for _, handler := range handlers {
		if err := handler(events); err != nil {
			fw.logger.Error(ctx, err, "File watcher handler error", "events", len(events))
		}
	}
}

// batch coalesces events per path, keeping the order in which paths were
// first seen. The latest event for a path wins, except that a file created
// and then written within one batch stays "created".
type batch struct {
	order  []string
	byPath map[string]ChangeEvent
}

func newBatch() *batch {
	return &batch{byPath: make(map[string]ChangeEvent)}
}

func (b *batch) add(event ChangeEvent) {
	prev, seen := b.byPath[event.Path]
	if !seen {
		b.order = append(b.order, event.Path)
	} else if prev.Type == EventTypeCreated && event.Type == EventTypeModified {
		event.Type = EventTypeCreated
	}
	b.byPath[event.Path] = event
}

func (b *batch) drain() []ChangeEvent {
	events := make([]ChangeEvent, 0, len(b.order))
	for _, path := range b.order {
		events = append(events, b.byPath[path])
	}
	b.order = b.order[:0]
	clear(b.byPath)
	return events
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// MarkdownFilter keeps markdown notes only, using the same case-sensitive
// extension rule as the vault.
func MarkdownFilter(path string) bool {
	return filepath.Ext(path) == "."+vault.MarkdownExtension
}

// NoHiddenFilter drops anything inside a hidden directory or a hidden file.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if isHidden(part) {
			return false
		}
	}
	return true
}
