package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.fs)
	assert.Equal(t, 100*time.Millisecond, watcher.delay)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(MarkdownFilter)
	watcher.AddHandler(func([]ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 1)
	assert.Len(t, watcher.handlers, 1)
}

func TestFileWatcherDeliversMarkdownChanges(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	watcher.AddFilter(MarkdownFilter)

	var mu sync.Mutex
	var received []ChangeEvent
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		received = append(received, events...)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, event := range received {
		assert.Equal(t, ".md", filepath.Ext(event.Path))
	}
}

func TestFileWatcherPicksUpNewDirectories(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))

	var mu sync.Mutex
	seen := make(map[string]bool)
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		for _, event := range events {
			seen[filepath.Base(event.Path)] = true
		}
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	sub := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "meeting.md"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["meeting.md"]
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcherReportsFilesOfMovedInDirectory(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	watcher.AddFilter(MarkdownFilter)

	var mu sync.Mutex
	created := make(map[string]EventType)
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		for _, event := range events {
			created[event.Path] = event.Type
		}
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	staging := filepath.Join(t.TempDir(), "daily")
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "Daily.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "nested", "Weekly.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "cover.png"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(dir, "daily")
	require.NoError(t, os.Rename(staging, target))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, daily := created[filepath.Join(target, "Daily.md")]
		_, weekly := created[filepath.Join(target, "nested", "Weekly.md")]
		return daily && weekly
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, EventTypeCreated, created[filepath.Join(target, "Daily.md")])
	assert.Equal(t, EventTypeCreated, created[filepath.Join(target, "nested", "Weekly.md")])
	assert.NotContains(t, created, filepath.Join(target, "cover.png"))
	assert.NotContains(t, created, target)
}

func TestBatchCoalescesInOrder(t *testing.T) {
	pending := newBatch()
	pending.add(ChangeEvent{Path: "b.md", Type: EventTypeCreated})
	pending.add(ChangeEvent{Path: "a.md", Type: EventTypeModified})
	pending.add(ChangeEvent{Path: "b.md", Type: EventTypeModified})
	pending.add(ChangeEvent{Path: "a.md", Type: EventTypeDeleted})

	events := pending.drain()
	require.Len(t, events, 2)
	assert.Equal(t, "b.md", events[0].Path)
	assert.Equal(t, EventTypeCreated, events[0].Type)
	assert.Equal(t, "a.md", events[1].Path)
	assert.Equal(t, EventTypeDeleted, events[1].Type)

	assert.Empty(t, pending.drain())

	pending.add(ChangeEvent{Path: "c.md", Type: EventTypeRenamed})
	events = pending.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeRenamed, events[0].Type)
}

func TestFileWatcherStopTwice(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestAddRecursiveSkipsHidden(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes", "deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	require.NoError(t, watcher.AddRecursive(dir))
	list := watcher.fs.WatchList()
	assert.Len(t, list, 3)
	for _, p := range list {
		assert.NotContains(t, p, ".git")
	}

	assert.Error(t, watcher.AddRecursive(filepath.Join(dir, "missing")))
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		path     string
		markdown bool
		visible  bool
	}{
		{"notes/a.md", true, true},
		{"notes/A.MD", false, true},
		{"notes/a.Md", false, true},
		{"notes/a.txt", false, true},
		{".obsidian/workspace.md", true, false},
		{"notes/.draft.md", true, false},
		{"notes/../a.md", true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.markdown, MarkdownFilter(tc.path))
			assert.Equal(t, tc.visible, NoHiddenFilter(tc.path))
		})
	}
}
