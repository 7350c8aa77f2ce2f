package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/vault"
)

func newTestWorkspace(store vault.Store) *Workspace {
	return New(context.Background(), store, nil, nil)
}

func TestOpen(t *testing.T) {
	store := vault.NewMemStore(map[string]string{
		"a.md":      "alpha",
		"b.md":      "beta",
		"image.png": "binary",
	})
	ws := newTestWorkspace(store)
	assert.Nil(t, ws.ActiveView())
	assert.Nil(t, ws.ActiveDocument())

	var opened []string
	ws.OnOpen(func(_ context.Context, doc *vault.Document) {
		opened = append(opened, doc.Path)
	})

	first, err := ws.Open(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.State().Text())
	assert.Same(t, first, ws.ActiveView())
	assert.True(t, ws.IsActive("a.md"))

	second, err := ws.Open(context.Background(), "/b.md")
	require.NoError(t, err)
	assert.Equal(t, "b.md", ws.ActiveDocument().Path)
	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, []string{"a.md", "b.md"}, opened)

	_, err = ws.Open(context.Background(), "image.png")
	assert.ErrorIs(t, err, ErrNotMarkdown)
	_, err = ws.Open(context.Background(), "missing.md")
	assert.ErrorIs(t, err, vault.ErrNotFound)
	assert.Same(t, second, ws.ActiveView())

	ws.Close()
	assert.Nil(t, ws.ActiveView())
	assert.True(t, second.Closed())
}

func TestOpenUsesProviderFactory(t *testing.T) {
	store := vault.NewMemStore(map[string]string{"a.md": "alpha"})
	var built []string
	ws := New(context.Background(), store, func(doc *vault.Document) editor.DecorationProvider {
		built = append(built, doc.Path)
		return nil
	}, nil)

	_, err := ws.Open(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, built)
}

func TestReload(t *testing.T) {
	store := vault.NewMemStore(map[string]string{"a.md": "alpha", "b.md": "beta"})
	ws := newTestWorkspace(store)
	view, err := ws.Open(context.Background(), "a.md")
	require.NoError(t, err)

	updated, err := ws.Reload(context.Background(), "a.md")
	require.NoError(t, err)
	assert.False(t, updated)

	store.Put("a.md", "alpha v2")
	updated, err = ws.Reload(context.Background(), "b.md")
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = ws.Reload(context.Background(), "a.md")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "alpha v2", view.State().Text())

	store.Remove("a.md")
	_, err = ws.Reload(context.Background(), "a.md")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}
