package preview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/autotemplar/internal/dispatch"
	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/render"
	"github.com/conneroisu/autotemplar/internal/settings"
	"github.com/conneroisu/autotemplar/internal/tagindex"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/conneroisu/autotemplar/internal/watcher"
	"github.com/conneroisu/autotemplar/internal/workspace"
)

type testEnv struct {
	store    *vault.MemStore
	settings *settings.MemoryStore
	ctrl     *dispatch.Controller
	server   *Server
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := vault.NewMemStore(map[string]string{
		"templates/Meeting.md": "---\ntags: [work]\n---\n## Agenda\n\n- item",
		"templates/Daily.md":   "---\ntags: [daily]\n---\nDaily <script>x()</script> checklist",
		"notes/standup.md":     "---\ntags: [work]\n---\nStandup notes",
		"notes/plain.md":       "Nothing to see",
		"image.png":            "binary",
	})
	s := settings.NewMemoryStore(settings.Settings{TemplatesFolder: "templates"})

	var ctrl *dispatch.Controller
	loader := render.NewContentLoader(store, func() string { return ctrl.TemplatesFolder() }, nil)
	ws := workspace.New(ctx, store, func(*vault.Document) editor.DecorationProvider {
		return render.NewPipeline(loader, nil, nil)
	}, nil)
	t.Cleanup(ws.Close)

	ctrl = dispatch.New(store, tagindex.New(store, nil), s, ws, nil)
	ws.OnOpen(ctrl.HandleOpen)
	require.NoError(t, ctrl.Load(ctx))

	server := New("127.0.0.1:0", store, ws, ctrl, nil)
	go server.Hub().Run(ctx)
	go server.relayIndex(ctx)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{store: store, settings: s, ctrl: ctrl, server: server, http: ts}
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIndexListsNotes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "notes/standup.md")
	assert.Contains(t, body, "notes/plain.md")
	assert.Contains(t, body, "(template)")
	assert.NotContains(t, body, "image.png")
	assert.Contains(t, body, "/note?path=notes%2Fstandup.md")

	status, _ = env.get(t, "/missing")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVaultRootedNoteLinksRedirect(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/notes/standup.md")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Standup notes")

	status, _ = env.get(t, "/image.png")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNotePageInjectsBlock(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/note?path=notes/standup.md")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="autotemplar-block"`)
	assert.Contains(t, body, "Agenda")
	assert.Contains(t, body, "Standup notes")
	assert.Contains(t, body, "tags: [work]")
	assert.Less(t, strings.Index(body, "Agenda"), strings.Index(body, "Standup notes"))
}

func TestNotePageErrors(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.get(t, "/note")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.get(t, "/note?path=notes/missing.md")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.get(t, "/note?path=image.png")
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestTemplateNoteHasEmptyBlock(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/note?path=templates/Meeting.md")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<div id="autotemplar-block" contenteditable="false"></div>`)
}

func TestSettingsPanel(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/settings")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `value="templates"`)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.PostForm(env.http.URL+"/settings", url.Values{"folder": {"notes/"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/settings?saved=1", resp.Header.Get("Location"))

	assert.Equal(t, "notes", env.ctrl.TemplatesFolder())
	saved, err := env.settings.Load()
	require.NoError(t, err)
	assert.Equal(t, "notes", saved.TemplatesFolder)

	_, body = env.get(t, "/settings?saved=1")
	assert.Contains(t, body, "Saved.")

	req, err := http.NewRequest(http.MethodDelete, env.http.URL+"/settings", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/note?path=notes/plain.md")

	status, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, status)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "templates", resp.Folder)
	assert.Equal(t, 2, resp.Templates)
	assert.Equal(t, 2, resp.Tags)
	assert.Equal(t, "notes/plain.md", resp.Active)
}

func TestBlockUpdatesArePushed(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialHub(ctx, t, env)

	status, _ := env.get(t, "/note?path=notes/standup.md")
	require.Equal(t, http.StatusOK, status)

	msg := readMessage(ctx, t, conn, "block")
	assert.Equal(t, "notes/standup.md", msg.Target)
	assert.Contains(t, msg.Content, "Agenda")
	assert.False(t, msg.Timestamp.IsZero())

	env.store.Put("templates/Meeting.md", "---\ntags: [work]\n---\nRevised agenda")
	require.NoError(t, env.ctrl.HandleEvents(ctx, []watcher.ChangeEvent{
		{Type: watcher.EventTypeModified, Path: "templates/Meeting.md"},
	}))

	msg = readMessage(ctx, t, conn, "block")
	assert.Contains(t, msg.Content, "Revised agenda")
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string) UpdateMessage {
	t.Helper()
	for {
		var msg UpdateMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func dialHub(ctx context.Context, t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	require.Eventually(t, func() bool { return env.server.Hub().Count() == 1 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func TestIndexRebuildsArePushed(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialHub(ctx, t, env)

	env.store.Put("templates/Review.md", "---\ntags: [review]\n---\nChecklist")
	require.NoError(t, env.ctrl.HandleEvents(ctx, []watcher.ChangeEvent{
		{Type: watcher.EventTypeCreated, Path: "templates/Review.md"},
	}))

	msg := readMessage(ctx, t, conn, "index")
	assert.Equal(t, "templates", msg.Target)
	assert.Equal(t, "3 templates, 3 tags", msg.Content)

	require.NoError(t, env.ctrl.SetTemplateFolder(ctx, ""))
	msg = readMessage(ctx, t, conn, "index")
	assert.Empty(t, msg.Target)
	assert.Equal(t, "0 templates, 0 tags", msg.Content)
}

func TestOnlyTheMountedBlockIsDelivered(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, _ := env.get(t, "/note?path=notes/standup.md")
	require.Equal(t, http.StatusOK, status)

	view := env.server.workspace.ActiveView()
	require.NotNil(t, view)
	old := view.Block()
	require.NotNil(t, old)
	<-old.Done()
	assert.True(t, env.server.deliverable(view, old))

	env.store.Put("templates/Meeting.md", "---\ntags: [work]\n---\nRevised agenda")
	require.NoError(t, env.ctrl.HandleEvents(ctx, []watcher.ChangeEvent{
		{Type: watcher.EventTypeModified, Path: "templates/Meeting.md"},
	}))
	require.Eventually(t, func() bool { return view.Block() != old }, 2*time.Second, 10*time.Millisecond)

	assert.False(t, env.server.deliverable(view, old))
	current := view.Block()
	<-current.Done()
	assert.True(t, env.server.deliverable(view, current))
}

func TestResponsesCarrySecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/settings")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
