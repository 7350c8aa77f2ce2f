// Package preview serves the vault in a browser: a list of notes, each
// note with its injected template block, and the settings panel for the
// template folder. Blocks are pushed to open pages over a websocket as soon
// as they finish rendering.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/autotemplar/internal/dispatch"
	"github.com/conneroisu/autotemplar/internal/editor"
	"github.com/conneroisu/autotemplar/internal/frontmatter"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/render"
	"github.com/conneroisu/autotemplar/internal/tagindex"
	"github.com/conneroisu/autotemplar/internal/vault"
	"github.com/conneroisu/autotemplar/internal/workspace"
)

// BlockWait bounds how long a note page waits for its block before it is
// served; later results arrive over the websocket.
const BlockWait = 2 * time.Second

// Server is the preview HTTP server.
type Server struct {
	addr       string
	store      vault.Store
	workspace  *workspace.Workspace
	controller *dispatch.Controller
	renderer   render.MarkdownRenderer
	hub        *Hub
	logger     logging.Logger

	serverMutex sync.Mutex
	httpServer  *http.Server
	listener    net.Listener

	trackMutex  sync.Mutex
	unsubscribe func()

	indexEvents <-chan tagindex.Event
}

// New creates a server and starts following the workspace's active view.
func New(addr string, store vault.Store, ws *workspace.Workspace, controller *dispatch.Controller, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		addr:       addr,
		store:      store,
		workspace:  ws,
		controller: controller,
		renderer:   render.NewGoldmarkRenderer(),
		hub:        NewHub(logger),
		logger:     logger.WithComponent("preview"),
	}
	s.indexEvents = controller.Index().Watch()
	ws.OnOpen(s.follow)
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/note", s.handleNote)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/", s.handleIndex)
	return chain(mux, loggingMiddleware(s.logger), securityHeaders)
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.serverMutex.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.serverMutex.Unlock()

	go s.hub.Run(ctx)
	go s.relayIndex(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Preview server shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Preview server listening", "url", "http://"+listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview server: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start has been called.
func (s *Server) Addr() string {
	s.serverMutex.Lock()
	defer s.serverMutex.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.trackMutex.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.trackMutex.Unlock()
	s.controller.Index().Unwatch(s.indexEvents)

	s.serverMutex.Lock()
	srv := s.httpServer
	s.serverMutex.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// follow subscribes to the newly active view and pushes its blocks.
func (s *Server) follow(ctx context.Context, doc *vault.Document) {
	view := s.workspace.ActiveView()
	if view == nil || view.Document().Path != doc.Path {
		return
	}

	s.trackMutex.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = view.Subscribe(func(u editor.Update) {
		for _, el := range u.Elements {
			go s.push(view, el)
		}
	})
	s.trackMutex.Unlock()

	if block := view.Block(); block != nil {
		go s.push(view, block)
	}
}

// push broadcasts el once it settles.
func (s *Server) push(view *editor.View, el editor.Element) {
	<-el.Done()
	if !s.deliverable(view, el) {
		return
	}
	s.hub.Broadcast(UpdateMessage{
		Type:    "block",
		Target:  view.Document().Path,
		Content: el.HTML(),
	})
}

// deliverable reports whether a settled element is still worth sending: it
// was not superseded, it is the block currently mounted in view, and view
// still shows the active note.
func (s *Server) deliverable(view *editor.View, el editor.Element) bool {
	if c, ok := el.(*render.Container); ok && c.Status() == render.StatusDiscarded {
		return false
	}
	if view.Block() != el {
		return false
	}
	return s.workspace.ActiveView() == view
}

// relayIndex tells browsers that the tag index was replaced, until ctx ends
// or the server shuts down.
func (s *Server) relayIndex(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.indexEvents:
			if !ok {
				return
			}
			s.logger.Debug(ctx, "Index replaced", "type", event.Type.String(), "folder", event.Folder, "tags", event.Tags)
			s.hub.Broadcast(UpdateMessage{
				Type:      "index",
				Target:    event.Folder,
				Content:   fmt.Sprintf("%d templates, %d tags", event.Templates, event.Tags),
				Timestamp: event.Timestamp,
			})
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		// Rendered links are rooted at the vault.
		if doc := vault.NewDocument(vault.NormalizePath(r.URL.Path)); doc.IsMarkdown() {
			http.Redirect(w, r, "/note?path="+url.QueryEscape(doc.Path), http.StatusFound)
			return
		}
		http.NotFound(w, r)
		return
	}

	docs, err := s.store.ListMarkdownDocuments(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), err, "Listing notes failed")
		http.Error(w, "failed to list notes", http.StatusInternalServerError)
		return
	}

	folder := s.controller.TemplatesFolder()
	notes := make([]noteLink, 0, len(docs))
	for _, doc := range docs {
		notes = append(notes, noteLink{Path: doc.Path, Template: doc.InFolder(folder)})
	}
	templ.Handler(indexPage(notes, folder)).ServeHTTP(w, r)
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	path := vault.NormalizePath(r.URL.Query().Get("path"))
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}

	view := s.workspace.ActiveView()
	if view == nil || view.Document().Path != path {
		var err error
		view, err = s.workspace.Open(r.Context(), path)
		switch {
		case errors.Is(err, vault.ErrNotFound):
			http.NotFound(w, r)
			return
		case errors.Is(err, workspace.ErrNotMarkdown):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		case err != nil:
			s.logger.Error(r.Context(), err, "Opening note failed", "path", path)
			http.Error(w, "failed to open note", http.StatusInternalServerError)
			return
		}
	}

	data := notePageData{Path: path}
	if block := view.Block(); block != nil {
		ctx, cancel := context.WithTimeout(r.Context(), BlockWait)
		select {
		case <-block.Done():
		case <-ctx.Done():
		}
		cancel()
		data.Block = block.HTML()
	}

	text := view.State().Text()
	fm, body, _ := frontmatter.Split(text)
	data.Frontmatter = fm
	var html strings.Builder
	if err := s.renderer.Render(r.Context(), body, &html, view.Document().Path); err != nil {
		s.logger.Warn(r.Context(), err, "Rendering note failed", "path", path)
	}
	data.Body = html.String()

	templ.Handler(notePage(data)).ServeHTTP(w, r)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		saved := r.URL.Query().Get("saved") == "1"
		templ.Handler(settingsPage(s.controller.TemplatesFolder(), saved, "")).ServeHTTP(w, r)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		folder := r.PostForm.Get("folder")
		if err := s.controller.SetTemplateFolder(r.Context(), folder); err != nil {
			s.logger.Error(r.Context(), err, "Saving template folder failed", "folder", folder)
			templ.Handler(
				settingsPage(folder, false, "Could not save the template folder: "+err.Error()),
				templ.WithStatus(http.StatusInternalServerError),
			).ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)

	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Folder    string `json:"folder"`
	Templates int    `json:"templates"`
	Tags      int    `json:"tags"`
	Active    string `json:"active,omitempty"`
	Clients   int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	index := s.controller.Index()
	resp := healthResponse{
		Status:    "ok",
		Folder:    s.controller.TemplatesFolder(),
		Templates: index.Templates(),
		Tags:      len(index.Tags()),
		Clients:   s.hub.Count(),
	}
	if doc := s.workspace.ActiveDocument(); doc != nil {
		resp.Active = doc.Path
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn(r.Context(), err, "Writing health response failed")
	}
}
