package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/kxlu/showprep/internal/enrich"
	"github.com/kxlu/showprep/internal/fetch"
	"github.com/kxlu/showprep/internal/filter"
	"github.com/kxlu/showprep/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the local web UI and API for show prep. State is session-local:
// it lives in the store until exported.
type Server struct {
	store     *store.Store
	pipeline  *enrich.Pipeline
	previewer *fetch.Previewer
	pages     map[string]*template.Template
	router    chi.Router
	busy      atomic.Bool
}

// New creates a new Server.
func New(st *store.Store, pipeline *enrich.Pipeline, previewer *fetch.Previewer) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"date":     formatDate,
	}

	// Parse base template first, then clone it per page so each page gets
	// its own {{define "content"}} and {{define "title"}}.
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "show.html", "prep.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		store:     st,
		pipeline:  pipeline,
		previewer: previewer,
		pages:     pages,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/shows/{id}", s.handleShow)
	s.router.Get("/shows/{id}/prep", s.handlePrep)
	s.router.Post("/shows/{id}/tracks/{trackID}/played", s.handleMarkPlayedForm)

	s.router.Post("/api/shows", s.handleCreateShow)
	s.router.Get("/api/shows/{id}/tracks", s.handleTracks)
	s.router.Post("/api/shows/{id}/tracks/{trackID}/played", s.handleMarkPlayed)
	s.router.Get("/api/export", s.handleExport)
	s.router.Get("/api/source-preview", s.handleSourcePreview)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	active, hasActive := s.store.ActiveShow()
	s.render(w, "index.html", map[string]any{
		"Shows":     s.store.Shows(),
		"Active":    active,
		"HasActive": hasActive,
		"Busy":      s.busy.Load(),
	})
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	show, ok := s.store.Show(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	search, filters := filtersFromQuery(r)
	played := s.store.PlayedFor(show.ID)
	tracks := filter.Apply(show.Tracks, search, filters, played)

	s.render(w, "show.html", map[string]any{
		"Show":    show,
		"Tracks":  tracks,
		"Played":  played,
		"Options": filter.DeriveOptions(show.Tracks),
		"Search":  search,
		"Filters": filters,
	})
}

func (s *Server) handlePrep(w http.ResponseWriter, r *http.Request) {
	show, ok := s.store.Show(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.render(w, "prep.html", map[string]any{
		"Show":   show,
		"Played": s.store.PlayedFor(show.ID),
	})
}

func (s *Server) handleMarkPlayedForm(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")
	s.store.MarkPlayed(showID, chi.URLParam(r, "trackID"))

	back := r.Referer()
	if back == "" {
		back = "/shows/" + showID
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04")
}

// Serve starts the HTTP server on the given port.
func Serve(st *store.Store, pipeline *enrich.Pipeline, previewer *fetch.Previewer, port int) error {
	srv, err := New(st, pipeline, previewer)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
