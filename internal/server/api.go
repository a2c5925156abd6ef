package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kxlu/showprep/internal/export"
	"github.com/kxlu/showprep/internal/filter"
	"github.com/kxlu/showprep/internal/parser"
	"github.com/kxlu/showprep/internal/store"
)

// uploadEvent is one SSE message during an enrichment run.
type uploadEvent struct {
	Type     string      `json:"type"`
	Percent  float64     `json:"percent,omitempty"`
	Label    string      `json:"label,omitempty"`
	Show     *store.Show `json:"show,omitempty"`
	Failures []string    `json:"failures,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// handleCreateShow ingests an uploaded CSV and runs the enrichment pipeline,
// streaming progress as server-sent events. Malformed input is rejected
// outright with no partial state; at most one run is active at a time.
func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "An enrichment run is already in progress", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing CSV file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	records, err := parser.Parse(file)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, parser.ErrEmptyInput) {
			log.Printf("CSV parse error for %s: %v", header.Filename, err)
		}
		http.Error(w, err.Error(), status)
		return
	}
	if parser.ResolvableCount(records) == 0 {
		http.Error(w, "No rows with a resolvable artist and title", http.StatusBadRequest)
		return
	}

	flusher, err := setupSSE(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	tracks, failures := s.pipeline.Run(r.Context(), records, func(percent float64, label string) {
		sendEvent(w, flusher, uploadEvent{Type: "progress", Percent: percent, Label: label})
	})

	now := time.Now()
	show := s.store.CreateShow(store.ShowName(now, header.Filename), header.Filename, tracks)

	message := fmt.Sprintf("Researched %d tracks", len(show.Tracks))
	if len(failures) > 0 {
		message = fmt.Sprintf("Researched %d tracks, %d failed", len(show.Tracks), len(failures))
	}
	sendEvent(w, flusher, uploadEvent{
		Type:     "complete",
		Percent:  100,
		Show:     &show,
		Failures: failures,
		Message:  message,
	})
}

// handleTracks returns the filtered track list for a show plus the derived
// filter option lists.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	show, ok := s.store.Show(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Show not found", http.StatusNotFound)
		return
	}

	search, filters := filtersFromQuery(r)
	played := s.store.PlayedFor(show.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":  filter.Apply(show.Tracks, search, filters, played),
		"options": filter.DeriveOptions(show.Tracks),
		"played":  played,
	})
}

func (s *Server) handleMarkPlayed(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "id")
	trackID := chi.URLParam(r, "trackID")
	if !s.store.MarkPlayed(showID, trackID) {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	entry := s.store.PlayedFor(showID)[trackID]
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	shows, played := s.store.Snapshot()
	now := time.Now()
	doc := export.Build(shows, played, now)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	if err := doc.Write(w); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

func (s *Server) handleSourcePreview(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	preview, err := s.previewer.Preview(rawURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func filtersFromQuery(r *http.Request) (string, filter.Filters) {
	q := r.URL.Query()
	played := filter.Played(q.Get("played"))
	if played == "" {
		played = filter.PlayedAll
	}
	return q.Get("search"), filter.Filters{
		Genre:  q.Get("genre"),
		Decade: q.Get("decade"),
		Region: q.Get("region"),
		Played: played,
	}
}

func setupSSE(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return flusher, nil
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Println("SSE marshal error:", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
