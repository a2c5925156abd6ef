package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kxlu/showprep/internal/enrich"
	"github.com/kxlu/showprep/internal/fetch"
	"github.com/kxlu/showprep/internal/research"
	"github.com/kxlu/showprep/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New()
	// Client with no provider: every track gets "not configured" placeholders.
	pipeline := enrich.New(research.NewClient(nil, 0), 0)
	srv, err := New(st, pipeline, fetch.NewPreviewer(0))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, st
}

func uploadCSV(t *testing.T, srv *Server, csvData string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "playlist.csv")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write([]byte(csvData))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/shows", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// lastEvent decodes the final SSE data line from an upload response.
func lastEvent(t *testing.T, body string) uploadEvent {
	t.Helper()
	var last string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			last = strings.TrimPrefix(line, "data: ")
		}
	}
	if last == "" {
		t.Fatalf("no SSE events in response: %q", body)
	}
	var ev uploadEvent
	if err := json.Unmarshal([]byte(last), &ev); err != nil {
		t.Fatalf("decoding event %q: %v", last, err)
	}
	return ev
}

func TestUploadCreatesShowWithPlaceholders(t *testing.T) {
	srv, st := newTestServer(t)

	rec := uploadCSV(t, srv, "artist,title\nMiles Davis,So What\nThe Beatles,Hey Jude\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	ev := lastEvent(t, rec.Body.String())
	if ev.Type != "complete" {
		t.Fatalf("expected complete event, got %q", ev.Type)
	}
	if ev.Show == nil || len(ev.Show.Tracks) != 2 {
		t.Fatalf("expected show with 2 tracks, got %+v", ev.Show)
	}
	for _, tr := range ev.Show.Tracks {
		if tr.CulturalContext != research.NotConfiguredText {
			t.Errorf("expected not-configured sentinel, got %q", tr.CulturalContext)
		}
		if len(tr.TalkingPoints) != 3 {
			t.Errorf("expected 3 talking points, got %d", len(tr.TalkingPoints))
		}
		if len(tr.Sources) != 0 {
			t.Errorf("expected empty sources, got %d", len(tr.Sources))
		}
	}

	if active, ok := st.ActiveShow(); !ok || active.ID != ev.Show.ID {
		t.Error("expected uploaded show to become active")
	}
}

func TestUploadRejectsEmptyCSV(t *testing.T) {
	srv, st := newTestServer(t)

	rec := uploadCSV(t, srv, "artist,title\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = uploadCSV(t, srv, "x,y\nfoo,bar\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unresolvable columns, got %d", rec.Code)
	}

	if len(st.Shows()) != 0 {
		t.Error("expected no partial state after rejected uploads")
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/shows", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMarkPlayedAndFilteredTracks(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := uploadCSV(t, srv, "artist,title\nMiles Davis,So What\nThe Beatles,Hey Jude\n")
	show := lastEvent(t, rec.Body.String()).Show
	first := show.Tracks[0]

	// Mark the first track played.
	req := httptest.NewRequest("POST", "/api/shows/"+show.ID+"/tracks/"+first.ID+"/played", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entry store.PlayEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decoding play entry: %v", err)
	}
	if !entry.Played {
		t.Error("expected played=true")
	}

	// played filter returns exactly the marked track.
	tracks := fetchTracks(t, srv, show.ID, "played=played")
	if len(tracks) != 1 || tracks[0].ID != first.ID {
		t.Errorf("expected only the played track, got %d tracks", len(tracks))
	}

	// unplayed filter returns the other.
	tracks = fetchTracks(t, srv, show.ID, "played=unplayed")
	if len(tracks) != 1 || tracks[0].ID != show.Tracks[1].ID {
		t.Errorf("expected only the unplayed track, got %d tracks", len(tracks))
	}
}

func fetchTracks(t *testing.T, srv *Server, showID, query string) []store.Track {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/shows/"+showID+"/tracks?"+query, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Tracks []store.Track `json:"tracks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding tracks: %v", err)
	}
	return resp.Tracks
}

func TestMarkPlayedUnknownTrack(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/shows/nope/tracks/missing/played", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExportRoute(t *testing.T) {
	srv, st := newTestServer(t)

	rec := uploadCSV(t, srv, "artist,title\nMiles Davis,So What\nThe Beatles,Hey Jude\n")
	show := lastEvent(t, rec.Body.String()).Show
	st.MarkPlayed(show.ID, show.Tracks[0].ID)

	req := httptest.NewRequest("GET", "/api/export", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "kxlu-radio-data-") {
		t.Errorf("expected canonical export filename, got %q", cd)
	}

	var doc struct {
		Shows        []store.Show               `json:"shows"`
		PlayedTracks map[string]store.PlayEntry `json:"playedTracks"`
		ExportDate   string                     `json:"exportDate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(doc.Shows) != 1 {
		t.Errorf("expected 1 show, got %d", len(doc.Shows))
	}
	if len(doc.PlayedTracks) != 1 {
		t.Errorf("expected 1 played entry, got %d", len(doc.PlayedTracks))
	}
	if doc.ExportDate == "" {
		t.Error("expected export date set")
	}
}

func TestIndexRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Upload a playlist") {
		t.Error("expected upload form on index page")
	}
	// The create endpoint streams SSE, so the form must be driven by the
	// upload script rather than a plain browser post.
	if !strings.Contains(rec.Body.String(), "/static/upload.js") {
		t.Error("expected upload script wired on index page")
	}
	if !strings.Contains(rec.Body.String(), `id="upload-progress"`) {
		t.Error("expected progress container on index page")
	}
}

func TestShowAndPrepRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := uploadCSV(t, srv, "artist,title\nFela Kuti,Zombie\n")
	show := lastEvent(t, rec.Body.String()).Show

	req := httptest.NewRequest("GET", "/shows/"+show.ID, nil)
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	if !strings.Contains(rec2.Body.String(), "Fela Kuti") {
		t.Error("expected track on show page")
	}

	req = httptest.NewRequest("GET", "/shows/"+show.ID+"/prep", nil)
	rec2 = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	if !strings.Contains(rec2.Body.String(), "Talking points") {
		t.Error("expected talking points section on prep page")
	}

	req = httptest.NewRequest("GET", "/shows/does-not-exist", nil)
	rec2 = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec2.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}

	req = httptest.NewRequest("GET", "/static/upload.js", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for upload script, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upload-form") {
		t.Error("expected upload script content")
	}
}

func TestSourcePreviewRequiresURL(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/source-preview", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
