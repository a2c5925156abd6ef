package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/kxlu/showprep/internal/store"
)

func TestFileName(t *testing.T) {
	now := time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)
	if got := FileName(now); got != "kxlu-radio-data-2026-08-29.json" {
		t.Errorf("unexpected file name %q", got)
	}
}

func TestBuildAndWrite(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	shows := []store.Show{
		{
			ID:       "100",
			Name:     "Test Show",
			Date:     now,
			FileName: "test.csv",
			Tracks: []store.Track{
				{ID: "t1", Artist: "A", Title: "One"},
				{ID: "t2", Artist: "B", Title: "Two"},
			},
		},
	}
	played := map[string]store.PlayEntry{
		"100/t1": {Played: true, Timestamp: now},
	}

	var buf bytes.Buffer
	if err := Build(shows, played, now).Write(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Shows        []store.Show               `json:"shows"`
		PlayedTracks map[string]store.PlayEntry `json:"playedTracks"`
		ExportDate   time.Time                  `json:"exportDate"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	if len(doc.Shows) != 1 {
		t.Errorf("expected 1 show, got %d", len(doc.Shows))
	}
	if len(doc.Shows[0].Tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(doc.Shows[0].Tracks))
	}
	if len(doc.PlayedTracks) != 1 {
		t.Errorf("expected 1 played entry, got %d", len(doc.PlayedTracks))
	}
	if !doc.ExportDate.Equal(now) {
		t.Errorf("expected export date %v, got %v", now, doc.ExportDate)
	}
}

func TestBuildEmptyState(t *testing.T) {
	doc := Build(nil, nil, time.Now())
	if doc.Shows == nil || doc.PlayedTracks == nil {
		t.Error("expected empty collections, not null, in export")
	}
}
