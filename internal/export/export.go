package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kxlu/showprep/internal/store"
)

// Document is the one-way export format. There is no import path; the file
// is the only way state survives the session.
type Document struct {
	Shows        []store.Show               `json:"shows"`
	PlayedTracks map[string]store.PlayEntry `json:"playedTracks"`
	ExportDate   time.Time                  `json:"exportDate"`
}

// Build assembles an export document from a store snapshot.
func Build(shows []store.Show, played map[string]store.PlayEntry, now time.Time) Document {
	if shows == nil {
		shows = []store.Show{}
	}
	if played == nil {
		played = map[string]store.PlayEntry{}
	}
	return Document{Shows: shows, PlayedTracks: played, ExportDate: now}
}

// FileName returns the canonical export file name for the given date.
func FileName(now time.Time) string {
	return fmt.Sprintf("kxlu-radio-data-%s.json", now.Format("2006-01-02"))
}

// Write serializes the document as indented JSON.
func (d Document) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
