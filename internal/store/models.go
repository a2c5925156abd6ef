package store

import "time"

// Source is a citation backing one or more talking points.
type Source struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// TalkingPoint is a short radio-ready fact about a track. Sources holds ids
// into the owning track's source list, best-effort and not validated.
type TalkingPoint struct {
	Text    string `json:"text"`
	Sources []int  `json:"sources"`
}

// Track is one enriched song entry. It is immutable after creation; play
// state lives in a separate record keyed by show and track id.
type Track struct {
	ID           string            `json:"id"`
	Artist       string            `json:"artist"`
	Title        string            `json:"title"`
	OriginalData map[string]string `json:"originalData,omitempty"`
	DateAdded    time.Time         `json:"dateAdded"`

	ReleaseYear       string         `json:"releaseYear"`
	Genre             string         `json:"genre"`
	SubGenre          string         `json:"subGenre"`
	Region            string         `json:"region"`
	CulturalContext   string         `json:"culturalContext"`
	MusicalFacts      string         `json:"musicalFacts"`
	GlobalConnections string         `json:"globalConnections"`
	TalkingPoints     []TalkingPoint `json:"talkingPoints"`
	Sources           []Source       `json:"sources"`
}

// Show is one uploaded playlist and its researched tracks, an immutable
// snapshot of a single enrichment run. Track order is CSV order.
type Show struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	FileName string    `json:"fileName"`
	Tracks   []Track   `json:"tracks"`
}

// PlayEntry records that a track was marked played and when.
type PlayEntry struct {
	Played    bool      `json:"played"`
	Timestamp time.Time `json:"timestamp"`
}
