package store

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store owns the shows list and the play-state map. Shows are never updated
// or deleted after creation; the only mutations are adding a show and marking
// a track played. Play state is keyed by (show id, track id) so that two
// shows can never share an entry.
type Store struct {
	mu     sync.Mutex
	shows  []Show
	played map[string]PlayEntry
	now    func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		played: make(map[string]PlayEntry),
		now:    time.Now,
	}
}

// CreateShow adds a show built from one enrichment run. The new show is
// prepended to the shows list and becomes the active show.
func (s *Store) CreateShow(name, fileName string, tracks []Track) Show {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now()
	show := Show{
		ID:       s.nextShowID(created),
		Name:     name,
		Date:     created,
		FileName: fileName,
		Tracks:   tracks,
	}
	s.shows = append([]Show{show}, s.shows...)
	return show
}

// MarkPlayed records a track as played. Re-marking an already-played track is
// a no-op; the timestamp stays at the first-played time. Returns false when
// the show or track is unknown.
func (s *Store) MarkPlayed(showID, trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasTrack(showID, trackID) {
		return false
	}
	key := playKey(showID, trackID)
	if _, ok := s.played[key]; ok {
		return true
	}
	s.played[key] = PlayEntry{Played: true, Timestamp: s.now()}
	return true
}

// ActiveShow returns the most recently created show.
func (s *Store) ActiveShow() (Show, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.shows) == 0 {
		return Show{}, false
	}
	return s.shows[0], true
}

// Show returns the show with the given id.
func (s *Store) Show(id string) (Show, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, show := range s.shows {
		if show.ID == id {
			return show, true
		}
	}
	return Show{}, false
}

// Shows returns all shows, newest first.
func (s *Store) Shows() []Show {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Show, len(s.shows))
	copy(out, s.shows)
	return out
}

// PlayedFor returns the play entries for one show, keyed by track id.
func (s *Store) PlayedFor(showID string) map[string]PlayEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := showID + "/"
	out := make(map[string]PlayEntry)
	for key, entry := range s.played {
		if trackID, ok := strings.CutPrefix(key, prefix); ok {
			out[trackID] = entry
		}
	}
	return out
}

// Snapshot returns copies of the shows list and the full play-state map for
// export.
func (s *Store) Snapshot() ([]Show, map[string]PlayEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shows := make([]Show, len(s.shows))
	copy(shows, s.shows)
	played := make(map[string]PlayEntry, len(s.played))
	for k, v := range s.played {
		played[k] = v
	}
	return shows, played
}

// nextShowID derives a show id from the creation time. Two shows created in
// the same millisecond must still get distinct ids, or their play-state keys
// would collide; colliding timestamps get a numeric suffix. Caller holds mu.
func (s *Store) nextShowID(created time.Time) string {
	base := strconv.FormatInt(created.UnixMilli(), 10)
	id := base
	for n := 1; s.hasShow(id); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

func (s *Store) hasShow(id string) bool {
	for _, show := range s.shows {
		if show.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasTrack(showID, trackID string) bool {
	for _, show := range s.shows {
		if show.ID != showID {
			continue
		}
		for _, t := range show.Tracks {
			if t.ID == trackID {
				return true
			}
		}
	}
	return false
}

func playKey(showID, trackID string) string {
	return showID + "/" + trackID
}

// ShowName derives a display name from the creation date and the uploaded
// file name.
func ShowName(date time.Time, fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if base == "" {
		return date.Format("Jan 2, 2006")
	}
	return date.Format("Jan 2, 2006") + " - " + base
}
