package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kxlu/showprep/internal/store"
)

// Played is the play-state filter.
type Played string

const (
	PlayedAll      Played = "all"
	PlayedOnly     Played = "played"
	PlayedUnplayed Played = "unplayed"
)

// Filters holds the structured track filters. Empty fields match everything.
type Filters struct {
	Genre  string
	Decade string
	Region string
	Played Played
}

// Apply derives the filtered view of a show's tracks. It is a pure, stable
// subset operation: output order equals input order and no input is
// modified. played is the show's play map keyed by track id.
func Apply(tracks []store.Track, searchTerm string, f Filters, played map[string]store.PlayEntry) []store.Track {
	search := strings.ToLower(strings.TrimSpace(searchTerm))
	out := make([]store.Track, 0, len(tracks))
	for _, t := range tracks {
		if !matchesSearch(t, search) {
			continue
		}
		if f.Genre != "" && !containsFold(t.Genre, f.Genre) {
			continue
		}
		if f.Decade != "" {
			decade, ok := decadeOf(t.ReleaseYear)
			if !ok || decade != f.Decade {
				continue
			}
		}
		if f.Region != "" && !containsFold(t.Region, f.Region) {
			continue
		}
		if !matchesPlayed(f.Played, t.ID, played) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Options holds the distinct filter choices derived from a show's tracks.
type Options struct {
	Genres  []string
	Decades []string
	Regions []string
}

// DeriveOptions collects the distinct non-empty genres, decades, and regions
// from the given tracks. Recomputed per call, never cached.
func DeriveOptions(tracks []store.Track) Options {
	genres := make(map[string]struct{})
	decades := make(map[string]struct{})
	regions := make(map[string]struct{})
	for _, t := range tracks {
		if t.Genre != "" {
			genres[t.Genre] = struct{}{}
		}
		if d, ok := decadeOf(t.ReleaseYear); ok {
			decades[d] = struct{}{}
		}
		if t.Region != "" {
			regions[t.Region] = struct{}{}
		}
	}
	return Options{
		Genres:  sorted(genres),
		Decades: sorted(decades),
		Regions: sorted(regions),
	}
}

func matchesSearch(t store.Track, search string) bool {
	if search == "" {
		return true
	}
	return containsFold(t.Artist, search) ||
		containsFold(t.Title, search) ||
		containsFold(t.Genre, search)
}

func matchesPlayed(p Played, trackID string, played map[string]store.PlayEntry) bool {
	switch p {
	case PlayedOnly:
		_, ok := played[trackID]
		return ok
	case PlayedUnplayed:
		_, ok := played[trackID]
		return !ok
	default:
		return true
	}
}

// decadeOf buckets a release year to its decade ("1959" -> "1950"). Leading
// digits are used so "1959 (remaster)" still resolves; a year with no
// leading digits yields no decade and never matches a concrete filter.
func decadeOf(releaseYear string) (string, bool) {
	s := strings.TrimSpace(releaseYear)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	year, err := strconv.Atoi(s[:end])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(year / 10 * 10), true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
