package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kxlu/showprep/internal/parser"
	"github.com/kxlu/showprep/internal/research"
	"github.com/kxlu/showprep/internal/store"
)

// Researcher produces a research record for one artist/title pair. The real
// client never fails; the pipeline still guards against implementations that
// panic at the transport level.
type Researcher interface {
	Research(ctx context.Context, artist, title string) research.Result
}

// Progress reports the running percentage and the label of the track
// currently being processed.
type Progress func(percent float64, label string)

// Pipeline drives the research client across parsed records, strictly one at
// a time. Sequential processing caps the provider request rate and keeps
// progress monotonic and attributable to a single in-flight track.
type Pipeline struct {
	researcher Researcher
	limiter    *rate.Limiter
	now        func() time.Time
}

// New creates a pipeline. delay is the courtesy pause between provider
// calls; zero disables pacing.
func New(researcher Researcher, delay time.Duration) *Pipeline {
	p := &Pipeline{researcher: researcher, now: time.Now}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

// Run enriches every resolvable record in order and returns the tracks plus
// the labels of tracks whose research call failed outright. No single track
// aborts the run: the output always has one track per resolvable record.
// The progress denominator is fixed at the record count at start; records
// with no resolvable artist/title are skipped silently.
func (p *Pipeline) Run(ctx context.Context, records []parser.Record, onProgress Progress) ([]store.Track, []string) {
	total := len(records)
	var tracks []store.Track
	var failures []string

	for i, rec := range records {
		artist, title, ok := rec.ResolveArtistTitle()
		if !ok {
			continue
		}
		label := artist + " - " + title

		if onProgress != nil {
			onProgress(percent(i, total), label)
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				log.Printf("Pacing interrupted: %v", err)
			}
		}

		result, err := p.researchTrack(ctx, artist, title)
		if err != nil {
			log.Printf("Research failed for %s: %v", label, err)
			result = research.Failed()
			failures = append(failures, label)
		}

		created := p.now()
		tracks = append(tracks, store.Track{
			ID:                trackID(artist, title, created, i),
			Artist:            artist,
			Title:             title,
			OriginalData:      rec.Fields,
			DateAdded:         created,
			ReleaseYear:       result.ReleaseYear,
			Genre:             result.Genre,
			SubGenre:          result.SubGenre,
			Region:            result.Region,
			CulturalContext:   result.CulturalContext,
			MusicalFacts:      result.MusicalFacts,
			GlobalConnections: result.GlobalConnections,
			TalkingPoints:     result.TalkingPoints,
			Sources:           result.Sources,
		})

		if onProgress != nil {
			onProgress(percent(i+1, total), label)
		}
	}

	log.Printf("Enrichment complete: %d tracks, %d failed", len(tracks), len(failures))
	return tracks, failures
}

// researchTrack converts a panicking researcher into a per-track error so
// the batch keeps going.
func (p *Pipeline) researchTrack(ctx context.Context, artist, title string) (result research.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("research call panicked: %v", r)
		}
	}()
	return p.researcher.Research(ctx, artist, title), nil
}

func percent(processed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(processed) / float64(total) * 100
}

// trackID derives an id unique within a show from the artist, title,
// creation time, and ingestion position. Position keeps duplicate
// artist/title pairs in one upload distinct even within the same
// millisecond.
func trackID(artist, title string, created time.Time, position int) string {
	return fmt.Sprintf("%d-%d-%s", created.UnixMilli(), position, slug(artist+"-"+title))
}

func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
