package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/kxlu/showprep/internal/parser"
	"github.com/kxlu/showprep/internal/research"
)

// mockResearcher returns a canned result, optionally panicking on chosen
// artists to exercise the pipeline's transport-failure handling.
type mockResearcher struct {
	result   research.Result
	panicFor map[string]bool
	calls    []string
}

func (m *mockResearcher) Research(_ context.Context, artist, title string) research.Result {
	m.calls = append(m.calls, artist+" - "+title)
	if m.panicFor[artist] {
		panic("transport blew up")
	}
	return m.result
}

func parseCSV(t *testing.T, input string) []parser.Record {
	t.Helper()
	records, err := parser.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return records
}

func TestRunEnrichesAllResolvableRecords(t *testing.T) {
	records := parseCSV(t, "artist,title\nMiles Davis,So What\nThe Beatles,Hey Jude\n")
	mock := &mockResearcher{result: research.Pending()}

	tracks, failures := New(mock, 0).Run(context.Background(), records, nil)

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
	if tracks[0].Artist != "Miles Davis" || tracks[1].Artist != "The Beatles" {
		t.Error("expected tracks in CSV order")
	}
}

func TestRunSkipsUnresolvableRecords(t *testing.T) {
	// Second row passes the positional heuristic but has no alias columns
	// filled in, so enrichment drops it silently.
	records := parseCSV(t, "artist,title,note\nMiles Davis,So What,classic\n")
	records = append(records, parser.Record{
		Fields: map[string]string{"note": "x", "other": "y"},
		Values: []string{"x", "y"},
	})
	mock := &mockResearcher{result: research.Pending()}

	tracks, failures := New(mock, 0).Run(context.Background(), records, nil)

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
	if len(mock.calls) != 1 {
		t.Errorf("expected 1 research call, got %d", len(mock.calls))
	}
}

func TestRunOutputLengthInvariantUnderFailures(t *testing.T) {
	records := parseCSV(t, "artist,title\nA,One\nB,Two\nC,Three\n")
	mock := &mockResearcher{
		result:   research.Pending(),
		panicFor: map[string]bool{"B": true},
	}

	tracks, failures := New(mock, 0).Run(context.Background(), records, nil)

	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks regardless of failures, got %d", len(tracks))
	}
	if len(failures) != 1 || failures[0] != "B - Two" {
		t.Errorf("expected failure for 'B - Two', got %v", failures)
	}
	if tracks[1].CulturalContext != research.FailedText {
		t.Errorf("expected failed sentinel on track, got %q", tracks[1].CulturalContext)
	}
	// The failed track still sits in its CSV position.
	if tracks[1].Artist != "B" || tracks[2].Artist != "C" {
		t.Error("expected CSV order preserved around the failure")
	}
}

func TestRunProgressReporting(t *testing.T) {
	records := parseCSV(t, "artist,title\nA,One\nB,Two\n")
	mock := &mockResearcher{result: research.Pending()}

	var percents []float64
	var labels []string
	New(mock, 0).Run(context.Background(), records, func(percent float64, label string) {
		percents = append(percents, percent)
		labels = append(labels, label)
	})

	if len(percents) != 4 {
		t.Fatalf("expected 4 progress reports (before/after per track), got %d", len(percents))
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("expected monotonic progress, got %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Errorf("expected final progress 100, got %v", percents[len(percents)-1])
	}
	if labels[0] != "A - One" || labels[2] != "B - Two" {
		t.Errorf("expected artist - title labels, got %v", labels)
	}
}

func TestRunTrackIDsUniqueForDuplicatePairs(t *testing.T) {
	records := parseCSV(t, "artist,title\nThe Fall,Totally Wired\nThe Fall,Totally Wired\n")
	mock := &mockResearcher{result: research.Pending()}

	tracks, _ := New(mock, 0).Run(context.Background(), records, nil)

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID == tracks[1].ID {
		t.Errorf("expected unique ids for duplicate artist/title pairs, got %q twice", tracks[0].ID)
	}
}

func TestRunKeepsOriginalData(t *testing.T) {
	records := parseCSV(t, "artist,title,album\nNina Simone,Sinnerman,Pastel Blues\n")
	mock := &mockResearcher{result: research.Pending()}

	tracks, _ := New(mock, 0).Run(context.Background(), records, nil)

	if tracks[0].OriginalData["album"] != "Pastel Blues" {
		t.Errorf("expected original row data preserved, got %v", tracks[0].OriginalData)
	}
	if tracks[0].DateAdded.IsZero() {
		t.Error("expected DateAdded to be set")
	}
}
