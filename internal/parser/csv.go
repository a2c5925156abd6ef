package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyInput is returned when the input has no header row followed by at
// least one data row.
var ErrEmptyInput = errors.New("csv needs a header row and at least one track row")

// Recognized column aliases, in priority order. First non-empty match wins.
var (
	artistAliases = []string{"artist", "Artist", "Track Artist"}
	titleAliases  = []string{"title", "Title", "Track Name", "name"}
)

// Record is one data row: the header-to-value mapping plus the positional
// values in column order.
type Record struct {
	Fields map[string]string
	Values []string
}

// ResolveArtistTitle resolves the artist and title columns through the alias
// priority lists. ok is false when either cannot be resolved to a non-empty
// value; such records are dropped before enrichment.
func (r Record) ResolveArtistTitle() (artist, title string, ok bool) {
	artist = firstNonEmpty(r.Fields, artistAliases)
	title = firstNonEmpty(r.Fields, titleAliases)
	return artist, title, artist != "" && title != ""
}

// Parse reads comma-delimited playlist text into ordered records. Blank lines
// are discarded, the first remaining line is the header, and quoted fields
// are handled by the CSV tokenizer. Rows whose first two values are not both
// non-empty are skipped. Output order equals input line order.
func Parse(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) < 2 {
		return nil, ErrEmptyInput
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []Record
	for _, row := range rows[1:] {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = strings.TrimSpace(v)
		}
		if !rowUsable(values) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				fields[h] = values[i]
			} else {
				fields[h] = ""
			}
		}
		records = append(records, Record{Fields: fields, Values: values})
	}

	return records, nil
}

// rowUsable is the "this row has an artist and a title" heuristic: the first
// two positional values must both be non-empty.
func rowUsable(values []string) bool {
	return len(values) >= 2 && values[0] != "" && values[1] != ""
}

// ResolvableCount reports how many records resolve to a usable artist/title
// pair. Uploads with zero resolvable records are rejected before any
// enrichment starts.
func ResolvableCount(records []Record) int {
	n := 0
	for _, rec := range records {
		if _, _, ok := rec.ResolveArtistTitle(); ok {
			n++
		}
	}
	return n
}

func firstNonEmpty(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			return v
		}
	}
	return ""
}
