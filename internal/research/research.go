package research

import (
	"context"
	"fmt"
	"log"

	"github.com/kxlu/showprep/internal/llm"
	"github.com/kxlu/showprep/internal/store"
)

const researchPrompt = `You are a music researcher preparing notes for a college radio DJ. Research the track %q by %s.

Cover the release year, genre and subgenre, region of origin, cultural context, notable musical facts, and how the track connects to global music traditions. Write talking points a DJ can read on air, each under 25 words.

Respond with ONLY this JSON:
{
    "releaseYear": "YYYY or Unknown",
    "genre": "Primary genre",
    "subGenre": "More specific style",
    "region": "Country or region of origin",
    "culturalContext": "2-3 sentences on cultural significance",
    "musicalFacts": "2-3 sentences of notable musical details",
    "globalConnections": "How this track connects to global music traditions",
    "talkingPoints": [
        {"text": "A radio-ready fact", "sources": [1]},
        {"text": "Another fact", "sources": []},
        {"text": "A third fact", "sources": [2]}
    ],
    "sources": [
        {"id": 1, "url": "https://...", "title": "Source title", "type": "encyclopedia"}
    ]
}

talkingPoints must contain exactly 3 entries. Each entry's sources list cites ids from the top-level sources array.`

// Sentinel field values for the degenerate research states. "Not configured"
// and "call failed" are one terminal state as far as callers are concerned;
// only the text differs.
const (
	NotConfiguredText = "Research not configured"
	PendingText       = "Research pending"
	FailedText        = "Research failed - please add manually"
	UnknownYear       = "Unknown"
)

// Result is the structured research record for one track. Every Result is
// structurally complete: all fields present, exactly 3 talking points on the
// degenerate paths.
type Result struct {
	ReleaseYear       string               `json:"releaseYear"`
	Genre             string               `json:"genre"`
	SubGenre          string               `json:"subGenre"`
	Region            string               `json:"region"`
	CulturalContext   string               `json:"culturalContext"`
	MusicalFacts      string               `json:"musicalFacts"`
	GlobalConnections string               `json:"globalConnections"`
	TalkingPoints     []store.TalkingPoint `json:"talkingPoints"`
	Sources           []store.Source       `json:"sources"`
}

// Client produces research records via an LLM provider. It owns the
// fallback-on-failure policy: Research never fails outward.
type Client struct {
	provider   llm.Provider
	maxTokens  int
	configured bool
}

// NewClient creates a research client. A nil provider is the detected
// "not configured" state, not an error. Configuration is probed once here,
// not per call: for the Ollama provider the probe is an HTTP round trip.
func NewClient(provider llm.Provider, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		provider:   provider,
		maxTokens:  maxTokens,
		configured: provider != nil && provider.IsConfigured(),
	}
}

// Research produces a structured research record for one artist/title pair.
// All failure paths degrade to a structurally valid sentinel Result, so
// callers never need defensive error handling. Research is best-effort radio
// prep content: a batch must not halt on one malformed model response.
func (c *Client) Research(ctx context.Context, artist, title string) Result {
	if !c.configured {
		return NotConfigured()
	}

	prompt := fmt.Sprintf(researchPrompt, title, artist)
	responseText, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		log.Printf("Research call failed for %s - %s: %v", artist, title, err)
		return Pending()
	}

	var result Result
	if err := llm.DecodeJSONResponse(responseText, &result); err != nil {
		log.Printf("Unparseable research response for %s - %s: %v", artist, title, err)
		return Pending()
	}
	if len(result.TalkingPoints) == 0 {
		log.Printf("Malformed research response for %s - %s: no talking points", artist, title)
		return Pending()
	}

	if result.ReleaseYear == "" {
		result.ReleaseYear = UnknownYear
	}
	return result
}

// NotConfigured is the sentinel result returned when no provider credential
// is available. Distinct text from the failure sentinel so a DJ can tell the
// states apart on screen.
func NotConfigured() Result {
	return sentinel(NotConfiguredText, []store.TalkingPoint{
		{Text: "Add a research provider key to config to enable automatic research", Sources: []int{}},
		{Text: "Look up the artist's era and region before going on air", Sources: []int{}},
		{Text: "Draft one fact about this track to share during the break", Sources: []int{}},
	})
}

// Pending is the uniform fallback result for a failed or unparseable
// research call.
func Pending() Result {
	return sentinel(PendingText, []store.TalkingPoint{
		{Text: "Research did not complete for this track", Sources: []int{}},
		{Text: "Re-run research or add notes manually", Sources: []int{}},
		{Text: "Check the artist and title spelling in the CSV", Sources: []int{}},
	})
}

// Failed is the sentinel used by the pipeline when the research call itself
// blows up.
func Failed() Result {
	return sentinel(FailedText, []store.TalkingPoint{
		{Text: "Research failed for this track", Sources: []int{}},
		{Text: "Add talking points manually before the show", Sources: []int{}},
		{Text: "Verify the research provider is reachable and retry", Sources: []int{}},
	})
}

func sentinel(text string, points []store.TalkingPoint) Result {
	return Result{
		ReleaseYear:       UnknownYear,
		Genre:             text,
		SubGenre:          text,
		Region:            text,
		CulturalContext:   text,
		MusicalFacts:      text,
		GlobalConnections: text,
		TalkingPoints:     points,
		Sources:           []store.Source{},
	}
}
