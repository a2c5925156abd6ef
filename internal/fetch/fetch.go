package fetch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const maxExcerptLen = 500

// Preview is a readable summary of a cited source page, used to sanity-check
// citations before reading them on air.
type Preview struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Previewer fetches cited source pages via HTTP + readability extraction.
type Previewer struct {
	client *http.Client
}

// NewPreviewer creates a previewer with the given request timeout.
func NewPreviewer(timeout time.Duration) *Previewer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Previewer{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Preview fetches one source URL and extracts its title and a bounded
// excerpt of readable text.
func (p *Previewer) Preview(rawURL string) (*Preview, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid source url: %s", rawURL)
	}

	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "showprep/1.0 (source preview)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("source returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return nil, fmt.Errorf("extracting content: %w", err)
	}

	excerpt := strings.TrimSpace(article.TextContent)
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen] + "..."
	}

	return &Preview{
		URL:     rawURL,
		Title:   strings.TrimSpace(article.Title),
		Excerpt: excerpt,
	}, nil
}
