package scraper

import (
	"strings"
	"time"
)

const (
	formatParagraphs   = 3
	formatContentLimit = 500
)

// Article is the structured content extracted from one news page.
type Article struct {
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Paragraphs  []string  `json:"paragraphs"`
}

// Format flattens the article into a compact context block: title,
// summary, source URL and the first three paragraphs capped at 500
// characters. Empty fields are omitted.
func (a *Article) Format() string {
	if a == nil {
		return ""
	}

	var parts []string
	if a.Title != "" {
		parts = append(parts, "Title: "+a.Title)
	}
	if a.Summary != "" {
		parts = append(parts, "Summary: "+a.Summary)
	}
	if src := a.sourceLine(); src != "" {
		parts = append(parts, "Source: "+src)
	}
	if len(a.Paragraphs) > 0 {
		n := len(a.Paragraphs)
		if n > formatParagraphs {
			n = formatParagraphs
		}
		content := strings.Join(a.Paragraphs[:n], "\n")
		if r := []rune(content); len(r) > formatContentLimit {
			content = string(r[:formatContentLimit]) + "..."
		}
		parts = append(parts, "Content: "+content)
	}
	return strings.Join(parts, "\n")
}

func (a *Article) sourceLine() string {
	if a.URL != "" {
		return a.URL
	}
	return a.Source
}
