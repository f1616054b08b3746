package verification

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"hive/internal/config"
	"hive/internal/logging"
	"hive/internal/search"
)

const (
	defaultFallbackContext = config.DefaultFallbackContext

	// minPartialChars is the room needed before a cut item is worth keeping.
	minPartialChars = 100
	truncationMark  = "..."
)

// GatherContext searches the claim, scrapes the hits concurrently and
// returns one formatted string per article, in search order. Search and
// scrape failures are logged and skipped.
func (s *Service) GatherContext(ctx context.Context, claim string) []string {
	if s.searcher == nil || s.scraper == nil || isBlank(claim) {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryVerification, "GatherContext")
	defer timer.Stop()

	results, err := s.searcher.Search(ctx, claim, s.cfg.MaxResults)
	if err != nil {
		logging.VerificationError("Search failed: %v", err)
		return nil
	}
	links := search.Links(results)
	if len(links) == 0 {
		logging.Verification("No search results for claim (%d chars)", len(claim))
		return nil
	}

	formatted := make([]string, len(links))
	var mu sync.Mutex
	scraped := 0

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrentScrapes)
	for i, link := range links {
		g.Go(func() error {
			article, err := s.scraper.Scrape(ctx, link)
			if err != nil {
				logging.Get(logging.CategoryVerification).Debug("Failed to scrape %s: %v", link, err)
				return nil
			}
			formatted[i] = article.Format()
			mu.Lock()
			scraped++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(formatted))
	for _, f := range formatted {
		if !isBlank(f) {
			out = append(out, f)
		}
	}
	logging.Verification("Gathered %d articles from %d links", scraped, len(links))
	return out
}

// TruncateContext keeps whole items while their total length (in
// characters) fits within limit. The first item that does not fit is cut to
// the remaining room and marked with "..." when more than 100 characters
// remain; nothing after it is kept. A non-positive limit disables the cap.
func TruncateContext(items []string, limit int) []string {
	if limit <= 0 {
		return items
	}
	total := 0
	for _, item := range items {
		total += utf8.RuneCountInString(item)
	}
	if total <= limit {
		return items
	}

	logging.Verification("Context too large (%d chars), truncating to %d chars", total, limit)
	out := make([]string, 0, len(items))
	used := 0
	for _, item := range items {
		n := utf8.RuneCountInString(item)
		if used+n <= limit {
			out = append(out, item)
			used += n
			continue
		}
		if remaining := limit - used; remaining > minPartialChars {
			out = append(out, string([]rune(item)[:remaining])+truncationMark)
		}
		break
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
