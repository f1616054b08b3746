// Package search finds candidate evidence URLs for a claim.
package search

import (
	"context"
	"errors"
	"fmt"

	"hive/internal/logging"
)

// DefaultMaxResults matches the number of links requested per claim.
const DefaultMaxResults = 5

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher turns a query into ranked results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Name() string
}

// Links returns the non-empty URLs of results, in order.
func Links(results []Result) []string {
	links := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			links = append(links, r.URL)
		}
	}
	return links
}

// Fallback tries each searcher in order and returns the first non-empty
// result set. Errors are logged and the next searcher is tried; only when
// every searcher fails is an error returned.
type Fallback struct {
	searchers []Searcher
}

// NewFallback chains searchers. Nil entries are ignored.
func NewFallback(searchers ...Searcher) *Fallback {
	f := &Fallback{}
	for _, s := range searchers {
		if s != nil {
			f.searchers = append(f.searchers, s)
		}
	}
	return f
}

// Search implements Searcher.
func (f *Fallback) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if len(f.searchers) == 0 {
		return nil, nil
	}

	var errs []error
	for _, s := range f.searchers {
		results, err := s.Search(ctx, query, maxResults)
		if err != nil {
			logging.SearchWarn("%s search failed: %v", s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if len(results) > 0 {
			logging.Search("%s returned %d results", s.Name(), len(results))
			return results, nil
		}
	}
	if len(errs) == len(f.searchers) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

// Name implements Searcher.
func (f *Fallback) Name() string { return "fallback" }
