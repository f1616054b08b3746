// Package scraper fetches news articles from allow-listed sites and extracts
// their title, summary, publication time and body paragraphs.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hive/internal/logging"
)

// slowScrape is the fetch time above which a scrape is logged as a warning.
const slowScrape = 5 * time.Second

// ErrSiteNotAllowed is returned for URLs outside the allow list.
var ErrSiteNotAllowed = errors.New("site not allowed")

// DefaultAllowedHosts are the news sites scraped by default.
var DefaultAllowedHosts = []string{"indiatoday.in", "livemint.com"}

// Config configures a Scraper.
type Config struct {
	AllowedHosts []string
	AllowAnySite bool
	// Delay is the minimum spacing between fetches. Zero disables pacing.
	Delay        time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Timeout      time.Duration
}

// DefaultConfig returns the default scraper configuration.
func DefaultConfig() Config {
	return Config{
		AllowedHosts: DefaultAllowedHosts,
		Delay:        time.Second,
		MaxBodyBytes: 2 << 20,
		UserAgent:    "Mozilla/5.0 (compatible; hive-verifier/1.0)",
		Timeout:      20 * time.Second,
	}
}

// Scraper fetches and parses articles. It is safe for concurrent use; the
// rate limiter is shared by all callers.
type Scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Scraper.
func New(cfg Config) *Scraper {
	def := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	s := &Scraper{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
	if cfg.Delay > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return s
}

// Allowed reports whether rawURL may be scraped.
func (s *Scraper) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return false
	}
	if s.cfg.AllowAnySite {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range s.cfg.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Scrape downloads rawURL and extracts its article. URLs outside the allow
// list fail with ErrSiteNotAllowed without any network call.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*Article, error) {
	if !s.Allowed(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotAllowed, rawURL)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	timer := logging.StartTimer(logging.CategoryScraper, "Scrape "+rawURL)
	defer timer.StopWithThreshold(slowScrape)

	logging.ScraperDebug("Fetching %s", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	article, err := Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	article.URL = rawURL
	if u, err := url.Parse(rawURL); err == nil {
		article.Source = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	logging.Scraper("Scraped %s: title=%q paragraphs=%d", rawURL, article.Title, len(article.Paragraphs))
	return article, nil
}
