package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyPage = `<!DOCTYPE html>
<html>
<head>
  <title>Delhi news | India Today</title>
  <meta name="description" content="The national capital remains a union territory.">
  <meta property="article:published_time" content="2025-05-20T16:22:00+05:30">
  <script>var p = "<p>not a paragraph</p>";</script>
</head>
<body>
  <nav><p>Home</p></nav>
  <article>
    <h1>"Delhi is a union territory"</h1>
    <p>Delhi is a union territory with its own legislature.</p>
    <p>  It is also the   capital of India. </p>
    <p></p>
    <aside><p>Related: Mumbai</p></aside>
    <p>Third paragraph.</p>
    <p>Fourth paragraph.</p>
  </article>
  <footer><p>Copyright</p></footer>
</body>
</html>`

func TestParse(t *testing.T) {
	a, err := Parse(storyPage)
	require.NoError(t, err)

	assert.Equal(t, "Delhi is a union territory", a.Title)
	assert.Equal(t, "The national capital remains a union territory.", a.Summary)
	assert.Equal(t, []string{
		"Delhi is a union territory with its own legislature.",
		"It is also the capital of India.",
		"Third paragraph.",
		"Fourth paragraph.",
	}, a.Paragraphs)
	assert.True(t, a.PublishedAt.Equal(time.Date(2025, 5, 20, 10, 52, 0, 0, time.UTC)))
}

func TestParse_Fallbacks(t *testing.T) {
	a, err := Parse(`<html><head><title>Only title</title></head><body><h2>Kicker</h2><p>Body</p><time datetime="2025-08-27">x</time></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Only title", a.Title)
	assert.Equal(t, "Kicker", a.Summary)
	assert.Equal(t, []string{"Body"}, a.Paragraphs)
	assert.Equal(t, 2025, a.PublishedAt.Year())

	_, err = Parse(`<html><body><div>nothing useful</div></body></html>`)
	assert.Error(t, err)
}

func TestParsePublished(t *testing.T) {
	for _, in := range []string{
		"UPDATED: May 20, 2025 16:22 IST",
		"27 Aug 2025, 12:09 AM IST",
		"2025-05-20T16:22:00Z",
	} {
		_, ok := parsePublished(in)
		assert.True(t, ok, in)
	}
	_, ok := parsePublished("yesterday")
	assert.False(t, ok)
}

func TestArticle_Format(t *testing.T) {
	a := &Article{
		Source:     "indiatoday.in",
		URL:        "https://www.indiatoday.in/story",
		Title:      "Delhi",
		Summary:    "Summary text",
		Paragraphs: []string{"p1", "p2", "p3", "p4"},
	}
	assert.Equal(t, "Title: Delhi\nSummary: Summary text\nSource: https://www.indiatoday.in/story\nContent: p1\np2\np3", a.Format())

	long := &Article{Paragraphs: []string{strings.Repeat("x", 600)}}
	got := long.Format()
	assert.Equal(t, "Content: "+strings.Repeat("x", 500)+"...", got)

	assert.Equal(t, "Source: livemint.com", (&Article{Source: "livemint.com"}).Format())
	assert.Equal(t, "", (&Article{}).Format())
	var nilArticle *Article
	assert.Equal(t, "", nilArticle.Format())
}

func TestScraper_Allowed(t *testing.T) {
	s := New(Config{AllowedHosts: DefaultAllowedHosts})
	cases := map[string]bool{
		"https://www.indiatoday.in/india/story": true,
		"https://indiatoday.in/x":               true,
		"https://www.livemint.com/news/a":       true,
		"https://evil-indiatoday.in/x":          false,
		"https://indiatoday.in.attacker.com/x":  false,
		"https://example.com/":                  false,
		"ftp://www.indiatoday.in/file":          false,
		"not a url":                             false,
	}
	for u, want := range cases {
		assert.Equal(t, want, s.Allowed(u), u)
	}

	anySite := New(Config{AllowAnySite: true})
	assert.True(t, anySite.Allowed("https://example.com/"))
	assert.False(t, anySite.Allowed("mailto:someone@example.com"))
}

func TestScraper_Scrape(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/story":
			fmt.Fprint(w, storyPage)
		case "/big":
			fmt.Fprint(w, "<html><body><h1>Big</h1><p>"+strings.Repeat("a", 4096)+"</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(Config{AllowedHosts: []string{"127.0.0.1"}, MaxBodyBytes: 1024})
	ctx := context.Background()

	a, err := s.Scrape(ctx, srv.URL+"/big")
	require.NoError(t, err)
	assert.Equal(t, "Big", a.Title)
	require.Len(t, a.Paragraphs, 1)
	assert.Less(t, len(a.Paragraphs[0]), 1024, "body is capped")

	s = New(Config{AllowedHosts: []string{"127.0.0.1"}})
	a, err = s.Scrape(ctx, srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", a.Source)
	assert.Equal(t, srv.URL+"/story", a.URL)
	assert.Equal(t, "Delhi is a union territory", a.Title)

	_, err = s.Scrape(ctx, srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	before := atomic.LoadInt32(&hits)
	_, err = s.Scrape(ctx, "https://example.com/story")
	assert.True(t, errors.Is(err, ErrSiteNotAllowed))
	assert.Equal(t, before, atomic.LoadInt32(&hits), "disallowed sites are never fetched")
}

func TestScraper_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, storyPage)
	}))
	defer srv.Close()

	s := New(Config{AllowedHosts: []string{"127.0.0.1"}, Delay: time.Hour})
	_, err := s.Scrape(context.Background(), srv.URL)
	require.NoError(t, err, "first fetch uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Scrape(ctx, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
