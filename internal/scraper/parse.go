package scraper

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ist is Indian Standard Time; the default news sites print local times.
var ist = time.FixedZone("IST", 5*3600+30*60)

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006 15:04 IST",
	"2 Jan 2006, 03:04 PM IST",
}

// skipped elements never contribute text.
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "footer": true, "header": true, "aside": true, "form": true,
}

// Parse extracts an article from an HTML page. Title comes from the first
// <h1>, og:title or <title>; summary from the description meta tags or the
// first <h2>; paragraphs from <p> elements inside <article> when present,
// otherwise the whole body.
func Parse(page string) (*Article, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var (
		h1, h2, titleTag      string
		ogTitle, description  string
		published             string
		articleNode, bodyNode *html.Node
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if titleTag == "" {
					titleTag = textOf(n)
				}
			case "h1":
				if h1 == "" {
					h1 = textOf(n)
				}
			case "h2":
				if h2 == "" {
					h2 = textOf(n)
				}
			case "meta":
				key := attr(n, "property")
				if key == "" {
					key = attr(n, "name")
				}
				content := strings.TrimSpace(attr(n, "content"))
				switch strings.ToLower(key) {
				case "og:title":
					ogTitle = content
				case "description", "og:description":
					if description == "" {
						description = content
					}
				case "article:published_time", "datepublished":
					if published == "" {
						published = content
					}
				}
			case "time":
				if published == "" {
					published = attr(n, "datetime")
				}
			case "article":
				if articleNode == nil {
					articleNode = n
				}
			case "body":
				bodyNode = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	a := &Article{
		Title:   cleanQuotes(firstNonEmpty(h1, ogTitle, titleTag)),
		Summary: cleanQuotes(firstNonEmpty(description, h2)),
	}
	if t, ok := parsePublished(published); ok {
		a.PublishedAt = t
	}

	root := articleNode
	if root == nil {
		root = bodyNode
	}
	if root != nil {
		a.Paragraphs = paragraphs(root)
	}

	if a.Title == "" && len(a.Paragraphs) == 0 {
		return nil, errors.New("no article content found")
	}
	return a, nil
}

func paragraphs(root *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.Data] {
				return
			}
			if n.Data == "p" {
				if t := cleanQuotes(textOf(n)); t != "" {
					out = append(out, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func parsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "UPDATED:"))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.ParseInLocation(layout, s, ist); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func cleanQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
