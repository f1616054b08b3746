package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hive/internal/logging"
)

const googleCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries the Google Custom Search JSON API.
type GoogleCSE struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
}

// NewGoogleCSE creates a client. Both credentials are required.
func NewGoogleCSE(apiKey, engineID string, timeout time.Duration) (*GoogleCSE, error) {
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("google custom search requires an API key and engine id")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleCSE{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: googleCSEEndpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search implements Searcher. The API serves at most 10 results per call.
func (g *GoogleCSE) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > 10 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	logging.Search("Google CSE: %d results for %q", len(results), query)
	return results, nil
}

// Name implements Searcher.
func (g *GoogleCSE) Name() string { return "google_cse" }
