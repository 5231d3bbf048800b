package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/matsen/citecheck/internal/citation"
)

// WebSearchBaseURL is the Google Custom Search endpoint.
const WebSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// WebSearch is the optional tertiary tier: a general web search that
// yields at most one loosely structured candidate (title and URL only).
// Used only when both metadata providers fail to clear the acceptance
// threshold.
type WebSearch struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	engineID   string
}

// NewWebSearch creates a web-search client. Both the API key and the
// search engine id are required for it to return anything.
func NewWebSearch(apiKey, engineID string) *WebSearch {
	return &WebSearch{
		httpClient: newHTTPClient(),
		baseURL:    WebSearchBaseURL,
		apiKey:     apiKey,
		engineID:   engineID,
	}
}

// WithWebSearchBaseURL overrides the endpoint (for testing).
func (c *WebSearch) WithBaseURL(u string) *WebSearch {
	c.baseURL = u
	return c
}

// Name returns the provider identifier.
func (c *WebSearch) Name() citation.Source { return citation.SourceGoogle }

// Enabled reports whether credentials are configured.
func (c *WebSearch) Enabled() bool {
	return c.apiKey != "" && c.engineID != ""
}

// Search returns at most one candidate carrying only a title and URL.
func (c *WebSearch) Search(ctx context.Context, query string) ([]citation.Paper, error) {
	if !c.Enabled() {
		return nil, nil
	}

	params := url.Values{
		"key": {c.apiKey},
		"cx":  {c.engineID},
		"q":   {query + " academic paper"},
		"num": {"3"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var body struct {
		Items []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil
	}
	if len(body.Items) == 0 {
		return nil, nil
	}

	return []citation.Paper{{
		Title: body.Items[0].Title,
		URL:   body.Items[0].Link,
	}}, nil
}
