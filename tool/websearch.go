package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const searchResultMax = 800

// instantAnswer mirrors the subset of the DuckDuckGo Instant Answer payload
// the tool consumes. RelatedTopics entries are heterogeneous, so they are
// decoded lazily.
type instantAnswer struct {
	AbstractText  string            `json:"AbstractText"`
	Answer        string            `json:"Answer"`
	RelatedTopics []json.RawMessage `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text string `json:"Text"`
}

// webSearch queries the DuckDuckGo Instant Answer API (no key required).
// Network failures become inline error strings with ok=false; an empty
// result set becomes explanatory text rather than a failure.
func (d *Dispatcher) webSearch(ctx context.Context, query string) (string, bool) {
	if strings.TrimSpace(query) == "" {
		return "[Empty query]", false
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_redirect=1&no_html=1",
		strings.TrimRight(d.opts.SearchBaseURL, "/"), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Sprintf("[Search unavailable: %v]", err), false
	}
	req.Header.Set("User-Agent", "AgentStudio/1.0")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Sprintf("[Search unavailable: %v]", err), false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("[Search unavailable: status %d]", resp.StatusCode), false
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Sprintf("[Search unavailable: %v]", err), false
	}

	var parts []string
	if answer.AbstractText != "" {
		parts = append(parts, answer.AbstractText)
	}
	topics := answer.RelatedTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	for _, raw := range topics {
		var t relatedTopic
		if err := json.Unmarshal(raw, &t); err == nil && t.Text != "" {
			parts = append(parts, "• "+t.Text)
		}
	}
	if answer.Answer != "" {
		parts = append(parts, "Answer: "+answer.Answer)
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No instant answer found for: %s", query), true
	}
	return Truncate(strings.Join(parts, "\n"), searchResultMax), true
}
