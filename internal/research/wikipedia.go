// Package research summarizes public web pages for the web researcher.
package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/kalambet/jobpilot/internal/agent"
)

const (
	DefaultBaseURL  = "https://en.wikipedia.org/wiki/"
	defaultTimeout  = 10 * time.Second
	maxParagraphs   = 3
	maxSummaryChars = 1500
	userAgent       = "jobpilot/1.0 (+https://github.com/kalambet/jobpilot)"
)

var citationRe = regexp.MustCompile(`\[(\d+|[a-z]|citation needed|note \d+)\]`)

// Wikipedia resolves a query to an article and summarizes its lead section.
type Wikipedia struct {
	baseURL    string
	httpClient *http.Client
}

// NewWikipedia creates a researcher against baseURL. An empty baseURL uses
// English Wikipedia.
func NewWikipedia(baseURL string) *Wikipedia {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Wikipedia{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// ArticleURL returns the article address for query. Spaces become
// underscores as in Wikipedia titles.
func (w *Wikipedia) ArticleURL(query string) string {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	return w.baseURL + url.PathEscape(title)
}

// Research fetches the article for query and returns its description and
// leading paragraphs. A missing article wraps agent.ErrNotFound.
func (w *Wikipedia) Research(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty research query", agent.ErrInvalidParameters)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.ArticleURL(query), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: no article for %q", agent.ErrNotFound, query)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("fetching article: HTTP status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	summary := Summarize(doc)
	if summary == "" {
		return "", fmt.Errorf("%w: article for %q has no readable text", agent.ErrNotFound, query)
	}
	return summary, nil
}

// Summarize extracts the meta description and the first article paragraphs.
func Summarize(doc *goquery.Document) string {
	doc.Find("sup.reference, style, script, .mw-empty-elt").Remove()

	var parts []string
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = cleanText(desc); desc != "" {
			parts = append(parts, desc)
		}
	}

	doc.Find("div.mw-parser-output > p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
		return len(parts) < maxParagraphs+1
	})

	summary := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(summary) > maxSummaryChars {
		runes := []rune(summary)
		summary = string(runes[:maxSummaryChars])
		if idx := strings.LastIndex(summary, ". "); idx > maxSummaryChars/2 {
			summary = summary[:idx+1]
		} else {
			summary += "..."
		}
	}
	return summary
}

func cleanText(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
