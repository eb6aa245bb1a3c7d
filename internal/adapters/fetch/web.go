package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/example/rvault/internal/ports/secondary"
)

const (
	maxContentChars = 5000
	// Paragraphs shorter than this are navigation chrome, not prose.
	minParagraphChars = 50
	maxBodyBytes      = 2 << 20
)

// WebFetcher is the generic fallback connector: fetch the page, take the
// title and the prose paragraphs.
type WebFetcher struct {
	client *http.Client
}

// NewWebFetcher creates a generic web fetcher using the given client.
func NewWebFetcher(client *http.Client) *WebFetcher {
	return &WebFetcher{client: client}
}

// CanHandle always claims the URL; the registry uses WebFetcher as fallback.
func (f *WebFetcher) CanHandle(url string) bool {
	return true
}

// Fetch downloads the page and extracts title plus paragraph text, capped at
// maxContentChars.
func (f *WebFetcher) Fetch(ctx context.Context, url string) (*secondary.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secondary.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d for %s", secondary.ErrFetchFailed, resp.StatusCode, url)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", secondary.ErrFetchFailed, err)
	}

	title := extractTitle(doc)
	if title == "" {
		title = url
	}
	content := extractParagraphs(doc)
	if content == "" {
		// No usable paragraphs: fall back to raw text, truncated harder.
		content = truncate(collectText(doc), 2000)
	}

	return &secondary.FetchResult{
		Source:     "web",
		Type:       "SCUTTLE_WEB",
		Title:      title,
		Content:    truncate(content, maxContentChars),
		Confidence: 0.7,
		Tags:       []string{"web", "scraping"},
	}, nil
}

func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

func extractParagraphs(doc *html.Node) string {
	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			text := strings.TrimSpace(collectText(n))
			if len(text) > minParagraphChars {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(paragraphs, "\n\n")
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
