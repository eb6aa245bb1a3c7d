package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/example/rvault/internal/ports/secondary"
)

// RedditFetcher reads posts through reddit's public JSON API: the post URL
// with a .json suffix returns [post listing, comment listing].
type RedditFetcher struct {
	client *http.Client
}

// NewRedditFetcher creates a reddit connector using the given client.
func NewRedditFetcher(client *http.Client) *RedditFetcher {
	return &RedditFetcher{client: client}
}

// CanHandle claims reddit post URLs.
func (f *RedditFetcher) CanHandle(url string) bool {
	return strings.Contains(url, "reddit.com") || strings.Contains(url, "redd.it")
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Selftext  string `json:"selftext"`
				Body      string `json:"body"`
				Score     int    `json:"score"`
				Subreddit string `json:"subreddit"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch reads the post and its top comment.
func (f *RedditFetcher) Fetch(ctx context.Context, url string) (*secondary.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL(url), nil)
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

	var listings []redditListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&listings); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", secondary.ErrFetchFailed, err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("%w: empty reddit listing for %s", secondary.ErrFetchFailed, url)
	}

	post := listings[0].Data.Children[0].Data
	title := post.Title
	if title == "" {
		title = "No Title"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subreddit: r/%s\nScore: %d\nBody: %s\n", post.Subreddit, post.Score, post.Selftext)
	if len(listings) > 1 && len(listings[1].Data.Children) > 0 {
		if comment := listings[1].Data.Children[0].Data.Body; comment != "" {
			fmt.Fprintf(&b, "\n--- Top Comment ---\n%s", comment)
		}
	}

	// High-score posts have been community-vetted.
	confidence := 0.8
	if post.Score > 10 {
		confidence = 1.0
	}

	return &secondary.FetchResult{
		Source:     "reddit/r/" + post.Subreddit,
		Type:       "SCUTTLE_REDDIT",
		Title:      title,
		Content:    truncate(b.String(), maxContentChars),
		Confidence: confidence,
		Tags:       []string{"reddit", post.Subreddit},
	}, nil
}

// jsonURL strips the query string and appends .json the way reddit's API
// expects.
func jsonURL(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	if strings.HasSuffix(url, ".json") {
		return url
	}
	return strings.TrimRight(url, "/") + ".json"
}
