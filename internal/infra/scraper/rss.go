// Package scraper fetches RSS/Atom feeds for feedsync.
// It uses the gofeed library to parse feed content with reliability patterns.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"feedsync/internal/observability/logging"
	"feedsync/internal/resilience/circuitbreaker"
	"feedsync/internal/resilience/retry"
	"feedsync/internal/usecase/syncer"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/sony/gobreaker"
)

const (
	userAgent = "feedsync/1.0"

	// customContentType marks items whose Atom content is plain text.
	customContentType = "feedsync:content-type"
)

// RSSFetcher implements syncer.FeedSource using the gofeed library.
// It includes circuit breaker and retry logic for improved reliability.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

var _ syncer.FeedSource = (*RSSFetcher)(nil)

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
// It automatically configures circuit breaker and retry logic.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return NewRSSFetcherWithRetry(client, retry.FeedFetchConfig())
}

// NewRSSFetcherWithRetry is NewRSSFetcher with a custom retry policy.
func NewRSSFetcherWithRetry(client *http.Client, cfg retry.Config) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    cfg,
	}
}

// Breaker returns the circuit breaker shared by all feed fetches.
func (f *RSSFetcher) Breaker() *circuitbreaker.CircuitBreaker { return f.circuitBreaker }

// FetchFeed retrieves and parses the RSS/Atom feed at feedURL.
func (f *RSSFetcher) FetchFeed(ctx context.Context, feedURL string) (*syncer.Feed, error) {
	var feed *syncer.Feed

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		result, err := circuitbreaker.Do(f.circuitBreaker, func() (*syncer.Feed, error) {
			return f.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				logging.FromContext(ctx).Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", f.circuitBreaker.Name()),
					slog.String("url", feedURL))
			}
			return err
		}
		feed = result
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return feed, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) (*syncer.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client
	fp.AtomTranslator = &atomTranslator{}

	parsed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return toFeed(parsed), nil
}

func toFeed(parsed *gofeed.Feed) *syncer.Feed {
	feed := &syncer.Feed{
		Title:   parsed.Title,
		Entries: make([]syncer.FeedEntry, 0, len(parsed.Items)),
	}
	for _, it := range parsed.Items {
		entry := syncer.FeedEntry{
			ID:          it.GUID,
			Title:       it.Title,
			URL:         it.Link,
			PublishedAt: it.PublishedParsed,
			ModifiedAt:  it.UpdatedParsed,
			Summary:     it.Description,
			ContentHTML: it.Content,
		}
		if it.Custom[customContentType] == "text" {
			entry.ContentText, entry.ContentHTML = it.Content, ""
		}
		feed.Entries = append(feed.Entries, entry)
	}
	return feed
}

// atomTranslator is gofeed's Atom translator plus a marker for entries
// whose content is declared type="text", which the universal feed model
// would otherwise lose.
type atomTranslator struct {
	gofeed.DefaultAtomTranslator
}

func (t *atomTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultAtomTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	af, ok := feed.(*atom.Feed)
	if !ok || len(af.Entries) != len(out.Items) {
		return out, nil
	}
	for i, entry := range af.Entries {
		if entry.Content == nil || entry.Content.Type != "text" {
			continue
		}
		item := out.Items[i]
		if item.Custom == nil {
			item.Custom = map[string]string{}
		}
		item.Custom[customContentType] = "text"
	}
	return out, nil
}
