// Package entity defines the core domain entities and validation logic for feedsync.
// It contains the run-scoped value objects (FeedItem, Profile) exchanged between
// feed ingestion and the destination, along with their invariants.
package entity

import (
	"sort"
	"strings"
	"time"
)

// FeedItem is one candidate post built from a single feed entry.
// It is immutable once constructed; use NewFeedItem to create one.
type FeedItem struct {
	guid           string
	title          string
	body           string
	publishedAt    time.Time
	destinationURL string
}

// FeedItemParams holds the inputs for NewFeedItem.
type FeedItemParams struct {
	GUID           string
	Title          string
	Body           string
	PublishedAt    time.Time
	DestinationURL string
}

// NewFeedItem validates params and returns a FeedItem.
//
// A PublishedAt that is the zero time.Time or resolves to the UNIX epoch
// fails with ErrInvalidTimestamp: it almost always means a date failed to
// parse upstream.
func NewFeedItem(p FeedItemParams) (FeedItem, error) {
	if strings.TrimSpace(p.GUID) == "" {
		return FeedItem{}, ErrEmptyGUID
	}
	if p.PublishedAt.IsZero() || p.PublishedAt.UnixMilli() == 0 {
		return FeedItem{}, ErrInvalidTimestamp
	}
	return FeedItem{
		guid:           p.GUID,
		title:          p.Title,
		body:           p.Body,
		publishedAt:    p.PublishedAt,
		destinationURL: p.DestinationURL,
	}, nil
}

// GUID returns the feed-provided identity of the item.
func (i FeedItem) GUID() string { return i.guid }

// Title returns the item title, or "" when the entry had none.
func (i FeedItem) Title() string { return i.title }

// Body returns the normalized markdown body, provenance markers included.
func (i FeedItem) Body() string { return i.body }

// PublishedAt returns the resolved publish time.
func (i FeedItem) PublishedAt() time.Time { return i.publishedAt }

// DestinationURL returns the original entry URL, or "" when absent.
func (i FeedItem) DestinationURL() string { return i.destinationURL }

// SortKey returns the ordering key in UNIX milliseconds.
func (i FeedItem) SortKey() int64 { return i.publishedAt.UnixMilli() }

// SortOldestFirst orders items by SortKey ascending.
// Items with equal keys keep their input order.
func SortOldestFirst(items []FeedItem) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].SortKey() < items[b].SortKey()
	})
}
