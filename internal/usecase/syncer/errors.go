// Package syncer reconciles feed entries with a signed-record destination.
// It decides which feed items are new by scanning what the destination
// already holds, converts them into signed records, and publishes them
// oldest first.
package syncer

import (
	"errors"
	"fmt"
)

// Sentinel errors for sync operations.
var (
	// ErrFeedFetchFailed indicates that fetching or parsing the source feed failed.
	ErrFeedFetchFailed = errors.New("failed to fetch feed from source")

	// ErrCredential indicates that the feed's signing secret is unusable or
	// belongs to a different author.
	ErrCredential = errors.New("invalid feed credentials")

	// ErrDestinationUnavailable indicates that the destination could not be read.
	ErrDestinationUnavailable = errors.New("destination unavailable")

	// ErrProfileRejected indicates that the destination refused a profile record.
	ErrProfileRejected = errors.New("destination rejected profile")

	// ErrNoFeeds indicates an empty feed list.
	ErrNoFeeds = errors.New("no feeds configured")
)

// Reasons a single feed entry is skipped. They never abort a feed.
var (
	ErrMissingGUID        = errors.New("feed entry has no id")
	ErrUnmarkableGUID     = errors.New("feed entry id cannot be stored in a GUID marker")
	ErrMissingTimestamp   = errors.New("feed entry has neither a published nor a modified date")
	ErrUnparseableContent = errors.New("feed entry content could not be converted")
)

// FeedError attaches the feed being processed and the failed step to an error.
type FeedError struct {
	Feed string
	Op   string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %q: %s: %v", e.Feed, e.Op, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

func newFeedError(feed FeedConfig, op string, err error) *FeedError {
	return &FeedError{Feed: feed.Label(), Op: op, Err: err}
}
