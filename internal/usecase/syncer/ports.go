package syncer

import (
	"context"
	"iter"
	"time"

	"feedsync/internal/domain/entity"
)

// FeedConfig is everything the core needs to know about one feed.
type FeedConfig struct {
	// Name is optional; it becomes the profile display name.
	Name string
	// SourceURL is where the RSS/Atom feed is fetched from.
	SourceURL string
	// AuthorID is the destination identity the feed posts as.
	AuthorID string
	// Secret is the signing credential that must belong to AuthorID.
	Secret string
}

// Label identifies the feed in logs and errors.
func (f FeedConfig) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.SourceURL
}

// Feed is a parsed feed as handed over by a FeedSource.
type Feed struct {
	Title   string
	Entries []FeedEntry
}

// FeedEntry is the normalized shape of one upstream feed entry.
// Empty strings and nil times mean the field was absent.
type FeedEntry struct {
	ID          string
	Title       string
	URL         string
	PublishedAt *time.Time
	ModifiedAt  *time.Time
	Summary     string
	ContentHTML string
	ContentText string
}

// FeedSource fetches and parses a feed.
type FeedSource interface {
	FetchFeed(ctx context.Context, url string) (*Feed, error)
}

// HistoryEntry is one record in an author's destination history.
type HistoryEntry struct {
	Timestamp time.Time
	Signature string
}

// HistoryReader reads an author's existing records.
type HistoryReader interface {
	// History yields the author's records newest first. Breaking out of the
	// loop stops the scan; no further pages are requested.
	History(ctx context.Context, authorID string) iter.Seq2[HistoryEntry, error]

	// PostBody returns the body of a post record. ok is false when the
	// record is missing or is not a post.
	PostBody(ctx context.Context, authorID, signature string) (body string, ok bool, err error)
}

// ProfileReader reads an author's current profile. A nil profile means none is stored.
type ProfileReader interface {
	Profile(ctx context.Context, authorID string) (*entity.Profile, error)
}

// Publisher encodes records in the destination's native format and stores signed records.
type Publisher interface {
	EncodePost(item entity.FeedItem) ([]byte, error)
	EncodeProfile(profile entity.Profile) ([]byte, error)
	Publish(ctx context.Context, authorID, signature string, record []byte) error
}

// Destination is the remote signed-record store.
type Destination interface {
	HistoryReader
	ProfileReader
	Publisher
}

// Signer signs records on behalf of one author.
type Signer interface {
	AuthorID() string
	Sign(record []byte) (string, error)
}

// SignerFactory builds the signer for a feed. It must fail when the feed's
// secret does not belong to the feed's AuthorID.
type SignerFactory func(feed FeedConfig) (Signer, error)

// BodyNormalizer builds the markdown body for one feed entry.
type BodyNormalizer interface {
	Normalize(raw, sourceURL, guid string) (string, error)
}
