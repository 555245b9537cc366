package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedsync/internal/content"
	"feedsync/internal/domain/entity"
	"feedsync/internal/usecase/syncer"
)

// fakeSource serves canned feeds keyed by URL.
type fakeSource struct {
	feeds map[string]*syncer.Feed
	err   error
	calls int
}

func (f *fakeSource) FetchFeed(_ context.Context, url string) (*syncer.Feed, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	feed, ok := f.feeds[url]
	if !ok {
		return nil, fmt.Errorf("no feed at %s", url)
	}
	return feed, nil
}

type storedRecord struct {
	author    string
	signature string
	timestamp time.Time
	post      bool
	title     string
	body      string
	profile   entity.Profile
}

// fakeDestination is an in-memory signed-record store. Records are encoded
// as "POST|<ms>|<title>|<body>" or "PROFILE|<ms>|<name>|<about>".
type fakeDestination struct {
	mu       sync.Mutex
	now      func() time.Time
	records  []storedRecord
	order    []string // signatures in publish order
	rejectFn func(record storedRecord) error

	historyErr  error
	bodyErrs    map[string]error
	historyRead int
	bodyReads   int
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		bodyErrs: map[string]error{},
	}
}

// seed stores a post directly, bypassing the publish path.
func (d *fakeDestination) seed(author, signature string, ts time.Time, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, storedRecord{
		author: author, signature: signature, timestamp: ts, post: true, body: body,
	})
}

func (d *fakeDestination) seedProfile(author string, profile entity.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, storedRecord{
		author: author, signature: "profile-seed", timestamp: d.now(), profile: profile,
	})
}

func (d *fakeDestination) History(_ context.Context, authorID string) iter.Seq2[syncer.HistoryEntry, error] {
	return func(yield func(syncer.HistoryEntry, error) bool) {
		if d.historyErr != nil {
			yield(syncer.HistoryEntry{}, d.historyErr)
			return
		}
		d.mu.Lock()
		var mine []storedRecord
		for _, r := range d.records {
			if r.author == authorID && r.post {
				mine = append(mine, r)
			}
		}
		d.mu.Unlock()
		sort.SliceStable(mine, func(a, b int) bool {
			return mine[a].timestamp.After(mine[b].timestamp)
		})
		for _, r := range mine {
			d.historyRead++
			if !yield(syncer.HistoryEntry{Timestamp: r.timestamp, Signature: r.signature}, nil) {
				return
			}
		}
	}
}

func (d *fakeDestination) PostBody(_ context.Context, authorID, signature string) (string, bool, error) {
	d.bodyReads++
	if err := d.bodyErrs[signature]; err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.records {
		if r.author == authorID && r.signature == signature && r.post {
			return r.body, true, nil
		}
	}
	return "", false, nil
}

func (d *fakeDestination) Profile(_ context.Context, authorID string) (*entity.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var latest *entity.Profile
	for _, r := range d.records {
		if r.author == authorID && !r.post {
			p := r.profile
			latest = &p
		}
	}
	return latest, nil
}

func (d *fakeDestination) EncodePost(item entity.FeedItem) ([]byte, error) {
	return []byte(fmt.Sprintf("POST|%d|%s|%s", item.SortKey(), item.Title(), item.Body())), nil
}

func (d *fakeDestination) EncodeProfile(profile entity.Profile) ([]byte, error) {
	return []byte(fmt.Sprintf("PROFILE|%d|%s|%s", d.now().UnixMilli(), profile.DisplayName, profile.About)), nil
}

func (d *fakeDestination) Publish(_ context.Context, authorID, signature string, record []byte) error {
	parts := strings.SplitN(string(record), "|", 4)
	if len(parts) != 4 {
		return errors.New("malformed record")
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return err
	}
	r := storedRecord{author: authorID, signature: signature, timestamp: time.UnixMilli(ms).UTC()}
	if parts[0] == "POST" {
		r.post = true
		r.title = parts[2]
		r.body = parts[3]
	} else {
		r.profile = entity.Profile{DisplayName: parts[2], About: parts[3]}
	}
	if d.rejectFn != nil {
		if err := d.rejectFn(r); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, r)
	d.order = append(d.order, signature)
	return nil
}

// publishedPosts returns the GUIDs of posts published through Publish, in order.
func (d *fakeDestination) publishedPosts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	bySig := map[string]storedRecord{}
	for _, r := range d.records {
		bySig[r.signature] = r
	}
	var guids []string
	for _, sig := range d.order {
		r := bySig[sig]
		if !r.post {
			continue
		}
		guid, _ := content.FindGUID(r.body)
		guids = append(guids, guid)
	}
	return guids
}

func (d *fakeDestination) publishedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// fakeSigner produces sequential signatures.
type fakeSigner struct {
	author string
	n      *int
}

func (s fakeSigner) AuthorID() string { return s.author }

func (s fakeSigner) Sign(record []byte) (string, error) {
	*s.n++
	return fmt.Sprintf("sig-%s-%d", s.author, *s.n), nil
}

func signerFactory() syncer.SignerFactory {
	n := 0
	return func(feed syncer.FeedConfig) (syncer.Signer, error) {
		if feed.Secret != "secret-"+feed.AuthorID {
			return nil, errors.New("secret does not match user id")
		}
		return fakeSigner{author: feed.AuthorID, n: &n}, nil
	}
}

// passthrough leaves content untouched so bodies are predictable.
type passthrough struct{}

func (passthrough) Translate(html string) (string, error) { return html, nil }

func ts(day, hour int) *time.Time {
	t := time.Date(2026, 2, day, hour, 0, 0, 0, time.UTC)
	return &t
}
