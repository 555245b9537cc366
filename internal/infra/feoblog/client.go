// Package feoblog is the destination adapter for FeoBlog servers. It reads
// an author's item history and profile over the proto3 HTTP API, encodes
// posts and profiles as FeoBlog protobuf items, and uploads signed items.
package feoblog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"feedsync/internal/domain/entity"
	"feedsync/internal/observability/logging"
	"feedsync/internal/observability/metrics"
	"feedsync/internal/observability/tracing"
	"feedsync/internal/resilience/circuitbreaker"
	"feedsync/internal/resilience/retry"
	"feedsync/internal/usecase/syncer"

	"golang.org/x/time/rate"
)

const (
	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 16 << 20

	protoContentType = "application/protobuf3"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. "https://blog.example.com".
	BaseURL string

	// HTTPClient defaults to a client with Timeout and a tracing transport.
	HTTPClient *http.Client

	// Timeout applies to the default HTTP client. Zero means 30s.
	Timeout time.Duration

	// PublishRate limits uploads per second. Zero means 5.
	PublishRate float64

	// ReadRetry and PublishRetry default to retry.DestinationReadConfig
	// and retry.PublishConfig.
	ReadRetry    *retry.Config
	PublishRetry *retry.Config

	// Now is used to timestamp profile records. Defaults to time.Now.
	Now func() time.Time
}

// Client talks to one FeoBlog server. It implements syncer.Destination.
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	limiter      *rate.Limiter
	breaker      *circuitbreaker.CircuitBreaker
	readRetry    retry.Config
	publishRetry retry.Config
	now          func() time.Time
}

var _ syncer.Destination = (*Client)(nil)

// NewClient creates a Client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse destination url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("destination url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Transport: tracing.NewTransport(nil)}
	}

	publishRate := opts.PublishRate
	if publishRate <= 0 {
		publishRate = 5
	}

	c := &Client{
		baseURL:      base,
		http:         httpClient,
		limiter:      rate.NewLimiter(rate.Limit(publishRate), 1),
		breaker:      circuitbreaker.New(circuitbreaker.DestinationConfig("feoblog:" + base.Host)),
		readRetry:    retry.DestinationReadConfig(),
		publishRetry: retry.PublishConfig(),
		now:          time.Now,
	}
	if opts.ReadRetry != nil {
		c.readRetry = *opts.ReadRetry
	}
	if opts.PublishRetry != nil {
		c.publishRetry = *opts.PublishRetry
	}
	if opts.Now != nil {
		c.now = opts.Now
	}
	return c, nil
}

// History lists authorID's items newest first, requesting further pages
// only while the caller keeps iterating.
//
// The server's "before" bound is exclusive. Each next page starts one
// millisecond after the last timestamp seen, and items already yielded at
// that timestamp are dropped. Items sharing a millisecond with a page
// boundary are not lost this way. A page lying entirely within one
// millisecond would come back unchanged, so paging then steps past that
// millisecond; items there beyond one page cannot be listed.
func (c *Client) History(ctx context.Context, authorID string) iter.Seq2[syncer.HistoryEntry, error] {
	return func(yield func(syncer.HistoryEntry, error) bool) {
		logger := logging.FromContext(ctx)
		var before, edge int64
		atEdge := map[string]bool{}
		for page := 1; ; page++ {
			query := url.Values{}
			if before != 0 {
				query.Set("before", strconv.FormatInt(before, 10))
			}

			list, err := c.listItems(ctx, authorID, query)
			if err != nil {
				yield(syncer.HistoryEntry{}, err)
				return
			}
			logging.Trace(ctx, logger, "history page",
				slog.Int("page", page),
				slog.Int("items", len(list.Items)),
				slog.Bool("no_more_items", list.NoMoreItems))

			for _, e := range list.Items {
				sig := e.Signature.String()
				if e.TimestampMsUTC == edge && atEdge[sig] {
					continue
				}
				if !yield(syncer.HistoryEntry{
					Timestamp: time.UnixMilli(e.TimestampMsUTC).UTC(),
					Signature: sig,
				}, nil) {
					return
				}
				if e.TimestampMsUTC != edge {
					edge = e.TimestampMsUTC
					clear(atEdge)
				}
				atEdge[sig] = true
			}
			if list.NoMoreItems || len(list.Items) == 0 {
				return
			}
			if list.Items[0].TimestampMsUTC == edge {
				logger.Warn("history page lies within one millisecond; skipping the rest of it",
					slog.Int64("timestamp_ms_utc", edge))
				before = edge
				continue
			}
			before = edge + 1
		}
	}
}

func (c *Client) listItems(ctx context.Context, authorID string, query url.Values) (*ItemList, error) {
	resp, err := c.call(ctx, c.readRetry, "list_items", http.MethodGet, c.path("u", authorID, "proto3"), query, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.err()
	}
	list, err := UnmarshalItemList(resp.body)
	if err != nil {
		return nil, fmt.Errorf("decode item list: %w", err)
	}
	return list, nil
}

// PostBody returns the body of a post. ok is false when the item does not
// exist or is not a post.
func (c *Client) PostBody(ctx context.Context, authorID, signature string) (string, bool, error) {
	item, err := c.getItem(ctx, "get_item", c.path("u", authorID, "i", signature, "proto3"))
	if err != nil || item == nil || item.Post == nil {
		return "", false, err
	}
	return item.Post.Body, true, nil
}

// Profile returns authorID's current profile, or nil when none is stored.
func (c *Client) Profile(ctx context.Context, authorID string) (*entity.Profile, error) {
	item, err := c.getItem(ctx, "get_profile", c.path("u", authorID, "profile", "proto3"))
	if err != nil || item == nil || item.Profile == nil {
		return nil, err
	}
	return &entity.Profile{DisplayName: item.Profile.DisplayName, About: item.Profile.About}, nil
}

// getItem returns nil without error on 404.
func (c *Client) getItem(ctx context.Context, op, path string) (*Item, error) {
	resp, err := c.call(ctx, c.readRetry, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, resp.err()
	}
	item, err := UnmarshalItem(resp.body)
	if err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}

// EncodePost converts item to FeoBlog item bytes. The item's own publish
// time and zone become the record timestamp.
func (c *Client) EncodePost(item entity.FeedItem) ([]byte, error) {
	_, offset := item.PublishedAt().Zone()
	rec := &Item{
		TimestampMsUTC:   item.SortKey(),
		UTCOffsetMinutes: int32(offset / 60),
		Post:             &Post{Title: item.Title(), Body: item.Body()},
	}
	return rec.Marshal(), nil
}

// EncodeProfile converts profile to FeoBlog item bytes stamped with the
// current time.
func (c *Client) EncodeProfile(profile entity.Profile) ([]byte, error) {
	now := c.now()
	_, offset := now.Zone()
	rec := &Item{
		TimestampMsUTC:   now.UnixMilli(),
		UTCOffsetMinutes: int32(offset / 60),
		Profile:          &Profile{DisplayName: profile.DisplayName, About: profile.About},
	}
	return rec.Marshal(), nil
}

// Publish uploads a signed item. Uploads are rate limited.
func (c *Client) Publish(ctx context.Context, authorID, signature string, record []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for publish slot: %w", err)
	}
	resp, err := c.call(ctx, c.publishRetry, "put_item", http.MethodPut, c.path("u", authorID, "i", signature, "proto3"), nil, record)
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status > 299 {
		return resp.err()
	}
	return nil
}

// Breaker returns the circuit breaker guarding requests to this server.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker { return c.breaker }

func (c *Client) path(segments ...string) string {
	return c.baseURL.JoinPath(segments...).Path
}

type response struct {
	status int
	body   []byte
}

func (r *response) err() error {
	msg := string(bytes.TrimSpace(r.body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(r.status)
	}
	return &retry.HTTPError{StatusCode: r.status, Message: msg}
}

// call performs one logical request with retries. Only transport errors
// and 5xx responses count against the circuit breaker. Responses with
// other statuses are returned to the caller to interpret.
func (c *Client) call(ctx context.Context, cfg retry.Config, op, method, path string, query url.Values, body []byte) (*response, error) {
	var resp *response
	err := retry.WithBackoff(ctx, cfg, func() error {
		r, err := circuitbreaker.Do(c.breaker, func() (*response, error) {
			r, err := c.do(ctx, method, path, query, body)
			if err != nil {
				metrics.RecordDestinationRequest(op, 0)
				return nil, err
			}
			metrics.RecordDestinationRequest(op, r.status)
			if r.status >= http.StatusInternalServerError {
				return nil, r.err()
			}
			return r, nil
		})
		if err != nil {
			return err
		}
		if r.status == http.StatusTooManyRequests || r.status == http.StatusRequestTimeout {
			return r.err()
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*response, error) {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", protoContentType)
	if body != nil {
		req.Header.Set("Content-Type", protoContentType)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, errors.New("response body too large")
	}
	return &response{status: res.StatusCode, body: data}, nil
}
