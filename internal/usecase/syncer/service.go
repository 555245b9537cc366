package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedsync/internal/content"
	"feedsync/internal/domain/entity"
	"feedsync/internal/observability/logging"
	"feedsync/internal/observability/metrics"
	"feedsync/internal/observability/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// MaxFeedItems caps how many entries of one feed are considered per run.
// Entries past the cap are never recovered by later runs.
const MaxFeedItems = 200

// Service reconciles configured feeds with the destination.
type Service struct {
	Source      FeedSource
	Destination Destination
	NewSigner   SignerFactory
	Normalizer  BodyNormalizer
	Logger      *slog.Logger
}

// NewService creates a Service. A nil logger discards all output.
func NewService(
	source FeedSource,
	destination Destination,
	newSigner SignerFactory,
	normalizer BodyNormalizer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		Source:      source,
		Destination: destination,
		NewSigner:   newSigner,
		Normalizer:  normalizer,
		Logger:      logger,
	}
}

// FeedStats summarizes one SyncFeed call.
type FeedStats struct {
	Feed        string
	Entries     int // entries considered after the MaxFeedItems cap
	Candidates  int // entries that became valid feed items
	Skipped     int
	AlreadySeen int
	Published   int
	Failed      int
	Duration    time.Duration
}

// RunStats summarizes one SyncAll call.
type RunStats struct {
	RunID       string
	Feeds       int
	FailedFeeds int
	Published   int
	Failed      int
	Duration    time.Duration
	PerFeed     []*FeedStats
}

// SyncAll runs SyncFeed for every feed in order. A failing feed does not
// stop the run; all feed errors are joined and returned once every feed
// was attempted.
func (s *Service) SyncAll(ctx context.Context, feeds []FeedConfig) (*RunStats, error) {
	if len(feeds) == 0 {
		return nil, ErrNoFeeds
	}

	start := time.Now()
	stats := &RunStats{RunID: uuid.NewString(), Feeds: len(feeds)}
	logger := logging.WithRunID(s.loggerFrom(ctx), stats.RunID)
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, "syncer.SyncAll",
		attribute.String("run_id", stats.RunID),
		attribute.Int("feeds", len(feeds)))
	var runErr error
	defer func() { tracing.EndSpan(span, runErr) }()

	logger.Info("sync run started",
		slog.Int("feeds", len(feeds)),
		slog.String("trace_id", tracing.TraceID(ctx)))

	var errs []error
	for _, feed := range feeds {
		feedStats, err := s.SyncFeed(ctx, feed)
		if feedStats != nil {
			stats.PerFeed = append(stats.PerFeed, feedStats)
			stats.Published += feedStats.Published
			stats.Failed += feedStats.Failed
		}
		if err != nil {
			stats.FailedFeeds++
			logger.Error("feed sync failed",
				slog.String("feed", feed.Label()),
				slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	stats.Duration = time.Since(start)
	logger.Info("sync run completed",
		slog.Int("feeds", stats.Feeds),
		slog.Int("failed_feeds", stats.FailedFeeds),
		slog.Int("published", stats.Published),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))

	runErr = errors.Join(errs...)
	return stats, runErr
}

// SyncFeed publishes the entries of one feed that the destination does not
// hold yet, oldest first. Entries that cannot be turned into feed items are
// skipped, and individual publish failures are only counted. Errors are
// returned for failures that make the whole feed unprocessable and are
// always *FeedError.
func (s *Service) SyncFeed(ctx context.Context, feed FeedConfig) (stats *FeedStats, err error) {
	start := time.Now()
	label := feed.Label()
	logger := logging.WithFeed(s.loggerFrom(ctx), label)
	ctx = logging.WithLogger(ctx, logger)
	stats = &FeedStats{Feed: label}

	ctx, span := tracing.StartSpan(ctx, "syncer.SyncFeed",
		attribute.String("feed", label),
		attribute.String("feed.url", feed.SourceURL))
	defer func() {
		stats.Duration = time.Since(start)
		metrics.RecordFeedSync(label, stats.Duration)
		span.SetAttributes(
			attribute.Int("items.published", stats.Published),
			attribute.Int("items.failed", stats.Failed))
		tracing.EndSpan(span, err)
	}()

	parsed, err := s.Source.FetchFeed(ctx, feed.SourceURL)
	if err != nil {
		metrics.RecordFeedError(label, "fetch_failed")
		return stats, newFeedError(feed, "fetch", fmt.Errorf("%w: %w", ErrFeedFetchFailed, err))
	}

	entries := parsed.Entries
	if len(entries) > MaxFeedItems {
		logger.Warn("feed has more entries than the per-run cap; ignoring the rest",
			slog.Int("entries", len(entries)),
			slog.Int("cap", MaxFeedItems))
		entries = entries[:MaxFeedItems]
	}
	stats.Entries = len(entries)

	items := make([]entity.FeedItem, 0, len(entries))
	for _, entry := range entries {
		item, reason, err := s.prepareItem(ctx, entry)
		if err != nil {
			stats.Skipped++
			metrics.RecordItemSkipped(label, reason)
			logger.Warn("skipping feed entry",
				slog.String("id", entry.ID),
				slog.String("url", entry.URL),
				slog.String("reason", reason),
				slog.Any("error", err))
			continue
		}
		items = append(items, item)
	}
	stats.Candidates = len(items)

	if len(items) == 0 {
		logger.Info("no items in feed", slog.Int("skipped", stats.Skipped))
		return stats, nil
	}

	entity.SortOldestFirst(items)

	seen, err := logging.Timed(ctx, logger, "resolve seen GUIDs", func() (SeenSet, error) {
		return NewSeenResolver(s.Destination).Resolve(ctx, feed.AuthorID, items[0].PublishedAt())
	})
	if err != nil {
		metrics.RecordFeedError(label, "history_failed")
		return stats, newFeedError(feed, "read history", err)
	}
	metrics.RecordSeenGUIDs(label, len(seen))

	fresh := make([]entity.FeedItem, 0, len(items))
	for _, item := range items {
		// The seen-set holds GUIDs as read back from markers.
		if seen.Has(content.SanitizeGUID(item.GUID())) {
			continue
		}
		fresh = append(fresh, item)
	}
	stats.AlreadySeen = len(items) - len(fresh)
	metrics.RecordAlreadySeen(label, stats.AlreadySeen)

	if len(fresh) == 0 {
		logger.Info("no new items", slog.Int("already_seen", stats.AlreadySeen))
		return stats, nil
	}

	signer, err := s.NewSigner(feed)
	if err != nil {
		metrics.RecordFeedError(label, "credential_failed")
		return stats, newFeedError(feed, "load credentials", fmt.Errorf("%w: %w", ErrCredential, err))
	}

	_, err = logging.Timed(ctx, logger, "publish items", func() (struct{}, error) {
		return struct{}{}, s.publishItems(ctx, feed, signer, fresh, stats)
	})
	if err != nil {
		return stats, newFeedError(feed, "publish", err)
	}

	logger.Info("feed synced",
		slog.Int("published", stats.Published),
		slog.Int("failed", stats.Failed),
		slog.Int("already_seen", stats.AlreadySeen),
		slog.Int("skipped", stats.Skipped))
	return stats, nil
}

// publishItems publishes items strictly in order, one at a time. A failed
// item is counted and the batch continues. Only cancellation stops it.
func (s *Service) publishItems(ctx context.Context, feed FeedConfig, signer Signer, items []entity.FeedItem, stats *FeedStats) error {
	logger := logging.FromContext(ctx)
	label := feed.Label()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			stats.Failed += len(items) - i
			return err
		}

		if err := s.publishItem(ctx, signer, item); err != nil {
			stats.Failed++
			metrics.RecordItemPublished(label, false)
			logger.Warn("failed to publish item",
				slog.String("guid", item.GUID()),
				slog.String("title", item.Title()),
				slog.Any("error", err))
			continue
		}
		stats.Published++
		metrics.RecordItemPublished(label, true)
		logger.Debug("published item",
			slog.String("guid", item.GUID()),
			slog.Time("published_at", item.PublishedAt()))
	}
	return nil
}

func (s *Service) publishItem(ctx context.Context, signer Signer, item entity.FeedItem) error {
	record, err := s.Destination.EncodePost(item)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	signature, err := signer.Sign(record)
	if err != nil {
		return fmt.Errorf("sign post: %w", err)
	}
	if err := s.Destination.Publish(ctx, signer.AuthorID(), signature, record); err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	return nil
}

// prepareItem turns one feed entry into a FeedItem. On failure it returns
// the metric reason label alongside the error.
func (s *Service) prepareItem(ctx context.Context, entry FeedEntry) (entity.FeedItem, string, error) {
	logger := logging.FromContext(ctx)
	logging.Trace(ctx, logger, "feed entry",
		slog.String("title", entry.Title),
		slog.Any("published", entry.PublishedAt),
		slog.Any("modified", entry.ModifiedAt),
		slog.String("url", entry.URL),
		slog.String("id", entry.ID))

	if entry.ID == "" {
		return entity.FeedItem{}, "missing_guid", ErrMissingGUID
	}
	if _, ok := content.MarkerGUID(entry.ID); !ok {
		return entity.FeedItem{}, "unmarkable_guid", fmt.Errorf("%w: %q", ErrUnmarkableGUID, entry.ID)
	}

	var publishedAt time.Time
	switch {
	case entry.PublishedAt != nil:
		publishedAt = *entry.PublishedAt
	case entry.ModifiedAt != nil:
		publishedAt = *entry.ModifiedAt
	default:
		return entity.FeedItem{}, "missing_timestamp", ErrMissingTimestamp
	}

	body, err := s.Normalizer.Normalize(entryBody(entry), entry.URL, entry.ID)
	if err != nil {
		return entity.FeedItem{}, "unparseable_content", fmt.Errorf("%w: %w", ErrUnparseableContent, err)
	}

	item, err := entity.NewFeedItem(entity.FeedItemParams{
		GUID:           entry.ID,
		Title:          content.PlainTitle(entry.Title),
		Body:           body,
		PublishedAt:    publishedAt,
		DestinationURL: entry.URL,
	})
	if err != nil {
		return entity.FeedItem{}, "invalid_item", err
	}
	return item, "", nil
}

// entryBody picks the body source: summary, then HTML content, then text
// content. Some feeds put only a bare URL in the HTML content.
func entryBody(entry FeedEntry) string {
	switch {
	case entry.Summary != "":
		return entry.Summary
	case entry.ContentHTML != "":
		return entry.ContentHTML
	default:
		return entry.ContentText
	}
}

// loggerFrom prefers a logger already placed in ctx by SyncAll.
func (s *Service) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := logging.LoggerFromContext(ctx); ok {
		return logger
	}
	if s.Logger == nil {
		return logging.Discard()
	}
	return s.Logger
}
