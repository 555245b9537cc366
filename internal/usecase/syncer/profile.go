package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"feedsync/internal/domain/entity"
	"feedsync/internal/observability/logging"
	"feedsync/internal/observability/metrics"
	"feedsync/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ProfileStatus is the outcome of reconciling one author profile.
type ProfileStatus string

const (
	ProfilePublished ProfileStatus = "published"
	ProfileSkipped   ProfileStatus = "skipped"
	ProfileError     ProfileStatus = "error"
)

// AboutText returns the profile about text for a feed served from sourceURL.
func AboutText(sourceURL string) string {
	return fmt.Sprintf("Posts from <%s>\n\nSync'd by feedsync", sourceURL)
}

// DesiredProfile computes the profile a feed should have. The display name
// is the configured name, then the live feed title, then the source URL.
func DesiredProfile(feed FeedConfig, feedTitle string) entity.Profile {
	name := feed.Name
	if name == "" {
		name = feedTitle
	}
	if name == "" {
		name = feed.SourceURL
	}
	return entity.Profile{DisplayName: name, About: AboutText(feed.SourceURL)}
}

// UpdateProfile publishes a new profile for the feed's author unless the
// destination already stores an identical one.
//
// A publish the destination rejects yields ProfileError with a nil error.
// Failures that prevent the comparison (feed fetch, profile read,
// credentials) yield ProfileError together with a *FeedError.
func (s *Service) UpdateProfile(ctx context.Context, feed FeedConfig) (status ProfileStatus, err error) {
	label := feed.Label()
	logger := logging.WithFeed(s.loggerFrom(ctx), label)
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, "syncer.UpdateProfile", attribute.String("feed", label))
	defer func() {
		span.SetAttributes(attribute.String("profile.status", string(status)))
		metrics.RecordProfileUpdate(label, string(status))
		tracing.EndSpan(span, err)
	}()

	var feedTitle string
	if feed.Name == "" {
		parsed, err := s.Source.FetchFeed(ctx, feed.SourceURL)
		if err != nil {
			return ProfileError, newFeedError(feed, "fetch", fmt.Errorf("%w: %w", ErrFeedFetchFailed, err))
		}
		feedTitle = parsed.Title
	}
	desired := DesiredProfile(feed, feedTitle)

	current, err := s.Destination.Profile(ctx, feed.AuthorID)
	if err != nil {
		return ProfileError, newFeedError(feed, "read profile", fmt.Errorf("%w: %w", ErrDestinationUnavailable, err))
	}
	if current != nil && current.Equal(desired) {
		logger.Info("profile is up to date")
		return ProfileSkipped, nil
	}

	signer, err := s.NewSigner(feed)
	if err != nil {
		return ProfileError, newFeedError(feed, "load credentials", fmt.Errorf("%w: %w", ErrCredential, err))
	}

	record, err := s.Destination.EncodeProfile(desired)
	if err != nil {
		return ProfileError, newFeedError(feed, "encode profile", err)
	}
	signature, err := signer.Sign(record)
	if err != nil {
		return ProfileError, newFeedError(feed, "sign profile", fmt.Errorf("%w: %w", ErrCredential, err))
	}
	if err := s.Destination.Publish(ctx, signer.AuthorID(), signature, record); err != nil {
		logger.Error("destination rejected profile", slog.Any("error", err))
		return ProfileError, nil
	}

	logger.Info("profile published",
		slog.String("display_name", desired.DisplayName),
		slog.Bool("replaced", current != nil))
	return ProfilePublished, nil
}

// ProfileResult is one feed's profile outcome.
type ProfileResult struct {
	Feed   string
	Status ProfileStatus
}

// UpdateAllProfiles reconciles every feed's profile in order and returns
// the joined errors of the feeds that failed. A rejected publish counts as
// a failure here so the caller can exit non-zero.
func (s *Service) UpdateAllProfiles(ctx context.Context, feeds []FeedConfig) ([]ProfileResult, error) {
	if len(feeds) == 0 {
		return nil, ErrNoFeeds
	}

	logger := s.loggerFrom(ctx)
	results := make([]ProfileResult, 0, len(feeds))
	var errs []error
	for _, feed := range feeds {
		status, err := s.UpdateProfile(ctx, feed)
		results = append(results, ProfileResult{Feed: feed.Label(), Status: status})
		switch {
		case err != nil:
			logger.Error("profile update failed",
				slog.String("feed", feed.Label()),
				slog.Any("error", err))
			errs = append(errs, err)
		case status == ProfileError:
			errs = append(errs, newFeedError(feed, "publish profile", ErrProfileRejected))
		}
	}
	return results, errors.Join(errs...)
}
