package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedsync/internal/content"
	"feedsync/internal/observability/logging"
)

// LookbackWindow is subtracted from the oldest candidate's timestamp before
// scanning history. Some sources re-send old entries with a fresh date.
const LookbackWindow = 7 * 24 * time.Hour

// SeenSet holds the GUIDs already published for one author.
type SeenSet map[string]struct{}

// Has reports whether guid was already published.
func (s SeenSet) Has(guid string) bool {
	_, ok := s[guid]
	return ok
}

// SeenResolver reconstructs a SeenSet from destination history.
type SeenResolver struct {
	reader HistoryReader
}

// NewSeenResolver creates a SeenResolver reading from reader.
func NewSeenResolver(reader HistoryReader) *SeenResolver {
	return &SeenResolver{reader: reader}
}

// Resolve scans authorID's history newest first and collects provenance
// GUIDs until it reaches a record older than oldest minus LookbackWindow.
// Records whose body cannot be read are skipped.
func (r *SeenResolver) Resolve(ctx context.Context, authorID string, oldest time.Time) (SeenSet, error) {
	logger := logging.FromContext(ctx)
	cutoff := oldest.Add(-LookbackWindow)
	seen := make(SeenSet)

	scanned := 0
	for entry, err := range r.reader.History(ctx, authorID) {
		if err != nil {
			return seen, fmt.Errorf("%w: list history: %w", ErrDestinationUnavailable, err)
		}
		if entry.Timestamp.Before(cutoff) {
			break
		}
		if err := ctx.Err(); err != nil {
			return seen, err
		}
		scanned++

		logging.Trace(ctx, logger, "history entry",
			slog.Int64("timestamp_ms", entry.Timestamp.UnixMilli()),
			slog.String("signature", entry.Signature))

		body, ok, err := r.reader.PostBody(ctx, authorID, entry.Signature)
		if err != nil {
			logger.Debug("skipping unreadable history entry",
				slog.String("signature", entry.Signature),
				slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		guid, count := content.FindGUID(body)
		if count == 0 {
			continue
		}
		if count > 1 {
			logger.Warn("found more than one GUID, using first one",
				slog.String("signature", entry.Signature),
				slog.String("guid", guid))
		}
		seen[guid] = struct{}{}
	}

	logger.Debug("seen GUIDs resolved",
		slog.Int("scanned", scanned),
		slog.Int("guids", len(seen)),
		slog.Time("cutoff", cutoff))
	return seen, nil
}
