package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/content"
	"feedsync/internal/infra/feoblog"
	"feedsync/internal/infra/markdown"
	"feedsync/internal/infra/scraper"
	"feedsync/internal/infra/worker"
	"feedsync/internal/observability/tracing"
	"feedsync/internal/usecase/syncer"
)

// app is the wired sync core shared by all subcommands.
type app struct {
	logger   *slog.Logger
	feeds    []syncer.FeedConfig
	settings *worker.WorkerConfig
	fetcher  *scraper.RSSFetcher
	dest     *feoblog.Client
	service  *syncer.Service
	shutdown func(context.Context) error
}

// newApp loads and validates the config file before anything touches the
// network. Process settings come from the environment.
func newApp(opts *rootOptions, metrics *worker.WorkerMetrics) (*app, error) {
	logger := opts.logger
	path := config.ResolvePath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		slog.String("path", path),
		slog.Int("feeds", len(cfg.Feeds)),
		slog.String("destination", cfg.DestinationURL()))
	if len(cfg.DestinationURLs) > 1 {
		logger.Warn("multiple destination URLs configured; only the first is used",
			slog.String("destination", cfg.DestinationURL()),
			slog.Int("ignored", len(cfg.DestinationURLs)-1))
	}

	settings := worker.LoadConfigFromEnv(logger, metrics)
	httpClient := newHTTPClient(settings.HTTPTimeout)

	dest, err := feoblog.NewClient(feoblog.Options{
		BaseURL:     cfg.DestinationURL(),
		HTTPClient:  httpClient,
		PublishRate: settings.PublishRate,
	})
	if err != nil {
		return nil, err
	}
	fetcher := scraper.NewRSSFetcher(httpClient)

	return &app{
		logger:   logger,
		feeds:    cfg.FeedConfigs(),
		settings: settings,
		fetcher:  fetcher,
		dest:     dest,
		service: syncer.NewService(
			fetcher,
			dest,
			feoblog.NewSigner,
			content.NewNormalizer(markdown.NewTranslator()),
			logger,
		),
		shutdown: tracing.Setup(),
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", slog.Any("error", err))
	}
}

// newHTTPClient is used for feed fetches and destination requests.
// TLS 1.2+ is enforced.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: tracing.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		}),
	}
}
