package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/endou0310-byte/rindo/internal/config"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/extract"
	"github.com/endou0310-byte/rindo/internal/fetch"
	"github.com/endou0310-byte/rindo/internal/fingerprint"
	"github.com/endou0310-byte/rindo/internal/monitor"
	"github.com/endou0310-byte/rindo/internal/ocr"
	"github.com/endou0310-byte/rindo/internal/publish"
	memorypublisher "github.com/endou0310-byte/rindo/internal/publish/memory"
	pubsubpublisher "github.com/endou0310-byte/rindo/internal/publish/pubsub"
	"github.com/endou0310-byte/rindo/internal/registry"
	"github.com/endou0310-byte/rindo/internal/snapshot"
	"github.com/endou0310-byte/rindo/internal/store"
	pgstore "github.com/endou0310-byte/rindo/internal/store/postgres"
)

func newMonitorCmd() *cobra.Command {
	var (
		dryRun    bool
		full      bool
		snapshots bool
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run one crawl pass over the agency registry",
		Long: `Fetches every watch URL and auto seed in the registry, skips pages
whose fingerprints are unchanged, extracts road-status events from changed
pages, and merges them into the event document.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), monitorFlags{
				dryRun:    dryRun,
				full:      full,
				snapshots: snapshots,
				limit:     limit,
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "crawl and report but write nothing")
	cmd.Flags().BoolVar(&full, "full", false, "ignore fingerprints and reprocess every page")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "archive fetched bodies to the configured snapshot backend")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most N crawl targets (0 = all)")
	return cmd
}

type monitorFlags struct {
	dryRun    bool
	full      bool
	snapshots bool
	limit     int
}

func runMonitor(parent context.Context, flags monitorFlags) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agencies, err := registry.Load(cfg.Monitor.RegistryPath)
	if err != nil {
		return err
	}
	events, err := store.Load(cfg.Monitor.EventsPath)
	if err != nil {
		return err
	}
	prints, err := fingerprint.Load(cfg.Monitor.StatePath)
	if err != nil {
		return err
	}

	deps, cleanup, err := buildPipeline(ctx, cfg, flags, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := monitor.NewRunner(cfg.Monitor, deps)
	stats := runner.Run(ctx, agencies, events, prints, monitor.Options{
		DryRun: flags.dryRun,
		Full:   flags.full,
		Limit:  flags.limit,
	})

	if err := flush(cfg, flags, events, prints, logger); err != nil {
		return err
	}
	mirrorAndNotify(ctx, cfg, flags, events, stats, logger)

	if ctx.Err() != nil {
		logger.Warn("run interrupted; partial results were flushed")
	}
	return nil
}

// buildPipeline assembles the optional crawl collaborators from config.
func buildPipeline(ctx context.Context, cfg config.Config, flags monitorFlags, logger *zap.Logger) (monitor.RunnerDeps, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	deps := monitor.RunnerDeps{
		Fetcher: fetch.NewCollyFetcher(fetch.CollyConfig{
			UserAgent: cfg.Monitor.UserAgent,
			Timeout:   cfg.Monitor.RequestTimeout(),
		}, logger),
		Logger: logger,
	}

	if cfg.Headless.Enabled {
		renderer, err := fetch.NewRenderer(fetch.RendererConfig{
			UserAgent:      cfg.Monitor.UserAgent,
			NavTimeout:     cfg.Headless.NavTimeout(),
			MaxConcurrency: cfg.Headless.MaxConcurrency,
			DomainQPS:      cfg.Headless.DomainQPS,
		}, logger)
		switch {
		case err == nil:
			deps.Renderer = renderer
			deps.Detector = fetch.NewDetector(cfg.Headless.MinHTMLBytes, cfg.Headless.Keywords)
			cleanups = append(cleanups, renderer.Close)
		case errors.Is(err, fetch.ErrRendererDisabled):
			logger.Warn("headless rendering disabled despite feature flag")
		default:
			cleanup()
			return monitor.RunnerDeps{}, nil, fmt.Errorf("init renderer: %w", err)
		}
	}

	var engine ocr.Engine = ocr.Disabled{}
	if cfg.OCR.Enabled {
		engine = ocr.NewTesseract(cfg.OCR.Language)
	}
	deps.PDF = extract.PDF{MinTextLen: cfg.Monitor.MinPDFTextLen, OCR: engine}
	deps.Image = func(ctx context.Context, page extract.Page) ([]event.Raw, error) {
		return extract.FromImage(ctx, page, engine)
	}

	if flags.snapshots {
		saver, err := buildSnapshotSaver(ctx, cfg.Snapshot, &cleanups)
		if err != nil {
			cleanup()
			return monitor.RunnerDeps{}, nil, err
		}
		deps.Saver = saver
	}
	return deps, cleanup, nil
}

func buildSnapshotSaver(ctx context.Context, cfg config.SnapshotConfig, cleanups *[]func()) (*snapshot.Saver, error) {
	switch cfg.Backend {
	case "", "local":
		local, err := snapshot.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return snapshot.NewSaver(local, cfg.Prefix), nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		*cleanups = append(*cleanups, func() { client.Close() }) //nolint:errcheck
		gcs, err := snapshot.NewGCSStore(client, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return snapshot.NewSaver(gcs, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// flush persists the run's results: the fingerprint state so unchanged pages
// stay cheap, the event document only when something changed. A dry run
// writes neither; a persisted fingerprint without its events would suppress
// those events on the next real run.
func flush(cfg config.Config, flags monitorFlags, events *event.Store, prints *fingerprint.Store, logger *zap.Logger) error {
	if flags.dryRun {
		logger.Info("dry run: skipping writes",
			zap.Int("events", events.Len()),
			zap.Bool("dirty", events.Dirty()))
		return nil
	}
	if err := prints.Flush(); err != nil {
		return err
	}
	if !events.Dirty() {
		logger.Info("no event changes; document left untouched")
		return nil
	}
	if err := store.Save(cfg.Monitor.EventsPath, events); err != nil {
		return err
	}
	logger.Info("event document written",
		zap.String("path", cfg.Monitor.EventsPath),
		zap.Int("events", events.Len()))
	return nil
}

// mirrorAndNotify drives the optional Postgres mirror and the run-summary
// notification. Both are best-effort.
func mirrorAndNotify(ctx context.Context, cfg config.Config, flags monitorFlags, events *event.Store, stats monitor.Stats, logger *zap.Logger) {
	if !flags.dryRun && cfg.DB.DSN != "" {
		mirror, err := pgstore.NewEventStore(ctx, pgstore.EventStoreConfig{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		if err != nil {
			logger.Warn("postgres mirror unavailable", zap.Error(err))
		} else {
			defer mirror.Close()
			if err := mirror.UpsertEvents(ctx, events.Events()); err != nil {
				logger.Warn("postgres mirror failed", zap.Error(err))
			}
		}
	}

	pub, topic, cleanup := newSummaryPublisher(ctx, cfg.PubSub, flags.dryRun, logger)
	defer cleanup()
	summary := publish.RunSummary{
		RunID:      stats.RunID,
		StartedAt:  event.Timestamp(stats.StartedAt),
		FinishedAt: event.Timestamp(stats.FinishedAt),
		Targets:    stats.Targets,
		Pages:      stats.Pages,
		Unchanged:  stats.Unchanged,
		Errors:     stats.Errors,
		Merged:     stats.Merged,
		Events:     events.Len(),
		DryRun:     flags.dryRun,
	}
	if id, err := pub.Publish(ctx, topic, summary); err != nil {
		logger.Warn("run summary publish failed", zap.Error(err))
	} else {
		logger.Info("run summary published",
			zap.String("topic", topic),
			zap.String("message_id", id))
	}
}

const defaultSummaryTopic = "rindo-run-summary"

// newSummaryPublisher selects the run-summary transport: Cloud Pub/Sub when a
// project and topic are configured, the in-memory publisher on dry runs,
// without configuration, or when the Pub/Sub client cannot start.
func newSummaryPublisher(ctx context.Context, cfg config.PubSubConfig, dryRun bool, logger *zap.Logger) (publish.Publisher, string, func()) {
	topic := cfg.TopicName
	if topic == "" {
		topic = defaultSummaryTopic
	}
	if dryRun || cfg.ProjectID == "" || cfg.TopicName == "" {
		return memorypublisher.New(), topic, func() {}
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Warn("pubsub unavailable", zap.Error(err))
		return memorypublisher.New(), topic, func() {}
	}
	pub, err := pubsubpublisher.New(client, topic)
	if err != nil {
		logger.Warn("pubsub publisher", zap.Error(err))
		client.Close() //nolint:errcheck
		return memorypublisher.New(), topic, func() {}
	}
	return pub, topic, func() {
		pub.Stop()
		client.Close() //nolint:errcheck
	}
}
