// Command enrich runs the hazard-alert enrichment batch: it drains one
// snapshot of alert JSON from the feed topic, classifies and upserts each
// record, recomputes supersession over the whole store, and replaces each
// alert's postal-code provenance.
//
// One-shot by default (intended for cron); --interval keeps the process
// running on a ticker with the operational HTTP endpoints up.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/hazard-alert-enrichment/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-alert-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/classify"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/config"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/ingest"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/observability"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/store"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/strategy"
)

var (
	flagDryRun   bool
	flagVerbose  bool
	flagInterval time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "enrich",
		Short:         "Enrich hazard alerts with affected postal codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().BoolVar(&flagDryRun, "dry-run", false, "compute enrichment without persisting anything")
	root.Flags().BoolVar(&flagVerbose, "verbose", false, "log per-alert strategy comparisons")
	root.Flags().DurationVar(&flagInterval, "interval", 0, "keep running, processing a batch every interval (0 = run once)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("enrich failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	county, polygon, placeName, err := loadStrategies(cfg, logger)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reader := kafkaadapter.NewReader(cfg, logger, metrics)
	defer reader.Close()

	classifier := classify.NewKeyword(cfg.DamageKeywords)
	orch := ingest.New(st, classifier, county, polygon, placeName, logger, metrics, flagDryRun)

	if flagInterval <= 0 {
		return runOnce(ctx, cfg, logger, reader, orch)
	}
	return runLoop(ctx, cfg, logger, reader, orch)
}

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, reader *kafkaadapter.Reader, orch *ingest.Orchestrator) error {
	batch, err := reader.ExtractBatch(ctx, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("extract batch: %w", err)
	}
	if len(batch) == 0 {
		logger.Info("no alerts in feed snapshot")
		return nil
	}
	if _, err := orch.RunBatch(ctx, batch); err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	return nil
}

func runLoop(ctx context.Context, cfg *config.Config, logger *slog.Logger, reader *kafkaadapter.Reader, orch *ingest.Orchestrator) error {
	srv := httpadapter.NewServer(cfg.HTTPAddr, orch, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("ingest loop started", "interval", flagInterval, "dry_run", flagDryRun)
	ticker := time.NewTicker(flagInterval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx, cfg, logger, reader, orch); err != nil {
			// The next scheduled run re-fetches and reprocesses; idempotence
			// makes that safe.
			logger.Error("batch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			return nil
		case <-ticker.C:
		}
	}
}

func loadStrategies(cfg *config.Config, logger *slog.Logger) (*strategy.County, *strategy.Polygon, *strategy.PlaceName, error) {
	regions, err := refdata.LoadRegionIndex(cfg.CrosswalkPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load crosswalk: %w", err)
	}
	centroids, err := refdata.LoadCentroidIndex(cfg.CentroidPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load centroids: %w", err)
	}
	places, err := refdata.LoadPlaceNameIndex(cfg.GazetteerPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load gazetteer: %w", err)
	}

	logger.Info("reference data loaded",
		"regions", regions.Len(), "regions_skipped", regions.Skipped(),
		"centroids", centroids.Len(), "centroids_skipped", centroids.Skipped(),
		"places", places.Len(), "places_skipped", places.Skipped(),
		"ratio_threshold", cfg.RatioThreshold,
	)

	return strategy.NewCounty(regions, cfg.RatioThreshold),
		strategy.NewPolygon(centroids),
		strategy.NewPlaceName(places),
		nil
}
