// Package ingest sequences one batch of feed alerts through classification,
// persistence, supersession resolution, and per-alert enrichment. It is the
// only component with side effects on shared state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/observability"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/strategy"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/supersede"
)

// SkipReason classifies why one record produced no enrichment. All reasons
// are per-record and non-fatal to the batch.
type SkipReason string

const (
	// SkipMissingReferenceData: none of the record's region codes have a
	// crosswalk entry (retired or unmapped codes).
	SkipMissingReferenceData SkipReason = "missing_reference_data"
	// SkipNoQualifyingZips: region codes mapped to postal codes, but every
	// candidate fell below the residential-ratio threshold. Distinct from
	// MissingReferenceData so operators can tell an expected marine or
	// offshore hazard from a genuine data gap.
	SkipNoQualifyingZips SkipReason = "no_qualifying_zips"
	// SkipPersistence: the provenance write failed; the record is retried
	// implicitly when the batch is re-fetched on the next scheduled run.
	SkipPersistence SkipReason = "persistence"
)

// Store is the persistence contract the orchestrator writes through.
type Store interface {
	UpsertAlerts(ctx context.Context, records []domain.AlertRecord) error
	ListAlerts(ctx context.Context) ([]domain.AlertRecord, error)
	ApplySupersession(ctx context.Context, res map[string]supersede.Resolution) error
	ReplaceProvenance(ctx context.Context, alertID string, rows []domain.ZipProvenance) error
}

// Summary is the per-batch diagnostic report.
type Summary struct {
	Alerts   int
	Relevant int
	// Superseded counts records whose lifecycle state this pass actually
	// changed, not every superseded record in the store.
	Superseded int
	Enriched   int
	Skips      map[SkipReason]int

	// BaselineZips counts region-matched codes across the batch;
	// HighConfidenceZips counts the geometry∩place-name core. The spread is
	// the precision gained by refinement.
	BaselineZips       int
	HighConfidenceZips int
}

// ReductionPercent reports how much of the baseline the high-confidence core
// filtered away.
func (s Summary) ReductionPercent() float64 {
	if s.BaselineZips == 0 {
		return 0
	}
	return 100 * (1 - float64(s.HighConfidenceZips)/float64(s.BaselineZips))
}

// Orchestrator wires the strategies, resolver, classifier, and store together.
type Orchestrator struct {
	store      Store
	classifier domain.Classifier
	county     *strategy.County
	polygon    *strategy.Polygon
	placeName  *strategy.PlaceName
	merger     *strategy.Merger
	resolver   *supersede.Resolver
	logger     *slog.Logger
	metrics    *observability.Metrics
	dryRun     bool
	ran        atomic.Bool

	mu   sync.Mutex
	last Summary
}

// New creates an Orchestrator. With dryRun set, batches are fully computed and
// logged but nothing is persisted.
func New(store Store, classifier domain.Classifier,
	county *strategy.County, polygon *strategy.Polygon, placeName *strategy.PlaceName,
	logger *slog.Logger, metrics *observability.Metrics, dryRun bool,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		county:     county,
		polygon:    polygon,
		placeName:  placeName,
		merger:     strategy.NewMerger(logger),
		resolver:   supersede.NewResolver(logger),
		logger:     logger,
		metrics:    metrics,
		dryRun:     dryRun,
	}
}

// LastSummary returns the most recent batch summary; the bool is false before
// the first batch completes.
func (o *Orchestrator) LastSummary() (Summary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.ran.Load()
}

// CheckReadiness returns nil once at least one batch has completed.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ran.Load() {
		return errors.New("no batch processed yet")
	}
	return nil
}

// RunBatch processes one fetched snapshot: classify, upsert, resolve
// supersession over the whole store, then enrich each record and replace its
// provenance rows. A failure enriching one record is logged and counted,
// never aborts the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, batch []domain.AlertRecord) (Summary, error) {
	start := time.Now()
	o.metrics.IngestRunning.Set(1)
	defer o.metrics.IngestRunning.Set(0)

	summary := Summary{Alerts: len(batch), Skips: make(map[SkipReason]int)}
	if len(batch) == 0 {
		o.finish(summary)
		return summary, nil
	}

	// 1. Classification is recorded on the record and persisted with it.
	for i := range batch {
		batch[i].DamageRelevant = o.classifier.Relevant(batch[i])
		if batch[i].DamageRelevant {
			summary.Relevant++
		}
	}
	o.metrics.AlertsIngested.Add(float64(len(batch)))
	o.metrics.AlertsRelevant.Add(float64(summary.Relevant))
	o.metrics.BatchAlerts.Observe(float64(len(batch)))

	// 2–3. Upsert, then recompute supersession over the full store.
	changed, err := o.persistAndResolve(ctx, batch)
	if err != nil {
		return summary, err
	}
	summary.Superseded = changed
	o.metrics.SupersessionsApplied.Add(float64(changed))

	// 4. Enrich each record in the batch.
	for i := range batch {
		o.enrichAlert(ctx, &batch[i], &summary)
	}

	o.finish(summary)
	o.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("batch complete",
		"alerts", summary.Alerts,
		"relevant", summary.Relevant,
		"superseded", summary.Superseded,
		"enriched", summary.Enriched,
		"skips", summary.Skips,
		"baseline_zips", summary.BaselineZips,
		"high_confidence_zips", summary.HighConfidenceZips,
		"reduction_pct", fmt.Sprintf("%.1f", summary.ReductionPercent()),
		"dry_run", o.dryRun,
		"duration", time.Since(start),
	)
	return summary, nil
}

// persistAndResolve upserts the batch and recomputes lifecycle state over the
// whole store. In dry-run mode nothing is written; the resolution runs over
// the stored records with the batch overlaid in memory. It returns the number
// of records the pass newly marked superseded, diffed against the lifecycle
// state the records carried before the reset.
func (o *Orchestrator) persistAndResolve(ctx context.Context, batch []domain.AlertRecord) (int, error) {
	if !o.dryRun {
		if err := o.store.UpsertAlerts(ctx, batch); err != nil {
			return 0, fmt.Errorf("upsert batch: %w", err)
		}
	}

	stored, err := o.store.ListAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alerts: %w", err)
	}
	if o.dryRun {
		stored = overlay(stored, batch)
	}

	res := o.resolver.Resolve(stored)

	// Upserts never touch lifecycle columns, so stored still holds each
	// record's pre-pass state here.
	changed := 0
	for _, r := range stored {
		next := res[r.ID]
		if !next.Current && (r.IsCurrent || r.SuccessorID != next.SuccessorID) {
			changed++
		}
	}

	if !o.dryRun {
		if err := o.store.ApplySupersession(ctx, res); err != nil {
			return 0, fmt.Errorf("apply supersession: %w", err)
		}
	}
	return changed, nil
}

// overlay merges batch records over the stored set by id, for dry-run
// resolution without writes.
func overlay(stored, batch []domain.AlertRecord) []domain.AlertRecord {
	byID := make(map[string]int, len(stored))
	for i, r := range stored {
		byID[r.ID] = i
	}
	out := stored
	for _, r := range batch {
		if i, ok := byID[r.ID]; ok {
			out[i] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// enrichAlert runs the strategy fan-out for one record and replaces its
// provenance rows. County feeds both refinements; polygon and place-name have
// no ordering dependency on each other.
func (o *Orchestrator) enrichAlert(ctx context.Context, a *domain.AlertRecord, summary *Summary) {
	county := o.county.Apply(a.RegionCodes)
	summary.BaselineZips += len(county.Zips)

	for _, code := range county.MissingCodes {
		o.logger.Warn("region code has no crosswalk entry", "alert_id", a.ID, "region_code", code)
	}

	if len(county.Zips) == 0 {
		reason := SkipNoQualifyingZips
		if len(county.MissingCodes) == len(a.RegionCodes) {
			// Every code was unmapped (or there were none): a data gap, not
			// a threshold outcome.
			reason = SkipMissingReferenceData
		}
		o.skip(a.ID, reason, summary)
		if !o.dryRun {
			if err := o.store.ReplaceProvenance(ctx, a.ID, nil); err != nil {
				o.logger.Error("clear provenance failed", "alert_id", a.ID, "error", err)
			}
		}
		return
	}

	geometryApplied := a.Geometry != nil
	inPolygon := o.polygon.Apply(county.Zips, a.Geometry)
	state := o.placeName.ResolveState(a.RegionCodes)
	byPlace := o.placeName.Apply(county.Zips, a.FreeText(), state)

	merged := o.merger.Merge(a.ID, county.Zips, inPolygon, byPlace, geometryApplied)
	region, geometry, placeName := merged.Counts()
	high := len(merged.HighConfidence())
	summary.HighConfidenceZips += high

	o.metrics.StrategyZips.WithLabelValues("region").Add(float64(region))
	o.metrics.StrategyZips.WithLabelValues("geometry").Add(float64(geometry))
	o.metrics.StrategyZips.WithLabelValues("place_name").Add(float64(placeName))
	o.metrics.StrategyZips.WithLabelValues("high_confidence").Add(float64(high))

	o.logger.Debug("strategy comparison",
		"alert_id", a.ID,
		"event", a.Event,
		"region", region,
		"geometry", geometry,
		"place_name", placeName,
		"high_confidence", high,
		"geometry_applied", geometryApplied,
		"per_code", county.PerCode,
	)

	if geometryApplied && len(inPolygon) == 0 {
		// Present-but-matching-nothing is a real outcome, not the same as
		// absent geometry: every qualifying centroid fell outside.
		o.logger.Warn("geometry excluded every candidate", "alert_id", a.ID, "candidates", len(county.Zips))
	}

	rows := make([]domain.ZipProvenance, 0, len(merged.Zips))
	for _, zip := range merged.Zips {
		rows = append(rows, domain.ZipProvenance{AlertID: a.ID, Zip: zip, Flags: merged.Flags[zip]})
	}

	if !o.dryRun {
		if err := o.store.ReplaceProvenance(ctx, a.ID, rows); err != nil {
			o.logger.Error("replace provenance failed", "alert_id", a.ID, "error", err)
			o.skip(a.ID, SkipPersistence, summary)
			return
		}
	}
	summary.Enriched++
}

func (o *Orchestrator) finish(summary Summary) {
	o.mu.Lock()
	o.last = summary
	o.mu.Unlock()
	o.ran.Store(true)
}

func (o *Orchestrator) skip(alertID string, reason SkipReason, summary *Summary) {
	summary.Skips[reason]++
	o.metrics.EnrichSkips.WithLabelValues(string(reason)).Inc()
	o.logger.Warn("enrichment skipped", "alert_id", alertID, "reason", string(reason))
}
