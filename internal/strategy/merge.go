package strategy

import (
	"log/slog"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

// Merged is the provenance-tagged union of the three strategy outputs for one
// alert, in first-seen order of the baseline (refinement-only codes, which
// indicate an upstream bug, come last).
type Merged struct {
	Zips  []string
	Flags map[string]domain.ProvenanceFlags
}

// Counts returns the per-strategy totals for the diagnostic summary.
func (m Merged) Counts() (region, geometry, placeName int) {
	for _, f := range m.Flags {
		if f.Region {
			region++
		}
		if f.Geometry {
			geometry++
		}
		if f.PlaceName {
			placeName++
		}
	}
	return
}

// HighConfidence returns the codes justified by both precision refinements
// (geometry AND place-name), the intersection downstream consumers use when
// they want minimal false positives.
func (m Merged) HighConfidence() []string {
	out := make([]string, 0, len(m.Zips))
	for _, zip := range m.Zips {
		f := m.Flags[zip]
		if f.Geometry && f.PlaceName {
			out = append(out, zip)
		}
	}
	return out
}

// Merger unions strategy outputs into one provenance map. Each flag is set
// when that strategy's output contains the code, an OR across strategies
// within a single run.
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger that logs, and tolerates, contract violations.
func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge combines the three outputs. geometryApplied tells the merger whether
// the polygon strategy actually filtered (geometry was present); the polygon
// output must then be a subset of the baseline, and any stray code is logged
// and kept rather than crashing the run.
func (g *Merger) Merge(alertID string, county, polygon, placeName []string, geometryApplied bool) Merged {
	m := Merged{Flags: make(map[string]domain.ProvenanceFlags, len(county))}

	add := func(zip string, set func(*domain.ProvenanceFlags)) {
		f, known := m.Flags[zip]
		set(&f)
		m.Flags[zip] = f
		if !known {
			m.Zips = append(m.Zips, zip)
		}
	}

	for _, zip := range county {
		add(zip, func(f *domain.ProvenanceFlags) { f.Region = true })
	}
	for _, zip := range polygon {
		if geometryApplied {
			if f, known := m.Flags[zip]; !known || !f.Region {
				g.logger.Warn("polygon strategy emitted code outside baseline",
					"alert_id", alertID, "zip", zip)
			}
		}
		add(zip, func(f *domain.ProvenanceFlags) { f.Geometry = true })
	}
	for _, zip := range placeName {
		add(zip, func(f *domain.ProvenanceFlags) { f.PlaceName = true })
	}
	return m
}
