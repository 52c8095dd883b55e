// Package strategy implements the three postal-code filtering strategies and
// the provenance-preserving merger that unions their outputs.
//
// County lookup is the recall-maximizing baseline; polygon containment and
// place-name extraction are independent precision refinements of it. Overlap
// between the refinements is expected, but neither subsumes the other.
package strategy

import (
	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
)

// DefaultRatioThreshold is the residential-ratio cutoff below which a postal
// code only nominally overlaps a region.
const DefaultRatioThreshold = 0.5

// CountyResult is the baseline candidate set plus per-code diagnostics.
type CountyResult struct {
	// Zips is the deduplicated union across all region codes, in first-seen order.
	Zips []string
	// PerCode counts the qualifying candidates each region code contributed.
	PerCode map[string]int
	// MissingCodes lists region codes with no crosswalk entry at all
	// (retired or unmapped), distinct from codes whose candidates all
	// fell below the threshold.
	MissingCodes []string
}

// County is the region-code → postal-code baseline strategy.
type County struct {
	regions   *refdata.RegionIndex
	threshold float64
}

// NewCounty creates the baseline strategy. A non-positive threshold selects
// DefaultRatioThreshold.
func NewCounty(regions *refdata.RegionIndex, threshold float64) *County {
	if threshold <= 0 {
		threshold = DefaultRatioThreshold
	}
	return &County{regions: regions, threshold: threshold}
}

// Apply looks up every region code and keeps candidates whose residential
// ratio meets the threshold (boundary inclusive: ratio ≥ τ passes).
func (c *County) Apply(regionCodes []string) CountyResult {
	res := CountyResult{PerCode: make(map[string]int, len(regionCodes))}
	seen := make(map[string]struct{})

	for _, code := range regionCodes {
		entries := c.regions.Lookup(code)
		if entries == nil {
			res.MissingCodes = append(res.MissingCodes, code)
			continue
		}
		kept := 0
		for _, e := range entries {
			if e.ResidentialRatio < c.threshold {
				continue
			}
			kept++
			if _, dup := seen[e.Zip]; dup {
				continue
			}
			seen[e.Zip] = struct{}{}
			res.Zips = append(res.Zips, e.Zip)
		}
		res.PerCode[code] = kept
	}
	return res
}
