package strategy

import (
	"github.com/couchcryptid/hazard-alert-enrichment/internal/geo"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
)

// Polygon refines the baseline candidate set to postal codes whose
// representative centroid falls inside the alert geometry.
type Polygon struct {
	centroids *refdata.CentroidIndex
}

// NewPolygon creates the geometric refinement strategy.
func NewPolygon(centroids *refdata.CentroidIndex) *Polygon {
	return &Polygon{centroids: centroids}
}

// Apply returns the candidates whose centroid the geometry contains. With no
// geometry there is no refinement to apply and every candidate is kept;
// absence means "unavailable", not "excluded everywhere". When geometry is
// present the output is always a subset of the input; candidates with no
// known centroid are conservatively dropped, never defaulted to contained.
func (p *Polygon) Apply(candidates []string, g *geo.Geometry) []string {
	if g == nil {
		out := make([]string, len(candidates))
		copy(out, candidates)
		return out
	}

	out := make([]string, 0, len(candidates))
	for _, zip := range candidates {
		pt, ok := p.centroids.Lookup(zip)
		if !ok {
			continue
		}
		if geo.Contains(pt, g) {
			out = append(out, zip)
		}
	}
	return out
}
