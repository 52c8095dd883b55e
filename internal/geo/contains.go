// Package geo implements the point-in-polygon containment test used to refine
// postal-code candidate sets against alert geometry.
package geo

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ring is a closed sequence of vertices. The first and last vertex may or may
// not repeat; the crossing test handles both forms.
type Ring []Point

// Polygon is one part of a possibly multi-part geometry. Rings[0] is the outer
// boundary; any further rings are holes, which the containment test ignores.
// That is an acceptable approximation when testing representative centroids.
type Polygon struct {
	Rings []Ring `json:"rings"`
}

// Geometry is an alert's affected area: one or more polygon parts.
type Geometry struct {
	Polygons []Polygon `json:"polygons"`
}

// Empty reports whether the geometry has no usable outer ring.
func (g *Geometry) Empty() bool {
	if g == nil {
		return true
	}
	for _, p := range g.Polygons {
		if len(p.Rings) > 0 && len(p.Rings[0]) >= 3 {
			return false
		}
	}
	return true
}

// Contains reports whether pt falls inside the geometry. A nil geometry means
// no geometric refinement is available, so every point passes through. For
// multi-part geometry the point is contained if it is inside any one part's
// outer ring.
func Contains(pt Point, g *Geometry) bool {
	if g == nil {
		return true
	}
	for _, p := range g.Polygons {
		if len(p.Rings) == 0 {
			continue
		}
		if pointInRing(pt, p.Rings[0]) {
			return true
		}
	}
	return false
}

// pointInRing runs the even-odd ray-casting test: a conceptual ray from pt
// toward increasing longitude crosses ring edges; an odd crossing count means
// inside. Points exactly on a boundary vertex get whichever answer the
// crossing parity produces.
func pointInRing(pt Point, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, yj := ring[i].Lat, ring[j].Lat
		if (yi > pt.Lat) == (yj > pt.Lat) {
			continue
		}
		xi, xj := ring[i].Lon, ring[j].Lon
		if pt.Lon < (xj-xi)*(pt.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
