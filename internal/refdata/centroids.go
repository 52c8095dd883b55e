package refdata

import (
	"io"
	"strconv"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/geo"
)

// CentroidIndex maps postal codes to a population-weighted representative
// point. Read-only after load.
type CentroidIndex struct {
	points  map[string]geo.Point
	skipped int
}

// LoadCentroidIndex reads a centroid CSV with columns zip,lat,lon.
func LoadCentroidIndex(path string) (*CentroidIndex, error) {
	return openAndLoad(path, ReadCentroidIndex)
}

// ReadCentroidIndex parses centroid CSV from r. Malformed rows are skipped and counted.
func ReadCentroidIndex(r io.Reader) (*CentroidIndex, error) {
	colIdx, rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	idx := &CentroidIndex{points: make(map[string]geo.Point, len(rows))}
	for _, row := range rows {
		zip := normalizeZip(field(row, colIdx, "zip"))
		lat, errLat := strconv.ParseFloat(field(row, colIdx, "lat"), 64)
		lon, errLon := strconv.ParseFloat(field(row, colIdx, "lon"), 64)
		if zip == "" || errLat != nil || errLon != nil {
			idx.skipped++
			continue
		}
		idx.points[zip] = geo.Point{Lat: lat, Lon: lon}
	}
	return idx, nil
}

// Lookup returns the centroid for a postal code. The second return is false
// when no centroid is known; callers must treat that as "not contained",
// never default to contained.
func (i *CentroidIndex) Lookup(zip string) (geo.Point, bool) {
	pt, ok := i.points[zip]
	return pt, ok
}

// Len returns the number of postal codes with a known centroid.
func (i *CentroidIndex) Len() int { return len(i.points) }

// Skipped returns the count of malformed source rows dropped during load.
func (i *CentroidIndex) Skipped() int { return i.skipped }
