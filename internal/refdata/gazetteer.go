package refdata

import (
	"io"
	"strings"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

// PostalPlace is one gazetteer row: the place a postal code belongs to.
type PostalPlace struct {
	Zip        string
	Name       string // normalized lowercase place name
	State      string // two-letter state/region abbreviation, uppercase
	RegionCode string // owning 5-digit region code
}

// PlaceNameIndex maps postal codes to their gazetteer place. It also carries a
// region-code → state lookup so an alert's state can be resolved from its
// administrative codes. Read-only after load.
type PlaceNameIndex struct {
	places        map[string]PostalPlace
	stateByRegion map[string]string
	skipped       int
}

// LoadPlaceNameIndex reads a gazetteer CSV with columns zip,place_name,state,region_code.
func LoadPlaceNameIndex(path string) (*PlaceNameIndex, error) {
	return openAndLoad(path, ReadPlaceNameIndex)
}

// ReadPlaceNameIndex parses gazetteer CSV from r. Malformed rows are skipped and counted.
func ReadPlaceNameIndex(r io.Reader) (*PlaceNameIndex, error) {
	colIdx, rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	idx := &PlaceNameIndex{
		places:        make(map[string]PostalPlace, len(rows)),
		stateByRegion: make(map[string]string),
	}
	for _, row := range rows {
		zip := normalizeZip(field(row, colIdx, "zip"))
		name := strings.ToLower(field(row, colIdx, "place_name"))
		state := strings.ToUpper(field(row, colIdx, "state"))
		if zip == "" || name == "" {
			idx.skipped++
			continue
		}
		region := domain.NormalizeRegionCode(field(row, colIdx, "region_code"))
		idx.places[zip] = PostalPlace{Zip: zip, Name: name, State: state, RegionCode: region}
		if region != "" && state != "" {
			idx.stateByRegion[region] = state
		}
	}
	return idx, nil
}

// Lookup returns the gazetteer place for a postal code.
func (i *PlaceNameIndex) Lookup(zip string) (PostalPlace, bool) {
	p, ok := i.places[zip]
	return p, ok
}

// ResolveState returns the state abbreviation for the first region code with a
// gazetteer entry, or "" when none resolves. Place-name matching falls back to
// name-only matching in that case.
func (i *PlaceNameIndex) ResolveState(regionCodes []string) string {
	for _, code := range regionCodes {
		if st, ok := i.stateByRegion[code]; ok {
			return st
		}
	}
	return ""
}

// Len returns the number of postal codes with a gazetteer entry.
func (i *PlaceNameIndex) Len() int { return len(i.places) }

// Skipped returns the count of malformed source rows dropped during load.
func (i *PlaceNameIndex) Skipped() int { return i.skipped }
