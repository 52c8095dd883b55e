package refdata

import (
	"io"
	"strconv"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

// PostalRegionEntry is one crosswalk row: a postal code that overlaps a region,
// with the share of its address base in each class.
type PostalRegionEntry struct {
	Zip              string
	ResidentialRatio float64
	BusinessRatio    float64
	OtherRatio       float64
}

// RegionIndex maps normalized 5-digit region codes to the postal codes that
// overlap them. Read-only after load.
type RegionIndex struct {
	entries map[string][]PostalRegionEntry
	skipped int
}

// LoadRegionIndex reads a crosswalk CSV with columns
// region_code,zip,res_ratio,bus_ratio,oth_ratio.
func LoadRegionIndex(path string) (*RegionIndex, error) {
	return openAndLoad(path, ReadRegionIndex)
}

// ReadRegionIndex parses crosswalk CSV from r. Malformed rows are skipped and counted.
func ReadRegionIndex(r io.Reader) (*RegionIndex, error) {
	colIdx, rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	idx := &RegionIndex{entries: make(map[string][]PostalRegionEntry, len(rows))}
	for _, row := range rows {
		code := domain.NormalizeRegionCode(field(row, colIdx, "region_code"))
		zip := normalizeZip(field(row, colIdx, "zip"))
		res, errR := strconv.ParseFloat(field(row, colIdx, "res_ratio"), 64)
		if code == "" || zip == "" || errR != nil {
			idx.skipped++
			continue
		}
		bus, _ := strconv.ParseFloat(field(row, colIdx, "bus_ratio"), 64)
		oth, _ := strconv.ParseFloat(field(row, colIdx, "oth_ratio"), 64)

		idx.entries[code] = append(idx.entries[code], PostalRegionEntry{
			Zip:              zip,
			ResidentialRatio: res,
			BusinessRatio:    bus,
			OtherRatio:       oth,
		})
	}
	return idx, nil
}

// Lookup returns the crosswalk entries for a normalized region code, or nil
// when the code is retired or unmapped.
func (i *RegionIndex) Lookup(code string) []PostalRegionEntry {
	return i.entries[code]
}

// Len returns the number of distinct region codes loaded.
func (i *RegionIndex) Len() int { return len(i.entries) }

// Skipped returns the count of malformed source rows dropped during load.
func (i *RegionIndex) Skipped() int { return i.skipped }
