// Package refdata loads the three static reference datasets into read-only
// indexes: the region↔postal-code crosswalk, population-weighted postal-code
// centroids, and the postal-code gazetteer. Each index is loaded once per
// process, never mutated, and dependency-injected into the strategies so they
// stay independently testable.
//
// All three files are headered CSV. Malformed or unrecognized rows are skipped
// and counted, never fatal to loading; the skip count is logged once per file.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// csvRows reads a headered CSV and returns a column-name lookup plus the data
// rows. Rows shorter than the header are returned as-is; loaders skip them.
func csvRows(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}
	colIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return colIdx, rows[1:], nil
}

func field(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func openAndLoad[T any](path string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return load(f)
}

// normalizeZip pads a postal code to its fixed 5-digit form, returning "" for
// non-numeric input.
func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" || len(zip) > 5 {
		return ""
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return strings.Repeat("0", 5-len(zip)) + zip
}
