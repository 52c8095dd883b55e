// Command validate loads the three reference datasets and reports row, skip,
// and lookup statistics, so operators can sanity-check a new data drop before
// pointing the enrichment service at it.
//
// Usage:
//
//	go run ./cmd/validate -crosswalk data/ref/county_zip_crosswalk.csv \
//	  -centroids data/ref/zip_centroids.csv -gazetteer data/ref/zip_gazetteer.csv \
//	  [-region 06037]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/refdata"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	crosswalk := flag.String("crosswalk", "", "region↔postal-code crosswalk CSV")
	centroids := flag.String("centroids", "", "postal-code centroid CSV")
	gazetteer := flag.String("gazetteer", "", "postal-code gazetteer CSV")
	region := flag.String("region", "", "optional region code to spot-check")
	flag.Parse()

	if *crosswalk == "" || *centroids == "" || *gazetteer == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -crosswalk, -centroids, -gazetteer")
	}

	regions, err := refdata.LoadRegionIndex(*crosswalk)
	if err != nil {
		return fmt.Errorf("crosswalk: %w", err)
	}
	fmt.Printf("crosswalk: %d region codes, %d rows skipped\n", regions.Len(), regions.Skipped())

	cents, err := refdata.LoadCentroidIndex(*centroids)
	if err != nil {
		return fmt.Errorf("centroids: %w", err)
	}
	fmt.Printf("centroids: %d postal codes, %d rows skipped\n", cents.Len(), cents.Skipped())

	places, err := refdata.LoadPlaceNameIndex(*gazetteer)
	if err != nil {
		return fmt.Errorf("gazetteer: %w", err)
	}
	fmt.Printf("gazetteer: %d postal codes, %d rows skipped\n", places.Len(), places.Skipped())

	if *region == "" {
		return nil
	}

	code := domain.NormalizeRegionCode(*region)
	if code == "" {
		return fmt.Errorf("region code %q is not numeric", *region)
	}
	entries := regions.Lookup(code)
	fmt.Printf("\nregion %s: %d crosswalk entries\n", code, len(entries))

	county := strategy.NewCounty(regions, 0)
	res := county.Apply([]string{code})
	fmt.Printf("qualifying at default threshold: %d\n", len(res.Zips))

	var missingCentroid, missingPlace int
	for _, zip := range res.Zips {
		if _, ok := cents.Lookup(zip); !ok {
			missingCentroid++
		}
		if _, ok := places.Lookup(zip); !ok {
			missingPlace++
		}
	}
	fmt.Printf("qualifying zips without centroid: %d, without gazetteer entry: %d\n",
		missingCentroid, missingPlace)
	return nil
}
