package domain

// ProvenanceFlags records which filtering strategies independently justified
// including a postal code for an alert. A flag is an OR within a single run:
// each strategy only emits codes it justifies on its own.
type ProvenanceFlags struct {
	Region    bool `json:"matched_by_region"`
	Geometry  bool `json:"matched_by_geometry"`
	PlaceName bool `json:"matched_by_place_name"`
}

// Any reports whether at least one strategy justified the code. Stored rows
// must always satisfy this.
func (f ProvenanceFlags) Any() bool {
	return f.Region || f.Geometry || f.PlaceName
}

// ZipProvenance is one persisted enrichment row, keyed by (alert id, postal code).
type ZipProvenance struct {
	AlertID string `json:"alert_id"`
	Zip     string `json:"zip"`
	Flags   ProvenanceFlags
}
