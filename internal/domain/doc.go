// Package domain models hazard alerts distilled from a CAP-style feed and the
// postal-code enrichment derived from them.
//
// # Feed Conventions
//
// The upstream collector publishes one JSON document per alert version. The
// shape follows the Common Alerting Protocol as exposed by the NWS API:
//
//	id           stable feed-assigned identifier for this version
//	event        hazard type, e.g. "Flash Flood Warning"
//	messageType  "Alert", "Update", or "Cancel"
//	geocode.SAME administrative region codes (6-digit SAME, i.e. "0" + county FIPS)
//	references   predecessor alert versions this message supersedes
//	geometry     optional GeoJSON Polygon or MultiPolygon of the affected area
//
// Reference entries arrive in several forms, all normalized to a plain id:
//
//	"urn:oid:...old-id"                          bare identifier string
//	"sender,urn:oid:...old-id,2024-04-26T15:10"  CAP comma triple (take field 2)
//	{"identifier": "urn:oid:...old-id"}          structured object
//
// # Supersession
//
// When a feed message references earlier versions, those versions stop being
// authoritative: IsCurrent flips false and SuccessorID records the replacing
// version. The relation is recomputed globally on every batch (reset, then
// reapply), so re-delivery, duplicates, and out-of-order arrival all converge
// to the same state. A reference to a version that was never ingested, or has
// aged out of retention, is a silent no-op.
//
// # Provenance
//
// Enrichment produces one ZipProvenance row per (alert, postal code) with
// three independent flags recording which strategies justified the code:
// region-code lookup, centroid-in-polygon containment, and place-name match.
// Rows are fully recomputed and replaced on every re-ingestion of an alert,
// never patched, so codes that no longer qualify are dropped.
package domain
