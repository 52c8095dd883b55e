package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/geo"
)

// RawMessage represents an unprocessed alert message from the feed topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// feedAlert mirrors the collector's CAP-style JSON document.
type feedAlert struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
	Certainty   string `json:"certainty"`
	Urgency     string `json:"urgency"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
	AreaDesc    string `json:"areaDesc"`
	Sent        string `json:"sent"`
	Effective   string `json:"effective"`
	Onset       string `json:"onset"`
	Expires     string `json:"expires"`
	MessageType string `json:"messageType"`
	Geocode     struct {
		SAME []string `json:"SAME"`
		UGC  []string `json:"UGC"`
	} `json:"geocode"`
	References []json.RawMessage `json:"references"`
	Geometry   json.RawMessage   `json:"geometry"`
}

// ErrMalformedGeometry marks geometry that is present but not a recognized
// shape. Callers treat it as absent (pass-through), never as fatal.
var ErrMalformedGeometry = errors.New("malformed geometry")

// ParseFeedAlert deserializes one feed message into an AlertRecord.
// Malformed geometry does not fail the parse: the record comes back with nil
// geometry and ErrMalformedGeometry so the caller can log and count it.
func ParseFeedAlert(raw RawMessage) (AlertRecord, error) {
	var fa feedAlert
	if err := json.Unmarshal(raw.Value, &fa); err != nil {
		return AlertRecord{}, fmt.Errorf("parse feed alert: %w", err)
	}
	if fa.ID == "" {
		return AlertRecord{}, errors.New("parse feed alert: missing id")
	}

	rec := AlertRecord{
		ID:          fa.ID,
		Event:       fa.Event,
		Status:      fa.Status,
		Severity:    fa.Severity,
		Certainty:   fa.Certainty,
		Urgency:     fa.Urgency,
		Headline:    fa.Headline,
		Description: fa.Description,
		Instruction: fa.Instruction,
		AreaDesc:    fa.AreaDesc,
		Sent:        parseTimeOrZero(fa.Sent),
		Effective:   parseTimeOrZero(fa.Effective),
		Onset:       parseTimeOrZero(fa.Onset),
		Expires:     parseTimeOrZero(fa.Expires),
		MessageType: normalizeMessageType(fa.MessageType),
		RegionCodes: normalizeRegionCodes(fa.Geocode.SAME),
		References:  normalizeReferences(fa.ID, fa.References),
		IsCurrent:   true,
		IngestedAt:  clock.Now().UTC(),
	}

	g, err := parseGeometry(fa.Geometry)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	rec.Geometry = g
	return rec, nil
}

// parseTimeOrZero parses an RFC 3339 timestamp, returning the zero time for
// empty or unparseable values. Feed timestamps are advisory, never load-bearing.
func parseTimeOrZero(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func normalizeMessageType(s string) MessageType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "update":
		return MessageUpdate
	case "cancel":
		return MessageCancel
	default:
		return MessageAlert
	}
}

// NormalizeRegionCode reduces a SAME or FIPS region code to its fixed 5-digit
// county FIPS form. SAME codes carry a leading subdivision digit ("048113" →
// "48113"); shorter codes are zero-padded. Returns "" for non-numeric input.
func NormalizeRegionCode(code string) string {
	code = strings.TrimSpace(code)
	for _, r := range code {
		if r < '0' || r > '9' {
			return ""
		}
	}
	switch {
	case len(code) == 6 && code[0] == '0':
		return code[1:]
	case len(code) == 0 || len(code) > 5:
		return ""
	default:
		return strings.Repeat("0", 5-len(code)) + code
	}
}

func normalizeRegionCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		n := NormalizeRegionCode(c)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// normalizeReferences extracts predecessor ids from the feed's references
// list, which mixes bare id strings, CAP comma triples, and structured
// objects. Unrecognized entries and self-references are dropped, the same
// silent no-op a dangling predecessor gets downstream.
func normalizeReferences(selfID string, refs []json.RawMessage) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, raw := range refs {
		id, ok := normalizeReference(raw)
		if !ok || id == selfID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeReference(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		// CAP triple "sender,identifier,sent": the identifier is field two.
		if parts := strings.Split(s, ","); len(parts) == 3 {
			s = strings.TrimSpace(parts[1])
		}
		return s, s != ""
	}

	var obj struct {
		Identifier string `json:"identifier"`
		ID         string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Identifier != "" {
			return obj.Identifier, true
		}
		if obj.ID != "" {
			return obj.ID, true
		}
	}
	return "", false
}

// geoJSONGeometry is the subset of GeoJSON the feed emits.
type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// parseGeometry converts feed GeoJSON into the internal ring representation.
// A missing or JSON-null geometry yields (nil, nil): refinement unavailable.
func parseGeometry(raw json.RawMessage) (*geo.Geometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var gj geoJSONGeometry
	if err := json.Unmarshal(raw, &gj); err != nil {
		return nil, err
	}

	switch gj.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(gj.Coordinates, &rings); err != nil {
			return nil, err
		}
		p, err := toPolygon(rings)
		if err != nil {
			return nil, err
		}
		return &geo.Geometry{Polygons: []geo.Polygon{p}}, nil
	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(gj.Coordinates, &parts); err != nil {
			return nil, err
		}
		g := &geo.Geometry{Polygons: make([]geo.Polygon, 0, len(parts))}
		for _, rings := range parts {
			p, err := toPolygon(rings)
			if err != nil {
				return nil, err
			}
			g.Polygons = append(g.Polygons, p)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", gj.Type)
	}
}

func toPolygon(rings [][][]float64) (geo.Polygon, error) {
	p := geo.Polygon{Rings: make([]geo.Ring, 0, len(rings))}
	for _, ring := range rings {
		r := make(geo.Ring, 0, len(ring))
		for _, pos := range ring {
			// GeoJSON positions are [lon, lat].
			if len(pos) < 2 {
				return geo.Polygon{}, fmt.Errorf("position with %d coordinates", len(pos))
			}
			r = append(r, geo.Point{Lat: pos[1], Lon: pos[0]})
		}
		p.Rings = append(p.Rings, r)
	}
	if len(p.Rings) == 0 || len(p.Rings[0]) < 3 {
		return geo.Polygon{}, errors.New("polygon without a usable outer ring")
	}
	return p, nil
}
