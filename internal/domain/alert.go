package domain

import (
	"time"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/geo"
)

// MessageType distinguishes new alerts from updates and cancellations.
type MessageType string

const (
	MessageAlert  MessageType = "Alert"
	MessageUpdate MessageType = "Update"
	MessageCancel MessageType = "Cancel"
)

// AlertRecord is the canonical stored form of one version of a hazard alert.
type AlertRecord struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Status    string `json:"status"`
	Severity  string `json:"severity"`
	Certainty string `json:"certainty"`
	Urgency   string `json:"urgency"`

	Headline    string `json:"headline,omitempty"`
	Description string `json:"description,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	AreaDesc    string `json:"area_desc,omitempty"`

	Sent      time.Time `json:"sent"`
	Effective time.Time `json:"effective,omitempty"`
	Onset     time.Time `json:"onset,omitempty"`
	Expires   time.Time `json:"expires,omitempty"`

	MessageType MessageType `json:"message_type"`

	// RegionCodes are normalized 5-digit county FIPS codes from geocode.SAME.
	RegionCodes []string `json:"region_codes,omitempty"`

	// References are normalized predecessor ids this version supersedes.
	References []string `json:"references,omitempty"`

	// Geometry is nil when the feed carried none, or when it was malformed;
	// both mean "no geometric refinement available", never "excluded everywhere".
	Geometry *geo.Geometry `json:"geometry,omitempty"`

	DamageRelevant bool `json:"damage_relevant"`

	// Derived lifecycle fields, recomputed globally per batch. IsCurrent is
	// false iff SuccessorID names an existing stored record.
	IsCurrent   bool   `json:"is_current"`
	SuccessorID string `json:"successor_id,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
}

// FreeText concatenates the alert's prose fields for place-name extraction.
func (a *AlertRecord) FreeText() string {
	out := a.Headline
	for _, s := range []string{a.Description, a.Instruction, a.AreaDesc} {
		if s == "" {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += s
	}
	return out
}

// Classifier decides whether an alert is damage-relevant. The concrete
// classifier is an external collaborator; this core only invokes it.
type Classifier interface {
	Relevant(a AlertRecord) bool
}
