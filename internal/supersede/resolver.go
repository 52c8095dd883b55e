// Package supersede recomputes which version of each hazard thread is
// currently authoritative.
package supersede

import (
	"log/slog"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
)

// Resolution is the recomputed lifecycle state for one alert: either current,
// or superseded by SuccessorID.
type Resolution struct {
	Current     bool
	SuccessorID string
}

// Resolver recomputes lifecycle state over the whole store. Reference edges
// that would close a successor cycle are logged and refused, so following
// SuccessorID always terminates at a current record.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a resolver that logs, and refuses, cycle-closing references.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve runs the global two-pass reset-then-apply algorithm over the whole
// store:
//
//  1. every record is reset to current with no successor;
//  2. for every record B with predecessors, each predecessor id that matches a
//     stored record A marks A superseded by B.
//
// Because pass 1 unconditionally clears prior state, re-running the same batch
// is idempotent. A predecessor with no matching record is a silent no-op,
// expected when it has not been ingested yet or aged out of retention. Updates
// never cascade transitively within a pass.
//
// An edge that would make the successor chain loop back on itself (mutually
// referencing records, or a longer ring of them) is skipped with a warning;
// the earlier-applied edge wins and the thread keeps exactly one terminal
// current version.
func (r *Resolver) Resolve(records []domain.AlertRecord) map[string]Resolution {
	out := make(map[string]Resolution, len(records))
	for _, rec := range records {
		out[rec.ID] = Resolution{Current: true}
	}
	for _, b := range records {
		for _, ref := range b.References {
			if ref == b.ID {
				// A record never names itself as successor.
				continue
			}
			if _, stored := out[ref]; !stored {
				continue
			}
			if closesCycle(out, b.ID, ref) {
				r.logger.Warn("reference would close a supersession cycle, skipping",
					"alert_id", b.ID, "reference", ref)
				continue
			}
			out[ref] = Resolution{Current: false, SuccessorID: b.ID}
		}
	}
	return out
}

// closesCycle reports whether marking pred superseded by succ would make the
// successor chain from succ loop back to pred. The map holds no cycles when
// called, so the walk terminates.
func closesCycle(res map[string]Resolution, succ, pred string) bool {
	for id := succ; id != ""; id = res[id].SuccessorID {
		if id == pred {
			return true
		}
	}
	return false
}

// Apply copies a resolution map onto the records in place, leaving records
// without a resolution untouched.
func Apply(records []domain.AlertRecord, res map[string]Resolution) {
	for i := range records {
		r, ok := res[records[i].ID]
		if !ok {
			continue
		}
		records[i].IsCurrent = r.Current
		records[i].SuccessorID = r.SuccessorID
	}
}
