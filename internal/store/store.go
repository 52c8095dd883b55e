// Package store persists alert records and their enrichment provenance in
// SQLite. All multi-row writes run in a single transaction so a crash partway
// through a batch never leaves a current alert with stale provenance.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/hazard-alert-enrichment/internal/domain"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/geo"
	"github.com/couchcryptid/hazard-alert-enrichment/internal/supersede"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the SQLite database holding alerts and zip provenance.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One pooled connection: SQLite serializes writers anyway, and the pragma
	// below (like an in-memory database) is per-connection state.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

const alertColumns = `id, event, status, severity, certainty, urgency,
	headline, description, instruction, area_desc,
	sent, effective, onset, expires,
	message_type, region_codes, refs, geometry,
	damage_relevant, is_current, successor_id, ingested_at`

// UpsertAlerts inserts or updates alert rows by id in one transaction.
// Content fields are replaced; the derived lifecycle fields are left to the
// supersession pass that follows every upsert.
func (s *Store) UpsertAlerts(ctx context.Context, records []domain.AlertRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range records {
		if err := upsertAlert(ctx, tx, s.sb, &records[i]); err != nil {
			return fmt.Errorf("upsert alert %s: %w", records[i].ID, err)
		}
	}
	return tx.Commit()
}

func upsertAlert(ctx context.Context, tx *sql.Tx, sb sq.StatementBuilderType, a *domain.AlertRecord) error {
	regionCodes, err := json.Marshal(emptyAsList(a.RegionCodes))
	if err != nil {
		return err
	}
	refs, err := json.Marshal(emptyAsList(a.References))
	if err != nil {
		return err
	}
	var geometry any
	if a.Geometry != nil {
		b, err := json.Marshal(a.Geometry)
		if err != nil {
			return err
		}
		geometry = string(b)
	}

	query, args, err := sb.Insert("alerts").
		Columns("id", "event", "status", "severity", "certainty", "urgency",
			"headline", "description", "instruction", "area_desc",
			"sent", "effective", "onset", "expires",
			"message_type", "region_codes", "refs", "geometry",
			"damage_relevant", "ingested_at").
		Values(a.ID, a.Event, a.Status, a.Severity, a.Certainty, a.Urgency,
			a.Headline, a.Description, a.Instruction, a.AreaDesc,
			timeOrNull(a.Sent), timeOrNull(a.Effective), timeOrNull(a.Onset), timeOrNull(a.Expires),
			string(a.MessageType), string(regionCodes), string(refs), geometry,
			a.DamageRelevant, a.IngestedAt.UTC().Format(time.RFC3339)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			event=excluded.event, status=excluded.status, severity=excluded.severity,
			certainty=excluded.certainty, urgency=excluded.urgency,
			headline=excluded.headline, description=excluded.description,
			instruction=excluded.instruction, area_desc=excluded.area_desc,
			sent=excluded.sent, effective=excluded.effective,
			onset=excluded.onset, expires=excluded.expires,
			message_type=excluded.message_type, region_codes=excluded.region_codes,
			refs=excluded.refs, geometry=excluded.geometry,
			damage_relevant=excluded.damage_relevant, ingested_at=excluded.ingested_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// ListAlerts returns every stored alert, ordered by id for determinism.
func (s *Store) ListAlerts(ctx context.Context) ([]domain.AlertRecord, error) {
	query, args, err := s.sb.Select(alertColumns).From("alerts").OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAlert returns one alert by id; the bool is false when it does not exist.
func (s *Store) GetAlert(ctx context.Context, id string) (domain.AlertRecord, bool, error) {
	query, args, err := s.sb.Select(alertColumns).From("alerts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.AlertRecord{}, false, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.AlertRecord{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return domain.AlertRecord{}, false, rows.Err()
	}
	rec, err := scanAlert(rows)
	return rec, err == nil, err
}

func scanAlert(rows *sql.Rows) (domain.AlertRecord, error) {
	var (
		a                           domain.AlertRecord
		sent, effective, onset, exp sql.NullString
		msgType, regionCodes, refs  string
		geometry, successorID       sql.NullString
		ingestedAt                  string
	)
	err := rows.Scan(&a.ID, &a.Event, &a.Status, &a.Severity, &a.Certainty, &a.Urgency,
		&a.Headline, &a.Description, &a.Instruction, &a.AreaDesc,
		&sent, &effective, &onset, &exp,
		&msgType, &regionCodes, &refs, &geometry,
		&a.DamageRelevant, &a.IsCurrent, &successorID, &ingestedAt)
	if err != nil {
		return domain.AlertRecord{}, err
	}

	a.MessageType = domain.MessageType(msgType)
	a.Sent = nullToTime(sent)
	a.Effective = nullToTime(effective)
	a.Onset = nullToTime(onset)
	a.Expires = nullToTime(exp)
	a.SuccessorID = successorID.String
	if t, err := time.Parse(time.RFC3339, ingestedAt); err == nil {
		a.IngestedAt = t.UTC()
	}

	if err := json.Unmarshal([]byte(regionCodes), &a.RegionCodes); err != nil {
		return domain.AlertRecord{}, fmt.Errorf("region codes: %w", err)
	}
	if err := json.Unmarshal([]byte(refs), &a.References); err != nil {
		return domain.AlertRecord{}, fmt.Errorf("refs: %w", err)
	}
	if len(a.RegionCodes) == 0 {
		a.RegionCodes = nil
	}
	if len(a.References) == 0 {
		a.References = nil
	}
	if geometry.Valid {
		var g geo.Geometry
		if err := json.Unmarshal([]byte(geometry.String), &g); err != nil {
			return domain.AlertRecord{}, fmt.Errorf("geometry: %w", err)
		}
		a.Geometry = &g
	}
	return a, nil
}

// ApplySupersession resets every alert to current and reapplies the resolved
// state in one transaction, mirroring the resolver's two passes.
func (s *Store) ApplySupersession(ctx context.Context, res map[string]supersede.Resolution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin supersession: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"UPDATE alerts SET is_current = 1, successor_id = NULL"); err != nil {
		return fmt.Errorf("reset supersession: %w", err)
	}
	for id, r := range res {
		if r.Current {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE alerts SET is_current = 0, successor_id = ? WHERE id = ?",
			r.SuccessorID, id); err != nil {
			return fmt.Errorf("supersede %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ReplaceProvenance deletes and reinserts the provenance rows for one alert in
// a single transaction: full recomputation, never an incremental patch.
// Rows with no true flag are rejected before touching the database.
func (s *Store) ReplaceProvenance(ctx context.Context, alertID string, rows []domain.ZipProvenance) error {
	for _, r := range rows {
		if !r.Flags.Any() {
			return fmt.Errorf("provenance row %s/%s has no justifying strategy", alertID, r.Zip)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provenance replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM zip_provenance WHERE alert_id = ?", alertID); err != nil {
		return fmt.Errorf("clear provenance for %s: %w", alertID, err)
	}
	for _, r := range rows {
		query, args, err := s.sb.Insert("zip_provenance").
			Columns("alert_id", "zip", "matched_by_region", "matched_by_geometry", "matched_by_place_name").
			Values(alertID, r.Zip, r.Flags.Region, r.Flags.Geometry, r.Flags.PlaceName).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert provenance %s/%s: %w", alertID, r.Zip, err)
		}
	}
	return tx.Commit()
}

// ProvenanceFor returns the stored provenance rows for one alert, ordered by zip.
func (s *Store) ProvenanceFor(ctx context.Context, alertID string) ([]domain.ZipProvenance, error) {
	query, args, err := s.sb.
		Select("alert_id", "zip", "matched_by_region", "matched_by_geometry", "matched_by_place_name").
		From("zip_provenance").Where(sq.Eq{"alert_id": alertID}).OrderBy("zip").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("provenance for %s: %w", alertID, err)
	}
	defer rows.Close()

	var out []domain.ZipProvenance
	for rows.Next() {
		var p domain.ZipProvenance
		if err := rows.Scan(&p.AlertID, &p.Zip, &p.Flags.Region, &p.Flags.Geometry, &p.Flags.PlaceName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteAlert removes an alert; its provenance rows cascade.
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	// Detach any successor pointers at this id first so the FK holds.
	if _, err := s.db.ExecContext(ctx,
		"UPDATE alerts SET is_current = 1, successor_id = NULL WHERE successor_id = ?", id); err != nil {
		return fmt.Errorf("detach successors of %s: %w", id, err)
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete alert %s: %w", id, err)
	}
	return nil
}

func timeOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullToTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func emptyAsList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
