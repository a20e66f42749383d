// Package sqlite stores entity snapshots in a single-file SQLite save.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/storage"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type snapshotRow struct {
	ID        string `db:"id"`
	Level     int    `db:"level"`
	Submerged bool   `db:"submerged"`
	vitals.Snapshot
}

type attributeRow struct {
	EntityID  string `db:"entity_id"`
	Stat      string `db:"stat"`
	Permanent int    `db:"permanent"`
	Drain     int    `db:"drain"`
}

type effectRow struct {
	EntityID string `db:"entity_id"`
	Position int    `db:"position"`
	effect.Record
}

// SaveFile is a snapshot store backed by one SQLite database file.
type SaveFile struct {
	conn *sqlx.DB
}

// Open opens or creates the save file at path and ensures its schema.
//
// Postcondition: returns a ready SaveFile or a non-nil error.
func Open(path string) (*SaveFile, error) {
	conn, err := sqlx.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open save file: %w", err)
	}
	// SQLite admits a single writer.
	conn.SetMaxOpenConns(1)

	sf := &SaveFile{conn: conn}
	if err := sf.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate save file: %w", err)
	}
	return sf, nil
}

// Close closes the database connection.
func (sf *SaveFile) Close() error {
	return sf.conn.Close()
}

func (sf *SaveFile) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		level INTEGER NOT NULL,
		submerged INTEGER NOT NULL,
		raw_max_health INTEGER NOT NULL,
		health_limiter INTEGER NOT NULL,
		health INTEGER NOT NULL,
		raw_max_magicka INTEGER NOT NULL,
		magicka_modifier INTEGER NOT NULL,
		magicka INTEGER NOT NULL,
		fatigue INTEGER NOT NULL,
		breath INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attributes (
		entity_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		stat TEXT NOT NULL,
		permanent INTEGER NOT NULL,
		drain INTEGER NOT NULL,
		PRIMARY KEY (entity_id, stat)
	);

	CREATE TABLE IF NOT EXISTS effect_records (
		entity_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		caster_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		rounds_remaining INTEGER NOT NULL,
		magnitude_min INTEGER NOT NULL,
		magnitude_max INTEGER NOT NULL,
		magnitude INTEGER NOT NULL,
		chance INTEGER NOT NULL,
		phase_counter INTEGER NOT NULL,
		cycles_elapsed INTEGER NOT NULL,
		cycles_remaining INTEGER NOT NULL,
		incubation_over INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		PRIMARY KEY (entity_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_effect_records_kind ON effect_records(kind);
	`
	_, err := sf.conn.Exec(schema)
	return err
}

// Save replaces the stored snapshot for snap.ID, effects included, in one transaction.
//
// Precondition: snap.ID must be non-empty.
func (sf *SaveFile) Save(ctx context.Context, snap entity.Snapshot) error {
	tx, err := sf.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save of %s: %w", snap.ID, err)
	}
	defer tx.Rollback()

	// Replacing the parent row cascades to attributes and effects.
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, snap.ID); err != nil {
		return fmt.Errorf("clearing snapshot %s: %w", snap.ID, err)
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO snapshots
			(id, level, submerged, raw_max_health, health_limiter, health,
			 raw_max_magicka, magicka_modifier, magicka, fatigue, breath)
		VALUES
			(:id, :level, :submerged, :raw_max_health, :health_limiter, :health,
			 :raw_max_magicka, :magicka_modifier, :magicka, :fatigue, :breath)`,
		snapshotRow{ID: snap.ID, Level: snap.Level, Submerged: snap.Submerged, Snapshot: snap.Vitals})
	if err != nil {
		return fmt.Errorf("inserting snapshot %s: %w", snap.ID, err)
	}

	attrStmt, err := tx.PreparexContext(ctx,
		`INSERT INTO attributes (entity_id, stat, permanent, drain) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing attributes of %s: %w", snap.ID, err)
	}
	defer attrStmt.Close()
	for _, row := range attributeRows(snap.ID, snap.Attributes) {
		if _, err := attrStmt.ExecContext(ctx, row.EntityID, row.Stat, row.Permanent, row.Drain); err != nil {
			return fmt.Errorf("inserting attribute %s of %s: %w", row.Stat, snap.ID, err)
		}
	}

	effStmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO effect_records
			(entity_id, position, id, kind, caster_id, mode, rounds_remaining,
			 magnitude_min, magnitude_max, magnitude, chance, phase_counter,
			 cycles_elapsed, cycles_remaining, incubation_over, resolved)
		VALUES
			(:entity_id, :position, :id, :kind, :caster_id, :mode, :rounds_remaining,
			 :magnitude_min, :magnitude_max, :magnitude, :chance, :phase_counter,
			 :cycles_elapsed, :cycles_remaining, :incubation_over, :resolved)`)
	if err != nil {
		return fmt.Errorf("preparing effects of %s: %w", snap.ID, err)
	}
	defer effStmt.Close()
	for i, rec := range snap.Effects {
		if _, err := effStmt.ExecContext(ctx, effectRow{EntityID: snap.ID, Position: i, Record: rec}); err != nil {
			return fmt.Errorf("inserting effect %s of %s: %w", rec.ID, snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load returns the snapshot for id.
//
// Postcondition: Returns an error wrapping storage.ErrSnapshotNotFound if id is absent.
func (sf *SaveFile) Load(ctx context.Context, id string) (entity.Snapshot, error) {
	var row snapshotRow
	err := sf.conn.GetContext(ctx, &row, `SELECT * FROM snapshots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Snapshot{}, fmt.Errorf("%w: %q", storage.ErrSnapshotNotFound, id)
	}
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	var attrs []attributeRow
	if err := sf.conn.SelectContext(ctx, &attrs,
		`SELECT * FROM attributes WHERE entity_id = ? ORDER BY stat`, id); err != nil {
		return entity.Snapshot{}, fmt.Errorf("loading attributes of %s: %w", id, err)
	}
	var effects []effectRow
	if err := sf.conn.SelectContext(ctx, &effects,
		`SELECT * FROM effect_records WHERE entity_id = ? ORDER BY position`, id); err != nil {
		return entity.Snapshot{}, fmt.Errorf("loading effects of %s: %w", id, err)
	}
	return assemble(row, attrs, effects), nil
}

// List returns every stored snapshot ordered by ID.
func (sf *SaveFile) List(ctx context.Context) ([]entity.Snapshot, error) {
	var rows []snapshotRow
	if err := sf.conn.SelectContext(ctx, &rows, `SELECT * FROM snapshots ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var attrs []attributeRow
	if err := sf.conn.SelectContext(ctx, &attrs, `SELECT * FROM attributes ORDER BY entity_id, stat`); err != nil {
		return nil, fmt.Errorf("listing attributes: %w", err)
	}
	var effects []effectRow
	if err := sf.conn.SelectContext(ctx, &effects,
		`SELECT * FROM effect_records ORDER BY entity_id, position`); err != nil {
		return nil, fmt.Errorf("listing effects: %w", err)
	}

	attrsBy := make(map[string][]attributeRow)
	for _, a := range attrs {
		attrsBy[a.EntityID] = append(attrsBy[a.EntityID], a)
	}
	effectsBy := make(map[string][]effectRow)
	for _, e := range effects {
		effectsBy[e.EntityID] = append(effectsBy[e.EntityID], e)
	}

	snaps := make([]entity.Snapshot, 0, len(rows))
	for _, row := range rows {
		snaps = append(snaps, assemble(row, attrsBy[row.ID], effectsBy[row.ID]))
	}
	return snaps, nil
}

// Delete removes the snapshot for id and, by cascade, its attributes and effects.
func (sf *SaveFile) Delete(ctx context.Context, id string) error {
	if _, err := sf.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	return nil
}

func attributeRows(id string, snap vitals.AttributeSnapshot) []attributeRow {
	rows := make([]attributeRow, 0, len(snap.Permanent))
	seen := make(map[string]bool, len(snap.Permanent))
	for stat, v := range snap.Permanent {
		seen[stat] = true
		rows = append(rows, attributeRow{EntityID: id, Stat: stat, Permanent: v, Drain: snap.Drain[stat]})
	}
	for stat, d := range snap.Drain {
		if !seen[stat] {
			rows = append(rows, attributeRow{EntityID: id, Stat: stat, Drain: d})
		}
	}
	return rows
}

func assemble(row snapshotRow, attrs []attributeRow, effects []effectRow) entity.Snapshot {
	snap := entity.Snapshot{
		ID:        row.ID,
		Level:     row.Level,
		Submerged: row.Submerged,
		Vitals:    row.Snapshot,
		Attributes: vitals.AttributeSnapshot{
			Permanent: make(map[string]int, len(attrs)),
			Drain:     make(map[string]int),
		},
	}
	for _, a := range attrs {
		snap.Attributes.Permanent[a.Stat] = a.Permanent
		if a.Drain != 0 {
			snap.Attributes.Drain[a.Stat] = a.Drain
		}
	}
	for _, e := range effects {
		snap.Effects = append(snap.Effects, e.Record)
	}
	return snap
}
