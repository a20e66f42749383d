package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/storage"
)

const effectColumns = `id, kind, caster_id, mode, rounds_remaining, magnitude_min, magnitude_max,
	magnitude, chance, phase_counter, cycles_elapsed, cycles_remaining, incubation_over, resolved`

// SnapshotRepository persists entity snapshots in entity_snapshots and their
// effect instances in effect_records.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the stored snapshot for snap.ID, effects included, in one transaction.
//
// Precondition: snap.ID must be non-empty.
func (r *SnapshotRepository) Save(ctx context.Context, snap entity.Snapshot) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		v := snap.Vitals
		_, err := tx.Exec(ctx, `
			INSERT INTO entity_snapshots
				(id, level, submerged, raw_max_health, health_limiter, health,
				 raw_max_magicka, magicka_modifier, magicka, fatigue, breath, attributes, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
			ON CONFLICT (id) DO UPDATE SET
				level = EXCLUDED.level,
				submerged = EXCLUDED.submerged,
				raw_max_health = EXCLUDED.raw_max_health,
				health_limiter = EXCLUDED.health_limiter,
				health = EXCLUDED.health,
				raw_max_magicka = EXCLUDED.raw_max_magicka,
				magicka_modifier = EXCLUDED.magicka_modifier,
				magicka = EXCLUDED.magicka,
				fatigue = EXCLUDED.fatigue,
				breath = EXCLUDED.breath,
				attributes = EXCLUDED.attributes,
				updated_at = NOW()`,
			snap.ID, snap.Level, snap.Submerged,
			v.RawMaxHealth, v.HealthLimiter, v.Health,
			v.RawMaxMagicka, v.MagickaModifier, v.Magicka, v.Fatigue, v.Breath,
			snap.Attributes,
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot %s: %w", snap.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM effect_records WHERE entity_id = $1`, snap.ID); err != nil {
			return fmt.Errorf("clearing effects of %s: %w", snap.ID, err)
		}
		if len(snap.Effects) == 0 {
			return nil
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"effect_records"},
			[]string{
				"entity_id", "position", "id", "kind", "caster_id", "mode", "rounds_remaining",
				"magnitude_min", "magnitude_max", "magnitude", "chance", "phase_counter",
				"cycles_elapsed", "cycles_remaining", "incubation_over", "resolved",
			},
			pgx.CopyFromSlice(len(snap.Effects), func(i int) ([]any, error) {
				rec := snap.Effects[i]
				return []any{
					snap.ID, i, rec.ID, rec.Kind, rec.CasterID, rec.Mode, rec.RoundsRemaining,
					rec.MagnitudeMin, rec.MagnitudeMax, rec.Magnitude, rec.Chance, rec.PhaseCounter,
					rec.CyclesElapsed, rec.CyclesRemaining, rec.IncubationOver, rec.Resolved,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying effects of %s: %w", snap.ID, err)
		}
		return nil
	})
}

// Load returns the snapshot for id.
//
// Postcondition: Returns an error wrapping storage.ErrSnapshotNotFound if id is absent.
func (r *SnapshotRepository) Load(ctx context.Context, id string) (entity.Snapshot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, level, submerged, raw_max_health, health_limiter, health,
		       raw_max_magicka, magicka_modifier, magicka, fatigue, breath, attributes
		FROM entity_snapshots WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Snapshot{}, fmt.Errorf("%w: %q", storage.ErrSnapshotNotFound, id)
		}
		return entity.Snapshot{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+effectColumns+`
		FROM effect_records WHERE entity_id = $1 ORDER BY position`, id)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("loading effects of %s: %w", id, err)
	}
	snap.Effects, err = pgx.CollectRows(rows, pgx.RowToStructByName[effect.Record])
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("scanning effects of %s: %w", id, err)
	}
	return snap, nil
}

// List returns every stored snapshot ordered by ID.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *SnapshotRepository) List(ctx context.Context) ([]entity.Snapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, level, submerged, raw_max_health, health_limiter, health,
		       raw_max_magicka, magicka_modifier, magicka, fatigue, breath, attributes
		FROM entity_snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Snapshot, error) {
		return scanSnapshot(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning snapshots: %w", err)
	}

	index := make(map[string]int, len(snaps))
	for i, s := range snaps {
		index[s.ID] = i
	}

	erows, err := r.db.Query(ctx, `SELECT entity_id, `+effectColumns+`
		FROM effect_records ORDER BY entity_id, position`)
	if err != nil {
		return nil, fmt.Errorf("listing effects: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var owner string
		var rec effect.Record
		if err := erows.Scan(&owner,
			&rec.ID, &rec.Kind, &rec.CasterID, &rec.Mode, &rec.RoundsRemaining,
			&rec.MagnitudeMin, &rec.MagnitudeMax, &rec.Magnitude, &rec.Chance,
			&rec.PhaseCounter, &rec.CyclesElapsed, &rec.CyclesRemaining,
			&rec.IncubationOver, &rec.Resolved,
		); err != nil {
			return nil, fmt.Errorf("scanning effect: %w", err)
		}
		if i, ok := index[owner]; ok {
			snaps[i].Effects = append(snaps[i].Effects, rec)
		}
	}
	if err := erows.Err(); err != nil {
		return nil, fmt.Errorf("iterating effects: %w", err)
	}
	return snaps, nil
}

// Delete removes the snapshot for id and, by cascade, its effects.
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM entity_snapshots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (entity.Snapshot, error) {
	var snap entity.Snapshot
	var v vitals.Snapshot
	err := row.Scan(
		&snap.ID, &snap.Level, &snap.Submerged,
		&v.RawMaxHealth, &v.HealthLimiter, &v.Health,
		&v.RawMaxMagicka, &v.MagickaModifier, &v.Magicka, &v.Fatigue, &v.Breath,
		&snap.Attributes,
	)
	snap.Vitals = v
	return snap, err
}
