package simulation

import (
	"bytes"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

// RosterEntry describes one entity to spawn into a fresh world.
type RosterEntry struct {
	ID        string         `yaml:"id"`
	Level     int            `yaml:"level"`
	Submerged bool           `yaml:"submerged"`
	BaseStat  int            `yaml:"base_stat"`
	Stats     map[string]int `yaml:"stats"`
	MaxHealth int            `yaml:"max_health"`
	// MaxMagicka defaults to intelligence.
	MaxMagicka int `yaml:"max_magicka"`
	// Effects are kind IDs applied, uncast, after spawning.
	Effects []string `yaml:"effects"`
}

// Roster seeds entities that are not already present.
type Roster struct {
	Entities []RosterEntry `yaml:"entities"`
}

// LoadRoster reads a roster YAML file.
//
// Postcondition: returns an error on unknown fields or a missing id.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("reading roster %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var r Roster
	if err := dec.Decode(&r); err != nil {
		return Roster{}, fmt.Errorf("parsing roster %q: %w", path, err)
	}
	for i, e := range r.Entities {
		if e.ID == "" {
			return Roster{}, fmt.Errorf("roster %q: entry %d has no id", path, i)
		}
	}
	return r, nil
}

// Populate spawns every roster entry whose ID is not already in w, fills its
// pool and applies its starting effects.
//
// Postcondition: returns the number spawned; the first failure aborts.
func (r Roster) Populate(w *World) (int, error) {
	spawned := 0
	for _, re := range r.Entities {
		if _, ok := w.dir.Get(re.ID); ok {
			continue
		}
		base := re.BaseStat
		if base <= 0 {
			base = 50
		}
		attrs := vitals.NewAttributes(base)
		for name, v := range re.Stats {
			s, err := vitals.ParseStat(name)
			if err != nil {
				return spawned, fmt.Errorf("roster entity %s: %w", re.ID, err)
			}
			attrs.SetPermanent(s, v)
		}
		level := max(re.Level, 1)
		e := w.runner.NewEntity(re.ID, level, attrs)
		e.Submerged = re.Submerged
		maxHealth, maxMagicka := re.MaxHealth, re.MaxMagicka
		if maxHealth <= 0 {
			end := attrs.Live(vitals.Endurance)
			maxHealth = end + level*end/10
		}
		if maxMagicka <= 0 {
			maxMagicka = attrs.Live(vitals.Intelligence)
		}
		pool := e.Pool()
		pool.SetRawMaxHealth(maxHealth)
		pool.SetRawMaxMagicka(maxMagicka)
		pool.Fill()
		if err := w.Spawn(e); err != nil {
			return spawned, fmt.Errorf("spawning %s: %w", re.ID, err)
		}
		spawned++

		for _, kindID := range re.Effects {
			_, res, err := w.Apply(re.ID, kindID, "")
			if err != nil {
				return spawned, fmt.Errorf("roster entity %s: applying %s: %w", re.ID, kindID, err)
			}
			w.logger.Debug("roster effect applied",
				zap.String("entity", re.ID), zap.String("kind", kindID), zap.Stringer("result", res))
		}
	}
	return spawned, nil
}
