package simulation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/simulation"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

const rosterYAML = `
entities:
  - id: guard
    level: 10
    max_health: 200
    stats:
      intelligence: 60
    effects: [buff, witbane]
  - id: diver
    submerged: true
`

func writeRoster(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRoster_PopulateSpawnsAndApplies(t *testing.T) {
	f := newFixture(t)
	roster, err := simulation.LoadRoster(writeRoster(t, rosterYAML))
	require.NoError(t, err)

	n, err := roster.Populate(f.world)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, f.world.Do("guard", func(e *entity.Entity) {
		assert.Equal(t, 10, e.Level)
		assert.Equal(t, 200, e.Pool().Current(vitals.Health))
		assert.Equal(t, 60, e.Pool().Current(vitals.Magicka))
		assert.Len(t, e.Effects().All(), 2)
	}))
	require.NoError(t, f.world.Do("diver", func(e *entity.Entity) {
		assert.True(t, e.Submerged)
		assert.Equal(t, 1, e.Level)
		assert.Equal(t, 55, e.Pool().EffectiveMax(vitals.Health))
	}))
	assert.Equal(t, 1, f.sink.count("disease_contracted"))
}

func TestRoster_PopulateSkipsExisting(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "guard")
	roster, err := simulation.LoadRoster(writeRoster(t, rosterYAML))
	require.NoError(t, err)

	n, err := roster.Populate(f.world)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, f.world.Do("guard", func(e *entity.Entity) {
		assert.Empty(t, e.Effects().All())
	}))
}

func TestRoster_Errors(t *testing.T) {
	_, err := simulation.LoadRoster(writeRoster(t, "entities:\n  - level: 3\n"))
	assert.ErrorContains(t, err, "has no id")

	_, err = simulation.LoadRoster(writeRoster(t, "entities:\n  - id: a\n    mana: 3\n"))
	assert.Error(t, err)

	f := newFixture(t)
	roster, err := simulation.LoadRoster(writeRoster(t, "entities:\n  - id: a\n    effects: [nope]\n"))
	require.NoError(t, err)
	_, err = roster.Populate(f.world)
	assert.ErrorContains(t, err, "applying nope")

	roster, err = simulation.LoadRoster(writeRoster(t, "entities:\n  - id: b\n    stats: {charm: 3}\n"))
	require.NoError(t, err)
	_, err = roster.Populate(f.world)
	assert.Error(t, err)
}
