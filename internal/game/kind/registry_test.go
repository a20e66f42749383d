package kind_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/kind"
)

func newRegistry(t *testing.T) *kind.Registry {
	t.Helper()
	return kind.NewRegistry(zap.NewNop())
}

func mustParse(t *testing.T, src string) *kind.Definition {
	t.Helper()
	def, err := kind.ParseDefinition([]byte(src))
	require.NoError(t, err)
	return def
}

const poisonYAML = `
id: poison
name: Poison
behavior: damage
element: disease_or_poison
rounds: 5
resource: health
magnitude: {min: 2, max: 2}
`

const witbaneYAML = `
id: witbane
name: Witbane
behavior: disease
contracted_text: You feel feverish.
progression:
  tick_delay: 10
  cycles: 20
  phases:
    - from: 3
      deltas:
        - {stat: endurance, min: -5, max: -5}
    - from: 5
      to: 16
      deltas:
        - {resource: health, min: -1, max: -1}
`

func TestNewRegistry_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { kind.NewRegistry(nil) })
}

func TestParseDefinition_RejectsUnknownFields(t *testing.T) {
	_, err := kind.ParseDefinition([]byte("id: x\nbehavior: damage\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestRegister_TimedDamage(t *testing.T) {
	r := newRegistry(t)
	k, err := r.Register(mustParse(t, poisonYAML))
	require.NoError(t, err)

	assert.Equal(t, "poison", k.ID())
	assert.Equal(t, effect.Timed, k.Mode)
	assert.True(t, k.Elemental)
	assert.NotNil(t, k.OnTick)
	assert.Nil(t, k.Schedule)

	got, ok := r.Get("poison")
	require.True(t, ok)
	assert.Same(t, k, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_DiseaseBuildsSchedule(t *testing.T) {
	r := newRegistry(t)
	k, err := r.Register(mustParse(t, witbaneYAML))
	require.NoError(t, err)

	assert.Equal(t, effect.Progression, k.Mode)
	assert.True(t, k.Disease)
	require.NotNil(t, k.Schedule)
	assert.Equal(t, 10, k.Schedule.TickDelay)
	assert.Equal(t, 20, k.Schedule.Cycles)
	require.Len(t, k.Schedule.Phases, 2)
	assert.Equal(t, 3, k.Schedule.Phases[0].To, "omitted to covers a single cycle")
	assert.Equal(t, 16, k.Schedule.Phases[1].To)
}

func TestRegister_DiseaseIsIndependentByDefault(t *testing.T) {
	r := newRegistry(t)
	k, err := r.Register(mustParse(t, witbaneYAML))
	require.NoError(t, err)

	a, b := k.NewInstance(""), k.NewInstance("")
	assert.False(t, k.IsLikeKind(a, b))
}

func TestRegister_GapsAreWarnings(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := kind.NewRegistry(zap.New(core))

	_, err := r.Register(mustParse(t, witbaneYAML))
	require.NoError(t, err)

	entries := logs.FilterMessage("progression schedule has uncovered cycles").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 4, entries[0].ContextMap()["from"])
	assert.EqualValues(t, 4, entries[0].ContextMap()["to"])
}

func TestRegister_Duplicate(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Register(mustParse(t, poisonYAML))
	require.NoError(t, err)
	_, err = r.Register(mustParse(t, poisonYAML))
	assert.ErrorIs(t, err, kind.ErrInvalidDefinition)
}

func TestRegister_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown behavior", "id: a\nbehavior: explode\n", "unknown behavior"},
		{"missing id", "behavior: damage\nrounds: 1\nresource: health\n", "id must not be empty"},
		{"timed without rounds", "id: a\nbehavior: damage\nresource: health\n", "rounds >= 1"},
		{"bad resource", "id: a\nbehavior: damage\nrounds: 1\nresource: mana\n", "mana"},
		{"mode not allowed", "id: a\nbehavior: damage\nmode: constant\nresource: health\n", "does not support mode"},
		{"bad chance", "id: a\nbehavior: damage\nrounds: 1\nresource: health\nchance: 101\n", "chance must be 0-100"},
		{"reversed magnitude", "id: a\nbehavior: damage\nrounds: 1\nresource: health\nmagnitude: {min: 5, max: 1}\n", "magnitude min"},
		{"bad stacking", "id: a\nbehavior: damage\nrounds: 1\nresource: health\nstacking: pile\n", "stacking"},
		{"grant without flags", "id: a\nbehavior: grant\nrounds: 1\n", "flags"},
		{"grant bad flag", "id: a\nbehavior: grant\nrounds: 1\nflags: [flying]\n", "flying"},
		{"fortify without value", "id: a\nbehavior: fortify\nmode: constant\n", "value is required"},
		{"scripted without hooks", "id: a\nbehavior: scripted\nrounds: 1\n", "lua_on_start"},
		{"disease without progression", "id: a\nbehavior: disease\n", "progression block"},
		{"progression on timed", "id: a\nbehavior: damage\nrounds: 1\nresource: health\nprogression: {cycles: 1}\n", "only valid for progression"},
		{"negative tick delay", "id: a\nbehavior: disease\nprogression: {tick_delay: -1, cycles: 1}\n", "tick_delay"},
		{"zero cycles", "id: a\nbehavior: disease\nprogression: {cycles: 0}\n", "cycles must be -1 or positive"},
		{"overlapping phases", `
id: a
behavior: disease
progression:
  cycles: 10
  phases:
    - {from: 1, to: 5, deltas: [{resource: health, min: -1, max: -1}]}
    - {from: 5, to: 8, deltas: [{resource: health, min: -1, max: -1}]}
`, "overlap"},
		{"delta with both targets", `
id: a
behavior: disease
progression:
  cycles: 10
  phases:
    - {from: 1, deltas: [{resource: health, stat: luck, min: -1, max: -1}]}
`, "not both"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistry(t)
			_, err := r.Register(mustParse(t, tc.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, kind.ErrInvalidDefinition))
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestRegister_ReportsEveryViolation(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Register(mustParse(t, "id: a\nbehavior: damage\nchance: 200\nmagnitude: {min: 3, max: 1}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chance")
	assert.Contains(t, err.Error(), "magnitude")
	assert.Contains(t, err.Error(), "rounds")
}

func TestLookup_Unknown(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Lookup("nope")
	assert.ErrorIs(t, err, kind.ErrUnknownKind)
}

func TestLikeGroup_MergesAcrossKinds(t *testing.T) {
	r := newRegistry(t)
	long, err := r.Register(mustParse(t, "id: free_action\nbehavior: grant\nrounds: 20\nflags: [immune_to_paralysis]\nlike_group: free_action\n"))
	require.NoError(t, err)
	short, err := r.Register(mustParse(t, "id: free_action_minor\nbehavior: grant\nrounds: 5\nflags: [immune_to_paralysis]\nlike_group: free_action\n"))
	require.NoError(t, err)

	set := effect.NewSet()
	set.Attach(long.NewInstance(""), long)
	gov, merged := set.Attach(short.NewInstance(""), short)

	assert.True(t, merged)
	assert.Equal(t, "free_action", gov.Kind)
	assert.Equal(t, 25, gov.RoundsRemaining)
	assert.Equal(t, 1, set.Len())
}

func TestLikeGroup_IgnoresConstantInstances(t *testing.T) {
	r := newRegistry(t)
	spell, err := r.Register(mustParse(t, "id: free_action\nbehavior: grant\nrounds: 20\nflags: [immune_to_paralysis]\nlike_group: free_action\n"))
	require.NoError(t, err)
	ring, err := r.Register(mustParse(t, "id: ring_of_free_action\nbehavior: grant\nmode: constant\nflags: [immune_to_paralysis]\nlike_group: free_action\n"))
	require.NoError(t, err)

	assert.False(t, ring.IsLikeKind(ring.NewInstance(""), spell.NewInstance("")))
	assert.False(t, spell.IsLikeKind(spell.NewInstance(""), ring.NewInstance("")))
	assert.True(t, ring.IsLikeKind(ring.NewInstance(""), ring.NewInstance("")))

	set := effect.NewSet()
	set.Attach(spell.NewInstance(""), spell)
	_, merged := set.Attach(ring.NewInstance(""), ring)
	assert.False(t, merged)
	assert.Equal(t, 2, set.Len())
}

func TestDrug_MergeAddsCycles(t *testing.T) {
	r := newRegistry(t)
	k, err := r.Register(mustParse(t, `
id: skooma
behavior: drug
progression:
  tick_delay: 2
  cycles: 4
  phases:
    - {from: 1, to: -1, deltas: [{resource: fatigue, min: 10, max: 10}]}
`))
	require.NoError(t, err)

	set := effect.NewSet()
	first, _ := set.Attach(k.NewInstance(""), k)
	_, merged := set.Attach(k.NewInstance(""), k)

	assert.True(t, merged)
	assert.Equal(t, 8, first.Progress.CyclesRemaining)
	assert.Equal(t, 1, set.Len())
}

func TestNewInstance_CopiesDefinition(t *testing.T) {
	r := newRegistry(t)
	k, err := r.Register(mustParse(t, "id: a\nbehavior: damage\nrounds: 7\nresource: fatigue\nchance: 40\nmagnitude: {min: 1, max: 9}\n"))
	require.NoError(t, err)

	inst := k.NewInstance("caster")
	assert.Equal(t, "a", inst.Kind)
	assert.Equal(t, "caster", inst.CasterID)
	assert.Equal(t, 7, inst.RoundsRemaining)
	assert.Equal(t, 1, inst.MagnitudeMin)
	assert.Equal(t, 9, inst.MagnitudeMax)
	assert.Equal(t, 40, inst.Chance)
	assert.Equal(t, effect.StageStarting, inst.Stage())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poison.yaml"), []byte(poisonYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "witbane.yaml"), []byte(witbaneYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	r := newRegistry(t)
	n, err := r.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "poison", all[0].ID())
	assert.Equal(t, "witbane", all[1].ID())
}

func TestLoadDirectory_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: a\nbehavior: nope\n"), 0644))

	_, err := newRegistry(t).LoadDirectory(dir)
	assert.ErrorIs(t, err, kind.ErrInvalidDefinition)
}

func TestLoadDirectory_Missing(t *testing.T) {
	_, err := newRegistry(t).LoadDirectory("/nonexistent/effects")
	assert.Error(t, err)
}

func TestPropertyMergeStackingSumsRounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := kind.NewRegistry(zap.NewNop())
		k, err := r.Register(&kind.Definition{
			ID: "buff", Behavior: "fortify", Value: "hit_chance", Rounds: 20,
			Magnitude: kind.Range{Min: 1, Max: 1},
		})
		if err != nil {
			t.Fatal(err)
		}
		n := rapid.IntRange(1, 20).Draw(t, "casts")
		set := effect.NewSet()
		for i := 0; i < n; i++ {
			set.Attach(k.NewInstance(""), k)
		}
		if set.Len() != 1 {
			t.Fatalf("expected one incumbent, got %d", set.Len())
		}
		if got := set.All()[0].RoundsRemaining; got != 20*n {
			t.Fatalf("rounds = %d, want %d", got, 20*n)
		}
	})
}
