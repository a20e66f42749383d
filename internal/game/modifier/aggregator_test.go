package modifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vitals/internal/game/modifier"
)

func TestAggregator_FlagsAccumulateUntilReset(t *testing.T) {
	a := modifier.New()
	a.SetFlag(modifier.WaterBreathing)
	a.SetFlag(modifier.Silenced)
	assert.True(t, a.Flag(modifier.WaterBreathing))
	assert.True(t, a.Flag(modifier.Silenced))
	assert.False(t, a.Flag(modifier.SlowFalling))

	a.Reset()
	assert.False(t, a.Flag(modifier.WaterBreathing))
	assert.False(t, a.Flag(modifier.Silenced))
}

func TestAggregator_ResistanceChanceIsAdditivePerElement(t *testing.T) {
	a := modifier.New()
	a.AddResistance(modifier.Fire, 20)
	a.AddResistance(modifier.Fire, 15)
	a.AddResistance(modifier.Frost, 5)

	resisted, chance := a.Resistance(modifier.Fire)
	assert.True(t, resisted)
	assert.Equal(t, 35, chance)

	resisted, chance = a.Resistance(modifier.Frost)
	assert.True(t, resisted)
	assert.Equal(t, 5, chance)

	resisted, chance = a.Resistance(modifier.Shock)
	assert.False(t, resisted)
	assert.Zero(t, chance)
}

func TestAggregator_UnknownElementIgnored(t *testing.T) {
	a := modifier.New()
	a.AddResistance(modifier.Element(99), 10)
	resisted, chance := a.Resistance(modifier.Element(99))
	assert.False(t, resisted)
	assert.Zero(t, chance)
}

func TestAggregator_WeightAllowanceMaxWins(t *testing.T) {
	a := modifier.New()
	a.RequestWeightAllowance(25)
	a.RequestWeightAllowance(50)
	a.RequestWeightAllowance(10)
	assert.Equal(t, 50, a.Value(modifier.WeightAllowance))
}

func TestAggregator_ArmorLowestNonZeroWins(t *testing.T) {
	a := modifier.New()
	a.RequestIncreasedArmor(-5)
	a.RequestIncreasedArmor(0)
	a.RequestIncreasedArmor(-10)
	a.RequestIncreasedArmor(-2)
	assert.Equal(t, -10, a.Value(modifier.IncreasedArmor))

	a.RequestDecreasedArmor(8)
	a.RequestDecreasedArmor(3)
	a.RequestDecreasedArmor(0)
	assert.Equal(t, 3, a.Value(modifier.DecreasedArmor))
}

func TestAggregator_HealthLimitLowestPositiveWins(t *testing.T) {
	a := modifier.New()
	a.LimitHealth(0)
	assert.Zero(t, a.Value(modifier.HealthLimit))
	a.LimitHealth(40)
	a.LimitHealth(25)
	a.LimitHealth(-3)
	a.LimitHealth(60)
	assert.Equal(t, 25, a.Value(modifier.HealthLimit))
}

func TestAggregator_AdditiveValues(t *testing.T) {
	a := modifier.New()
	a.Contribute(modifier.MagickaMax, 10)
	a.Contribute(modifier.MagickaMax, -3)
	a.Contribute(modifier.HitChance, 5)
	a.Contribute(modifier.HitChance, 5)
	assert.Equal(t, 7, a.Value(modifier.MagickaMax))
	assert.Equal(t, 10, a.Value(modifier.HitChance))
}

func TestAggregator_ParalysisLatchedUntilReset(t *testing.T) {
	a := modifier.New()
	a.Paralyze()
	assert.True(t, a.Paralyzed())
	a.Paralyze()
	assert.True(t, a.Paralyzed())
	a.Reset()
	assert.False(t, a.Paralyzed())
}

func TestAggregator_BeginFrameResetsOncePerFrame(t *testing.T) {
	a := modifier.New()
	require.True(t, a.BeginFrame(1))
	a.AddHitChance(5)

	assert.False(t, a.BeginFrame(1), "second begin in the same frame must not reset")
	assert.Equal(t, 5, a.Value(modifier.HitChance))

	assert.True(t, a.BeginFrame(2))
	assert.Zero(t, a.Value(modifier.HitChance))
	assert.Equal(t, uint64(2), a.Frame())
}

func TestAggregator_FirstBeginFrameZeroResets(t *testing.T) {
	a := modifier.New()
	a.SetFlag(modifier.Silenced)
	assert.True(t, a.BeginFrame(0))
	assert.False(t, a.Flag(modifier.Silenced))
}

func TestParseNames(t *testing.T) {
	f, err := modifier.ParseFlag("water_breathing")
	require.NoError(t, err)
	assert.Equal(t, modifier.WaterBreathing, f)
	assert.Equal(t, "water_breathing", f.String())

	e, err := modifier.ParseElement("disease_or_poison")
	require.NoError(t, err)
	assert.Equal(t, modifier.DiseaseOrPoison, e)

	v, err := modifier.ParseValue("weight_allowance")
	require.NoError(t, err)
	assert.Equal(t, modifier.WeightAllowance, v)

	_, err = modifier.ParseFlag("flying")
	assert.Error(t, err)
	_, err = modifier.ParseElement("acid")
	assert.Error(t, err)
	_, err = modifier.ParseValue("speed")
	assert.Error(t, err)
}

func TestPropertyResetRestoresNeutral(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := modifier.New()
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				a.SetFlag(modifier.Flag(1 << rapid.IntRange(0, 8).Draw(rt, "flag")))
			case 1:
				a.AddResistance(modifier.Element(rapid.IntRange(0, 4).Draw(rt, "el")), rapid.IntRange(0, 100).Draw(rt, "chance"))
			case 2:
				a.Contribute(modifier.Value(rapid.IntRange(0, 5).Draw(rt, "value")), rapid.IntRange(-50, 50).Draw(rt, "v"))
			case 3:
				a.Paralyze()
			case 4:
				a.AddHitChance(rapid.IntRange(-10, 10).Draw(rt, "hit"))
			}
		}
		a.Reset()
		for _, f := range []modifier.Flag{
			modifier.ImmuneToParalysis, modifier.ImmuneToDisease, modifier.Silenced,
			modifier.WaterWalking, modifier.WaterBreathing, modifier.EnhancedClimbing,
			modifier.EnhancedJumping, modifier.SlowFalling, modifier.SpellAbsorbing,
		} {
			assert.False(rt, a.Flag(f))
		}
		for e := modifier.Fire; e <= modifier.Magic; e++ {
			resisted, chance := a.Resistance(e)
			assert.False(rt, resisted)
			assert.Zero(rt, chance)
		}
		for v := modifier.MagickaMax; v <= modifier.HitChance; v++ {
			assert.Zero(rt, a.Value(v))
		}
		assert.False(rt, a.Paralyzed())
	})
}

func TestPropertyWeightAllowanceIsMaxOfRequests(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reqs := rapid.SliceOfN(rapid.IntRange(0, 200), 1, 20).Draw(rt, "reqs")
		a := modifier.New()
		want := 0
		for _, r := range reqs {
			a.RequestWeightAllowance(r)
			want = max(want, r)
		}
		assert.Equal(rt, want, a.Value(modifier.WeightAllowance))
	})
}
