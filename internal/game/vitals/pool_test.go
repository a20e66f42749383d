package vitals_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/notify"
	"github.com/cory-johannsen/vitals/internal/notify/mocks"
)

// recordingSink collects every event it receives.
type recordingSink struct{ events []notify.Event }

func (r *recordingSink) Notify(ev notify.Event) { r.events = append(r.events, ev) }

func (r *recordingSink) count(t notify.Type) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func newPool(t testing.TB, sink notify.Sink) (*vitals.Pool, *vitals.Attributes) {
	t.Helper()
	attrs := vitals.NewAttributes(40)
	p := vitals.NewPool("hero", attrs, sink)
	p.SetRawMaxHealth(50)
	p.SetRawMaxMagicka(30)
	p.Fill()
	return p, attrs
}

func TestPool_FillSetsEveryResourceToMax(t *testing.T) {
	p, _ := newPool(t, nil)
	assert.Equal(t, 50, p.Current(vitals.Health))
	assert.Equal(t, 30, p.Current(vitals.Magicka))
	assert.Equal(t, 5120, p.Current(vitals.Fatigue))
	assert.Equal(t, 20, p.Current(vitals.Breath))
}

func TestPool_FatigueMaxDerivedFromStrengthAndEndurance(t *testing.T) {
	p, _ := newPool(t, nil)
	assert.Equal(t, 80*64, p.EffectiveMax(vitals.Fatigue))
	p.Increase(vitals.Fatigue, 10000)
	assert.Equal(t, 5120, p.Current(vitals.Fatigue))
}

func TestPool_BreathMaxIsHalfEndurance(t *testing.T) {
	p, attrs := newPool(t, nil)
	attrs.SetPermanent(vitals.Endurance, 31)
	assert.Equal(t, 15, p.EffectiveMax(vitals.Breath))
}

func TestPool_DecreaseBelowZero_DeathFiresOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Notify(gomock.Any()).Times(1).Do(func(ev notify.Event) {
		assert.Equal(t, notify.TypeDeath, ev.Type)
		assert.Equal(t, "hero", ev.EntityID)
	})

	p, _ := newPool(t, sink)
	p.Decrease(vitals.Health, 70)
	assert.Equal(t, 0, p.Current(vitals.Health))
	assert.True(t, p.Dead())

	p.Decrease(vitals.Health, 5)
	p.Set(vitals.Health, 0)
}

func TestPool_DeathRaisedAgainAfterRevival(t *testing.T) {
	sink := &recordingSink{}
	p, _ := newPool(t, sink)
	p.Set(vitals.Health, 0)
	p.Set(vitals.Health, 10)
	p.Set(vitals.Health, -3)
	assert.Equal(t, 2, sink.count(notify.TypeDeath))
}

func TestPool_QuiescedSuppressesNotifications(t *testing.T) {
	sink := &recordingSink{}
	p, _ := newPool(t, sink)
	p.Quiesce(true)
	p.Set(vitals.Health, 0)
	p.Set(vitals.Magicka, 0)
	p.Quiesce(false)
	assert.Empty(t, sink.events)
	assert.False(t, p.Quiesced())
}

func TestPool_ExhaustedOnlyWhileAlive(t *testing.T) {
	sink := &recordingSink{}
	p, _ := newPool(t, sink)
	p.Set(vitals.Fatigue, 0)
	assert.Equal(t, 1, sink.count(notify.TypeExhausted))

	p.Fill()
	p.Set(vitals.Health, 0)
	p.Set(vitals.Fatigue, 0)
	assert.Equal(t, 1, sink.count(notify.TypeExhausted), "no exhaustion for the dead")
}

func TestPool_MagickaDepleted(t *testing.T) {
	sink := &recordingSink{}
	p, _ := newPool(t, sink)
	p.Decrease(vitals.Magicka, 30)
	p.Decrease(vitals.Magicka, 1)
	assert.Equal(t, 1, sink.count(notify.TypeMagickaDepleted))
}

func TestPool_HealthLimiterClampsImmediately(t *testing.T) {
	p, _ := newPool(t, nil)
	p.SetHealthLimiter(20)
	assert.Equal(t, 20, p.Current(vitals.Health))
	assert.Equal(t, 20, p.EffectiveMax(vitals.Health))

	p.SetHealthLimiter(0)
	assert.Equal(t, 50, p.EffectiveMax(vitals.Health))
	assert.Equal(t, 20, p.Current(vitals.Health), "raising the limiter does not heal")
}

func TestPool_HealthLimiterAboveRawUsesRaw(t *testing.T) {
	p, _ := newPool(t, nil)
	p.SetHealthLimiter(500)
	assert.Equal(t, 50, p.EffectiveMax(vitals.Health))
}

func TestPool_MagickaModifierNeverNegativeMax(t *testing.T) {
	p, _ := newPool(t, nil)
	p.SetMagickaModifier(-100)
	assert.Equal(t, 0, p.EffectiveMax(vitals.Magicka))
	assert.Equal(t, 0, p.Current(vitals.Magicka))

	p.SetMagickaModifier(10)
	assert.Equal(t, 40, p.EffectiveMax(vitals.Magicka))
}

func TestPool_RestoreBypassesClampUntilReconcile(t *testing.T) {
	sink := &recordingSink{}
	p, _ := newPool(t, sink)
	p.Restore(vitals.Health, 80)
	assert.Equal(t, 80, p.Current(vitals.Health), "restore keeps out-of-range value")

	p.Increase(vitals.Health, 0)
	assert.Equal(t, 50, p.Current(vitals.Health), "next clamped write self-corrects")
	assert.Empty(t, sink.events)
}

func TestPool_ApplyModifiersReconciles(t *testing.T) {
	p, _ := newPool(t, nil)
	agg := modifier.New()
	agg.LimitHealth(10)
	agg.AddMagickaMax(5)
	p.ApplyModifiers(agg)

	assert.Equal(t, 10, p.Current(vitals.Health))
	assert.Equal(t, 10, p.HealthLimiter())
	assert.Equal(t, 35, p.EffectiveMax(vitals.Magicka))

	agg.Reset()
	p.ApplyModifiers(agg)
	assert.Equal(t, 0, p.HealthLimiter())
	assert.Equal(t, 50, p.EffectiveMax(vitals.Health))
}

func TestPool_ApplyModifiersReconcilesDrainedFatigue(t *testing.T) {
	p, attrs := newPool(t, nil)
	attrs.Drain(vitals.Endurance, 20)
	p.ApplyModifiers(modifier.New())
	assert.Equal(t, (40+20)*64, p.Current(vitals.Fatigue))
	assert.Equal(t, 10, p.Current(vitals.Breath))
}

func TestPool_SnapshotRoundTrip(t *testing.T) {
	p, attrs := newPool(t, nil)
	p.Decrease(vitals.Health, 7)
	p.SetHealthLimiter(45)
	snap := p.Snapshot()

	q := vitals.NewPool("hero", attrs, nil)
	q.RestoreSnapshot(snap)
	assert.Equal(t, snap, q.Snapshot())
	assert.Equal(t, 43, q.Current(vitals.Health))
}

func TestPool_NewPoolPanicsWithoutStats(t *testing.T) {
	assert.Panics(t, func() { vitals.NewPool("x", nil, nil) })
}

func TestPool_ExtremeAmountsSaturate(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(p *vitals.Pool)
		health int
		deaths int
	}{
		{"increase max int", func(p *vitals.Pool) { p.Increase(vitals.Health, math.MaxInt) }, 50, 0},
		{"decrease min int heals", func(p *vitals.Pool) { p.Decrease(vitals.Health, math.MinInt) }, 50, 0},
		{"increase min int kills", func(p *vitals.Pool) { p.Increase(vitals.Health, math.MinInt) }, 0, 1},
		{"decrease max int kills", func(p *vitals.Pool) { p.Decrease(vitals.Health, math.MaxInt) }, 0, 1},
		{"negative increase drains", func(p *vitals.Pool) { p.Increase(vitals.Health, -20) }, 30, 0},
		{"negative decrease heals", func(p *vitals.Pool) {
			p.Decrease(vitals.Health, 30)
			p.Decrease(vitals.Health, -10)
		}, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			p, _ := newPool(t, sink)
			tt.apply(p)
			assert.Equal(t, tt.health, p.Current(vitals.Health))
			assert.Equal(t, tt.deaths, sink.count(notify.TypeDeath))
		})
	}
}

func TestPropertyExtremeAmountsStayWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sink := &recordingSink{}
		p, _ := newPool(t, sink)
		r := vitals.Resources[rapid.IntRange(0, 3).Draw(rt, "resource")]
		amount := rapid.Int().Draw(rt, "amount")
		heals := amount >= 0
		if rapid.Bool().Draw(rt, "increase") {
			p.Increase(r, amount)
		} else {
			p.Decrease(r, amount)
			heals = amount <= 0
		}
		cur := p.Current(r)
		if cur < 0 || cur > p.EffectiveMax(r) {
			rt.Fatalf("%s out of bounds: %d not in [0,%d]", r, cur, p.EffectiveMax(r))
		}
		if heals {
			assert.Zero(rt, sink.count(notify.TypeDeath))
		}
	})
}

func TestPropertyPoolStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attrs := vitals.NewAttributes(rapid.IntRange(1, 100).Draw(rt, "base"))
		p := vitals.NewPool("prop", attrs, nil)
		p.SetRawMaxHealth(rapid.IntRange(1, 500).Draw(rt, "maxHealth"))
		p.SetRawMaxMagicka(rapid.IntRange(0, 500).Draw(rt, "maxMagicka"))
		p.Fill()

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			r := vitals.Resources[rapid.IntRange(0, 3).Draw(rt, "resource")]
			amount := rapid.IntRange(-10000, 10000).Draw(rt, "amount")
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				p.Increase(r, amount)
			case 1:
				p.Decrease(r, amount)
			case 2:
				p.Set(r, amount)
			case 3:
				p.SetHealthLimiter(rapid.IntRange(-5, 600).Draw(rt, "limiter"))
			case 4:
				p.SetMagickaModifier(rapid.IntRange(-600, 600).Draw(rt, "magickaMod"))
			}
			for _, res := range vitals.Resources {
				cur := p.Current(res)
				if cur < 0 || cur > p.EffectiveMax(res) {
					rt.Fatalf("%s out of bounds: %d not in [0,%d]", res, cur, p.EffectiveMax(res))
				}
			}
		}
	})
}

func TestPropertyRestoreSelfCorrectsOnNextWrite(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p, _ := newPool(t, nil)
		r := vitals.Resources[rapid.IntRange(0, 3).Draw(rt, "resource")]
		p.Restore(r, rapid.IntRange(-1000, 100000).Draw(rt, "restored"))
		p.Increase(r, rapid.IntRange(-5, 5).Draw(rt, "delta"))
		cur := p.Current(r)
		assert.GreaterOrEqual(rt, cur, 0)
		assert.LessOrEqual(rt, cur, p.EffectiveMax(r))
	})
}

func TestPropertyLoweringLimiterClampsHealth(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p, _ := newPool(t, nil)
		limit := rapid.IntRange(1, 50).Draw(rt, "limit")
		p.SetHealthLimiter(limit)
		require.Equal(rt, limit, p.Current(vitals.Health))
	})
}

func TestPropertyDeathNotifiedAtMostOncePerCrossing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sink := &recordingSink{}
		p, _ := newPool(t, sink)
		crossings := 0
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			prev := p.Current(vitals.Health)
			p.Set(vitals.Health, rapid.IntRange(-20, 60).Draw(rt, "v"))
			if prev > 0 && p.Current(vitals.Health) == 0 {
				crossings++
			}
		}
		assert.Equal(rt, crossings, sink.count(notify.TypeDeath))
	})
}
