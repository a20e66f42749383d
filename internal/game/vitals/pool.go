package vitals

import (
	"math"

	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/notify"
)

// StatProvider exposes live attribute values.
type StatProvider interface {
	Live(s Stat) int
}

// Pool owns one entity's vital resources.
//
// Invariant: outside restore writes, 0 <= Current(r) <= EffectiveMax(r) for every r.
//
// It is not safe for concurrent use; the owning entity serialises access.
type Pool struct {
	id    string
	stats StatProvider
	sink  notify.Sink

	rawMaxHealth  int
	healthLimiter int
	health        int

	rawMaxMagicka   int
	magickaModifier int
	magicka         int

	fatigue int
	breath  int

	quiesced bool
}

// NewPool creates an empty pool for entity id. A nil sink drops notifications.
//
// Precondition: stats must be non-nil.
func NewPool(id string, stats StatProvider, sink notify.Sink) *Pool {
	if stats == nil {
		panic("vitals: NewPool requires a non-nil StatProvider")
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Pool{id: id, stats: stats, sink: sink}
}

// ID returns the owning entity's identifier.
func (p *Pool) ID() string {
	return p.id
}

// SetRawMaxHealth sets the unmodified health maximum and clamps current health.
func (p *Pool) SetRawMaxHealth(v int) {
	p.rawMaxHealth = max(0, v)
	p.clamp(Health)
}

// RawMaxHealth returns the unmodified health maximum.
func (p *Pool) RawMaxHealth() int { return p.rawMaxHealth }

// SetRawMaxMagicka sets the unmodified magicka maximum and clamps current magicka.
func (p *Pool) SetRawMaxMagicka(v int) {
	p.rawMaxMagicka = max(0, v)
	p.clamp(Magicka)
}

// RawMaxMagicka returns the unmodified magicka maximum.
func (p *Pool) RawMaxMagicka() int { return p.rawMaxMagicka }

// SetHealthLimiter sets the health limiter (0 = unset). Current health above
// the new effective maximum is reduced immediately.
func (p *Pool) SetHealthLimiter(v int) {
	p.healthLimiter = v
	p.clamp(Health)
}

// HealthLimiter returns the current health limiter.
func (p *Pool) HealthLimiter() int { return p.healthLimiter }

// SetMagickaModifier sets the signed magicka maximum modifier and clamps current magicka.
func (p *Pool) SetMagickaModifier(v int) {
	p.magickaModifier = v
	p.clamp(Magicka)
}

// MagickaModifier returns the current magicka maximum modifier.
func (p *Pool) MagickaModifier() int { return p.magickaModifier }

// EffectiveMax returns the current maximum of r.
//
// Postcondition: result >= 0.
func (p *Pool) EffectiveMax(r Resource) int {
	switch r {
	case Health:
		if p.healthLimiter < 1 {
			return p.rawMaxHealth
		}
		return max(1, min(p.healthLimiter, p.rawMaxHealth))
	case Magicka:
		return max(0, p.rawMaxMagicka+p.magickaModifier)
	case Fatigue:
		return (p.stats.Live(Strength) + p.stats.Live(Endurance)) * 64
	case Breath:
		return p.stats.Live(Endurance) / 2
	}
	return 0
}

// Current returns the current value of r.
func (p *Pool) Current(r Resource) int {
	switch r {
	case Health:
		return p.health
	case Fatigue:
		return p.fatigue
	case Magicka:
		return p.magicka
	case Breath:
		return p.breath
	}
	return 0
}

// Increase adds amount to r, clamped. A negative amount decreases r.
func (p *Pool) Increase(r Resource, amount int) {
	if amount < 0 {
		p.Decrease(r, saturatingNeg(amount))
		return
	}
	cur := p.Current(r)
	if amount >= p.EffectiveMax(r)-cur {
		p.Set(r, p.EffectiveMax(r))
		return
	}
	p.Set(r, cur+amount)
}

// Decrease subtracts amount from r, clamped. A negative amount increases r.
func (p *Pool) Decrease(r Resource, amount int) {
	if amount < 0 {
		p.Increase(r, saturatingNeg(amount))
		return
	}
	cur := p.Current(r)
	if amount >= cur {
		p.Set(r, 0)
		return
	}
	p.Set(r, cur-amount)
}

// saturatingNeg returns -n for n < 0, with math.MinInt mapped to math.MaxInt.
func saturatingNeg(n int) int {
	if n == math.MinInt {
		return math.MaxInt
	}
	return -n
}

// Set writes v to r clamped to [0, EffectiveMax(r)]. Crossing from above zero
// to zero raises the matching notification unless the pool is quiesced.
//
// Postcondition: 0 <= Current(r) <= EffectiveMax(r).
func (p *Pool) Set(r Resource, v int) {
	p.write(r, max(0, min(v, p.EffectiveMax(r))))
}

// Restore writes v to r without clamping or notifications. It is used only
// when loading saved values; the next clamped write or frame reconciles it.
func (p *Pool) Restore(r Resource, v int) {
	switch r {
	case Health:
		p.health = v
	case Fatigue:
		p.fatigue = v
	case Magicka:
		p.magicka = v
	case Breath:
		p.breath = v
	}
}

// Fill sets every resource to its effective maximum.
func (p *Pool) Fill() {
	for _, r := range Resources {
		p.Set(r, p.EffectiveMax(r))
	}
}

// Quiesce suppresses (true) or re-enables (false) threshold notifications.
func (p *Pool) Quiesce(on bool) {
	p.quiesced = on
}

// Quiesced reports whether notifications are suppressed.
func (p *Pool) Quiesced() bool { return p.quiesced }

// Dead reports whether health is at or below zero.
func (p *Pool) Dead() bool { return p.health <= 0 }

// ApplyModifiers copies this frame's health limiter and magicka modifier from
// agg and reconciles every resource against its recomputed maximum.
func (p *Pool) ApplyModifiers(agg *modifier.Aggregator) {
	p.healthLimiter = agg.Value(modifier.HealthLimit)
	p.magickaModifier = agg.Value(modifier.MagickaMax)
	p.Reconcile()
}

// Reconcile clamps every resource into its current bounds.
func (p *Pool) Reconcile() {
	for _, r := range Resources {
		p.clamp(r)
	}
}

func (p *Pool) clamp(r Resource) {
	cur := p.Current(r)
	if cur < 0 || cur > p.EffectiveMax(r) {
		p.Set(r, cur)
	}
}

func (p *Pool) write(r Resource, v int) {
	prev := p.Current(r)
	p.Restore(r, v)
	if p.quiesced || prev <= 0 || v > 0 {
		return
	}
	switch r {
	case Health:
		p.sink.Notify(notify.New(notify.TypeDeath, p.id, ""))
	case Fatigue:
		if p.health > 0 {
			p.sink.Notify(notify.New(notify.TypeExhausted, p.id, ""))
		}
	case Magicka:
		p.sink.Notify(notify.New(notify.TypeMagickaDepleted, p.id, ""))
	}
}

// Snapshot is the persisted form of a Pool. Fatigue and breath maxima are
// derived and not saved.
type Snapshot struct {
	RawMaxHealth    int `json:"raw_max_health" db:"raw_max_health"`
	HealthLimiter   int `json:"health_limiter" db:"health_limiter"`
	Health          int `json:"health" db:"health"`
	RawMaxMagicka   int `json:"raw_max_magicka" db:"raw_max_magicka"`
	MagickaModifier int `json:"magicka_modifier" db:"magicka_modifier"`
	Magicka         int `json:"magicka" db:"magicka"`
	Fatigue         int `json:"fatigue" db:"fatigue"`
	Breath          int `json:"breath" db:"breath"`
}

// Snapshot captures the pool's persisted fields.
func (p *Pool) Snapshot() Snapshot {
	return Snapshot{
		RawMaxHealth:    p.rawMaxHealth,
		HealthLimiter:   p.healthLimiter,
		Health:          p.health,
		RawMaxMagicka:   p.rawMaxMagicka,
		MagickaModifier: p.magickaModifier,
		Magicka:         p.magicka,
		Fatigue:         p.fatigue,
		Breath:          p.breath,
	}
}

// RestoreSnapshot loads s in restore mode: values are accepted as saved, even
// when outside the current bounds, and no notifications are raised.
func (p *Pool) RestoreSnapshot(s Snapshot) {
	p.rawMaxHealth = s.RawMaxHealth
	p.healthLimiter = s.HealthLimiter
	p.rawMaxMagicka = s.RawMaxMagicka
	p.magickaModifier = s.MagickaModifier
	p.Restore(Health, s.Health)
	p.Restore(Magicka, s.Magicka)
	p.Restore(Fatigue, s.Fatigue)
	p.Restore(Breath, s.Breath)
}
