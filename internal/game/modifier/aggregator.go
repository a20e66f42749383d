package modifier

type resistance struct {
	resisted bool
	chance   int
}

// Aggregator accumulates the modifiers contributed by active effects during
// one frame. Every field returns to neutral on Reset; contributions only ever
// accumulate between resets.
//
// It is not safe for concurrent use; the owning entity serialises access.
type Aggregator struct {
	frame   uint64
	started bool

	flags Flag

	fire            resistance
	frost           resistance
	diseaseOrPoison resistance
	shock           resistance
	magic           resistance

	magickaMax      int
	healthLimit     int
	weightAllowance int
	increasedArmor  int
	decreasedArmor  int
	hitChance       int

	paralyzed bool
}

// New returns a neutral Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Reset returns every field to its neutral value.
func (a *Aggregator) Reset() {
	frame, started := a.frame, a.started
	*a = Aggregator{frame: frame, started: started}
}

// BeginFrame resets the aggregator when frame differs from the last frame begun.
// It reports whether a reset happened, so contributions are applied exactly once
// per frame.
func (a *Aggregator) BeginFrame(frame uint64) bool {
	if a.started && a.frame == frame {
		return false
	}
	a.Reset()
	a.frame = frame
	a.started = true
	return true
}

// Frame returns the last frame begun.
func (a *Aggregator) Frame() uint64 {
	return a.frame
}

// SetFlag raises f for the rest of the frame.
func (a *Aggregator) SetFlag(f Flag) {
	a.flags |= f
}

// Flag reports whether f is raised.
func (a *Aggregator) Flag(f Flag) bool {
	return a.flags&f == f && f != 0
}

func (a *Aggregator) res(e Element) *resistance {
	switch e {
	case Fire:
		return &a.fire
	case Frost:
		return &a.frost
	case DiseaseOrPoison:
		return &a.diseaseOrPoison
	case Shock:
		return &a.shock
	case Magic:
		return &a.magic
	}
	return nil
}

// AddResistance marks e resisted and adds chance to its resistance chance.
// Unknown elements are ignored.
func (a *Aggregator) AddResistance(e Element, chance int) {
	if r := a.res(e); r != nil {
		r.resisted = true
		r.chance += chance
	}
}

// Resistance reports whether e is resisted and the accumulated chance.
func (a *Aggregator) Resistance(e Element) (bool, int) {
	if r := a.res(e); r != nil {
		return r.resisted, r.chance
	}
	return false, 0
}

// AddMagickaMax adds delta to the magicka maximum modifier.
func (a *Aggregator) AddMagickaMax(delta int) {
	a.magickaMax += delta
}

// LimitHealth requests a health limiter. The lowest positive request wins.
func (a *Aggregator) LimitHealth(limit int) {
	if limit <= 0 {
		return
	}
	if a.healthLimit == 0 || limit < a.healthLimit {
		a.healthLimit = limit
	}
}

// RequestWeightAllowance requests a weight allowance multiplier. The highest request wins.
func (a *Aggregator) RequestWeightAllowance(v int) {
	if v > a.weightAllowance {
		a.weightAllowance = v
	}
}

// RequestIncreasedArmor requests an armor improvement. The lowest non-zero request wins.
func (a *Aggregator) RequestIncreasedArmor(v int) {
	a.increasedArmor = lowestNonZero(a.increasedArmor, v)
}

// RequestDecreasedArmor requests an armor penalty. The lowest non-zero request wins.
func (a *Aggregator) RequestDecreasedArmor(v int) {
	a.decreasedArmor = lowestNonZero(a.decreasedArmor, v)
}

func lowestNonZero(cur, v int) int {
	if v == 0 {
		return cur
	}
	if cur == 0 || v < cur {
		return v
	}
	return cur
}

// AddHitChance adds delta to the hit-chance modifier.
func (a *Aggregator) AddHitChance(delta int) {
	a.hitChance += delta
}

// Paralyze latches paralysis until the next reset.
func (a *Aggregator) Paralyze() {
	a.paralyzed = true
}

// Paralyzed reports whether paralysis is latched.
func (a *Aggregator) Paralyzed() bool {
	return a.paralyzed
}

// Contribute routes v to the setter matching kind.
func (a *Aggregator) Contribute(kind Value, v int) {
	switch kind {
	case MagickaMax:
		a.AddMagickaMax(v)
	case HealthLimit:
		a.LimitHealth(v)
	case WeightAllowance:
		a.RequestWeightAllowance(v)
	case IncreasedArmor:
		a.RequestIncreasedArmor(v)
	case DecreasedArmor:
		a.RequestDecreasedArmor(v)
	case HitChance:
		a.AddHitChance(v)
	}
}

// Value returns the aggregated value of kind.
func (a *Aggregator) Value(kind Value) int {
	switch kind {
	case MagickaMax:
		return a.magickaMax
	case HealthLimit:
		return a.healthLimit
	case WeightAllowance:
		return a.weightAllowance
	case IncreasedArmor:
		return a.increasedArmor
	case DecreasedArmor:
		return a.decreasedArmor
	case HitChance:
		return a.hitChance
	}
	return 0
}
