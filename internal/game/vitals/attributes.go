package vitals

// Attributes holds the primary stats of one entity. The live value of a stat
// is permanent + modifier - drain, never less than 1.
//
// Modifiers are frame-local and cleared by ResetModifiers; drains persist
// until healed.
type Attributes struct {
	permanent [numStats]int
	modifier  [numStats]int
	drain     [numStats]int
}

// NewAttributes returns Attributes with every permanent value set to base.
func NewAttributes(base int) *Attributes {
	a := &Attributes{}
	for i := range a.permanent {
		a.permanent[i] = base
	}
	return a
}

// SetPermanent sets the permanent value of s. Invalid stats are ignored.
func (a *Attributes) SetPermanent(s Stat, v int) {
	if s.Valid() {
		a.permanent[s] = v
	}
}

// Permanent returns the permanent value of s.
func (a *Attributes) Permanent(s Stat) int {
	if !s.Valid() {
		return 0
	}
	return a.permanent[s]
}

// Live returns the effective value of s.
//
// Postcondition: result >= 1 for every valid stat.
func (a *Attributes) Live(s Stat) int {
	if !s.Valid() {
		return 0
	}
	return max(1, a.permanent[s]+a.modifier[s]-a.drain[s])
}

// AddModifier adds a frame-local delta to s.
func (a *Attributes) AddModifier(s Stat, delta int) {
	if s.Valid() {
		a.modifier[s] += delta
	}
}

// Modifier returns the accumulated frame-local delta of s.
func (a *Attributes) Modifier(s Stat) int {
	if !s.Valid() {
		return 0
	}
	return a.modifier[s]
}

// ResetModifiers clears every frame-local delta.
func (a *Attributes) ResetModifiers() {
	a.modifier = [numStats]int{}
}

// Drain adds amount of persistent damage to s. Non-positive amounts are ignored.
func (a *Attributes) Drain(s Stat, amount int) {
	if s.Valid() && amount > 0 {
		a.drain[s] += amount
	}
}

// HealDrain removes up to amount of drain from s and returns the amount healed.
func (a *Attributes) HealDrain(s Stat, amount int) int {
	if !s.Valid() || amount <= 0 {
		return 0
	}
	healed := min(amount, a.drain[s])
	a.drain[s] -= healed
	return healed
}

// DrainOf returns the accumulated drain on s.
func (a *Attributes) DrainOf(s Stat) int {
	if !s.Valid() {
		return 0
	}
	return a.drain[s]
}

// Drained reports whether any of stats carries a non-zero drain.
func (a *Attributes) Drained(stats ...Stat) bool {
	for _, s := range stats {
		if a.DrainOf(s) > 0 {
			return true
		}
	}
	return false
}

// AttributeSnapshot is the persisted form of Attributes. Modifiers are
// frame-local and not saved.
type AttributeSnapshot struct {
	Permanent map[string]int `json:"permanent"`
	Drain     map[string]int `json:"drain,omitempty"`
}

// Snapshot captures permanent values and drains keyed by stat name.
func (a *Attributes) Snapshot() AttributeSnapshot {
	snap := AttributeSnapshot{Permanent: make(map[string]int, numStats), Drain: make(map[string]int)}
	for _, s := range Stats {
		snap.Permanent[s.String()] = a.permanent[s]
		if a.drain[s] != 0 {
			snap.Drain[s.String()] = a.drain[s]
		}
	}
	return snap
}

// Restore loads permanent values and drains from snap. Unknown stat names are
// skipped and returned so the caller can report them.
func (a *Attributes) Restore(snap AttributeSnapshot) []string {
	var unknown []string
	a.ResetModifiers()
	a.drain = [numStats]int{}
	for name, v := range snap.Permanent {
		s, err := ParseStat(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		a.permanent[s] = v
	}
	for name, v := range snap.Drain {
		s, err := ParseStat(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		a.drain[s] = v
	}
	return unknown
}
