package progression

import (
	"fmt"

	"github.com/cory-johannsen/vitals/internal/game/dice"
	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

// State is the observable state of a progression.
type State int

const (
	Incubating State = iota
	Cycling
	// Lingering is a non-permanent progression that has exhausted its cycles
	// and waits for its cure predicate.
	Lingering
	Permanent
	Resolved
)

func (s State) String() string {
	switch s {
	case Incubating:
		return "incubating"
	case Cycling:
		return "cycling"
	case Lingering:
		return "lingering"
	case Permanent:
		return "permanent"
	case Resolved:
		return "resolved"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Target is the entity a progression acts on.
type Target interface {
	Pool() *vitals.Pool
	Attributes() *vitals.Attributes
}

// Start returns the initial counters for a new progression of s.
func Start(s Schedule) effect.Progress {
	return effect.Progress{CyclesRemaining: s.Cycles}
}

// StateOf derives the state of p under s.
func StateOf(p effect.Progress, s Schedule) State {
	switch {
	case p.Resolved:
		return Resolved
	case p.CyclesRemaining == 0 && s.Permanent:
		return Permanent
	case p.CyclesRemaining == 0:
		return Lingering
	case !p.IncubationOver:
		return Incubating
	}
	return Cycling
}

// Step advances p by one round, applying at most one phase to t, and returns
// the resulting state.
//
// Precondition: s passed Validate; t and roller are non-nil.
// Postcondition: no phase is applied before TickDelay rounds have elapsed in
// the current window; a non-permanent progression reaching zero cycles
// resolves in the same round.
func Step(p *effect.Progress, s Schedule, t Target, roller *dice.Roller) State {
	if p.Resolved {
		return Resolved
	}
	if p.CyclesRemaining == 0 {
		if s.Permanent {
			return Permanent
		}
		if curable(s, t) {
			p.Resolved = true
			return Resolved
		}
		return Lingering
	}

	p.PhaseCounter++
	if p.PhaseCounter < s.TickDelay {
		return StateOf(*p, s)
	}

	p.PhaseCounter = 0
	p.IncubationOver = true
	p.CyclesElapsed++
	if phase, ok := s.PhaseFor(p.CyclesElapsed); ok {
		apply(phase, t, roller)
	}
	if p.CyclesRemaining > 0 {
		p.CyclesRemaining--
	}
	if p.CyclesRemaining == 0 && !s.Permanent {
		p.Resolved = true
		return Resolved
	}
	return StateOf(*p, s)
}

// Cure forces p to Resolved and clears its counters. Drains already applied
// are left for ordinary attribute healing. Curing twice is a no-op.
func Cure(p *effect.Progress) {
	p.Resolved = true
	p.PhaseCounter = 0
	p.CyclesRemaining = 0
}

// AddCycles extends a bounded progression by n cycles.
func AddCycles(p *effect.Progress, n int) {
	if p.CyclesRemaining == effect.Unbounded || p.Resolved || n <= 0 {
		return
	}
	p.CyclesRemaining += n
}

func curable(s Schedule, t Target) bool {
	if s.CureWhen != nil {
		return s.CureWhen(t)
	}
	return !t.Attributes().Drained(s.Stats()...)
}

func apply(phase Phase, t Target, roller *dice.Roller) {
	pool := t.Pool()
	for _, d := range phase.Resources {
		v := roller.Range("phase:"+d.Resource.String(), d.Min, d.Max).Value
		if v < 0 {
			pool.Decrease(d.Resource, -v)
		} else {
			pool.Increase(d.Resource, v)
		}
	}
	attrs := t.Attributes()
	for _, d := range phase.Stats {
		v := roller.Range("phase:"+d.Stat.String(), d.Min, d.Max).Value
		if v < 0 {
			attrs.Drain(d.Stat, -v)
		} else {
			attrs.HealDrain(d.Stat, v)
		}
	}
}
