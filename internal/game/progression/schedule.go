// Package progression implements the phase-schedule state machine shared by
// disease and drug effects.
package progression

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

// OpenEnded marks a phase with no upper cycle bound.
const OpenEnded = -1

// ResourceDelta adjusts a vital resource by an inclusive random amount.
// Negative draws decrease the resource.
type ResourceDelta struct {
	Resource vitals.Resource
	Min, Max int
}

// StatDelta adjusts a stat by an inclusive random amount. Negative draws drain
// the stat; positive draws heal existing drain.
type StatDelta struct {
	Stat     vitals.Stat
	Min, Max int
}

// Phase applies its deltas once per cycle while CyclesElapsed is within [From, To].
type Phase struct {
	From int
	To   int
	// Resources and Stats are applied in order when the phase fires.
	Resources []ResourceDelta
	Stats     []StatDelta
}

// Contains reports whether cycle falls within the phase.
func (p Phase) Contains(cycle int) bool {
	return cycle >= p.From && (p.To == OpenEnded || cycle <= p.To)
}

// CurePredicate reports whether a lingering progression may resolve.
type CurePredicate func(t Target) bool

// Schedule describes one progression kind.
type Schedule struct {
	// TickDelay is the number of rounds per cycle, including incubation.
	TickDelay int
	// Cycles is the initial CyclesRemaining; effect.Unbounded never exhausts.
	Cycles int
	// Permanent progressions stay in place after exhausting their cycles.
	Permanent bool
	Phases    []Phase
	// CureWhen overrides the default predicate, which requires every stat the
	// schedule touches to be free of drain.
	CureWhen CurePredicate
}

// Validate checks the schedule and returns every violation found.
func (s Schedule) Validate() error {
	var errs []error
	if s.TickDelay < 0 {
		errs = append(errs, fmt.Errorf("tick_delay must be >= 0, got %d", s.TickDelay))
	}
	if s.Cycles < effect.Unbounded {
		errs = append(errs, fmt.Errorf("cycles must be >= -1, got %d", s.Cycles))
	}
	for i, p := range s.Phases {
		if p.From < 0 {
			errs = append(errs, fmt.Errorf("phase %d: from must be >= 0, got %d", i, p.From))
		}
		if p.To != OpenEnded && p.To < p.From {
			errs = append(errs, fmt.Errorf("phase %d: to %d precedes from %d", i, p.To, p.From))
		}
		for _, d := range p.Resources {
			if d.Min > d.Max {
				errs = append(errs, fmt.Errorf("phase %d: %s delta min %d exceeds max %d", i, d.Resource, d.Min, d.Max))
			}
		}
		for _, d := range p.Stats {
			if !d.Stat.Valid() {
				errs = append(errs, fmt.Errorf("phase %d: invalid stat %d", i, int(d.Stat)))
			}
			if d.Min > d.Max {
				errs = append(errs, fmt.Errorf("phase %d: %s delta min %d exceeds max %d", i, d.Stat, d.Min, d.Max))
			}
		}
	}
	sorted := s.sortedPhases()
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.To == OpenEnded || prev.To >= next.From {
			errs = append(errs, fmt.Errorf("phases [%d,%s] and [%d,%s] overlap",
				prev.From, bound(prev.To), next.From, bound(next.To)))
		}
	}
	return errors.Join(errs...)
}

// Gaps returns the cycle ranges not covered by any phase, between the first
// and last phase. Gaps are legal; callers may report them for review.
func (s Schedule) Gaps() [][2]int {
	sorted := s.sortedPhases()
	var gaps [][2]int
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.To != OpenEnded && prev.To+1 < next.From {
			gaps = append(gaps, [2]int{prev.To + 1, next.From - 1})
		}
	}
	return gaps
}

// PhaseFor returns the phase covering cycle.
func (s Schedule) PhaseFor(cycle int) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Contains(cycle) {
			return p, true
		}
	}
	return Phase{}, false
}

// Stats returns every stat any phase touches, without duplicates.
func (s Schedule) Stats() []vitals.Stat {
	seen := make(map[vitals.Stat]bool)
	var out []vitals.Stat
	for _, p := range s.Phases {
		for _, d := range p.Stats {
			if !seen[d.Stat] {
				seen[d.Stat] = true
				out = append(out, d.Stat)
			}
		}
	}
	return out
}

func (s Schedule) sortedPhases() []Phase {
	sorted := make([]Phase, len(s.Phases))
	copy(sorted, s.Phases)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	return sorted
}

func bound(to int) string {
	if to == OpenEnded {
		return "∞"
	}
	return fmt.Sprint(to)
}
