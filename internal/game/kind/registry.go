package kind

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/progression"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
)

var (
	// ErrUnknownKind is returned when a kind key is not registered.
	ErrUnknownKind = errors.New("unknown effect kind")
	// ErrInvalidDefinition is returned when a definition fails validation.
	ErrInvalidDefinition = errors.New("invalid effect definition")
)

// Registry maps kind keys to Kinds. Registration happens at startup; lookups
// are safe for concurrent use afterwards.
type Registry struct {
	mu     sync.RWMutex
	kinds  map[string]*Kind
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		panic("kind: NewRegistry requires a non-nil logger")
	}
	return &Registry{kinds: make(map[string]*Kind), logger: logger}
}

// Register validates def and adds the resulting Kind.
//
// Precondition: def must be non-nil.
// Postcondition: on error nothing is registered and the error wraps
// ErrInvalidDefinition and lists every violation.
func (r *Registry) Register(def *Definition) (*Kind, error) {
	k, err := r.build(def)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.kinds[def.ID]; dup {
		return nil, fmt.Errorf("%w: %q: duplicate id", ErrInvalidDefinition, def.ID)
	}
	r.kinds[def.ID] = k

	if k.Schedule != nil {
		for _, gap := range k.Schedule.Gaps() {
			r.logger.Warn("progression schedule has uncovered cycles",
				zap.String("kind", def.ID),
				zap.Int("from", gap[0]),
				zap.Int("to", gap[1]),
			)
		}
	}
	r.logger.Debug("effect kind registered",
		zap.String("kind", def.ID),
		zap.String("behavior", def.Behavior),
		zap.Stringer("mode", k.Mode),
	)
	return k, nil
}

// LoadDirectory registers every definition in dir.
//
// Postcondition: returns the number of kinds registered, or the first error.
func (r *Registry) LoadDirectory(dir string) (int, error) {
	defs, err := LoadDefinitions(dir)
	if err != nil {
		return 0, err
	}
	for _, def := range defs {
		if _, err := r.Register(def); err != nil {
			return 0, err
		}
	}
	r.logger.Info("loaded effect kinds", zap.String("dir", dir), zap.Int("count", len(defs)))
	return len(defs), nil
}

// Get returns the Kind registered under id.
func (r *Registry) Get(id string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[id]
	return k, ok
}

// Lookup returns the Kind registered under id or an error wrapping ErrUnknownKind.
func (r *Registry) Lookup(id string) (*Kind, error) {
	k, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, id)
	}
	return k, nil
}

// All returns every registered Kind ordered by id.
func (r *Registry) All() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}

func (r *Registry) likeGroupOf(id string) string {
	k, ok := r.Get(id)
	if !ok {
		return ""
	}
	return k.Def.LikeGroup
}

func (r *Registry) build(def *Definition) (*Kind, error) {
	if def == nil {
		panic("kind: Register requires a non-nil definition")
	}
	var errs []string
	if def.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	b, known := behaviors[def.Behavior]
	if !known {
		errs = append(errs, fmt.Sprintf("unknown behavior %q", def.Behavior))
		return nil, invalid(def.ID, errs)
	}

	k := &Kind{Def: def, Mode: b.modes[0]}
	if def.Mode != "" {
		m, err := effect.ParseMode(def.Mode)
		switch {
		case err != nil:
			errs = append(errs, err.Error())
		case !slices.Contains(b.modes, m):
			errs = append(errs, fmt.Sprintf("behavior %s does not support mode %s (allowed %s)", def.Behavior, m, modeNames(b.modes)))
		default:
			k.Mode = m
		}
	}
	if def.Element != "" {
		e, err := modifier.ParseElement(def.Element)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			k.Element, k.Elemental = e, true
		}
	}
	if def.Chance < 0 || def.Chance > 100 {
		errs = append(errs, fmt.Sprintf("chance must be 0-100, got %d", def.Chance))
	}
	if def.Magnitude.Min > def.Magnitude.Max {
		errs = append(errs, fmt.Sprintf("magnitude min %d exceeds max %d", def.Magnitude.Min, def.Magnitude.Max))
	}
	if k.Mode == effect.Timed && def.Rounds < 1 {
		errs = append(errs, fmt.Sprintf("timed kinds need rounds >= 1, got %d", def.Rounds))
	}
	if k.Mode == effect.Progression {
		s, serrs := buildSchedule(def.Progression)
		errs = append(errs, serrs...)
		k.Schedule = s
	} else if def.Progression != nil {
		errs = append(errs, "progression is only valid for progression mode")
	}

	stacking := def.Stacking
	if stacking == "" {
		stacking = b.stacking
	}
	switch stacking {
	case stackMerge:
		group := def.LikeGroup
		k.LikeKind = func(incoming, existing *effect.Instance) bool {
			if incoming.Kind == existing.Kind {
				return true
			}
			if group == "" || incoming.Mode == effect.Constant || existing.Mode == effect.Constant {
				return false
			}
			return r.likeGroupOf(existing.Kind) == group
		}
		k.Merge = effect.SameKind{}.AddState
	case stackIndependent:
		k.LikeKind = func(_, _ *effect.Instance) bool { return false }
	default:
		errs = append(errs, fmt.Sprintf("stacking must be merge or independent, got %q", def.Stacking))
	}

	if len(errs) == 0 {
		errs = append(errs, b.build(def, k)...)
	}
	if def.Behavior == "drug" && stacking == stackMerge {
		k.Merge = mergeDrug
	}
	if len(errs) > 0 {
		return nil, invalid(def.ID, errs)
	}
	return k, nil
}

func invalid(id string, errs []string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidDefinition, id, strings.Join(errs, "; "))
}

func buildSchedule(p *ProgressionDef) (*progression.Schedule, []string) {
	if p == nil {
		return nil, []string{"progression mode requires a progression block"}
	}
	var errs []string
	if p.Cycles == 0 {
		errs = append(errs, "progression.cycles must be -1 or positive")
	}
	s := &progression.Schedule{
		TickDelay: p.TickDelay,
		Cycles:    p.Cycles,
		Permanent: p.Permanent,
	}
	for i, pd := range p.Phases {
		phase := progression.Phase{From: pd.From, To: pd.From}
		if pd.To != nil {
			phase.To = *pd.To
		}
		for j, d := range pd.Deltas {
			switch {
			case d.Resource != "" && d.Stat != "":
				errs = append(errs, fmt.Sprintf("phase %d delta %d: set either resource or stat, not both", i, j))
			case d.Resource != "":
				res, err := vitals.ParseResource(d.Resource)
				if err != nil {
					errs = append(errs, fmt.Sprintf("phase %d delta %d: %v", i, j, err))
					continue
				}
				phase.Resources = append(phase.Resources, progression.ResourceDelta{Resource: res, Min: d.Min, Max: d.Max})
			case d.Stat != "":
				stat, err := vitals.ParseStat(d.Stat)
				if err != nil {
					errs = append(errs, fmt.Sprintf("phase %d delta %d: %v", i, j, err))
					continue
				}
				phase.Stats = append(phase.Stats, progression.StatDelta{Stat: stat, Min: d.Min, Max: d.Max})
			default:
				errs = append(errs, fmt.Sprintf("phase %d delta %d: resource or stat is required", i, j))
			}
		}
		s.Phases = append(s.Phases, phase)
	}
	if err := s.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			errs = append(errs, "progression: "+line)
		}
	}
	return s, errs
}
