// Package simulation advances entities' effects round by round: attaching new
// instances through the incumbency resolver, rebuilding each frame's modifiers,
// ticking instances and removing the ones that end.
package simulation

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/dice"
	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/kind"
	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/progression"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/notify"
	"github.com/cory-johannsen/vitals/internal/observability"
)

// ErrEntityNotFound is returned when an entity ID is not in the world.
var ErrEntityNotFound = errors.New("entity not found")

// AttachResult reports what happened to an attached instance.
type AttachResult int

const (
	// Attached means the instance became a new incumbent.
	Attached AttachResult = iota
	// Merged means the instance was folded into an existing incumbent.
	Merged
	// Resisted means the target's elemental resistance roll succeeded.
	Resisted
	// Immune means the target's immunity flags refused the kind.
	Immune
	// Absorbed means the target absorbed the effect as magicka.
	Absorbed
	// Failed means the kind's application chance roll failed.
	Failed
)

var attachResultNames = [...]string{"attached", "merged", "resisted", "immune", "absorbed", "failed"}

func (a AttachResult) String() string {
	if int(a) < len(attachResultNames) {
		return attachResultNames[a]
	}
	return fmt.Sprintf("AttachResult(%d)", int(a))
}

// Runner drives the lifecycle of effect instances on entities.
//
// A Runner holds no per-entity state; callers serialise access to each entity.
type Runner struct {
	kinds   *kind.Registry
	lookup  entity.Lookup
	roller  *dice.Roller
	sink    notify.Sink
	scripts kind.Scripts
	logger  *zap.Logger
	frames  atomic.Uint64
}

// NewRunner creates a Runner.
//
// Precondition: kinds, lookup, roller, sink and logger must be non-nil. scripts
// may be nil when no scripted kinds are registered.
func NewRunner(kinds *kind.Registry, lookup entity.Lookup, roller *dice.Roller, sink notify.Sink, scripts kind.Scripts, logger *zap.Logger) *Runner {
	if kinds == nil || lookup == nil || roller == nil || sink == nil || logger == nil {
		panic("simulation: NewRunner requires non-nil kinds, lookup, roller, sink and logger")
	}
	return &Runner{
		kinds:   kinds,
		lookup:  lookup,
		roller:  roller,
		sink:    sink,
		scripts: scripts,
		logger:  logger,
	}
}

// Kinds returns the registry the runner resolves instances against.
func (r *Runner) Kinds() *kind.Registry { return r.kinds }

// NewEntity creates an entity that reports to the runner's sink.
func (r *Runner) NewEntity(id string, level int, attrs *vitals.Attributes) *entity.Entity {
	return entity.New(id, level, attrs, r.sink)
}

// context builds the hook context for inst on e. ok is false when inst names
// a caster that no longer exists.
func (r *Runner) context(e *entity.Entity, inst *effect.Instance) (ctx *kind.Context, ok bool) {
	ctx = &kind.Context{
		Target:  e,
		Roller:  r.roller,
		Sink:    r.sink,
		Scripts: r.scripts,
		Logger:  r.logger,
	}
	if inst.CasterID == "" {
		return ctx, true
	}
	caster, found := r.lookup.Get(inst.CasterID)
	if !found {
		return ctx, false
	}
	ctx.Caster = caster
	return ctx, true
}

// Apply creates an instance of kindID cast by casterID and attaches it to e.
func (r *Runner) Apply(e *entity.Entity, kindID, casterID string) (*effect.Instance, AttachResult, error) {
	k, err := r.kinds.Lookup(kindID)
	if err != nil {
		return nil, Failed, err
	}
	return r.Attach(e, k.NewInstance(casterID))
}

// Attach runs the immunity, chance, resistance and absorption gates, then
// resolves incumbency. A new incumbent runs its start hook and becomes Active;
// a merged or refused instance is discarded.
//
// Precondition: inst is in the Starting stage.
// Postcondition: returns the instance governing duration, or nil when refused.
func (r *Runner) Attach(e *entity.Entity, inst *effect.Instance) (*effect.Instance, AttachResult, error) {
	k, err := r.kinds.Lookup(inst.Kind)
	if err != nil {
		return nil, Failed, err
	}
	fields := append(observability.Effect(inst.Kind, inst.ID), observability.Entity(e.ID()))
	ctx, _ := r.context(e, inst)

	if res, refused := r.gate(ctx, k, inst); refused {
		r.logger.Debug("effect refused", append(fields, zap.Stringer("result", res))...)
		return nil, res, nil
	}

	gov, merged := e.Effects().Attach(inst, k)
	if merged {
		r.logger.Debug("effect merged into incumbent",
			append(fields, zap.String("incumbent", gov.ID), zap.Int("rounds_remaining", gov.RoundsRemaining))...)
		return gov, Merged, nil
	}

	k.Start(ctx, inst)
	if err := inst.Activate(); err != nil {
		e.Effects().Remove(inst.ID)
		return nil, Failed, fmt.Errorf("attaching %s: %w", inst.Kind, err)
	}
	r.logger.Debug("effect attached", append(fields, zap.Stringer("mode", inst.Mode))...)
	return inst, Attached, nil
}

func (r *Runner) gate(ctx *kind.Context, k *kind.Kind, inst *effect.Instance) (AttachResult, bool) {
	mods := ctx.Target.Modifiers()
	if k.Disease && mods.Flag(modifier.ImmuneToDisease) {
		return Immune, true
	}
	if k.Paralysis && mods.Flag(modifier.ImmuneToParalysis) {
		return Immune, true
	}
	if inst.Chance > 0 && !r.roller.Chance("apply:"+inst.Kind, inst.Chance) {
		return Failed, true
	}
	if k.Elemental {
		if resisted, chance := mods.Resistance(k.Element); resisted && r.roller.Chance("resist:"+k.Element.String(), chance) {
			return Resisted, true
		}
	}
	if k.Def.Absorbable && mods.Flag(modifier.SpellAbsorbing) {
		ctx.Target.Pool().Increase(vitals.Magicka, kind.RollMagnitude(ctx, inst))
		return Absorbed, true
	}
	return Attached, false
}

// ApplyFrame rebuilds e's frame-local modifiers: the aggregator and attribute
// modifiers are reset, every active instance contributes, and the pool picks
// up the new limiter and magicka modifier.
func (r *Runner) ApplyFrame(e *entity.Entity) {
	mods := e.Modifiers()
	if !mods.BeginFrame(r.frames.Add(1)) {
		return
	}
	e.Attributes().ResetModifiers()
	for _, inst := range e.Effects().All() {
		if !inst.Active() {
			continue
		}
		k, ok := r.kinds.Get(inst.Kind)
		if !ok {
			continue
		}
		ctx, _ := r.context(e, inst)
		k.Frame(ctx, inst)
	}
	e.Pool().ApplyModifiers(mods)
}

// TickRound advances every active instance on e by one round.
//
// Postcondition: the frame reset precedes every contribution; each instance
// runs its own tick before it is removed; instances whose caster is gone skip
// their tick but still count down.
func (r *Runner) TickRound(e *entity.Entity) {
	r.ApplyFrame(e)

	ended := 0
	for _, inst := range e.Effects().All() {
		if !inst.Active() {
			continue
		}
		k, ok := r.kinds.Get(inst.Kind)
		if !ok {
			r.logger.Warn("active effect of unknown kind", append(observability.Effect(inst.Kind, inst.ID), observability.Entity(e.ID()))...)
			continue
		}
		ctx, present := r.context(e, inst)
		if inst.Mode == effect.Timed {
			inst.RoundsRemaining--
		}
		outcome := kind.Continue
		if present {
			outcome = k.Tick(ctx, inst)
		} else {
			r.logger.Warn("caster missing, tick skipped",
				append(observability.Effect(inst.Kind, inst.ID), observability.Entity(e.ID()), zap.String("caster", inst.CasterID))...)
		}
		if outcome == kind.Stop || inst.Expired() {
			r.end(ctx, k, inst)
			ended++
		}
	}

	r.breathe(e)

	if e.Pool().Dead() {
		ended += r.dispel(e, func(inst *effect.Instance) bool { return inst.Mode != effect.Progression })
	}
	if ended > 0 {
		r.ApplyFrame(e)
	}
}

// breathe drains breath while submerged and drowns at zero.
func (r *Runner) breathe(e *entity.Entity) {
	pool := e.Pool()
	if !e.Submerged {
		pool.Set(vitals.Breath, pool.EffectiveMax(vitals.Breath))
		return
	}
	if e.Modifiers().Flag(modifier.WaterBreathing) {
		return
	}
	if pool.Current(vitals.Breath) > 0 {
		pool.Decrease(vitals.Breath, 1)
		return
	}
	pool.Decrease(vitals.Health, 1)
}

func (r *Runner) end(ctx *kind.Context, k *kind.Kind, inst *effect.Instance) {
	if err := inst.End(); err != nil {
		r.logger.Warn("ending effect", append(observability.Effect(inst.Kind, inst.ID), zap.Error(err))...)
	}
	k.End(ctx, inst)
	ctx.Target.Effects().Remove(inst.ID)
	r.sink.Notify(notify.New(notify.TypeEffectEnded, ctx.Target.ID(), k.Def.Name))
	r.logger.Debug("effect removed", append(observability.Effect(inst.Kind, inst.ID), observability.Entity(ctx.Target.ID()))...)
}

// Cure forces the instance with id to end. Progression instances are resolved
// first; drains they applied stay until healed. Curing an absent instance is a
// no-op and reports false.
func (r *Runner) Cure(e *entity.Entity, id string) bool {
	if !r.cure(e, id) {
		return false
	}
	r.ApplyFrame(e)
	return true
}

// CureKind cures every instance of kindID and returns how many were cured.
func (r *Runner) CureKind(e *entity.Entity, kindID string) int {
	n := 0
	for _, inst := range e.Effects().ByKind(kindID) {
		if r.cure(e, inst.ID) {
			n++
		}
	}
	if n > 0 {
		r.ApplyFrame(e)
	}
	return n
}

func (r *Runner) cure(e *entity.Entity, id string) bool {
	inst := e.Effects().Find(id)
	if inst == nil || inst.Stage() == effect.StageEnding {
		return false
	}
	if inst.Mode == effect.Progression {
		progression.Cure(&inst.Progress)
	}
	r.remove(e, inst)
	return true
}

// Dispel ends every instance matching pred, running end hooks, and returns the
// number removed. Frame modifiers are rebuilt without the removed instances.
func (r *Runner) Dispel(e *entity.Entity, pred func(*effect.Instance) bool) int {
	n := r.dispel(e, pred)
	if n > 0 {
		r.ApplyFrame(e)
	}
	return n
}

func (r *Runner) dispel(e *entity.Entity, pred func(*effect.Instance) bool) int {
	n := 0
	for _, inst := range e.Effects().All() {
		if inst.Stage() == effect.StageEnding || !pred(inst) {
			continue
		}
		r.remove(e, inst)
		n++
	}
	return n
}

func (r *Runner) remove(e *entity.Entity, inst *effect.Instance) {
	ctx, _ := r.context(e, inst)
	k, ok := r.kinds.Get(inst.Kind)
	if !ok {
		_ = inst.End()
		e.Effects().Remove(inst.ID)
		return
	}
	r.end(ctx, k, inst)
}

// Snapshot captures e for persistence. Ending instances are not saved.
func (r *Runner) Snapshot(e *entity.Entity) entity.Snapshot {
	snap := entity.Snapshot{
		ID:         e.ID(),
		Level:      e.Level,
		Submerged:  e.Submerged,
		Vitals:     e.Pool().Snapshot(),
		Attributes: e.Attributes().Snapshot(),
	}
	for _, inst := range e.Effects().All() {
		if inst.Stage() == effect.StageEnding {
			continue
		}
		snap.Effects = append(snap.Effects, inst.Record())
	}
	return snap
}

// Resume rebuilds an entity from snap. Pool values are restored without
// clamping or notifications and reconcile on the first frame. Instances
// re-enter Active through Resuming, so start hooks do not run again. Records
// of unregistered kinds are skipped with a warning.
func (r *Runner) Resume(snap entity.Snapshot) (*entity.Entity, error) {
	if snap.ID == "" {
		return nil, errors.New("resuming entity: empty id")
	}
	attrs := vitals.NewAttributes(1)
	for _, name := range attrs.Restore(snap.Attributes) {
		r.logger.Warn("unknown stat in snapshot", observability.Entity(snap.ID), zap.String("stat", name))
	}
	e := entity.New(snap.ID, snap.Level, attrs, r.sink)
	e.Submerged = snap.Submerged

	pool := e.Pool()
	pool.Quiesce(true)
	defer pool.Quiesce(false)
	pool.RestoreSnapshot(snap.Vitals)

	for _, rec := range snap.Effects {
		if _, ok := r.kinds.Get(rec.Kind); !ok {
			r.logger.Warn("skipping effect of unknown kind", append(observability.Effect(rec.Kind, rec.ID), observability.Entity(snap.ID))...)
			continue
		}
		inst, err := effect.FromRecord(rec)
		if err != nil {
			r.logger.Warn("skipping unreadable effect record", append(observability.Effect(rec.Kind, rec.ID), zap.Error(err))...)
			continue
		}
		e.Effects().Insert(inst)
		if err := inst.Activate(); err != nil {
			return nil, fmt.Errorf("resuming effect %s on %s: %w", rec.ID, snap.ID, err)
		}
	}
	r.logger.Debug("entity resumed", observability.Entity(snap.ID), zap.Int("effects", e.Effects().Len()))
	return e, nil
}
