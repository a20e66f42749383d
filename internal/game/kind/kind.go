// Package kind holds the registry of effect kinds: data-plus-behaviour records
// that tell the simulation how instances of each kind stack, start, tick,
// contribute frame modifiers and end.
package kind

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/dice"
	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/progression"
	"github.com/cory-johannsen/vitals/internal/notify"
	"github.com/cory-johannsen/vitals/internal/scripting"
)

// Outcome tells the simulation whether an instance continues after a tick.
type Outcome int

const (
	Continue Outcome = iota
	// Stop ends the instance after this tick.
	Stop
)

// Scripts runs Lua hooks for scripted kinds. *scripting.Manager satisfies it.
type Scripts interface {
	CallHook(hook string, target scripting.Target, info scripting.EffectInfo) (lua.LValue, error)
}

// Context carries the collaborators every hook may use. It is built by the
// simulation for one instance and one round.
type Context struct {
	Target *entity.Entity
	// Caster is nil when the instance has no caster or the caster is gone.
	Caster  *entity.Entity
	Roller  *dice.Roller
	Sink    notify.Sink
	Scripts Scripts
	Logger  *zap.Logger
}

// Hook acts on one instance.
type Hook func(ctx *Context, inst *effect.Instance)

// TickHook advances one instance by one round.
type TickHook func(ctx *Context, inst *effect.Instance) Outcome

// Kind is the runtime record of one effect kind.
type Kind struct {
	Def  *Definition
	Mode effect.Mode

	// Element, when Elemental, is checked against the target's resistances on attach.
	Element   modifier.Element
	Elemental bool
	// Disease kinds are refused while the target is immune to disease.
	Disease bool
	// Paralysis kinds are refused while the target is immune to paralysis.
	Paralysis bool

	Schedule *progression.Schedule

	LikeKind func(incoming, existing *effect.Instance) bool
	Merge    func(existing, incoming *effect.Instance)

	OnStart Hook
	OnTick  TickHook
	// OnFrame contributes frame-local modifiers after the aggregator reset.
	OnFrame Hook
	OnEnd   Hook
}

// ID returns the kind key.
func (k *Kind) ID() string { return k.Def.ID }

// IsLikeKind reports whether incoming merges into existing.
func (k *Kind) IsLikeKind(incoming, existing *effect.Instance) bool {
	if k.LikeKind == nil {
		return false
	}
	return k.LikeKind(incoming, existing)
}

// AddState folds incoming into existing.
func (k *Kind) AddState(existing, incoming *effect.Instance) {
	if k.Merge != nil {
		k.Merge(existing, incoming)
	}
}

// Start runs the start hook, if any.
func (k *Kind) Start(ctx *Context, inst *effect.Instance) {
	if k.OnStart != nil {
		k.OnStart(ctx, inst)
	}
}

// Tick runs the tick hook, if any.
func (k *Kind) Tick(ctx *Context, inst *effect.Instance) Outcome {
	if k.OnTick == nil {
		return Continue
	}
	return k.OnTick(ctx, inst)
}

// Frame runs the frame hook, if any.
func (k *Kind) Frame(ctx *Context, inst *effect.Instance) {
	if k.OnFrame != nil {
		k.OnFrame(ctx, inst)
	}
}

// End runs the end hook, if any.
func (k *Kind) End(ctx *Context, inst *effect.Instance) {
	if k.OnEnd != nil {
		k.OnEnd(ctx, inst)
	}
}

// NewInstance creates a Starting instance of k with the definition's
// duration, magnitude range, chance and initial progression counters.
func (k *Kind) NewInstance(casterID string) *effect.Instance {
	inst := effect.New(k.Def.ID, k.Mode)
	inst.CasterID = casterID
	inst.MagnitudeMin = k.Def.Magnitude.Min
	inst.MagnitudeMax = k.Def.Magnitude.Max
	inst.Chance = k.Def.Chance
	switch k.Mode {
	case effect.Timed:
		inst.RoundsRemaining = k.Def.Rounds
	case effect.Progression:
		inst.Progress = progression.Start(*k.Schedule)
	}
	return inst
}

// RollMagnitude draws from the instance's magnitude range.
func RollMagnitude(ctx *Context, inst *effect.Instance) int {
	return ctx.Roller.Range("magnitude:"+inst.Kind, inst.MagnitudeMin, inst.MagnitudeMax).Value
}
