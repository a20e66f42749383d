package kind

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/progression"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/notify"
	"github.com/cory-johannsen/vitals/internal/observability"
	"github.com/cory-johannsen/vitals/internal/scripting"
)

// behavior wires the hooks of one built-in behaviour into a Kind.
type behavior struct {
	// modes lists the permitted modes; the first is the default.
	modes []effect.Mode
	// stacking is the default stacking policy.
	stacking string
	// build validates behaviour-specific fields and installs hooks. It returns
	// one message per violation.
	build func(def *Definition, k *Kind) []string
}

const (
	stackMerge       = "merge"
	stackIndependent = "independent"
)

var (
	timedOnly   = []effect.Mode{effect.Timed}
	timedOrHeld = []effect.Mode{effect.Timed, effect.Constant}
	progressive = []effect.Mode{effect.Progression}
	anyMode     = []effect.Mode{effect.Timed, effect.Constant, effect.Progression}
)

var behaviors = map[string]behavior{
	"damage":            {modes: timedOnly, stacking: stackMerge, build: buildResourceTick(false)},
	"restore":           {modes: timedOnly, stacking: stackMerge, build: buildResourceTick(true)},
	"transfer":          {modes: timedOnly, stacking: stackMerge, build: buildTransfer},
	"fortify":           {modes: timedOrHeld, stacking: stackMerge, build: buildFortify},
	"grant":             {modes: timedOrHeld, stacking: stackMerge, build: buildGrant},
	"resist":            {modes: timedOrHeld, stacking: stackMerge, build: buildResist},
	"paralyze":          {modes: timedOnly, stacking: stackMerge, build: buildParalyze},
	"fortify_attribute": {modes: timedOrHeld, stacking: stackMerge, build: buildFortifyAttribute},
	"disease":           {modes: progressive, stacking: stackIndependent, build: buildDisease},
	"drug":              {modes: progressive, stacking: stackMerge, build: buildDrug},
	"scripted":          {modes: anyMode, stacking: stackMerge, build: buildScripted},
}

// Behaviors returns the names of the built-in behaviours.
func Behaviors() []string {
	names := make([]string, 0, len(behaviors))
	for name := range behaviors {
		names = append(names, name)
	}
	return names
}

// rollAtStart rolls the instance magnitude once for frame contributions.
func rollAtStart(ctx *Context, inst *effect.Instance) {
	inst.Magnitude = RollMagnitude(ctx, inst)
}

func parseResource(def *Definition) (vitals.Resource, []string) {
	if def.Resource == "" {
		return 0, []string{"resource is required"}
	}
	r, err := vitals.ParseResource(def.Resource)
	if err != nil {
		return 0, []string{err.Error()}
	}
	return r, nil
}

func buildResourceTick(increase bool) func(def *Definition, k *Kind) []string {
	return func(def *Definition, k *Kind) []string {
		res, errs := parseResource(def)
		if errs != nil {
			return errs
		}
		k.OnTick = func(ctx *Context, inst *effect.Instance) Outcome {
			amount := RollMagnitude(ctx, inst)
			pool := ctx.Target.Pool()
			if increase {
				pool.Increase(res, amount)
			} else {
				pool.Decrease(res, amount)
			}
			ctx.Logger.Debug("effect tick",
				append(observability.Effect(inst.Kind, inst.ID),
					observability.Entity(ctx.Target.ID()),
					zap.Stringer("resource", res),
					zap.Int("amount", amount),
					zap.Int("current", pool.Current(res)),
				)...)
			return Continue
		}
		return nil
	}
}

func buildTransfer(def *Definition, k *Kind) []string {
	res, errs := parseResource(def)
	if errs != nil {
		return errs
	}
	k.OnTick = func(ctx *Context, inst *effect.Instance) Outcome {
		if ctx.Caster == nil {
			return Continue
		}
		amount := min(RollMagnitude(ctx, inst), ctx.Target.Pool().Current(res))
		if amount <= 0 {
			return Continue
		}
		ctx.Target.Pool().Decrease(res, amount)
		ctx.Caster.Pool().Increase(res, amount)
		ctx.Logger.Debug("effect transfer",
			append(observability.Effect(inst.Kind, inst.ID),
				zap.String("from", ctx.Target.ID()),
				zap.String("to", ctx.Caster.ID()),
				zap.Stringer("resource", res),
				zap.Int("amount", amount),
			)...)
		return Continue
	}
	return nil
}

func buildFortify(def *Definition, k *Kind) []string {
	if def.Value == "" {
		return []string{"value is required"}
	}
	v, err := modifier.ParseValue(def.Value)
	if err != nil {
		return []string{err.Error()}
	}
	k.OnStart = rollAtStart
	k.OnFrame = func(ctx *Context, inst *effect.Instance) {
		ctx.Target.Modifiers().Contribute(v, inst.Magnitude)
	}
	return nil
}

func buildGrant(def *Definition, k *Kind) []string {
	if len(def.Flags) == 0 {
		return []string{"flags must not be empty"}
	}
	var errs []string
	var flags modifier.Flag
	for _, name := range def.Flags {
		f, err := modifier.ParseFlag(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		flags |= f
	}
	if errs != nil {
		return errs
	}
	k.OnFrame = func(ctx *Context, _ *effect.Instance) {
		ctx.Target.Modifiers().SetFlag(flags)
	}
	return nil
}

func buildResist(def *Definition, k *Kind) []string {
	if def.Element == "" {
		return []string{"element is required"}
	}
	// The element is what this kind resists, not what gates it.
	element := k.Element
	k.Elemental = false
	k.OnStart = rollAtStart
	k.OnFrame = func(ctx *Context, inst *effect.Instance) {
		ctx.Target.Modifiers().AddResistance(element, inst.Magnitude)
	}
	return nil
}

func buildParalyze(_ *Definition, k *Kind) []string {
	k.Paralysis = true
	k.OnFrame = func(ctx *Context, _ *effect.Instance) {
		ctx.Target.Modifiers().Paralyze()
	}
	return nil
}

func buildFortifyAttribute(def *Definition, k *Kind) []string {
	if def.Stat == "" {
		return []string{"stat is required"}
	}
	stat, err := vitals.ParseStat(def.Stat)
	if err != nil {
		return []string{err.Error()}
	}
	k.OnStart = rollAtStart
	k.OnFrame = func(ctx *Context, inst *effect.Instance) {
		ctx.Target.Attributes().AddModifier(stat, inst.Magnitude)
	}
	return nil
}

// progressTick advances a progression instance by one round.
func progressTick(k *Kind) TickHook {
	return func(ctx *Context, inst *effect.Instance) Outcome {
		state := progression.Step(&inst.Progress, *k.Schedule, ctx.Target, ctx.Roller)
		ctx.Logger.Debug("progression step",
			append(observability.Effect(inst.Kind, inst.ID),
				observability.Entity(ctx.Target.ID()),
				zap.Stringer("state", state),
				zap.Int("cycles_elapsed", inst.Progress.CyclesElapsed),
				zap.Int("cycles_remaining", inst.Progress.CyclesRemaining),
			)...)
		return Continue
	}
}

func buildDisease(def *Definition, k *Kind) []string {
	k.Disease = true
	if def.Element == "" {
		k.Element = modifier.DiseaseOrPoison
		k.Elemental = true
	}
	k.OnStart = func(ctx *Context, inst *effect.Instance) {
		ctx.Sink.Notify(notify.New(notify.TypeDiseaseContracted, ctx.Target.ID(), def.ContractedText))
	}
	k.OnTick = progressTick(k)
	return nil
}

func buildDrug(_ *Definition, k *Kind) []string {
	k.OnTick = progressTick(k)
	return nil
}

// mergeDrug is installed after stacking so that it overrides the default merge.
func mergeDrug(existing, incoming *effect.Instance) {
	existing.RoundsRemaining += incoming.RoundsRemaining
	if existing.Mode == effect.Progression && incoming.Mode == effect.Progression {
		progression.AddCycles(&existing.Progress, incoming.Progress.CyclesRemaining)
	}
}

func buildScripted(def *Definition, k *Kind) []string {
	if def.LuaOnStart == "" && def.LuaOnTick == "" && def.LuaOnEnd == "" {
		return []string{"scripted kinds must name at least one of lua_on_start, lua_on_tick, lua_on_end"}
	}
	if def.LuaOnStart != "" {
		k.OnStart = func(ctx *Context, inst *effect.Instance) {
			callScript(ctx, def.LuaOnStart, inst)
		}
	}
	if def.LuaOnTick != "" {
		k.OnTick = func(ctx *Context, inst *effect.Instance) Outcome {
			if callScript(ctx, def.LuaOnTick, inst) == lua.LFalse {
				return Stop
			}
			return Continue
		}
	}
	if def.LuaOnEnd != "" {
		k.OnEnd = func(ctx *Context, inst *effect.Instance) {
			callScript(ctx, def.LuaOnEnd, inst)
		}
	}
	return nil
}

func callScript(ctx *Context, hook string, inst *effect.Instance) lua.LValue {
	if ctx.Scripts == nil {
		ctx.Logger.Warn("scripted effect without scripting", append(observability.Effect(inst.Kind, inst.ID), zap.String("hook", hook))...)
		return lua.LNil
	}
	ret, err := ctx.Scripts.CallHook(hook, NewScriptTarget(ctx.Target), scripting.EffectInfo{
		ID:              inst.ID,
		Kind:            inst.Kind,
		Magnitude:       inst.Magnitude,
		RoundsRemaining: inst.RoundsRemaining,
	})
	if err != nil {
		ctx.Logger.Warn("effect hook failed", append(observability.Effect(inst.Kind, inst.ID), zap.String("hook", hook), zap.Error(err))...)
		return lua.LNil
	}
	return ret
}

func modeNames(modes []effect.Mode) string {
	return fmt.Sprint(modes)
}
