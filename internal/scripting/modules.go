package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.range(min, max)  -- inclusive
//	engine.dice.chance(percent)  -- boolean
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.newLogModule(L))
	L.SetField(engine, "dice", m.newDiceModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) newDiceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "range", L.NewFunction(func(L *lua.LState) int {
		lo, hi := L.CheckInt(1), L.CheckInt(2)
		L.Push(lua.LNumber(m.roller.Range("lua", lo, hi).Value))
		return 1
	}))
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Chance("lua", L.CheckInt(1))))
		return 1
	}))
	return mod
}

// argBase returns the stack index of the first real argument, so methods work
// with both target.f(x) and target:f(x).
func argBase(L *lua.LState) int {
	if L.GetTop() > 0 {
		if _, ok := L.Get(1).(*lua.LTable); ok {
			return 2
		}
	}
	return 1
}

func newTargetTable(L *lua.LState, t Target) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(t.ID()))
	L.SetField(tbl, "current", L.NewFunction(func(L *lua.LState) int {
		b := argBase(L)
		v, ok := t.Current(L.CheckString(b))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(v))
		return 1
	}))
	L.SetField(tbl, "adjust", L.NewFunction(func(L *lua.LState) int {
		b := argBase(L)
		L.Push(lua.LBool(t.Adjust(L.CheckString(b), L.CheckInt(b+1))))
		return 1
	}))
	L.SetField(tbl, "drain", L.NewFunction(func(L *lua.LState) int {
		b := argBase(L)
		L.Push(lua.LBool(t.Drain(L.CheckString(b), L.CheckInt(b+1))))
		return 1
	}))
	return tbl
}

func newEffectTable(L *lua.LState, info EffectInfo) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(info.ID))
	L.SetField(tbl, "kind", lua.LString(info.Kind))
	L.SetField(tbl, "magnitude", lua.LNumber(info.Magnitude))
	L.SetField(tbl, "rounds_remaining", lua.LNumber(info.RoundsRemaining))
	return tbl
}
