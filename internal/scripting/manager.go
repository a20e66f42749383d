package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/dice"
)

// Target is the entity an effect hook acts on.
type Target interface {
	ID() string
	// Current returns the current value of the named resource.
	Current(resource string) (int, bool)
	// Adjust changes the named resource by delta through clamped writes.
	Adjust(resource string, delta int) bool
	// Drain adds amount of drain to the named stat.
	Drain(stat string, amount int) bool
}

// EffectInfo is a snapshot of the calling effect instance passed to hooks.
type EffectInfo struct {
	ID              string
	Kind            string
	Magnitude       int
	RoundsRemaining int
}

// Manager owns the sandboxed VM that runs effect scripts.
//
// A single LState is single-threaded; the mutex serialises every call.
type Manager struct {
	mu     sync.Mutex
	L      *lua.LState
	cancel func()
	limit  int
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil || logger == nil {
		panic("scripting: NewManager requires non-nil roller and logger")
	}
	return &Manager{roller: roller, logger: logger}
}

// Load creates a fresh sandboxed VM, registers the engine.* modules, then
// executes every *.lua file in scriptDir in lexicographic order. A previously
// loaded VM is replaced only on success.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns error on read or Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		cancel()
		cancel = Budget(L, instLimit)
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.L != nil {
		m.cancel()
		m.L.Close()
	}
	m.L = L
	m.cancel = cancel
	m.limit = instLimit
	m.mu.Unlock()

	m.logger.Info("effect scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(luaFiles)))
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function as hook(target, effect).
// Returns (LNil, nil) if no scripts are loaded or the hook is not defined.
// Lua runtime errors, including an exhausted instruction budget, are logged
// at Warn level and never propagated.
//
// Precondition: target must be non-nil.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, target Target, info EffectInfo) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		m.logger.Debug("scripting: no VM loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}
	L := m.L

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	m.cancel()
	m.cancel = Budget(L, m.limit)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, newTargetTable(L, target), newEffectTable(L, info)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.String("entity", target.ID()),
			zap.String("kind", info.Kind),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.cancel()
		m.L.Close()
		m.L = nil
	}
}
