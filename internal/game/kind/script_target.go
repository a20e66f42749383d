package kind

import (
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/scripting"
)

// scriptTarget exposes an entity to Lua hooks by resource and stat name.
type scriptTarget struct {
	e *entity.Entity
}

// NewScriptTarget adapts e to scripting.Target.
func NewScriptTarget(e *entity.Entity) scripting.Target {
	return scriptTarget{e: e}
}

func (t scriptTarget) ID() string { return t.e.ID() }

func (t scriptTarget) Current(resource string) (int, bool) {
	r, err := vitals.ParseResource(resource)
	if err != nil {
		return 0, false
	}
	return t.e.Pool().Current(r), true
}

func (t scriptTarget) Adjust(resource string, delta int) bool {
	r, err := vitals.ParseResource(resource)
	if err != nil {
		return false
	}
	if delta < 0 {
		t.e.Pool().Decrease(r, -delta)
	} else {
		t.e.Pool().Increase(r, delta)
	}
	return true
}

func (t scriptTarget) Drain(stat string, amount int) bool {
	s, err := vitals.ParseStat(stat)
	if err != nil {
		return false
	}
	t.e.Attributes().Drain(s, amount)
	return true
}
