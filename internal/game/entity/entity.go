// Package entity binds one creature's vital pool, attributes, modifier
// aggregate and active effects behind a single exclusive-access token.
package entity

import (
	"sync"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/modifier"
	"github.com/cory-johannsen/vitals/internal/game/vitals"
	"github.com/cory-johannsen/vitals/internal/notify"
)

// Entity is one simulated creature.
//
// Every mutation of an entity's state must happen while its lock is held;
// the simulation holds it for the whole of the entity's round.
type Entity struct {
	mu sync.Mutex

	id    string
	Level int
	// Submerged entities consume breath each round.
	Submerged bool

	attrs   *vitals.Attributes
	pool    *vitals.Pool
	mods    *modifier.Aggregator
	effects *effect.Set
}

// New creates an entity whose pool reports threshold crossings to sink.
//
// Precondition: id must be non-empty; attrs must be non-nil.
func New(id string, level int, attrs *vitals.Attributes, sink notify.Sink) *Entity {
	if id == "" {
		panic("entity: New requires a non-empty id")
	}
	if attrs == nil {
		panic("entity: New requires non-nil attributes")
	}
	return &Entity{
		id:      id,
		Level:   level,
		attrs:   attrs,
		pool:    vitals.NewPool(id, attrs, sink),
		mods:    modifier.New(),
		effects: effect.NewSet(),
	}
}

// ID returns the entity identifier.
func (e *Entity) ID() string { return e.id }

// Pool returns the vital resource pool.
func (e *Entity) Pool() *vitals.Pool { return e.pool }

// Attributes returns the primary attributes.
func (e *Entity) Attributes() *vitals.Attributes { return e.attrs }

// Modifiers returns the per-frame modifier aggregate.
func (e *Entity) Modifiers() *modifier.Aggregator { return e.mods }

// Effects returns the active effect set.
func (e *Entity) Effects() *effect.Set { return e.effects }

// Lock acquires exclusive access to the entity.
func (e *Entity) Lock() { e.mu.Lock() }

// Unlock releases exclusive access.
func (e *Entity) Unlock() { e.mu.Unlock() }

// With runs fn while holding the entity's lock.
func (e *Entity) With(fn func(*Entity)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

// Snapshot is the persisted form of an entity.
type Snapshot struct {
	ID         string                   `json:"id"`
	Level      int                      `json:"level"`
	Submerged  bool                     `json:"submerged"`
	Vitals     vitals.Snapshot          `json:"vitals"`
	Attributes vitals.AttributeSnapshot `json:"attributes"`
	Effects    []effect.Record          `json:"effects"`
}
