package simulation

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/game/effect"
	"github.com/cory-johannsen/vitals/internal/game/entity"
)

// World owns every live entity and advances them one round at a time.
//
// Invariant: mutation goes through the world token, so one entity's round
// never interleaves with another's, and a caster touched by a transfer is never
// mutated concurrently. Each entity's own lock is also held while it is mutated
// so direct readers observe consistent state.
type World struct {
	mu     sync.Mutex
	dir    *entity.Directory
	runner *Runner
	round  uint64
	logger *zap.Logger
}

// NewWorld creates a World over dir.
//
// Precondition: dir, runner and logger must be non-nil; runner should resolve
// casters through dir.
func NewWorld(dir *entity.Directory, runner *Runner, logger *zap.Logger) *World {
	if dir == nil || runner == nil || logger == nil {
		panic("simulation: NewWorld requires non-nil directory, runner and logger")
	}
	return &World{dir: dir, runner: runner, logger: logger}
}

// Runner returns the world's runner.
func (w *World) Runner() *Runner { return w.runner }

// Round returns the number of completed rounds.
func (w *World) Round() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.round
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.dir.Len() }

// Spawn adds e to the world.
func (w *World) Spawn(e *entity.Entity) error {
	return w.dir.Add(e)
}

// Despawn removes the entity with id. Effects cast by it degrade on their
// next tick.
func (w *World) Despawn(id string) error {
	if err := w.dir.Remove(id); err != nil {
		return fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	return nil
}

// TickAll advances every entity by one round in ID order and returns the
// round number just completed.
func (w *World) TickAll() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.dir.All() {
		e.With(w.runner.TickRound)
	}
	w.round++
	w.logger.Debug("round complete", zap.Uint64("round", w.round), zap.Int("entities", w.dir.Len()))
	return w.round
}

// Do runs fn with exclusive access to the entity with id.
func (w *World) Do(id string, fn func(e *entity.Entity)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.dir.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	e.With(fn)
	return nil
}

// Apply attaches a new instance of kindID, cast by casterID, to the entity
// with id.
func (w *World) Apply(id, kindID, casterID string) (inst *effect.Instance, res AttachResult, err error) {
	doErr := w.Do(id, func(e *entity.Entity) {
		inst, res, err = w.runner.Apply(e, kindID, casterID)
	})
	if doErr != nil {
		return nil, Failed, doErr
	}
	return inst, res, err
}

// Cure cures the instance instanceID on the entity with id.
func (w *World) Cure(id, instanceID string) (cured bool, err error) {
	err = w.Do(id, func(e *entity.Entity) {
		cured = w.runner.Cure(e, instanceID)
	})
	return cured, err
}

// Snapshots captures every entity in ID order.
func (w *World) Snapshots() []entity.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := w.dir.All()
	out := make([]entity.Snapshot, 0, len(all))
	for _, e := range all {
		e.With(func(e *entity.Entity) {
			out = append(out, w.runner.Snapshot(e))
		})
	}
	return out
}
