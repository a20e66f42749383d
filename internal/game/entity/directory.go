package entity

import (
	"fmt"
	"sort"
	"sync"
)

// Lookup resolves entity IDs, e.g. an effect's caster.
type Lookup interface {
	// Get returns the entity with id, or (nil, false) if it no longer exists.
	Get(id string) (*Entity, bool)
}

// Directory tracks all live entities by ID.
// All methods are safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{entities: make(map[string]*Entity)}
}

// Add registers e.
//
// Precondition: e must be non-nil.
// Postcondition: Returns an error if an entity with the same ID is already registered.
func (d *Directory) Add(e *Entity) error {
	if e == nil {
		return fmt.Errorf("entity.Directory.Add: entity must not be nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entities[e.ID()]; ok {
		return fmt.Errorf("entity %q already registered", e.ID())
	}
	d.entities[e.ID()] = e
	return nil
}

// Remove deletes an entity by ID.
//
// Postcondition: Returns an error if the entity is not found.
func (d *Directory) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entities[id]; !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	delete(d.entities, id)
	return nil
}

// Get returns the entity with the given ID.
//
// Postcondition: Returns (e, true) if found, or (nil, false) otherwise.
func (d *Directory) Get(id string) (*Entity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[id]
	return e, ok
}

// All returns every entity ordered by ID.
func (d *Directory) All() []*Entity {
	d.mu.RLock()
	out := make([]*Entity, 0, len(d.entities))
	for _, e := range d.entities {
		out = append(out, e)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of registered entities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entities)
}
