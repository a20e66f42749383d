package effect

// Stacker decides how an incoming instance relates to an existing one.
type Stacker interface {
	// IsLikeKind reports whether incoming should merge into existing.
	IsLikeKind(incoming, existing *Instance) bool
	// AddState folds incoming into existing.
	AddState(existing, incoming *Instance)
}

// SameKind merges instances with equal Kind keys by adding their rounds.
type SameKind struct{}

// IsLikeKind reports whether both instances share a kind key.
func (SameKind) IsLikeKind(incoming, existing *Instance) bool {
	return incoming.Kind == existing.Kind
}

// AddState adds the incoming rounds to the existing instance.
func (SameKind) AddState(existing, incoming *Instance) {
	existing.RoundsRemaining += incoming.RoundsRemaining
}

// Set is an entity's ordered collection of active instances.
//
// It is not safe for concurrent use; the owning entity serialises access.
type Set struct {
	instances []*Instance
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Attach merges inc into the first like-kind instance already present, or
// inserts it as a new incumbent. It returns the instance that governs duration
// and whether a merge happened. A merged incoming instance is discarded.
//
// Precondition: inc must be non-nil. A nil st uses SameKind.
// Postcondition: on merge Len() is unchanged; otherwise it grows by one.
func (s *Set) Attach(inc *Instance, st Stacker) (*Instance, bool) {
	if st == nil {
		st = SameKind{}
	}
	for _, e := range s.instances {
		if e.Stage() == StageEnding {
			continue
		}
		if st.IsLikeKind(inc, e) {
			st.AddState(e, inc)
			return e, true
		}
	}
	s.instances = append(s.instances, inc)
	return inc, false
}

// Insert appends inst without incumbency checks. Used when resuming saved instances.
func (s *Set) Insert(inst *Instance) {
	s.instances = append(s.instances, inst)
}

// All returns a copy of the instances in attach order.
func (s *Set) All() []*Instance {
	out := make([]*Instance, len(s.instances))
	copy(out, s.instances)
	return out
}

// Len returns the number of instances.
func (s *Set) Len() int {
	return len(s.instances)
}

// Find returns the instance with id, or nil.
func (s *Set) Find(id string) *Instance {
	for _, e := range s.instances {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// ByKind returns every instance of kind.
func (s *Set) ByKind(kind string) []*Instance {
	var out []*Instance
	for _, e := range s.instances {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Remove deletes the instance with id. Removing an absent id is a no-op.
func (s *Set) Remove(id string) bool {
	for i, e := range s.instances {
		if e.ID == id {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveIf deletes every instance matching pred and returns them in order.
func (s *Set) RemoveIf(pred func(*Instance) bool) []*Instance {
	var removed []*Instance
	kept := s.instances[:0]
	for _, e := range s.instances {
		if pred(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.instances); i++ {
		s.instances[i] = nil
	}
	s.instances = kept
	return removed
}
