// Package effect defines applied effect instances, their lifecycle stages and
// the active set that resolves incumbency when a new instance is attached.
package effect

import (
	"fmt"

	"github.com/google/uuid"
)

// Mode selects how an instance advances.
type Mode int

const (
	// Timed instances count RoundsRemaining down once per round.
	Timed Mode = iota
	// Constant instances re-apply every frame and never count down.
	Constant
	// Progression instances advance through a phase schedule.
	Progression
)

var modeNames = map[Mode]string{
	Timed:       "timed",
	Constant:    "constant",
	Progression: "progression",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown effect mode %q", s)
}

// Unbounded is the CyclesRemaining sentinel for progressions with no natural end.
const Unbounded = -1

// Progress holds the counters of a progression instance.
type Progress struct {
	// PhaseCounter counts rounds within the current tick-delay window.
	PhaseCounter    int
	CyclesElapsed   int
	CyclesRemaining int
	IncubationOver  bool
	Resolved        bool
}

// Instance is one applied effect owned by one entity.
//
// Instances reference their caster by ID only; the caster may no longer exist.
type Instance struct {
	ID       string
	Kind     string
	CasterID string
	Mode     Mode

	RoundsRemaining int

	MagnitudeMin int
	MagnitudeMax int
	// Magnitude is rolled once at start for frame contributions.
	Magnitude int
	Chance    int

	Progress Progress

	stage *stageMachine
}

// New creates an instance of kind in the Starting stage with a fresh ID.
func New(kind string, mode Mode) *Instance {
	return &Instance{
		ID:    uuid.NewString(),
		Kind:  kind,
		Mode:  mode,
		stage: newStageMachine(StageStarting),
	}
}

// Stage returns the lifecycle stage. An instance built as a literal starts in Starting.
func (i *Instance) Stage() Stage {
	return i.machine().current()
}

func (i *Instance) machine() *stageMachine {
	if i.stage == nil {
		i.stage = newStageMachine(StageStarting)
	}
	return i.stage
}

// Activate moves a Starting or Resuming instance to Active.
func (i *Instance) Activate() error {
	switch i.Stage() {
	case StageStarting:
		return i.machine().fire(eventStart)
	case StageResuming:
		return i.machine().fire(eventResume)
	}
	return fmt.Errorf("activating effect %s: stage %s", i.ID, i.Stage())
}

// End moves the instance to Ending. Ending an already-ending instance is a no-op.
func (i *Instance) End() error {
	if i.Stage() == StageEnding {
		return nil
	}
	return i.machine().fire(eventEnd)
}

// Active reports whether the instance is in the Active stage.
func (i *Instance) Active() bool {
	return i.Stage() == StageActive
}

// Expired reports whether a timed instance has no rounds left or a
// progression instance has resolved.
func (i *Instance) Expired() bool {
	switch i.Mode {
	case Timed:
		return i.RoundsRemaining <= 0
	case Progression:
		return i.Progress.Resolved
	}
	return false
}
