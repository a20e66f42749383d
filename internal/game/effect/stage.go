package effect

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Stage is an instance lifecycle stage.
type Stage string

const (
	StageStarting Stage = "starting"
	StageResuming Stage = "resuming"
	StageActive   Stage = "active"
	StageEnding   Stage = "ending"
)

const (
	eventStart  = "start"
	eventResume = "resume"
	eventEnd    = "end"
)

type stageMachine struct {
	f *fsm.FSM
}

func newStageMachine(initial Stage) *stageMachine {
	return &stageMachine{f: fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StageStarting)}, Dst: string(StageActive)},
			{Name: eventResume, Src: []string{string(StageResuming)}, Dst: string(StageActive)},
			{Name: eventEnd, Src: []string{string(StageStarting), string(StageResuming), string(StageActive)}, Dst: string(StageEnding)},
		},
		fsm.Callbacks{},
	)}
}

func (m *stageMachine) current() Stage {
	return Stage(m.f.Current())
}

// fire triggers event. Transitions are synchronous and never block.
func (m *stageMachine) fire(event string) error {
	if err := m.f.Event(context.Background(), event); err != nil {
		return fmt.Errorf("effect stage %s: %w", event, err)
	}
	return nil
}
