package effect

// Record is the persisted form of an Instance.
type Record struct {
	ID              string `json:"id" db:"id"`
	Kind            string `json:"kind" db:"kind"`
	CasterID        string `json:"caster_id,omitempty" db:"caster_id"`
	Mode            string `json:"mode" db:"mode"`
	RoundsRemaining int    `json:"rounds_remaining" db:"rounds_remaining"`
	MagnitudeMin    int    `json:"magnitude_min" db:"magnitude_min"`
	MagnitudeMax    int    `json:"magnitude_max" db:"magnitude_max"`
	Magnitude       int    `json:"magnitude" db:"magnitude"`
	Chance          int    `json:"chance" db:"chance"`
	PhaseCounter    int    `json:"phase_counter" db:"phase_counter"`
	CyclesElapsed   int    `json:"cycles_elapsed" db:"cycles_elapsed"`
	CyclesRemaining int    `json:"cycles_remaining" db:"cycles_remaining"`
	IncubationOver  bool   `json:"incubation_over" db:"incubation_over"`
	Resolved        bool   `json:"resolved" db:"resolved"`
}

// Record captures the persisted fields of i.
func (i *Instance) Record() Record {
	return Record{
		ID:              i.ID,
		Kind:            i.Kind,
		CasterID:        i.CasterID,
		Mode:            i.Mode.String(),
		RoundsRemaining: i.RoundsRemaining,
		MagnitudeMin:    i.MagnitudeMin,
		MagnitudeMax:    i.MagnitudeMax,
		Magnitude:       i.Magnitude,
		Chance:          i.Chance,
		PhaseCounter:    i.Progress.PhaseCounter,
		CyclesElapsed:   i.Progress.CyclesElapsed,
		CyclesRemaining: i.Progress.CyclesRemaining,
		IncubationOver:  i.Progress.IncubationOver,
		Resolved:        i.Progress.Resolved,
	}
}

// FromRecord rebuilds an instance in the Resuming stage. Activating it
// re-enters Active without running start hooks.
//
// Postcondition: Returns an error only when rec.Mode is unknown.
func FromRecord(rec Record) (*Instance, error) {
	mode, err := ParseMode(rec.Mode)
	if err != nil {
		return nil, err
	}
	return &Instance{
		ID:              rec.ID,
		Kind:            rec.Kind,
		CasterID:        rec.CasterID,
		Mode:            mode,
		RoundsRemaining: rec.RoundsRemaining,
		MagnitudeMin:    rec.MagnitudeMin,
		MagnitudeMax:    rec.MagnitudeMax,
		Magnitude:       rec.Magnitude,
		Chance:          rec.Chance,
		Progress: Progress{
			PhaseCounter:    rec.PhaseCounter,
			CyclesElapsed:   rec.CyclesElapsed,
			CyclesRemaining: rec.CyclesRemaining,
			IncubationOver:  rec.IncubationOver,
			Resolved:        rec.Resolved,
		},
		stage: newStageMachine(StageResuming),
	}, nil
}
