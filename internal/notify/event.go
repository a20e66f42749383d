// Package notify carries threshold-crossing and descriptive events from the
// simulation core to presentation collaborators.
package notify

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Type identifies the kind of event.
type Type string

const (
	TypeDeath             Type = "death"
	TypeExhausted         Type = "exhausted"
	TypeMagickaDepleted   Type = "magicka_depleted"
	TypeDiseaseContracted Type = "disease_contracted"
	TypeEffectEnded       Type = "effect_ended"
)

// Event is one notification about one entity.
type Event struct {
	ID       ulid.ULID `json:"id"`
	Type     Type      `json:"type"`
	EntityID string    `json:"entity_id"`
	// Text is descriptive text for presentation, e.g. a disease's contraction message.
	Text string    `json:"text,omitempty"`
	At   time.Time `json:"at"`
}

// New builds an Event stamped with a fresh ULID and the current time.
func New(t Type, entityID, text string) Event {
	return Event{
		ID:       ulid.Make(),
		Type:     t,
		EntityID: entityID,
		Text:     text,
		At:       time.Now().UTC(),
	}
}

// Sink consumes events. Implementations MUST NOT block the caller for long;
// they are invoked synchronously from within a simulation round.
//
//go:generate go tool mockgen -destination=mocks/sink_mock.go -package=mocks . Sink
type Sink interface {
	Notify(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

// Notify calls f(ev).
func (f SinkFunc) Notify(ev Event) { f(ev) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})
