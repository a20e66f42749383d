// Package vitals models an entity's clamped vital resources and the primary
// attributes they are derived from.
package vitals

import "fmt"

// Resource identifies one of the four vital resources.
type Resource int

const (
	Health Resource = iota
	Fatigue
	Magicka
	Breath
)

// Resources lists every resource in a stable order.
var Resources = []Resource{Health, Fatigue, Magicka, Breath}

var resourceNames = map[Resource]string{
	Health:  "health",
	Fatigue: "fatigue",
	Magicka: "magicka",
	Breath:  "breath",
}

// String returns the lowercase resource name.
func (r Resource) String() string {
	if s, ok := resourceNames[r]; ok {
		return s
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// ParseResource maps a lowercase name to a Resource.
//
// Postcondition: Returns an error for any name not in Resources.
func ParseResource(s string) (Resource, error) {
	for r, name := range resourceNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// Stat identifies a primary attribute.
type Stat int

const (
	Strength Stat = iota
	Intelligence
	Willpower
	Agility
	Endurance
	Personality
	Speed
	Luck
	numStats
)

// Stats lists every primary attribute in a stable order.
var Stats = []Stat{Strength, Intelligence, Willpower, Agility, Endurance, Personality, Speed, Luck}

var statNames = [numStats]string{
	"strength", "intelligence", "willpower", "agility",
	"endurance", "personality", "speed", "luck",
}

// Valid reports whether s names a primary attribute.
func (s Stat) Valid() bool {
	return s >= 0 && s < numStats
}

// String returns the lowercase attribute name.
func (s Stat) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

// ParseStat maps a lowercase name to a Stat.
func ParseStat(s string) (Stat, error) {
	for i, name := range statNames {
		if name == s {
			return Stat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stat %q", s)
}
