// Package modifier implements the per-frame aggregate of transient modifiers
// contributed by an entity's active effects.
package modifier

import "fmt"

// Flag is a boolean capability granted by an effect.
type Flag uint16

const (
	ImmuneToParalysis Flag = 1 << iota
	ImmuneToDisease
	Silenced
	WaterWalking
	WaterBreathing
	EnhancedClimbing
	EnhancedJumping
	SlowFalling
	SpellAbsorbing
)

var flagNames = map[Flag]string{
	ImmuneToParalysis: "immune_to_paralysis",
	ImmuneToDisease:   "immune_to_disease",
	Silenced:          "silenced",
	WaterWalking:      "water_walking",
	WaterBreathing:    "water_breathing",
	EnhancedClimbing:  "enhanced_climbing",
	EnhancedJumping:   "enhanced_jumping",
	SlowFalling:       "slow_falling",
	SpellAbsorbing:    "spell_absorbing",
}

func (f Flag) String() string {
	if s, ok := flagNames[f]; ok {
		return s
	}
	return fmt.Sprintf("flag(%d)", uint16(f))
}

// ParseFlag maps a flag name to a Flag.
func ParseFlag(s string) (Flag, error) {
	for f, name := range flagNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown flag %q", s)
}

// Element is a damage element with its own resistance.
type Element int

const (
	Fire Element = iota
	Frost
	DiseaseOrPoison
	Shock
	Magic
)

var elementNames = map[Element]string{
	Fire:            "fire",
	Frost:           "frost",
	DiseaseOrPoison: "disease_or_poison",
	Shock:           "shock",
	Magic:           "magic",
}

func (e Element) String() string {
	if s, ok := elementNames[e]; ok {
		return s
	}
	return fmt.Sprintf("element(%d)", int(e))
}

// ParseElement maps an element name to an Element.
func ParseElement(s string) (Element, error) {
	for e, name := range elementNames {
		if name == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown element %q", s)
}

// Value identifies a numeric modifier.
type Value int

const (
	// MagickaMax is additive.
	MagickaMax Value = iota
	// HealthLimit keeps the lowest positive request.
	HealthLimit
	// WeightAllowance keeps the highest request.
	WeightAllowance
	// IncreasedArmor keeps the lowest non-zero request.
	IncreasedArmor
	// DecreasedArmor keeps the lowest non-zero request.
	DecreasedArmor
	// HitChance is additive.
	HitChance
)

var valueNames = map[Value]string{
	MagickaMax:      "magicka_max",
	HealthLimit:     "health_limit",
	WeightAllowance: "weight_allowance",
	IncreasedArmor:  "increased_armor",
	DecreasedArmor:  "decreased_armor",
	HitChance:       "hit_chance",
}

func (v Value) String() string {
	if s, ok := valueNames[v]; ok {
		return s
	}
	return fmt.Sprintf("value(%d)", int(v))
}

// ParseValue maps a numeric modifier name to a Value.
func ParseValue(s string) (Value, error) {
	for v, name := range valueNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown modifier value %q", s)
}
