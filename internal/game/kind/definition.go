package kind

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DeltaDef adjusts either a resource or a stat when a phase fires.
type DeltaDef struct {
	Resource string `yaml:"resource"`
	Stat     string `yaml:"stat"`
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
}

// PhaseDef covers cycles From..To inclusive. An omitted To covers From only;
// To of -1 leaves the phase open-ended.
type PhaseDef struct {
	From   int        `yaml:"from"`
	To     *int       `yaml:"to"`
	Deltas []DeltaDef `yaml:"deltas"`
}

// ProgressionDef is the YAML form of a phase schedule.
type ProgressionDef struct {
	TickDelay int        `yaml:"tick_delay"`
	Cycles    int        `yaml:"cycles"` // -1 = unbounded
	Permanent bool       `yaml:"permanent"`
	Phases    []PhaseDef `yaml:"phases"`
}

// Definition is the static definition of an effect kind, loaded from YAML.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Behavior    string `yaml:"behavior"`
	Mode        string `yaml:"mode"`     // "timed" | "constant" | "progression"; empty uses the behavior default
	Stacking    string `yaml:"stacking"` // "merge" (default) | "independent"
	LikeGroup   string `yaml:"like_group"`
	Element     string `yaml:"element"`
	Absorbable  bool   `yaml:"absorbable"`
	Chance      int    `yaml:"chance"` // 0 = always applies
	Rounds      int    `yaml:"rounds"`
	Magnitude   Range  `yaml:"magnitude"`

	Resource string   `yaml:"resource"`
	Stat     string   `yaml:"stat"`
	Value    string   `yaml:"value"`
	Flags    []string `yaml:"flags"`

	ContractedText string          `yaml:"contracted_text"`
	Progression    *ProgressionDef `yaml:"progression"`

	LuaOnStart string `yaml:"lua_on_start"`
	LuaOnTick  string `yaml:"lua_on_tick"`
	LuaOnEnd   string `yaml:"lua_on_end"`
}

// LoadDefinitions reads every *.yaml file in dir and parses each as a
// Definition. Unknown fields are rejected.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns definitions ordered by file name, or an error if any file fails to parse.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ParseDefinition decodes a single YAML definition, rejecting unknown fields.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	return &def, nil
}
