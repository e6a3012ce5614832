package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// VehicleSpec is the user-facing definition of a vehicle before it is built
type VehicleSpec struct {
	Name     string `json:"name" yaml:"name"`
	X        int    `json:"x" yaml:"x"`
	Y        int    `json:"y" yaml:"y"`
	Heading  string `json:"heading" yaml:"heading"`
	Commands string `json:"commands" yaml:"commands"`
}

// Scenario is a field plus an ordered list of vehicles, loadable from JSON or YAML
type Scenario struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Field       Field         `json:"field" yaml:"field"`
	Vehicles    []VehicleSpec `json:"vehicles" yaml:"vehicles"`

	// Expected optionally lists the result lines a run must produce
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// ValidateVehicleSpec checks a vehicle definition against the field and the
// vehicles already registered. It returns the normalized spec (trimmed name,
// upper-case heading and commands).
func ValidateVehicleSpec(field Field, existing []VehicleSpec, spec VehicleSpec) (VehicleSpec, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return spec, ErrEmptyName
	}
	for _, other := range existing {
		if other.Name == spec.Name {
			return spec, fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
		}
	}

	heading, err := ParseHeading(spec.Heading)
	if err != nil {
		return spec, fmt.Errorf("vehicle %q: %w", spec.Name, err)
	}
	spec.Heading = heading.String()

	if !field.IsWithinBounds(spec.X, spec.Y) {
		return spec, fmt.Errorf("%w: vehicle %q at (%d,%d) on a %s field", ErrOutOfBounds, spec.Name, spec.X, spec.Y, field)
	}

	commands, err := ParseCommands(spec.Commands)
	if err != nil {
		return spec, fmt.Errorf("vehicle %q: %w", spec.Name, err)
	}
	spec.Commands = CommandString(commands)

	return spec, nil
}

// ValidateScenario validates the field and every vehicle, normalizing the
// vehicle specs in place.
func ValidateScenario(s *Scenario) error {
	if s == nil {
		return fmt.Errorf("scenario validation: scenario is nil")
	}
	if _, err := NewField(s.Field.Width, s.Field.Height); err != nil {
		return fmt.Errorf("scenario validation: %w", err)
	}

	accepted := make([]VehicleSpec, 0, len(s.Vehicles))
	for i, spec := range s.Vehicles {
		normalized, err := ValidateVehicleSpec(s.Field, accepted, spec)
		if err != nil {
			return fmt.Errorf("scenario validation: vehicle %d: %w", i+1, err)
		}
		accepted = append(accepted, normalized)
	}
	s.Vehicles = accepted

	return nil
}

// Clone returns a copy of the scenario that shares no slices with s
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	c := *s
	c.Vehicles = slices.Clone(s.Vehicles)
	c.Expected = slices.Clone(s.Expected)
	return &c
}

// BuildVehicle constructs a Vehicle from a spec that already passed validation
func BuildVehicle(spec VehicleSpec) (*Vehicle, error) {
	heading, err := ParseHeading(spec.Heading)
	if err != nil {
		return nil, err
	}
	commands, err := ParseCommands(spec.Commands)
	if err != nil {
		return nil, err
	}
	return NewVehicle(spec.Name, spec.X, spec.Y, heading, commands), nil
}

// Build validates a copy of the scenario and returns a simulation ready to
// run. The receiver is left untouched.
func (s *Scenario) Build() (*Simulation, error) {
	if s == nil {
		return nil, fmt.Errorf("scenario validation: scenario is nil")
	}
	valid := s.Clone()
	if err := ValidateScenario(valid); err != nil {
		return nil, err
	}

	vehicles := make([]*Vehicle, 0, len(valid.Vehicles))
	for _, spec := range valid.Vehicles {
		v, err := BuildVehicle(spec)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return NewSimulation(valid.Field, vehicles...), nil
}

// LoadScenario loads a scenario from a .json, .yaml or .yml file and validates it
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := DecodeScenario(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario '%s': %w", path, err)
	}

	if err := ValidateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario '%s': %w", path, err)
	}

	return s, nil
}

// DecodeScenario decodes raw scenario data. ext selects the format; anything
// other than .yaml or .yml is treated as JSON.
func DecodeScenario(data []byte, ext string) (*Scenario, error) {
	var s Scenario
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// DefaultScenario returns the two-vehicle collision example
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:        "default",
		Description: "Two vehicles on a 10 x 10 field that meet at (5,4) on step 7",
		Field:       Field{Width: 10, Height: 10},
		Vehicles: []VehicleSpec{
			{Name: "A", X: 1, Y: 2, Heading: "N", Commands: "FFRFFFFRRL"},
			{Name: "B", X: 7, Y: 8, Heading: "W", Commands: "FFLFFFFFFF"},
		},
		Expected: []string{
			"- A, collides with B at (5,4) at step 7",
			"- B, collides with A at (5,4) at step 7",
		},
	}
}
