package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Heading is one of the four cardinal directions a vehicle faces
type Heading string

const (
	North Heading = "N"
	East  Heading = "E"
	South Heading = "S"
	West  Heading = "W"
)

// Command is a single-letter vehicle directive
type Command byte

const (
	TurnLeft    Command = 'L'
	TurnRight   Command = 'R'
	MoveForward Command = 'F'
)

var (
	ErrInvalidField   = errors.New("invalid field")
	ErrEmptyName      = errors.New("vehicle name is required")
	ErrDuplicateName  = errors.New("duplicate vehicle name")
	ErrInvalidHeading = errors.New("invalid heading")
	ErrInvalidCommand = errors.New("invalid command")
	ErrOutOfBounds    = errors.New("position outside field")
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// String renders the position as "(x,y)"
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Collision records who a vehicle collided with, where and when
type Collision struct {
	With     []string `json:"with"`
	Position Position `json:"position"`
	Step     int      `json:"step"`
}

// Result is the final report for a single vehicle after a run
type Result struct {
	Name      string     `json:"name"`
	Position  Position   `json:"position"`
	Heading   Heading    `json:"heading"`
	Collided  bool       `json:"collided"`
	Collision *Collision `json:"collision,omitempty"`
}

// String renders the result line shown to users:
//
//	- A, (5,4) S
//	- A, collides with B at (5,4) at step 7
func (r Result) String() string {
	if r.Collided && r.Collision != nil {
		return fmt.Sprintf("- %s, collides with %s at %s at step %d",
			r.Name, strings.Join(r.Collision.With, ", "), r.Collision.Position, r.Collision.Step)
	}
	return fmt.Sprintf("- %s, %s %s", r.Name, r.Position, r.Heading)
}

// FormatResults renders every result as a line, preserving order
func FormatResults(results []Result) []string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.String()
	}
	return lines
}

// MoveRecord captures what one vehicle did during a step
type MoveRecord struct {
	Vehicle       string   `json:"vehicle"`
	Command       string   `json:"command"`
	From          Position `json:"from"`
	To            Position `json:"to"`
	HeadingBefore Heading  `json:"heading_before"`
	HeadingAfter  Heading  `json:"heading_after"`
	Blocked       bool     `json:"blocked,omitempty"` // forward move dropped at the field edge
}

// CollisionGroup lists the vehicles found sharing a cell at the end of a step
type CollisionGroup struct {
	Position Position `json:"position"`
	Vehicles []string `json:"vehicles"`
}

// StepRecord is the trace of a single lockstep round
type StepRecord struct {
	Step       int              `json:"step"`
	Moves      []MoveRecord     `json:"moves"`
	Collisions []CollisionGroup `json:"collisions,omitempty"`
}
