package engine

import "fmt"

// Vehicle holds a vehicle's origin, its command sequence and its run state.
// Once collided, a vehicle never executes another command and its position
// and heading stay at the collision point until Reset.
type Vehicle struct {
	name           string
	initialPos     Position
	initialHeading Heading
	commands       []Command

	pos       Position
	heading   Heading
	next      int
	collided  bool
	collision *Collision
}

// NewVehicle creates a vehicle at its origin. Inputs are expected to be
// validated already (see ValidateVehicleSpec).
func NewVehicle(name string, x, y int, heading Heading, commands []Command) *Vehicle {
	v := &Vehicle{
		name:           name,
		initialPos:     Position{X: x, Y: y},
		initialHeading: heading,
		commands:       append([]Command(nil), commands...),
	}
	v.Reset()
	return v
}

// Reset restores the run state from the origin and clears any collision
func (v *Vehicle) Reset() {
	v.pos = v.initialPos
	v.heading = v.initialHeading
	v.next = 0
	v.collided = false
	v.collision = nil
}

// HasNextCommand reports whether any command remains
func (v *Vehicle) HasNextCommand() bool {
	return v.next < len(v.commands)
}

// active reports whether the vehicle takes part in the next step
func (v *Vehicle) active() bool {
	return !v.collided && v.HasNextCommand()
}

// ExecuteNextCommand consumes and applies one command. It is a no-op once
// the vehicle has collided or run out of commands. A forward move that
// would leave the field is dropped, but the command is still consumed.
func (v *Vehicle) ExecuteNextCommand(field Field) {
	if !v.active() {
		return
	}

	cmd := v.commands[v.next]
	v.next++

	switch cmd {
	case TurnLeft:
		v.heading = v.heading.Left()
	case TurnRight:
		v.heading = v.heading.Right()
	case MoveForward:
		d := v.heading.Delta()
		next := Position{X: v.pos.X + d.X, Y: v.pos.Y + d.Y}
		if field.Contains(next) {
			v.pos = next
		}
	}
	// Anything else is ignored
}

// markCollided freezes the vehicle at its current position
func (v *Vehicle) markCollided(with []string, step int) {
	v.collided = true
	v.collision = &Collision{
		With:     with,
		Position: v.pos,
		Step:     step,
	}
}

// Name returns the vehicle's identity
func (v *Vehicle) Name() string {
	return v.name
}

// Position returns the current position
func (v *Vehicle) Position() Position {
	return v.pos
}

// Heading returns the current heading
func (v *Vehicle) Heading() Heading {
	return v.heading
}

// Collided reports whether the vehicle has been in a collision this run
func (v *Vehicle) Collided() bool {
	return v.collided
}

// Collision returns the collision detail, or nil if the vehicle has not collided
func (v *Vehicle) Collision() *Collision {
	return v.collision
}

// CommandIndex returns the index of the next command to execute
func (v *Vehicle) CommandIndex() int {
	return v.next
}

// Commands returns a copy of the command sequence
func (v *Vehicle) Commands() []Command {
	return append([]Command(nil), v.commands...)
}

// InitialPosition returns the origin position
func (v *Vehicle) InitialPosition() Position {
	return v.initialPos
}

// InitialHeading returns the origin heading
func (v *Vehicle) InitialHeading() Heading {
	return v.initialHeading
}

// Result builds the vehicle's report from its current state
func (v *Vehicle) Result() Result {
	r := Result{
		Name:     v.name,
		Position: v.pos,
		Heading:  v.heading,
		Collided: v.collided,
	}
	if v.collision != nil {
		c := *v.collision
		c.With = append([]string(nil), v.collision.With...)
		r.Collision = &c
	}
	return r
}

// Describe renders the registration line, e.g. "- A, (1,2) N, FFRFFFFRRL"
func (v *Vehicle) Describe() string {
	return fmt.Sprintf("- %s, %s %s, %s", v.name, v.initialPos, v.initialHeading, CommandString(v.commands))
}
