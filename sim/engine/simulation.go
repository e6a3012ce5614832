package engine

// Simulation runs a set of vehicles on a field in lockstep. Every step, each
// vehicle that has not collided and still has commands executes exactly one
// command, in registration order. Collisions are checked once all vehicles
// have moved.
type Simulation struct {
	field    Field
	vehicles []*Vehicle
	step     int
	trace    []StepRecord
}

// NewSimulation creates a simulation over field with vehicles in registration order
func NewSimulation(field Field, vehicles ...*Vehicle) *Simulation {
	return &Simulation{
		field:    field,
		vehicles: append([]*Vehicle(nil), vehicles...),
	}
}

// Run resets every vehicle and executes steps until no vehicle can advance.
// It returns one result per vehicle in registration order. The loop ends
// after at most max(len(commands)) steps.
func (s *Simulation) Run() []Result {
	s.step = 0
	s.trace = nil
	for _, v := range s.vehicles {
		v.Reset()
	}

	for s.hasActiveVehicle() {
		s.step++
		record := StepRecord{Step: s.step}

		for _, v := range s.vehicles {
			if !v.active() {
				continue
			}
			from, before := v.pos, v.heading
			cmd := v.commands[v.next]

			v.ExecuteNextCommand(s.field)

			record.Moves = append(record.Moves, MoveRecord{
				Vehicle:       v.name,
				Command:       string(rune(cmd)),
				From:          from,
				To:            v.pos,
				HeadingBefore: before,
				HeadingAfter:  v.heading,
				Blocked:       cmd == MoveForward && v.pos == from,
			})
		}

		record.Collisions = s.detectCollisions()
		s.trace = append(s.trace, record)
	}

	return s.Results()
}

// hasActiveVehicle reports whether at least one vehicle can still execute a command
func (s *Simulation) hasActiveVehicle() bool {
	for _, v := range s.vehicles {
		if v.active() {
			return true
		}
	}
	return false
}

// detectCollisions groups the not-yet-collided vehicles by cell and marks
// every member of a group of two or more as collided at the current step.
// Peer lists and groups keep registration order.
func (s *Simulation) detectCollisions() []CollisionGroup {
	occupants := make(map[Position][]*Vehicle)
	var cells []Position

	for _, v := range s.vehicles {
		if v.collided {
			continue
		}
		if _, seen := occupants[v.pos]; !seen {
			cells = append(cells, v.pos)
		}
		occupants[v.pos] = append(occupants[v.pos], v)
	}

	var groups []CollisionGroup
	for _, cell := range cells {
		group := occupants[cell]
		if len(group) < 2 {
			continue
		}

		names := make([]string, len(group))
		for i, v := range group {
			names[i] = v.name
		}

		for i, v := range group {
			others := make([]string, 0, len(group)-1)
			others = append(others, names[:i]...)
			others = append(others, names[i+1:]...)
			v.markCollided(others, s.step)
		}

		groups = append(groups, CollisionGroup{Position: cell, Vehicles: names})
	}

	return groups
}

// Results reports the current state of every vehicle in registration order
func (s *Simulation) Results() []Result {
	results := make([]Result, len(s.vehicles))
	for i, v := range s.vehicles {
		results[i] = v.Result()
	}
	return results
}

// Field returns the simulation field
func (s *Simulation) Field() Field {
	return s.field
}

// Vehicles returns the vehicles in registration order
func (s *Simulation) Vehicles() []*Vehicle {
	return append([]*Vehicle(nil), s.vehicles...)
}

// Step returns the number of steps executed by the last run
func (s *Simulation) Step() int {
	return s.step
}

// Trace returns the per-step record of the last run
func (s *Simulation) Trace() []StepRecord {
	return append([]StepRecord(nil), s.trace...)
}

// CollisionCount returns how many vehicles ended the last run collided
func (s *Simulation) CollisionCount() int {
	n := 0
	for _, v := range s.vehicles {
		if v.collided {
			n++
		}
	}
	return n
}
