// Package engine provides the core simulation logic for autonomous vehicles
// moving on a bounded grid.
//
// The engine package implements:
//   - Field bounds checking
//   - Heading rotation and per-vehicle command interpretation (L, R, F)
//   - Lockstep execution of all vehicles, one command per vehicle per step
//   - Collision detection at step boundaries
//   - Scenario definitions and their validation
//
// Core Types:
//
// Field is an immutable rectangle of valid positions. Vehicle holds the
// origin state, the command sequence and the mutable run state of a single
// vehicle. Simulation owns a Field and an ordered set of vehicles and runs
// them to completion, returning one Result per vehicle in registration order.
//
// Usage:
//
//	field, err := engine.NewField(10, 10)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	a := engine.NewVehicle("A", 1, 2, engine.North, engine.MustParseCommands("FFRFFFFRRL"))
//	b := engine.NewVehicle("B", 7, 8, engine.West, engine.MustParseCommands("FFLFFFFFFF"))
//
//	sim := engine.NewSimulation(field, a, b)
//	for _, r := range sim.Run() {
//		fmt.Println(r)
//	}
//
// Rules:
//
// A forward move that would leave the field is dropped, but the command is
// still consumed. After every step, vehicles that share a cell are marked as
// collided and never execute another command. Running a Simulation again
// resets every vehicle to its origin, so repeated runs give the same output.
package engine
