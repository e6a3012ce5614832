package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulation(t *testing.T, width, height int, vehicles ...*Vehicle) *Simulation {
	t.Helper()
	field, err := NewField(width, height)
	require.NoError(t, err)
	return NewSimulation(field, vehicles...)
}

func TestSimulation_SingleVehicle(t *testing.T) {
	sim := newTestSimulation(t, 10, 10,
		NewVehicle("A", 1, 2, North, MustParseCommands("FFRFFFFRRL")),
	)

	results := sim.Run()

	require.Len(t, results, 1)
	assert.Equal(t, Result{Name: "A", Position: Position{X: 5, Y: 4}, Heading: South}, results[0])
	assert.Equal(t, []string{"- A, (5,4) S"}, FormatResults(results))
	assert.Equal(t, 10, sim.Step())
}

func TestSimulation_Collision(t *testing.T) {
	sim := newTestSimulation(t, 10, 10,
		NewVehicle("A", 1, 2, North, MustParseCommands("FFRFFFFRRL")),
		NewVehicle("B", 7, 8, West, MustParseCommands("FFLFFFFFFF")),
	)

	results := sim.Run()

	assert.Equal(t, []string{
		"- A, collides with B at (5,4) at step 7",
		"- B, collides with A at (5,4) at step 7",
	}, FormatResults(results))

	require.NotNil(t, results[0].Collision)
	assert.Equal(t, []string{"B"}, results[0].Collision.With)
	assert.Equal(t, Position{X: 5, Y: 4}, results[0].Collision.Position)
	assert.Equal(t, 7, results[0].Collision.Step)

	// Both halted at step 7 with commands remaining, so the run ends there
	assert.Equal(t, 7, sim.Step())
	assert.Equal(t, 2, sim.CollisionCount())
	for _, v := range sim.Vehicles() {
		assert.Equal(t, 7, v.CommandIndex(), "%s consumed its step 7 command and nothing after", v.Name())
		assert.True(t, v.HasNextCommand())
	}
}

func TestSimulation_PartialCommands(t *testing.T) {
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 1, 1, North, MustParseCommands("F")),
		NewVehicle("B", 2, 2, East, MustParseCommands("FF")),
	)

	results := sim.Run()

	assert.Equal(t, []string{"- A, (1,2) N", "- B, (4,2) E"}, FormatResults(results))
	assert.Equal(t, 2, sim.Step())
}

func TestSimulation_NoCommands(t *testing.T) {
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 1, 1, North, nil),
	)

	results := sim.Run()

	assert.Equal(t, []string{"- A, (1,1) N"}, FormatResults(results))
	assert.Equal(t, 0, sim.Step())
	assert.Empty(t, sim.Trace())
}

func TestSimulation_NoVehicles(t *testing.T) {
	sim := newTestSimulation(t, 5, 5)

	assert.Empty(t, sim.Run())
	assert.Equal(t, 0, sim.Step())
}

func TestSimulation_ThreeWayCollision(t *testing.T) {
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 1, 0, North, MustParseCommands("F")),
		NewVehicle("B", 0, 1, East, MustParseCommands("F")),
		NewVehicle("C", 2, 1, West, MustParseCommands("F")),
	)

	results := sim.Run()

	assert.Equal(t, []string{
		"- A, collides with B, C at (1,1) at step 1",
		"- B, collides with A, C at (1,1) at step 1",
		"- C, collides with A, B at (1,1) at step 1",
	}, FormatResults(results))

	trace := sim.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, []CollisionGroup{{Position: Position{X: 1, Y: 1}, Vehicles: []string{"A", "B", "C"}}}, trace[0].Collisions)
}

func TestSimulation_SeparateCollisionsSameStep(t *testing.T) {
	sim := newTestSimulation(t, 6, 6,
		NewVehicle("A", 0, 1, East, MustParseCommands("F")),
		NewVehicle("B", 2, 1, West, MustParseCommands("F")),
		NewVehicle("C", 4, 3, North, MustParseCommands("F")),
		NewVehicle("D", 4, 5, South, MustParseCommands("F")),
	)

	results := sim.Run()

	assert.Equal(t, []string{
		"- A, collides with B at (1,1) at step 1",
		"- B, collides with A at (1,1) at step 1",
		"- C, collides with D at (4,4) at step 1",
		"- D, collides with C at (4,4) at step 1",
	}, FormatResults(results))
}

func TestSimulation_CollidedVehicleCannotBeHitAgain(t *testing.T) {
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 0, 1, East, MustParseCommands("F")),
		NewVehicle("B", 2, 1, West, MustParseCommands("F")),
		NewVehicle("C", 1, 3, South, MustParseCommands("FF")),
	)

	results := sim.Run()

	assert.Equal(t, []string{
		"- A, collides with B at (1,1) at step 1",
		"- B, collides with A at (1,1) at step 1",
		"- C, (1,1) S",
	}, FormatResults(results))
	assert.Equal(t, 2, sim.Step())
}

func TestSimulation_PassingThroughIsNotACollision(t *testing.T) {
	// Vehicles swapping cells within one step never share a cell at a step boundary
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 1, 1, East, MustParseCommands("F")),
		NewVehicle("B", 2, 1, West, MustParseCommands("F")),
	)

	results := sim.Run()

	assert.Equal(t, []string{"- A, (2,1) E", "- B, (1,1) W"}, FormatResults(results))
}

func TestSimulation_MoveIntoCellVacatedSameStep(t *testing.T) {
	// A moves first into the cell B leaves later in the same step
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 1, 1, East, MustParseCommands("F")),
		NewVehicle("B", 2, 1, East, MustParseCommands("F")),
	)

	results := sim.Run()

	assert.Equal(t, []string{"- A, (2,1) E", "- B, (3,1) E"}, FormatResults(results))
	assert.Equal(t, 0, sim.CollisionCount())
	for _, r := range results {
		assert.Nil(t, r.Collision, "%s should not collide", r.Name)
	}
}

func TestSimulation_StartingOnSameCellCollidesAfterFirstStep(t *testing.T) {
	sim := newTestSimulation(t, 5, 5,
		NewVehicle("A", 2, 2, North, MustParseCommands("LL")),
		NewVehicle("B", 2, 2, South, MustParseCommands("R")),
	)

	results := sim.Run()

	assert.Equal(t, []string{
		"- A, collides with B at (2,2) at step 1",
		"- B, collides with A at (2,2) at step 1",
	}, FormatResults(results))
	assert.Equal(t, West, results[0].Heading)
}

func TestSimulation_ReRunIsDeterministic(t *testing.T) {
	sim := newTestSimulation(t, 10, 10,
		NewVehicle("A", 1, 2, North, MustParseCommands("FFRFFFFRRL")),
		NewVehicle("B", 7, 8, West, MustParseCommands("FFLFFFFFFF")),
		NewVehicle("C", 0, 0, East, MustParseCommands("FFFFLFF")),
	)

	first := sim.Run()
	firstTrace := sim.Trace()
	firstStep := sim.Step()

	second := sim.Run()

	assert.Equal(t, first, second)
	assert.Equal(t, firstTrace, sim.Trace())
	assert.Equal(t, firstStep, sim.Step())
}

func TestSimulation_TerminatesWithinLongestCommandString(t *testing.T) {
	commandSets := [][]string{
		{"FFFFFFFFFFFFFFFFFFFF", "L", ""},
		{"RRRR", "FFFFFFFF", "LFLFLFLF"},
		{"", "", ""},
	}

	for _, set := range commandSets {
		var vehicles []*Vehicle
		longest := 0
		for i, cmds := range set {
			vehicles = append(vehicles, NewVehicle(string(rune('A'+i)), i, 0, North, MustParseCommands(cmds)))
			if len(cmds) > longest {
				longest = len(cmds)
			}
		}

		sim := newTestSimulation(t, 3, 3, vehicles...)
		sim.Run()

		assert.LessOrEqual(t, sim.Step(), longest, "commands %v", set)
	}
}

func TestSimulation_Trace(t *testing.T) {
	sim := newTestSimulation(t, 3, 3,
		NewVehicle("A", 0, 2, North, MustParseCommands("FR")),
		NewVehicle("B", 2, 0, West, MustParseCommands("F")),
	)

	sim.Run()
	trace := sim.Trace()

	require.Len(t, trace, 2)

	assert.Equal(t, 1, trace[0].Step)
	assert.Equal(t, []MoveRecord{
		{Vehicle: "A", Command: "F", From: Position{X: 0, Y: 2}, To: Position{X: 0, Y: 2}, HeadingBefore: North, HeadingAfter: North, Blocked: true},
		{Vehicle: "B", Command: "F", From: Position{X: 2, Y: 0}, To: Position{X: 1, Y: 0}, HeadingBefore: West, HeadingAfter: West},
	}, trace[0].Moves)
	assert.Empty(t, trace[0].Collisions)

	assert.Equal(t, []MoveRecord{
		{Vehicle: "A", Command: "R", From: Position{X: 0, Y: 2}, To: Position{X: 0, Y: 2}, HeadingBefore: North, HeadingAfter: East},
	}, trace[1].Moves)
}

func TestSimulation_VehiclesSliceIsOwned(t *testing.T) {
	a := NewVehicle("A", 0, 0, North, MustParseCommands("F"))
	vehicles := []*Vehicle{a}
	sim := newTestSimulation(t, 3, 3, vehicles...)

	vehicles[0] = NewVehicle("Z", 2, 2, South, nil)

	require.Len(t, sim.Vehicles(), 1)
	assert.Equal(t, "A", sim.Vehicles()[0].Name())
}
