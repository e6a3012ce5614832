package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestField(t *testing.T) Field {
	t.Helper()
	field, err := NewField(5, 5)
	require.NoError(t, err)
	return field
}

func TestField_IsWithinBounds(t *testing.T) {
	field, err := NewField(10, 10)
	require.NoError(t, err)

	tests := []struct {
		name     string
		x, y     int
		expected bool
	}{
		{"origin", 0, 0, true},
		{"far corner", 9, 9, true},
		{"just outside both", 10, 10, false},
		{"negative x", -1, 0, false},
		{"negative y", 0, -1, false},
		{"x at width", 10, 5, false},
		{"y at height", 5, 10, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, field.IsWithinBounds(test.x, test.y))
		})
	}
}

func TestField_NonSquare(t *testing.T) {
	field, err := NewField(3, 7)
	require.NoError(t, err)

	assert.True(t, field.IsWithinBounds(2, 6))
	assert.False(t, field.IsWithinBounds(3, 6))
	assert.False(t, field.IsWithinBounds(2, 7))
}

func TestField_Contains(t *testing.T) {
	field := Field{Width: 3, Height: 2}

	assert.True(t, field.Contains(Position{X: 0, Y: 0}))
	assert.True(t, field.Contains(Position{X: 2, Y: 1}))
	assert.False(t, field.Contains(Position{X: 3, Y: 1}))
	assert.False(t, field.Contains(Position{X: 0, Y: -1}))
}

func TestNewField_RejectsNonPositive(t *testing.T) {
	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, -1}} {
		_, err := NewField(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidField, "dims %v", dims)
	}
}

func TestVehicle_Rotation(t *testing.T) {
	field := createTestField(t)

	tests := []struct {
		start    Heading
		command  string
		expected Heading
	}{
		{North, "L", West},
		{West, "L", South},
		{South, "L", East},
		{East, "L", North},
		{North, "R", East},
		{East, "R", South},
		{South, "R", West},
		{West, "R", North},
	}

	for _, test := range tests {
		t.Run(string(test.start)+test.command, func(t *testing.T) {
			v := NewVehicle("Test", 2, 2, test.start, MustParseCommands(test.command))
			v.ExecuteNextCommand(field)
			assert.Equal(t, test.expected, v.Heading())
			assert.Equal(t, Position{X: 2, Y: 2}, v.Position(), "turning must not move the vehicle")
		})
	}
}

func TestVehicle_RotationCycle(t *testing.T) {
	field := createTestField(t)

	for _, start := range []Heading{North, East, South, West} {
		for _, cmds := range []string{"LLLL", "RRRR"} {
			v := NewVehicle("Test", 2, 2, start, MustParseCommands(cmds))
			for v.HasNextCommand() {
				v.ExecuteNextCommand(field)
			}
			assert.Equal(t, start, v.Heading(), "%s from %s", cmds, start)
		}
	}
}

func TestVehicle_ForwardWithinBounds(t *testing.T) {
	field := createTestField(t)

	tests := []struct {
		heading  Heading
		expected Position
	}{
		{North, Position{X: 2, Y: 3}},
		{South, Position{X: 2, Y: 1}},
		{East, Position{X: 3, Y: 2}},
		{West, Position{X: 1, Y: 2}},
	}

	for _, test := range tests {
		t.Run(string(test.heading), func(t *testing.T) {
			v := NewVehicle("Test", 2, 2, test.heading, MustParseCommands("F"))
			v.ExecuteNextCommand(field)
			assert.Equal(t, test.expected, v.Position())
		})
	}
}

func TestVehicle_ForwardOutOfBoundsConsumesCommand(t *testing.T) {
	field := createTestField(t)

	edges := []struct {
		name    string
		x, y    int
		heading Heading
	}{
		{"south edge", 0, 0, South},
		{"west edge", 0, 3, West},
		{"north edge", 2, 4, North},
		{"east edge", 4, 1, East},
	}

	for _, edge := range edges {
		t.Run(edge.name, func(t *testing.T) {
			v := NewVehicle("Test", edge.x, edge.y, edge.heading, MustParseCommands("FL"))
			v.ExecuteNextCommand(field)

			assert.Equal(t, Position{X: edge.x, Y: edge.y}, v.Position())
			assert.Equal(t, 1, v.CommandIndex(), "blocked move must still consume the command")

			v.ExecuteNextCommand(field)
			assert.Equal(t, edge.heading.Left(), v.Heading(), "next call executes the following command")
		})
	}
}

func TestVehicle_MultipleCommands(t *testing.T) {
	field := createTestField(t)
	v := NewVehicle("Test", 1, 1, North, MustParseCommands("FRFL"))

	v.ExecuteNextCommand(field)
	assert.Equal(t, Position{X: 1, Y: 2}, v.Position())
	v.ExecuteNextCommand(field)
	assert.Equal(t, East, v.Heading())
	v.ExecuteNextCommand(field)
	assert.Equal(t, Position{X: 2, Y: 2}, v.Position())
	v.ExecuteNextCommand(field)
	assert.Equal(t, North, v.Heading())

	assert.False(t, v.HasNextCommand())
}

func TestVehicle_NoOpWhenExhausted(t *testing.T) {
	field := createTestField(t)
	v := NewVehicle("Test", 1, 1, North, nil)

	assert.False(t, v.HasNextCommand())
	for i := 0; i < 3; i++ {
		v.ExecuteNextCommand(field)
	}
	assert.Equal(t, Position{X: 1, Y: 1}, v.Position())
	assert.Equal(t, North, v.Heading())
	assert.Equal(t, 0, v.CommandIndex())
}

func TestVehicle_IdempotentAfterCollision(t *testing.T) {
	field := createTestField(t)
	v := NewVehicle("Test", 1, 1, North, MustParseCommands("FFRF"))

	v.ExecuteNextCommand(field)
	v.markCollided([]string{"Other"}, 1)

	pos, heading, idx := v.Position(), v.Heading(), v.CommandIndex()
	for i := 0; i < 5; i++ {
		v.ExecuteNextCommand(field)
	}

	assert.True(t, v.Collided())
	assert.Equal(t, pos, v.Position())
	assert.Equal(t, heading, v.Heading())
	assert.Equal(t, idx, v.CommandIndex())
	require.NotNil(t, v.Collision())
	assert.Equal(t, Collision{With: []string{"Other"}, Position: Position{X: 1, Y: 2}, Step: 1}, *v.Collision())
}

func TestVehicle_Reset(t *testing.T) {
	field := createTestField(t)
	v := NewVehicle("Test", 1, 1, North, MustParseCommands("FRF"))

	for v.HasNextCommand() {
		v.ExecuteNextCommand(field)
	}
	v.markCollided([]string{"X"}, 3)

	v.Reset()

	assert.Equal(t, Position{X: 1, Y: 1}, v.Position())
	assert.Equal(t, North, v.Heading())
	assert.Equal(t, 0, v.CommandIndex())
	assert.False(t, v.Collided())
	assert.Nil(t, v.Collision())
	assert.True(t, v.HasNextCommand())
}

func TestVehicle_UnknownCommandIgnored(t *testing.T) {
	field := createTestField(t)
	v := NewVehicle("Test", 1, 1, North, []Command{'X', MoveForward})

	v.ExecuteNextCommand(field)
	assert.Equal(t, Position{X: 1, Y: 1}, v.Position())
	assert.Equal(t, 1, v.CommandIndex())

	v.ExecuteNextCommand(field)
	assert.Equal(t, Position{X: 1, Y: 2}, v.Position())
}

func TestVehicle_Describe(t *testing.T) {
	v := NewVehicle("A", 1, 2, North, MustParseCommands("ffrl"))
	assert.Equal(t, "- A, (1,2) N, FFRL", v.Describe())
}

func TestVehicle_CommandsAreCopied(t *testing.T) {
	cmds := MustParseCommands("FF")
	v := NewVehicle("A", 0, 0, North, cmds)
	cmds[0] = TurnLeft

	assert.Equal(t, "FF", CommandString(v.Commands()))
}
