package engine

import (
	"fmt"
	"strings"
)

var (
	leftOf  = map[Heading]Heading{North: West, West: South, South: East, East: North}
	rightOf = map[Heading]Heading{North: East, East: South, South: West, West: North}

	// Forward step per heading. North increases y.
	deltas = map[Heading]Position{
		North: {X: 0, Y: 1},
		South: {X: 0, Y: -1},
		East:  {X: 1, Y: 0},
		West:  {X: -1, Y: 0},
	}
)

// ParseHeading parses a case-insensitive N, S, E or W
func ParseHeading(s string) (Heading, error) {
	h := Heading(strings.ToUpper(strings.TrimSpace(s)))
	if !h.Valid() {
		return "", fmt.Errorf("%w: %q (expected N, S, E or W)", ErrInvalidHeading, s)
	}
	return h, nil
}

// Valid reports whether h is one of the four cardinal headings
func (h Heading) Valid() bool {
	_, ok := deltas[h]
	return ok
}

// Left returns the heading after a 90 degree left turn
func (h Heading) Left() Heading {
	if next, ok := leftOf[h]; ok {
		return next
	}
	return h
}

// Right returns the heading after a 90 degree right turn
func (h Heading) Right() Heading {
	if next, ok := rightOf[h]; ok {
		return next
	}
	return h
}

// Delta returns the unit step taken when moving forward
func (h Heading) Delta() Position {
	return deltas[h]
}

// String returns the single-letter form
func (h Heading) String() string {
	return string(h)
}

// ParseCommands normalizes a command string to upper case and checks that
// every character is F, L or R.
func ParseCommands(s string) ([]Command, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	commands := make([]Command, 0, len(s))
	for i, ch := range s {
		switch ch {
		case rune(TurnLeft), rune(TurnRight), rune(MoveForward):
			commands = append(commands, Command(ch))
		default:
			return nil, fmt.Errorf("%w: %q at position %d (only F, L and R are allowed)", ErrInvalidCommand, ch, i+1)
		}
	}
	return commands, nil
}

// MustParseCommands is like ParseCommands but panics on invalid input.
// It is meant for literals in tests and examples.
func MustParseCommands(s string) []Command {
	commands, err := ParseCommands(s)
	if err != nil {
		panic(err)
	}
	return commands
}

// CommandString joins commands back into their letter form
func CommandString(commands []Command) string {
	var b strings.Builder
	b.Grow(len(commands))
	for _, c := range commands {
		b.WriteByte(byte(c))
	}
	return b.String()
}
