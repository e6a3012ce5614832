// Package shell is the interactive text front end: it asks for a field,
// lets the user register cars one by one, runs the simulation and offers
// to start over.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wricardo/autodrive/logging"
	"github.com/wricardo/autodrive/sim/engine"
)

// Shell reads answers line by line from in and writes prompts to out
type Shell struct {
	in     *bufio.Scanner
	out    io.Writer
	logger zerolog.Logger
}

// New creates a shell over the given streams
func New(in io.Reader, out io.Writer, logger zerolog.Logger) *Shell {
	return &Shell{
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logging.Component(logger, "shell"),
	}
}

// Run drives the session until the user exits, the input ends or ctx is
// cancelled. End of input is not an error.
func (s *Shell) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Is(err, io.EOF) {
		s.logger.Debug().Msg("input closed")
		return nil
	}
	return err
}

func (s *Shell) run(ctx context.Context) error {
	for {
		s.println("Welcome to Auto Driving Car Simulation!\n")

		field, err := s.readField(ctx)
		if err != nil {
			return err
		}

		vehicles, err := s.collectVehicles(ctx, field)
		if err != nil {
			return err
		}

		s.println("\nYour current list of cars are:")
		s.printVehicles(vehicles)

		sim := engine.NewSimulation(field, vehicles...)
		results := sim.Run()
		s.logger.Debug().
			Stringer("field", field).
			Int("vehicles", len(vehicles)).
			Int("steps", sim.Step()).
			Msg("simulation finished")

		s.println("\nAfter simulation, the result is:")
		for _, line := range engine.FormatResults(results) {
			s.println(line)
		}

		s.println("\nPlease choose from the following options:")
		s.println("[1] Start over")
		s.println("[2] Exit")
		option, err := s.readLine(ctx)
		if err != nil {
			return err
		}

		switch option {
		case "1":
			s.println("")
		case "2":
			s.println("\nThank you for running the simulation. Goodbye!")
			return nil
		default:
			s.println("Invalid option. Exiting simulation.")
			return nil
		}
	}
}

// readField prompts until a valid "width height" pair is entered
func (s *Shell) readField(ctx context.Context) (engine.Field, error) {
	for {
		s.print("Please enter the width and height of the simulation field in x y format:\n")
		line, err := s.readLine(ctx)
		if err != nil {
			return engine.Field{}, err
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			s.println("Invalid input. Please enter two integers separated by a space.\n")
			continue
		}

		width, errW := strconv.Atoi(parts[0])
		height, errH := strconv.Atoi(parts[1])
		if errW != nil || errH != nil {
			s.println("Invalid input. Please enter valid integers.\n")
			continue
		}

		field, err := engine.NewField(width, height)
		if err != nil {
			s.println("Invalid input. Width and height must be positive integers.\n")
			continue
		}

		s.printf("\nYou have created a field of %s.\n", field)
		return field, nil
	}
}

// collectVehicles runs the add-car menu until the user asks to run with at
// least one car registered.
func (s *Shell) collectVehicles(ctx context.Context, field engine.Field) ([]*engine.Vehicle, error) {
	var vehicles []*engine.Vehicle

	for {
		s.println("\nPlease choose from the following options:")
		s.println("[1] Add a car to field")
		s.println("[2] Run simulation")

		option, err := s.readLine(ctx)
		if err != nil {
			return nil, err
		}

		switch option {
		case "1":
			v, err := s.readVehicle(ctx, field, vehicles)
			if err != nil {
				return nil, err
			}
			if v != nil {
				vehicles = append(vehicles, v)
				s.printVehicles(vehicles)
			}
		case "2":
			if len(vehicles) == 0 {
				s.println("No cars added. Please add at least one car before running simulation.")
				continue
			}
			return vehicles, nil
		default:
			s.println("Invalid option. Please try again.")
		}
	}
}

// readVehicle asks for one car. A rejected answer prints the reason and
// returns a nil vehicle so the menu is shown again.
func (s *Shell) readVehicle(ctx context.Context, field engine.Field, existing []*engine.Vehicle) (*engine.Vehicle, error) {
	s.print("Please enter the name of the car:\n")
	name, err := s.readLine(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		s.println("The name of the car cannot be empty.")
		return nil, nil
	}
	for _, v := range existing {
		if v.Name() == name {
			s.println("A car with that name already exists. Please choose a unique name.")
			return nil, nil
		}
	}

	s.printf("Please enter initial position of car %s in x y Direction format:\n", name)
	line, err := s.readLine(ctx)
	if err != nil {
		return nil, err
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		s.println("Invalid input. Please enter two integers and a direction (N, S, E, W).")
		return nil, nil
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		s.println("Invalid coordinates. Please enter two integers for x and y.")
		return nil, nil
	}

	heading, err := engine.ParseHeading(parts[2])
	if err != nil {
		s.println("Invalid direction. Only N, S, E, or W are allowed.")
		return nil, nil
	}

	if !field.IsWithinBounds(x, y) {
		s.println("Initial position is outside the field. Please try again.")
		return nil, nil
	}

	s.printf("Please enter the commands for car %s:\n", name)
	line, err = s.readLine(ctx)
	if err != nil {
		return nil, err
	}

	commands, err := engine.ParseCommands(line)
	if err != nil {
		s.println("Invalid command list. Only the characters F, L, and R are allowed.")
		return nil, nil
	}

	return engine.NewVehicle(name, x, y, heading, commands), nil
}

func (s *Shell) printVehicles(vehicles []*engine.Vehicle) {
	for _, v := range vehicles {
		s.println(v.Describe())
	}
}

// readLine returns the next trimmed input line, or io.EOF once input ends
func (s *Shell) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Shell) print(text string) {
	fmt.Fprint(s.out, text)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
