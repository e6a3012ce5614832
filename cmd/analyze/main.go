// Command analyze prints quick, human-readable heuristics about scenario
// files: field size, command counts, the step bound, forward moves lost at
// the field edge, cells crossed by more than one vehicle and the collisions
// a run produces.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/autodrive/sim/engine"
)

// Analysis is the summary of one scenario run
type Analysis struct {
	Name          string
	Field         engine.Field
	Vehicles      int
	TotalCommands int
	StepBound     int
	Steps         int
	Idle          []string
	Blocked       map[string]int
	SharedCells   []engine.Position
	Collisions    []CollisionEvent
	Results       []string
}

// CollisionEvent is a collision group together with the step it happened at
type CollisionEvent struct {
	Step     int
	Position engine.Position
	Vehicles []string
}

func analyzeScenario(scenario *engine.Scenario) (*Analysis, error) {
	sim, err := scenario.Build()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:     scenario.Name,
		Field:    scenario.Field,
		Vehicles: len(scenario.Vehicles),
		Blocked:  make(map[string]int),
	}

	// Every cell a vehicle occupies at any point, start included
	visits := make(map[engine.Position]map[string]bool)
	visit := func(p engine.Position, name string) {
		if visits[p] == nil {
			visits[p] = make(map[string]bool)
		}
		visits[p][name] = true
	}

	for _, v := range sim.Vehicles() {
		n := len(v.Commands())
		a.TotalCommands += n
		if n > a.StepBound {
			a.StepBound = n
		}
		if n == 0 {
			a.Idle = append(a.Idle, v.Name())
		}
		visit(v.InitialPosition(), v.Name())
	}

	a.Results = engine.FormatResults(sim.Run())
	a.Steps = sim.Step()

	for _, step := range sim.Trace() {
		for _, move := range step.Moves {
			visit(move.To, move.Vehicle)
			if move.Blocked {
				a.Blocked[move.Vehicle]++
			}
		}
		for _, group := range step.Collisions {
			a.Collisions = append(a.Collisions, CollisionEvent{
				Step:     step.Step,
				Position: group.Position,
				Vehicles: group.Vehicles,
			})
		}
	}

	for p, names := range visits {
		if len(names) > 1 {
			a.SharedCells = append(a.SharedCells, p)
		}
	}
	sort.Slice(a.SharedCells, func(i, j int) bool {
		if a.SharedCells[i].Y != a.SharedCells[j].Y {
			return a.SharedCells[i].Y < a.SharedCells[j].Y
		}
		return a.SharedCells[i].X < a.SharedCells[j].X
	})

	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Field: %s (%d cells)\n", a.Field, a.Field.Width*a.Field.Height)
	fmt.Fprintf(w, "Vehicles: %d\n", a.Vehicles)
	fmt.Fprintf(w, "Total commands: %d\n", a.TotalCommands)
	fmt.Fprintf(w, "Step bound: %d, steps run: %d\n", a.StepBound, a.Steps)

	if len(a.Idle) > 0 {
		fmt.Fprintf(w, "Idle vehicles (no commands): %s\n", strings.Join(a.Idle, ", "))
	}

	if len(a.Blocked) > 0 {
		names := make([]string, 0, len(a.Blocked))
		for name := range a.Blocked {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "WARNING: forward moves dropped at the field edge:")
		for _, name := range names {
			fmt.Fprintf(w, "   %s: %d\n", name, a.Blocked[name])
		}
	} else {
		fmt.Fprintln(w, "All forward moves stay inside the field")
	}

	if len(a.SharedCells) > 0 {
		cells := make([]string, 0, len(a.SharedCells))
		for i, p := range a.SharedCells {
			if i == 5 {
				cells = append(cells, fmt.Sprintf("... and %d more", len(a.SharedCells)-5))
				break
			}
			cells = append(cells, p.String())
		}
		fmt.Fprintf(w, "Cells visited by more than one vehicle: %s\n", strings.Join(cells, " "))
	}

	if len(a.Collisions) == 0 {
		fmt.Fprintln(w, "No collisions")
	} else {
		for _, c := range a.Collisions {
			fmt.Fprintf(w, "Collision at step %d: %s at %s\n", c.Step, strings.Join(c.Vehicles, ", "), c.Position)
		}
	}

	fmt.Fprintln(w, "Result:")
	for _, line := range a.Results {
		fmt.Fprintln(w, line)
	}
}

// analyzeFile loads, analyzes and prints one scenario. Problems are printed,
// not returned, so one bad file does not stop the rest.
func analyzeFile(w io.Writer, path string) bool {
	scenario, err := engine.LoadScenario(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading scenario: %v\n", err)
		return false
	}
	if scenario.Name == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	a, err := analyzeScenario(scenario)
	if err != nil {
		fmt.Fprintf(w, "Error building simulation: %v\n", err)
		return false
	}
	printAnalysis(w, a)
	return true
}

func scenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print heuristics about scenario files",
		ArgsUsage: "[file ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "scenarios",
				Usage: "directory scanned when no files are given",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = scenarioFiles(cmd.String("dir"))
				if err != nil {
					return err
				}
			}

			failed := 0
			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))
				if !analyzeFile(out, file) {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios could not be analyzed", failed, len(files))
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
