// Command validate checks scenario files (.json, .yaml, .yml). For each file
// it reports:
//   - decode errors
//   - a non-positive field
//   - every vehicle that fails registration (empty or duplicate name, bad
//     heading, start outside the field, unknown command)
//   - result lines that differ from the file's "expected" list
//
// Arguments are files or directories; with none, ./scenarios is scanned.
// The exit status is 1 when any file is invalid.
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

// ValidationResult captures the outcome of validating a single file.
// Errors is empty when Valid is true; Info holds a short summary either way.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateScenario loads one scenario file, validates every vehicle and
// compares the run against the expected lines when there are any.
func validateScenario(path string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	scenario, err := engine.DecodeScenario(data, filepath.Ext(path))
	if err != nil {
		result.fail("Invalid %s: %v", formatName(path), err)
		return result
	}

	field, err := engine.NewField(scenario.Field.Width, scenario.Field.Height)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	// Keep going after a bad vehicle so every problem is listed
	accepted := make([]engine.VehicleSpec, 0, len(scenario.Vehicles))
	for i, spec := range scenario.Vehicles {
		normalized, err := engine.ValidateVehicleSpec(field, accepted, spec)
		if err != nil {
			result.fail("Vehicle %d: %v", i+1, err)
			continue
		}
		accepted = append(accepted, normalized)
	}
	if !result.Valid {
		return result
	}

	scenario.Vehicles = accepted
	sim, err := scenario.Build()
	if err != nil {
		result.fail("%v", err)
		return result
	}
	lines := engine.FormatResults(sim.Run())

	if len(scenario.Expected) > 0 {
		for _, mismatch := range compareLines(scenario.Expected, lines) {
			result.fail("%s", mismatch)
		}
	}

	result.Info = append(result.Info,
		fmt.Sprintf("Name: %s", scenario.Name),
		fmt.Sprintf("Field: %s", field),
		fmt.Sprintf("Vehicles: %d", len(accepted)),
		fmt.Sprintf("Steps: %d, collided vehicles: %d", sim.Step(), sim.CollisionCount()),
	)
	if len(scenario.Expected) == 0 {
		result.Info = append(result.Info, "No expected result to check")
	} else if result.Valid {
		result.Info = append(result.Info, fmt.Sprintf("Expected result matches (%d lines)", len(lines)))
	}

	return result
}

// compareLines lists the differences between expected and actual result lines
func compareLines(expected, actual []string) []string {
	var mismatches []string
	if len(expected) != len(actual) {
		mismatches = append(mismatches, fmt.Sprintf("Expected %d result lines, got %d", len(expected), len(actual)))
	}

	for i := 0; i < len(expected) && i < len(actual); i++ {
		if expected[i] != actual[i] {
			mismatches = append(mismatches, fmt.Sprintf("Line %d: expected %q, got %q", i+1, expected[i], actual[i]))
		}
	}
	return mismatches
}

func formatName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "YAML"
	default:
		return "JSON"
	}
}

// collectFiles expands directories into their scenario files, sorted
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)
	return files, nil
}

// report prints one block per file and returns whether all were valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(w, "INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  - "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "All scenarios are valid!")
	} else {
		fmt.Fprintln(w, "Some scenarios have errors")
	}
	return allValid
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate scenario files and check their expected results",
		ArgsUsage: "[file or directory ...]",
		Writer:    out,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				args = []string{"scenarios"}
			}

			files, err := collectFiles(args)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error finding scenario files: %v", err), 1)
			}
			if len(files) == 0 {
				return cli.Exit("No scenario files found", 1)
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateScenario(file))
			}

			if !report(out, results) {
				return cli.Exit("", 1)
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
