package service

import (
	"time"

	"github.com/wricardo/autodrive/sim/engine"
)

// CreateSessionRequest selects how a session starts. A scenario ID wins over
// explicit dimensions; with neither, the default scenario is used.
type CreateSessionRequest struct {
	ScenarioID string `json:"scenario_id,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string               `json:"id"`
	ScenarioID     string               `json:"scenario_id,omitempty"`
	Field          engine.Field         `json:"field"`
	Vehicles       []engine.VehicleSpec `json:"vehicles"`
	VehicleLines   []string             `json:"vehicle_lines"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	LastRun        *RunResult           `json:"last_run,omitempty"`
}

// RunResult contains the outcome of one simulation run
type RunResult struct {
	RunID      string              `json:"run_id"`
	SessionID  string              `json:"session_id,omitempty"`
	Scenario   string              `json:"scenario,omitempty"`
	Field      engine.Field        `json:"field"`
	Steps      int                 `json:"steps"`
	Collisions int                 `json:"collisions"`
	Results    []engine.Result     `json:"results"`
	Lines      []string            `json:"lines"`
	Trace      []engine.StepRecord `json:"trace,omitempty"`
	StartedAt  time.Time           `json:"started_at"`

	// Set when the scenario carries expected lines
	Expected        []string `json:"expected,omitempty"`
	MatchesExpected *bool    `json:"matches_expected,omitempty"`
}

// ScenarioInfo provides information about a scenario file
type ScenarioInfo struct {
	Filename    string `json:"filename"`
	ScenarioID  string `json:"scenario_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Vehicles    int    `json:"vehicles"`
}
