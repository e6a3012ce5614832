package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/autodrive/sim/engine"
)

var (
	ErrNoVehicles      = errors.New("no vehicles added")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrNotRun          = errors.New("session has not been run yet")
)

// SimulationService defines all simulation operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Vehicles
	AddVehicle(ctx context.Context, sessionID string, spec engine.VehicleSpec) (*SessionInfo, error)
	RemoveVehicle(ctx context.Context, sessionID, name string) (*SessionInfo, error)
	ClearVehicles(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Runs
	Run(ctx context.Context, sessionID string) (*RunResult, error)
	GetLastRun(ctx context.Context, sessionID string) (*RunResult, error)
	Simulate(ctx context.Context, scenario *engine.Scenario) (*RunResult, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, name string) (*engine.Scenario, error)

	// Close releases the metric callbacks held by the service
	Close() error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, field engine.Field) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ScenarioManager handles scenario loading
type ScenarioManager interface {
	LoadScenario(name string) (*engine.Scenario, error)
	ListScenarios() ([]*ScenarioInfo, error)
	GetDefault() *engine.Scenario
}

// Session is a field plus the vehicles registered on it so far
type Session struct {
	ID             string
	ScenarioID     string
	Field          engine.Field
	Vehicles       []engine.VehicleSpec
	Simulation     *engine.Simulation
	LastRun        *RunResult
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
