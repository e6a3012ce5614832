package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/autodrive/logging"
	"github.com/wricardo/autodrive/sim/engine"
)

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions  SessionManager
	scenarios ScenarioManager
	metrics   *runMetrics
	logger    zerolog.Logger
	mu        sync.RWMutex
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, scenarios ScenarioManager, logger zerolog.Logger) (SimulationService, error) {
	metrics, err := newRunMetrics(func() int { return len(sessions.List()) })
	if err != nil {
		return nil, err
	}

	return &simulationServiceImpl{
		sessions:  sessions,
		scenarios: scenarios,
		metrics:   metrics,
		logger:    logging.Component(logger, "service"),
	}, nil
}

// CreateSession creates a new session from a scenario, explicit dimensions or the default scenario
func (s *simulationServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scenario *engine.Scenario
	switch {
	case req.ScenarioID != "":
		loaded, err := s.scenarios.LoadScenario(req.ScenarioID)
		if err != nil {
			return nil, s.scenarioLoadError(req.ScenarioID, err)
		}
		scenario = loaded

	case req.Width != 0 || req.Height != 0:
		field, err := engine.NewField(req.Width, req.Height)
		if err != nil {
			return nil, err
		}
		scenario = &engine.Scenario{Field: field}

	default:
		scenario = s.scenarios.GetDefault()
	}

	sess, err := s.sessions.Create("", scenario.Field)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ScenarioID = req.ScenarioID
	if sess.ScenarioID == "" && req.Width == 0 && req.Height == 0 {
		sess.ScenarioID = scenario.Name
	}
	sess.Vehicles = slices.Clone(scenario.Vehicles)
	if err := rebuild(sess); err != nil {
		s.sessions.Delete(sess.ID)
		return nil, err
	}

	s.logger.Info().
		Str("session", sess.ID).
		Str("scenario", sess.ScenarioID).
		Stringer("field", sess.Field).
		Int("vehicles", len(sess.Vehicles)).
		Msg("session created")

	return newSessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return newSessionInfo(sess), nil
}

// ListSessions returns all active sessions, newest first
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, newSessionInfo(sess))
	}

	slices.SortFunc(result, func(a, b *SessionInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return result, nil
}

// DeleteSession removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// AddVehicle validates and registers a vehicle at the end of the session's list
func (s *simulationServiceImpl) AddVehicle(ctx context.Context, sessionID string, spec engine.VehicleSpec) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	normalized, err := engine.ValidateVehicleSpec(sess.Field, sess.Vehicles, spec)
	if err != nil {
		return nil, fmt.Errorf("add vehicle: %w", err)
	}

	sess.Vehicles = append(sess.Vehicles, normalized)
	if err := rebuild(sess); err != nil {
		sess.Vehicles = sess.Vehicles[:len(sess.Vehicles)-1]
		return nil, err
	}

	s.logger.Debug().
		Str("session", sess.ID).
		Str("vehicle", normalized.Name).
		Msg("vehicle added")

	return newSessionInfo(sess), nil
}

// RemoveVehicle drops a vehicle by name, keeping the order of the rest
func (s *simulationServiceImpl) RemoveVehicle(ctx context.Context, sessionID, name string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(sess.Vehicles, func(v engine.VehicleSpec) bool { return v.Name == name })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrVehicleNotFound, name)
	}

	sess.Vehicles = slices.Delete(sess.Vehicles, idx, idx+1)
	if err := rebuild(sess); err != nil {
		return nil, err
	}

	return newSessionInfo(sess), nil
}

// ClearVehicles removes every vehicle but keeps the field, like starting over
func (s *simulationServiceImpl) ClearVehicles(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Vehicles = nil
	sess.LastRun = nil
	if err := rebuild(sess); err != nil {
		return nil, err
	}

	return newSessionInfo(sess), nil
}

// Run executes the session's simulation and stores the result as the last run
func (s *simulationServiceImpl) Run(ctx context.Context, sessionID string) (*RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if len(sess.Vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	if sess.Simulation == nil {
		if err := rebuild(sess); err != nil {
			return nil, err
		}
	}

	result := execute(sess.Simulation)
	result.SessionID = sess.ID
	result.Scenario = sess.ScenarioID
	sess.LastRun = result

	s.metrics.record(ctx, "session", result)
	s.logger.Info().
		Str("session", sess.ID).
		Str("run", result.RunID).
		Int("vehicles", len(result.Results)).
		Int("steps", result.Steps).
		Int("collisions", result.Collisions).
		Msg("simulation run")

	return result, nil
}

// GetLastRun returns the most recent run of a session
func (s *simulationServiceImpl) GetLastRun(ctx context.Context, sessionID string) (*RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.LastRun == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRun, sessionID)
	}

	return sess.LastRun, nil
}

// Simulate runs a scenario without creating a session
func (s *simulationServiceImpl) Simulate(ctx context.Context, scenario *engine.Scenario) (*RunResult, error) {
	if scenario == nil {
		return nil, errors.New("scenario is required")
	}

	sim, err := scenario.Build()
	if err != nil {
		return nil, err
	}

	result := execute(sim)
	result.Scenario = scenario.Name
	if len(scenario.Expected) > 0 {
		matches := slices.Equal(result.Lines, scenario.Expected)
		result.Expected = slices.Clone(scenario.Expected)
		result.MatchesExpected = &matches
	}

	s.metrics.record(ctx, "stateless", result)
	s.logger.Info().
		Str("scenario", scenario.Name).
		Str("run", result.RunID).
		Int("steps", result.Steps).
		Int("collisions", result.Collisions).
		Msg("stateless simulation run")

	return result, nil
}

// ListScenarios returns available scenarios
func (s *simulationServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// LoadScenario loads a scenario by ID
func (s *simulationServiceImpl) LoadScenario(ctx context.Context, name string) (*engine.Scenario, error) {
	scenario, err := s.scenarios.LoadScenario(name)
	if err != nil {
		return nil, s.scenarioLoadError(name, err)
	}
	return scenario, nil
}

// Close unregisters the service's metric callbacks
func (s *simulationServiceImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.metrics.close()
}

// getSession looks up a session and refreshes its access time. Callers hold s.mu.
func (s *simulationServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// scenarioLoadError adds the list of available scenario IDs to a load failure
func (s *simulationServiceImpl) scenarioLoadError(name string, err error) error {
	available, listErr := s.scenarios.ListScenarios()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, info := range available {
			ids = append(ids, info.ScenarioID)
		}
		return fmt.Errorf("scenario '%s': %w (available: %s)", name, err, strings.Join(ids, ", "))
	}
	return fmt.Errorf("scenario '%s': %w", name, err)
}

// rebuild replaces the session's simulation after its vehicle list changed
func rebuild(sess *Session) error {
	vehicles := make([]*engine.Vehicle, 0, len(sess.Vehicles))
	for _, spec := range sess.Vehicles {
		v, err := engine.BuildVehicle(spec)
		if err != nil {
			return fmt.Errorf("vehicle %q: %w", spec.Name, err)
		}
		vehicles = append(vehicles, v)
	}
	sess.Simulation = engine.NewSimulation(sess.Field, vehicles...)
	return nil
}

// execute runs sim and packages the outcome
func execute(sim *engine.Simulation) *RunResult {
	started := time.Now()
	results := sim.Run()

	return &RunResult{
		RunID:      uuid.NewString(),
		Field:      sim.Field(),
		Steps:      sim.Step(),
		Collisions: sim.CollisionCount(),
		Results:    results,
		Lines:      engine.FormatResults(results),
		Trace:      sim.Trace(),
		StartedAt:  started,
	}
}

// newSessionInfo snapshots a session for callers outside the lock
func newSessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		ScenarioID:     sess.ScenarioID,
		Field:          sess.Field,
		Vehicles:       slices.Clone(sess.Vehicles),
		VehicleLines:   []string{},
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		LastRun:        sess.LastRun,
	}
	if info.Vehicles == nil {
		info.Vehicles = []engine.VehicleSpec{}
	}
	if sess.Simulation != nil {
		for _, v := range sess.Simulation.Vehicles() {
			info.VehicleLines = append(info.VehicleLines, v.Describe())
		}
	}
	return info
}
