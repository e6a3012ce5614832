package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// scenarioExtensions are tried in order when resolving a scenario ID
var scenarioExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles scenario loading and caching
type Manager struct {
	scenarioDir     string
	defaultScenario *engine.Scenario
	scenarios       map[string]*engine.Scenario
	mu              sync.RWMutex
}

// NewManager creates a new scenario manager over scenarioDir
func NewManager(scenarioDir string) (*Manager, error) {
	// Ensure scenario directory exists
	if _, err := os.Stat(scenarioDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario directory does not exist: %s", scenarioDir)
	}

	m := &Manager{
		scenarioDir: scenarioDir,
		scenarios:   make(map[string]*engine.Scenario),
	}

	m.loadDefaultScenario()
	return m, nil
}

// LoadScenario loads a scenario by ID (file name without extension). The
// returned scenario is a copy callers may modify.
func (m *Manager) LoadScenario(name string) (*engine.Scenario, error) {
	id := scenarioID(name)

	m.mu.RLock()
	// Check cache first
	if scenario, exists := m.scenarios[id]; exists {
		m.mu.RUnlock()
		return scenario.Clone(), nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if scenario, exists := m.scenarios[id]; exists {
		return scenario.Clone(), nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := engine.DecodeScenario(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := engine.ValidateScenario(scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if scenario.Name == "" {
		scenario.Name = id
	}

	m.scenarios[id] = scenario
	return scenario.Clone(), nil
}

// ListScenarios returns information about all valid scenarios, sorted by ID
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*service.ScenarioInfo

	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}

		id := scenarioID(entry.Name())

		scenario, err := m.LoadScenario(entry.Name())
		if err != nil {
			// Skip invalid scenarios
			continue
		}

		scenarios = append(scenarios, &service.ScenarioInfo{
			Filename:    entry.Name(),
			ScenarioID:  id,
			Name:        scenario.Name,
			Description: scenario.Description,
			Width:       scenario.Field.Width,
			Height:      scenario.Field.Height,
			Vehicles:    len(scenario.Vehicles),
		})
	}

	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].ScenarioID < scenarios[j].ScenarioID
	})

	return scenarios, nil
}

// GetDefault returns a copy of the default scenario
func (m *Manager) GetDefault() *engine.Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultScenario.Clone()
}

// SetDefault sets the default scenario by ID
func (m *Manager) SetDefault(name string) error {
	scenario, err := m.LoadScenario(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = scenario
	return nil
}

// RefreshCache drops all cached scenarios so the next load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.scenarios = make(map[string]*engine.Scenario)
	m.mu.Unlock()

	m.loadDefaultScenario()
}

// loadDefaultScenario uses default.* from the directory, falling back to
// the built-in scenario.
func (m *Manager) loadDefaultScenario() {
	scenario, err := m.LoadScenario("default")
	if err != nil {
		scenario = engine.DefaultScenario()
	}

	m.mu.Lock()
	m.defaultScenario = scenario
	m.mu.Unlock()
}

// resolve finds the file backing a scenario ID. Callers hold m.mu.
func (m *Manager) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", ErrScenarioNotFound
	}

	if isScenarioFile(name) {
		path := filepath.Join(m.scenarioDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", ErrScenarioNotFound
		}
		return path, nil
	}

	for _, ext := range scenarioExtensions {
		path := filepath.Join(m.scenarioDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrScenarioNotFound
}

func isScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range scenarioExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// scenarioID strips a known extension from a file name
func scenarioID(name string) string {
	if isScenarioFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
