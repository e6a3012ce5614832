package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/autodrive/api"
	"github.com/wricardo/autodrive/sim/config"
	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
	"github.com/wricardo/autodrive/sim/session"
)

const smallScenario = `{
  "name": "small",
  "description": "Two cars that never meet",
  "field": {"width": 5, "height": 5},
  "vehicles": [
    {"name": "A", "x": 1, "y": 1, "heading": "N", "commands": "F"},
    {"name": "B", "x": 2, "y": 2, "heading": "E", "commands": "FF"}
  ],
  "expected": ["- A, (1,2) N", "- B, (4,2) E"]
}`

// newAPIServer starts the real REST API over a temporary scenario directory
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.json"), []byte(smallScenario), 0o644))

	scenarios, err := config.NewManager(dir)
	require.NoError(t, err)

	svc, err := service.NewSimulationService(session.NewManager(), scenarios, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	server := httptest.NewServer(api.NewServer(svc, nil, zerolog.Nop()))
	t.Cleanup(server.Close)
	return server
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	require.NoError(t, err, name)
	require.NotEmpty(t, result.Content, "%s returned no content", name)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "%s: expected text content, got %T", name, result.Content[0])
	return text.Text, result.IsError
}

// sessionIDFrom extracts the ID from a "Created session: <id>" reply
func sessionIDFrom(t *testing.T, text string) string {
	t.Helper()

	first := strings.SplitN(text, "\n", 2)[0]
	id := strings.TrimPrefix(first, "Created session: ")
	require.True(t, id != first && id != "", "could not find session ID in %q", text)
	return id
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	require.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"echo": body["value"]})
		case "/error":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid heading"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var result map[string]string
	require.NoError(t, client.apiCall(ctx, "POST", "/ok", map[string]string{"value": "hello"}, &result))
	assert.Equal(t, "hello", result["echo"])

	err := client.apiCall(ctx, "GET", "/error", nil, nil)
	assert.EqualError(t, err, "invalid heading")

	err = client.apiCall(ctx, "GET", "/boom", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_DefaultScenarioRun(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	text, isError := callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{})
	require.False(t, isError, text)
	sessionID := sessionIDFrom(t, text)

	assert.Contains(t, text, "Field: 10 x 10")
	assert.Contains(t, text, "- A, (1,2) N, FFRFFFFRRL")

	text, isError = callTool(t, client.handleRunSimulation, "run_simulation", map[string]interface{}{
		"session_id": sessionID,
	})
	require.False(t, isError, text)

	assert.Contains(t, text, "- A, collides with B at (5,4) at step 7")
	assert.Contains(t, text, "- B, collides with A at (5,4) at step 7")
	assert.Contains(t, text, "Steps: 7, collided vehicles: 2")
	assert.NotContains(t, text, "Trace:", "trace should be omitted unless requested")

	text, _ = callTool(t, client.handleGetSession, "get_session", map[string]interface{}{
		"session_id": sessionID,
	})
	assert.Contains(t, text, "Last result:")
}

func TestClient_BuildSessionByHand(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	text, isError := callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{
		"width":  float64(10),
		"height": float64(10),
	})
	require.False(t, isError, text)
	sessionID := sessionIDFrom(t, text)
	assert.Contains(t, text, "Vehicles: none")

	text, isError = callTool(t, client.handleAddVehicle, "add_vehicle", map[string]interface{}{
		"session_id": sessionID,
		"name":       "A",
		"x":          float64(1),
		"y":          float64(2),
		"heading":    "n",
		"commands":   "ffrffffrrl",
	})
	require.False(t, isError, text)
	assert.Contains(t, text, "- A, (1,2) N, FFRFFFFRRL")

	t.Run("rejected vehicles", func(t *testing.T) {
		tests := []struct {
			name    string
			args    map[string]interface{}
			wantErr string
		}{
			{
				name:    "duplicate name",
				args:    map[string]interface{}{"name": "A", "x": float64(0), "y": float64(0), "heading": "N"},
				wantErr: "duplicate vehicle name",
			},
			{
				name:    "bad heading",
				args:    map[string]interface{}{"name": "B", "x": float64(0), "y": float64(0), "heading": "Q"},
				wantErr: "invalid heading",
			},
			{
				name:    "outside field",
				args:    map[string]interface{}{"name": "B", "x": float64(10), "y": float64(0), "heading": "N"},
				wantErr: "position outside field",
			},
			{
				name:    "fractional coordinate",
				args:    map[string]interface{}{"name": "B", "x": 1.5, "y": float64(0), "heading": "N"},
				wantErr: "x and y must be integers",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.args["session_id"] = sessionID
				text, isError := callTool(t, client.handleAddVehicle, "add_vehicle", tt.args)
				require.True(t, isError, "expected error result, got:\n%s", text)
				assert.Contains(t, text, tt.wantErr)
			})
		}
	})

	text, _ = callTool(t, client.handleRunSimulation, "run_simulation", map[string]interface{}{
		"session_id": sessionID,
		"trace":      true,
	})
	assert.Contains(t, text, "- A, (5,4) S")
	assert.Contains(t, text, "Trace:")
	assert.Contains(t, text, "step 10:")

	text, isError = callTool(t, client.handleRemoveVehicle, "remove_vehicle", map[string]interface{}{
		"session_id": sessionID,
		"name":       "A",
	})
	assert.False(t, isError, text)
	assert.Contains(t, text, "Vehicles: none")

	text, isError = callTool(t, client.handleRunSimulation, "run_simulation", map[string]interface{}{
		"session_id": sessionID,
	})
	assert.True(t, isError, text)
	assert.Contains(t, text, "no vehicles added")
}

func TestClient_ClearVehicles(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	text, _ := callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{
		"scenario_id": "small",
	})
	sessionID := sessionIDFrom(t, text)
	assert.Contains(t, text, "Scenario: small")

	text, isError := callTool(t, client.handleClearVehicles, "clear_vehicles", map[string]interface{}{
		"session_id": sessionID,
	})
	require.False(t, isError, text)
	assert.Contains(t, text, "Field: 5 x 5")
	assert.Contains(t, text, "Vehicles: none")
}

func TestClient_ListTools(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{"scenario_id": "small"})
	callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{"width": float64(3), "height": float64(4)})

	text, _ := callTool(t, client.handleListSessions, "list_sessions", map[string]interface{}{})
	assert.Contains(t, text, "Active Sessions (2)")
	assert.Contains(t, text, "Scenario: custom")
	assert.Contains(t, text, "Scenario: small")

	text, _ = callTool(t, client.handleListScenarios, "list_scenarios", map[string]interface{}{})
	assert.Contains(t, text, "- small: 5 x 5 field, 2 vehicles (Two cars that never meet)")

	text, _ = callTool(t, client.handleSimulationRules, "simulation_rules", map[string]interface{}{})
	assert.Contains(t, text, "collides with B at (5,4) at step 7")
}

func TestClient_Simulate(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	vehicles := []interface{}{
		map[string]interface{}{"name": "A", "x": float64(1), "y": float64(2), "heading": "N", "commands": "FFRFFFFRRL"},
		map[string]interface{}{"name": "B", "x": float64(7), "y": float64(8), "heading": "W", "commands": "FFLFFFFFFF"},
	}

	text, isError := callTool(t, client.handleSimulate, "simulate", map[string]interface{}{
		"width":    float64(10),
		"height":   float64(10),
		"vehicles": vehicles,
	})
	require.False(t, isError, text)
	assert.Contains(t, text, "- B, collides with A at (5,4) at step 7")

	text, isError = callTool(t, client.handleSimulate, "simulate", map[string]interface{}{
		"width":    float64(10),
		"height":   float64(10),
		"vehicles": "A",
	})
	assert.True(t, isError, text)
	assert.Contains(t, text, "vehicles must be an array")
}

func TestClient_MissingSessionID(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_session":    client.handleGetSession,
		"add_vehicle":    client.handleAddVehicle,
		"clear_vehicles": client.handleClearVehicles,
		"run_simulation": client.handleRunSimulation,
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			text, isError := callTool(t, handler, name, map[string]interface{}{})
			assert.True(t, isError)
			assert.Equal(t, "session_id is required", text)
		})
	}
}

func TestClient_UnknownSession(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	text, isError := callTool(t, client.handleGetSession, "get_session", map[string]interface{}{
		"session_id": "zzzz",
	})
	assert.True(t, isError)
	assert.Contains(t, text, "session not found")
}

func TestFormatStep(t *testing.T) {
	step := engine.StepRecord{
		Step: 7,
		Moves: []engine.MoveRecord{
			{Vehicle: "A", Command: "F", From: engine.Position{X: 5, Y: 5}, To: engine.Position{X: 5, Y: 4}, HeadingBefore: engine.South, HeadingAfter: engine.South},
			{Vehicle: "B", Command: "F", From: engine.Position{X: 0, Y: 0}, To: engine.Position{X: 0, Y: 0}, HeadingBefore: engine.West, HeadingAfter: engine.West, Blocked: true},
		},
		Collisions: []engine.CollisionGroup{
			{Position: engine.Position{X: 5, Y: 4}, Vehicles: []string{"A", "C"}},
		},
	}

	assert.Equal(t, "step 7: A F (5,5)S->(5,4)S; B F (0,0)W->(0,0)W (edge); collision A+C at (5,4);\n", formatStep(step))
}
