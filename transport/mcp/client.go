package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

const serverVersion = "1.0.0"

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Auto Driving Car Simulation",
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Auto Driving Car Simulation - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Vehicles live on a rectangular field. Each vehicle has a name, a start
position, a heading (N, S, E, W) and a command string made of F (forward),
L (turn left) and R (turn right). All vehicles move in lockstep, one command
per step; vehicles that end a step on the same cell collide and stop.

AVAILABLE TOOLS:
- create_session: Start a session from a scenario or an empty field
- list_sessions / get_session: Inspect sessions
- add_vehicle / remove_vehicle / clear_vehicles: Edit a session's vehicles
- run_simulation: Run a session and get the result lines
- simulate: Run a whole scenario in one call without a session
- list_scenarios: Scenario files available on the server
- simulation_rules: Full movement and collision rules`),
	)

	// Register all tools
	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a simulation session from a scenario, or an empty field of the given size. With no arguments the default scenario is used.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to start from (see list_scenarios)",
				},
				"width": map[string]interface{}{
					"type":        "integer",
					"description": "Field width for an empty session",
				},
				"height": map[string]interface{}{
					"type":        "integer",
					"description": "Field height for an empty session",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the field, the registered vehicles and the last result of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Vehicles
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_vehicle",
		Description: "Register a vehicle at the end of the session's list. Registration order decides move order within a step.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Unique vehicle name",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Start column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Start row (0-based, y grows to the north)",
				},
				"heading": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"N", "S", "E", "W"},
					"description": "Initial heading",
				},
				"commands": map[string]interface{}{
					"type":        "string",
					"description": "Commands made of F, L and R, e.g. FFRFFFFRRL",
				},
			},
			Required: []string{"session_id", "name", "x", "y", "heading"},
		},
	}, c.handleAddVehicle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_vehicle",
		Description: "Remove one vehicle from a session by name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Vehicle name",
				},
			},
			Required: []string{"session_id", "name"},
		},
	}, c.handleRemoveVehicle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_vehicles",
		Description: "Remove every vehicle from a session, keeping its field (start over)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleClearVehicles)

	// Runs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_simulation",
		Description: "Run the session's vehicles to completion and return one result line per vehicle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"trace": map[string]interface{}{
					"type":        "boolean",
					"description": "Include a step-by-step trace",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRunSimulation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Run a complete scenario without creating a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"width": map[string]interface{}{
					"type":        "integer",
					"description": "Field width",
				},
				"height": map[string]interface{}{
					"type":        "integer",
					"description": "Field height",
				},
				"vehicles": map[string]interface{}{
					"type":        "array",
					"description": "Vehicles in registration order",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":     map[string]interface{}{"type": "string"},
							"x":        map[string]interface{}{"type": "integer"},
							"y":        map[string]interface{}{"type": "integer"},
							"heading":  map[string]interface{}{"type": "string", "enum": []string{"N", "S", "E", "W"}},
							"commands": map[string]interface{}{"type": "string"},
						},
						"required": []string{"name", "x", "y", "heading"},
					},
				},
				"trace": map[string]interface{}{
					"type":        "boolean",
					"description": "Include a step-by-step trace",
				},
			},
			Required: []string{"width", "height", "vehicles"},
		},
	}, c.handleSimulate)

	// Scenarios and help
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List scenario files available on the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_rules",
		Description: "Get the movement, boundary and collision rules of the simulation",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSimulationRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio serves the tools over stdin/stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument. ok is false when it is absent or
// not a whole number.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

func requireString(args map[string]interface{}, key string) (string, *mcp.CallToolResult) {
	value, _ := args[key].(string)
	if value == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("%s is required", key))
	}
	return value, nil
}

func tracePath(path string, args map[string]interface{}) string {
	if trace, _ := args["trace"].(bool); trace {
		return path + "?trace=true"
	}
	return path
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	var req service.CreateSessionRequest
	req.ScenarioID, _ = args["scenario_id"].(string)
	req.Width, _ = intArg(args, "width")
	req.Height, _ = intArg(args, "height")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", req, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created session: " + session.ID + "\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		scenario := s.ScenarioID
		if scenario == "" {
			scenario = "custom"
		}
		fmt.Fprintf(&b, "- %s (Field: %s, Vehicles: %d, Scenario: %s, Created: %s)\n",
			s.ID, s.Field, len(s.Vehicles), scenario, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireString(args, "session_id")
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleAddVehicle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireString(args, "session_id")
	if errResult != nil {
		return errResult, nil
	}

	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}

	spec := engine.VehicleSpec{X: x, Y: y}
	spec.Name, _ = args["name"].(string)
	spec.Heading, _ = args["heading"].(string)
	spec.Commands, _ = args["commands"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/vehicles", spec, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Vehicle added.\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleRemoveVehicle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireString(args, "session_id")
	if errResult != nil {
		return errResult, nil
	}
	name, errResult := requireString(args, "name")
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+sessionID+"/vehicles/"+name, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Vehicle removed.\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleClearVehicles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireString(args, "session_id")
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+sessionID+"/vehicles", nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("All vehicles removed.\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleRunSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireString(args, "session_id")
	if errResult != nil {
		return errResult, nil
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", tracePath("/api/sessions/"+sessionID+"/run", args), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	width, okW := intArg(args, "width")
	height, okH := intArg(args, "height")
	if !okW || !okH {
		return mcp.NewToolResultError("width and height must be integers"), nil
	}

	rawVehicles, ok := args["vehicles"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("vehicles must be an array"), nil
	}

	scenario := engine.Scenario{
		Name:  "mcp",
		Field: engine.Field{Width: width, Height: height},
	}
	for i, raw := range rawVehicles {
		v, ok := raw.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("vehicle %d must be an object", i+1)), nil
		}
		x, okX := intArg(v, "x")
		y, okY := intArg(v, "y")
		if !okX || !okY {
			return mcp.NewToolResultError(fmt.Sprintf("vehicle %d: x and y must be integers", i+1)), nil
		}
		spec := engine.VehicleSpec{X: x, Y: y}
		spec.Name, _ = v["name"].(string)
		spec.Heading, _ = v["heading"].(string)
		spec.Commands, _ = v["commands"].(string)
		scenario.Vehicles = append(scenario.Vehicles, spec)
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", tracePath("/api/simulate", args), scenario, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count     int                    `json:"count"`
		Scenarios []service.ScenarioInfo `json:"scenarios"`
	}

	if err := c.apiCall(ctx, "GET", "/api/scenarios", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Scenarios (%d):\n\n", response.Count)
	for _, s := range response.Scenarios {
		fmt.Fprintf(&b, "- %s: %d x %d field, %d vehicles", s.ScenarioID, s.Width, s.Height, s.Vehicles)
		if s.Description != "" {
			fmt.Fprintf(&b, " (%s)", s.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nUse create_session with scenario_id to load one.\n")

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSimulationRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(simulationRules), nil
}

const simulationRules = `Auto Driving Car Simulation - Rules

FIELD:
- A rectangle of width x height cells. Valid positions are 0 <= x < width
  and 0 <= y < height. (0,0) is the south-west corner.

HEADINGS AND MOVES:
- N moves to y+1, S to y-1, E to x+1, W to x-1.
- L turns 90 degrees left (N -> W -> S -> E -> N).
- R turns 90 degrees right (N -> E -> S -> W -> N).
- F moves one cell forward. A move that would leave the field is ignored,
  but the command is still used up.
- Any other character is rejected when a vehicle is registered.

STEPS:
- Every step, each vehicle that has not collided and still has commands
  executes exactly one command, in registration order.
- After all vehicles have moved, vehicles sharing a cell collide. Each of
  them stops for good and remembers who it hit, where and at which step.
- Collided vehicles are never hit again; others may drive through them.
- The run ends when no vehicle can execute another command.

RESULTS:
- "- A, (5,4) S" for a vehicle that finished its commands.
- "- A, collides with B at (5,4) at step 7" for a collided vehicle.
`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	if session.ScenarioID != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", session.ScenarioID)
	}
	fmt.Fprintf(&b, "Field: %s\n", session.Field)

	if len(session.VehicleLines) == 0 {
		b.WriteString("Vehicles: none\n")
	} else {
		b.WriteString("Vehicles:\n")
		for _, line := range session.VehicleLines {
			b.WriteString(line + "\n")
		}
	}

	if session.LastRun != nil {
		b.WriteString("Last result:\n")
		for _, line := range session.LastRun.Lines {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func formatRunResult(result *service.RunResult) string {
	var b strings.Builder
	b.WriteString("After simulation, the result is:\n")
	for _, line := range result.Lines {
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\nSteps: %d, collided vehicles: %d\n", result.Steps, result.Collisions)

	if result.MatchesExpected != nil {
		if *result.MatchesExpected {
			b.WriteString("Matches the expected result.\n")
		} else {
			b.WriteString("Does NOT match the expected result:\n")
			for _, line := range result.Expected {
				b.WriteString(line + "\n")
			}
		}
	}

	if len(result.Trace) > 0 {
		b.WriteString("\nTrace:\n")
		for _, step := range result.Trace {
			b.WriteString(formatStep(step))
		}
	}
	return b.String()
}

func formatStep(step engine.StepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d:", step.Step)
	for _, m := range step.Moves {
		fmt.Fprintf(&b, " %s %s %s%s->%s%s", m.Vehicle, m.Command, m.From, m.HeadingBefore, m.To, m.HeadingAfter)
		if m.Blocked {
			b.WriteString(" (edge)")
		}
		b.WriteString(";")
	}
	for _, g := range step.Collisions {
		fmt.Fprintf(&b, " collision %s at %s;", strings.Join(g.Vehicles, "+"), g.Position)
	}
	b.WriteString("\n")
	return b.String()
}
