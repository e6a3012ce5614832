// Package mcp exposes the simulation to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API served by package api, and the JSON reply is rendered as plain text.
// The same tool set is served over stdio (the "mcp" command) or over HTTP at
// POST /mcp (the "serve" command).
//
// Tools:
//   - create_session: start from a scenario, an empty field or the default
//   - list_sessions, get_session: inspect sessions
//   - add_vehicle, remove_vehicle, clear_vehicles: edit the vehicle list
//   - run_simulation: run a session, optionally with a step trace
//   - simulate: run an inline scenario without a session
//   - list_scenarios: scenario files known to the server
//   - simulation_rules: movement and collision rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
