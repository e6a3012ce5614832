// Package api provides the HTTP REST API for autodrive simulations.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session {scenario_id?, width?, height?}
//   - GET /api/sessions - List sessions, newest first (?limit=N)
//   - GET /api/sessions/{id} - Get a session with its registered vehicles
//   - DELETE /api/sessions/{id} - Delete a session
//
// Vehicles:
//   - POST /api/sessions/{id}/vehicles - Register {name, x, y, heading, commands}
//   - DELETE /api/sessions/{id}/vehicles - Remove every vehicle, keep the field
//   - DELETE /api/sessions/{id}/vehicles/{name} - Remove one vehicle
//
// Runs:
//   - POST /api/sessions/{id}/run - Run the session's simulation
//   - GET /api/sessions/{id}/run - Last run of the session
//   - POST /api/simulate - Run a scenario body without creating a session
//
// Run responses omit the per-step trace unless ?trace=true is given.
//
// Scenarios:
//   - GET /api/scenarios - List scenario files
//   - GET /api/scenarios/{name} - Get one scenario
//
// Misc:
//   - GET /api - Endpoint index
//   - GET /api/health - Liveness
//   - GET /ws?session={id} - Subscribe to live updates of a session
//
// Errors are returned as JSON:
//
//	{"error": "add vehicle: duplicate vehicle name: \"A\"", "code": 400}
//
// Validation failures map to 400; unknown sessions, vehicles, scenarios and
// sessions without a run map to 404.
package api
