// Package service provides the business logic layer for the autodrive
// simulator.
//
// The service package implements:
//   - Multi-session management, each session holding a field and an ordered
//     list of vehicle definitions
//   - Vehicle registration with the same validation the interactive shell applies
//   - Repeatable runs of a session's simulation and retention of the last run
//   - Stateless one-shot runs of a scenario
//   - Scenario listing and loading
//   - Run metrics through the global OpenTelemetry meter provider
//
// Core Interfaces:
//
// SimulationService is the main service interface providing high-level
// operations. SessionManager handles session storage and lifecycle.
// ScenarioManager loads scenario definitions.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the simulation engine. Each session owns its own engine.Simulation, which
// is rebuilt when the vehicle list changes and reused across runs
// otherwise.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	scenarioMgr, _ := config.NewManager("scenarios")
//	svc, err := service.NewSimulationService(sessionMgr, scenarioMgr, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Width: 10, Height: 10})
//	_, err = svc.AddVehicle(ctx, info.ID, engine.VehicleSpec{Name: "A", X: 1, Y: 2, Heading: "N", Commands: "FFRFFFFRRL"})
//	run, err := svc.Run(ctx, info.ID)
package service
