package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/autodrive/logging"
	"github.com/wricardo/autodrive/sim/config"
	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
	"github.com/wricardo/autodrive/sim/session"
)

// maxBodySize bounds request bodies
const maxBodySize = 1 << 20

// eventSessionDeleted is pushed to observers of a deleted session
const eventSessionDeleted = "session_deleted"

// Broadcaster receives session changes for live observers
type Broadcaster interface {
	BroadcastRun(run *service.RunResult)
	BroadcastSession(info *service.SessionInfo)
	BroadcastEvent(sessionID string, event string, data interface{})
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server represents the REST API server
type Server struct {
	service service.SimulationService
	hub     Broadcaster
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server. hub may be nil, in which case no
// updates are pushed and /ws is not served.
func NewServer(simService service.SimulationService, hub Broadcaster, logger zerolog.Logger) *Server {
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logging.Component(logger, "api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api", s.handleIndex).Methods("GET")

	// Session management
	s.router.HandleFunc("/api/sessions", s.handleCreateSession).Methods("POST")
	s.router.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	s.router.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods("GET")
	s.router.HandleFunc("/api/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Vehicles
	s.router.HandleFunc("/api/sessions/{id}/vehicles", s.handleAddVehicle).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/vehicles", s.handleClearVehicles).Methods("DELETE")
	s.router.HandleFunc("/api/sessions/{id}/vehicles/{name}", s.handleRemoveVehicle).Methods("DELETE")

	// Runs
	s.router.HandleFunc("/api/sessions/{id}/run", s.handleRun).Methods("POST")
	s.router.HandleFunc("/api/sessions/{id}/run", s.handleGetLastRun).Methods("GET")
	s.router.HandleFunc("/api/simulate", s.handleSimulate).Methods("POST")

	// Scenarios
	s.router.HandleFunc("/api/scenarios", s.handleListScenarios).Methods("GET")
	s.router.HandleFunc("/api/scenarios/{name}", s.handleGetScenario).Methods("GET")

	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  status,
	})
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrScenarioNotFound),
		errors.Is(err, service.ErrVehicleNotFound),
		errors.Is(err, service.ErrNotRun):
		return http.StatusNotFound

	case errors.Is(err, engine.ErrInvalidField),
		errors.Is(err, engine.ErrEmptyName),
		errors.Is(err, engine.ErrDuplicateName),
		errors.Is(err, engine.ErrInvalidHeading),
		errors.Is(err, engine.ErrInvalidCommand),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, config.ErrInvalidScenario),
		errors.Is(err, service.ErrNoVehicles):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := s.logger.Debug()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	respondError(w, status, err.Error())
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched
// when optional is set.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return errors.New("request body required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) notify(info *service.SessionInfo) {
	if s.hub != nil && info != nil {
		s.hub.BroadcastSession(info)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info().Str("session", info.ID).Stringer("field", info.Field).Msg("session created")
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	total := len(sessions)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, eventSessionDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Vehicle Handlers

func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var spec engine.VehicleSpec
	if err := decodeBody(r, &spec, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.AddVehicle(r.Context(), sessionID, spec)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.notify(info)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleClearVehicles(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.ClearVehicles(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.notify(info)
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemoveVehicle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	info, err := s.service.RemoveVehicle(r.Context(), vars["id"], vars["name"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.notify(info)
	respondJSON(w, http.StatusOK, info)
}

// Run Handlers

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Run(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info().
		Str("session", result.SessionID).
		Str("run", result.RunID).
		Int("steps", result.Steps).
		Int("collisions", result.Collisions).
		Msg("run completed")

	if s.hub != nil {
		s.hub.BroadcastRun(result)
	}

	respondJSON(w, http.StatusOK, withoutTrace(r, result))
}

func (s *Server) handleGetLastRun(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.GetLastRun(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, withoutTrace(r, result))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var scenario engine.Scenario
	if err := decodeBody(r, &scenario, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Simulate(r.Context(), &scenario)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, withoutTrace(r, result))
}

// withoutTrace drops the per-step trace unless ?trace=true is given
func withoutTrace(r *http.Request, result *service.RunResult) *service.RunResult {
	if include, _ := strconv.ParseBool(r.URL.Query().Get("trace")); include {
		return result
	}
	trimmed := *result
	trimmed.Trace = nil
	return &trimmed
}

// Scenario Handlers

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.service.ListScenarios(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if scenarios == nil {
		scenarios = []*service.ScenarioInfo{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(scenarios),
		"scenarios": scenarios,
	})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	scenario, err := s.service.LoadScenario(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, scenario)
}

// WebSocket handler
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusNotFound)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleIndex lists the available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "autodrive",
		"endpoints": []string{
			"POST /api/sessions",
			"GET /api/sessions",
			"GET /api/sessions/{id}",
			"DELETE /api/sessions/{id}",
			"POST /api/sessions/{id}/vehicles",
			"DELETE /api/sessions/{id}/vehicles",
			"DELETE /api/sessions/{id}/vehicles/{name}",
			"POST /api/sessions/{id}/run",
			"GET /api/sessions/{id}/run",
			"POST /api/simulate",
			"GET /api/scenarios",
			"GET /api/scenarios/{name}",
			"GET /api/health",
			"GET /ws?session={id}",
		},
	})
}
