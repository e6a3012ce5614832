// Command autodrive runs the auto driving car simulation.
//
// It supports four commands:
//  1. "shell" (default) – the interactive prompt loop
//  2. "run" – runs a scenario file or scenario ID and prints the result lines
//  3. "serve" – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  4. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from autodrive.yaml, AUTODRIVE_* variables and .env; flags
// override them. ngrok tunneling can expose "serve" during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/autodrive/api"
	"github.com/wricardo/autodrive/logging"
	"github.com/wricardo/autodrive/settings"
	"github.com/wricardo/autodrive/shell"
	"github.com/wricardo/autodrive/sim/config"
	"github.com/wricardo/autodrive/sim/engine"
	"github.com/wricardo/autodrive/sim/service"
	"github.com/wricardo/autodrive/sim/session"
	"github.com/wricardo/autodrive/transport/mcp"
	"github.com/wricardo/autodrive/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Auto Driving Car Simulation"
)

const shutdownTimeout = 10 * time.Second

// app carries the process streams so commands can be driven from tests
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "autodrive",
		Usage:     AppName,
		Version:   Version,
		Reader:    a.in,
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (default: autodrive.yaml in . or $HOME/.config/autodrive)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading settings",
			},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "scenarios-dir", Usage: "directory containing scenario files"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn, error or off"},
			&cli.BoolFlag{Name: "log-json", Usage: "log JSON lines instead of console output"},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the HTTP server through an ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain"},
		},
		Action: a.runShell,
		Commands: []*cli.Command{
			{
				Name:   "shell",
				Usage:  "interactive simulation (default)",
				Action: a.runShell,
			},
			{
				Name:      "run",
				Usage:     "run a scenario file or scenario ID and print the result",
				ArgsUsage: "[file|scenario-id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "trace", Usage: "print every step"},
					&cli.BoolFlag{Name: "check", Usage: "fail when the result differs from the scenario's expected lines"},
				},
				Action: a.runScenario,
			},
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with API, WebSocket, and MCP endpoint",
				Action:  a.serve,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by the HTTP API",
				Action:  a.serveMCP,
			},
		},
	}
}

// load resolves settings and applies flag overrides
func (a *app) load(cmd *cli.Command) (*settings.Settings, zerolog.Logger, error) {
	if err := settings.LoadEnv(cmd.String("env-file")); err != nil {
		return nil, zerolog.Nop(), err
	}

	s, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if cmd.IsSet("host") {
		s.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("scenarios-dir") {
		s.ScenariosDir = cmd.String("scenarios-dir")
	}
	if cmd.IsSet("log-level") {
		s.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-json") {
		s.LogPretty = !cmd.Bool("log-json")
	}
	if cmd.IsSet("ngrok") {
		s.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	logger := logging.New(a.errOut, s.LogLevel, s.LogPretty)
	if s.ConfigFile != "" {
		logger.Debug().Str("file", s.ConfigFile).Msg("loaded settings")
	}
	return s, logger, nil
}

func (a *app) runShell(ctx context.Context, cmd *cli.Command) error {
	_, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	return shell.New(a.in, a.out, logger).Run(ctx)
}

func (a *app) runScenario(ctx context.Context, cmd *cli.Command) error {
	s, logger, err := a.load(cmd)
	if err != nil {
		return err
	}

	scenario, err := loadScenario(s.ScenariosDir, cmd.Args().First())
	if err != nil {
		return err
	}

	sim, err := scenario.Build()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Your current list of cars are:")
	for _, v := range sim.Vehicles() {
		fmt.Fprintln(a.out, v.Describe())
	}

	lines := engine.FormatResults(sim.Run())
	logger.Debug().
		Str("scenario", scenario.Name).
		Int("steps", sim.Step()).
		Int("collisions", sim.CollisionCount()).
		Msg("simulation finished")

	if cmd.Bool("trace") {
		fmt.Fprintln(a.out, "\nTrace:")
		for _, step := range sim.Trace() {
			printStep(a.out, step)
		}
	}

	fmt.Fprintln(a.out, "\nAfter simulation, the result is:")
	for _, line := range lines {
		fmt.Fprintln(a.out, line)
	}

	if cmd.Bool("check") && len(scenario.Expected) > 0 && !equalLines(scenario.Expected, lines) {
		return cli.Exit(fmt.Sprintf("result does not match the expected result of %q", scenario.Name), 1)
	}
	return nil
}

// loadScenario resolves a path to a scenario file, a scenario ID in dir, or
// the default scenario when arg is empty.
func loadScenario(dir, arg string) (*engine.Scenario, error) {
	if info, err := os.Stat(arg); arg != "" && err == nil && !info.IsDir() {
		return engine.LoadScenario(arg)
	}

	if arg == "" {
		if _, err := os.Stat(dir); err != nil {
			return engine.DefaultScenario(), nil
		}
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}
	if arg == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadScenario(arg)
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func printStep(w io.Writer, step engine.StepRecord) {
	moves := make([]string, 0, len(step.Moves))
	for _, m := range step.Moves {
		move := fmt.Sprintf("%s %s %s->%s %s", m.Vehicle, m.Command, m.From, m.To, m.HeadingAfter)
		if m.Blocked {
			move += " (edge)"
		}
		moves = append(moves, move)
	}
	fmt.Fprintf(w, "step %d: %s\n", step.Step, strings.Join(moves, "; "))

	for _, g := range step.Collisions {
		fmt.Fprintf(w, "  collision at %s: %s\n", g.Position, strings.Join(g.Vehicles, ", "))
	}
}

// newServices wires the scenario manager, the session store and the
// simulation service.
func newServices(s *settings.Settings, logger zerolog.Logger) (service.SimulationService, *session.Manager, error) {
	scenarios, err := config.NewManager(s.ScenariosDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}

	sessions := session.NewManager()

	svc, err := service.NewSimulationService(sessions, scenarios, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create simulation service: %w", err)
	}
	return svc, sessions, nil
}

// serve runs the HTTP server, the WebSocket hub, the session cleanup loop
// and the optional ngrok tunnel until ctx is cancelled.
func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	s, logger, err := a.load(cmd)
	if err != nil {
		return err
	}

	svc, sessions, err := newServices(s, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	hub := websocket.NewHub(logger)
	apiServer := api.NewServer(svc, hub, logger)

	addr := s.Addr()
	mcpClient := mcp.NewClient("http://" + addr)
	router := newRouter(apiServer, mcpClient, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("websocket", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msgf("%s v%s listening", AppName, Version)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanupLoop(gctx, sessions, s.SessionTTL, logger)
		return nil
	})

	if s.Ngrok.Enabled {
		g.Go(func() error {
			return serveNgrok(gctx, s.Ngrok, router, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter mounts the REST API at / and the MCP JSON-RPC endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client, logger zerolog.Logger) http.Handler {
	router := http.NewServeMux()
	router.Handle("/", apiServer)

	router.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			logger.Error().Err(err).Msg("failed to marshal MCP response")
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})

	return router
}

// cleanupLoop removes sessions idle for longer than ttl
func cleanupLoop(ctx context.Context, sessions *session.Manager, ttl time.Duration, logger zerolog.Logger) {
	interval := time.Hour
	if ttl < interval {
		interval = ttl
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info().Int("removed", removed).Int("remaining", sessions.Count()).Msg("cleaned up expired sessions")
			}
		}
	}
}

// serveNgrok publishes handler through an ngrok tunnel. A tunnel that cannot
// be opened is logged and does not stop the server.
func serveNgrok(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler, logger zerolog.Logger) error {
	if cfg.Authtoken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN or ngrok.authtoken)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.Authtoken))
	if err != nil {
		logger.Error().Err(err).Msg("failed to start ngrok tunnel")
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	logger.Info().
		Str("url", url).
		Str("api", url+"/api").
		Str("mcp", url+"/mcp").
		Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ngrok server error: %w", err)
	}
	logger.Info().Msg("ngrok tunnel closed")
	return nil
}

// serveMCP runs the MCP stdio server. It reuses an API already listening on
// the configured address and otherwise starts one on a random loopback port.
func (a *app) serveMCP(ctx context.Context, cmd *cli.Command) error {
	s, logger, err := a.load(cmd)
	if err != nil {
		return err
	}

	baseURL := "http://" + s.Addr()
	if apiAvailable(ctx, baseURL) {
		logger.Info().Str("api", baseURL).Msg("using external API server for MCP")
	} else {
		svc, _, err := newServices(s, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		internalURL, shutdown, err := startInternalAPI(svc, logger)
		if err != nil {
			return err
		}
		defer shutdown()

		logger.Info().Str("api", internalURL).Msg("started internal API server for MCP")
		baseURL = internalURL
	}

	logger.Info().Msg("MCP stdio server ready")
	return mcp.NewClient(baseURL).ServeStdio()
}

// apiAvailable reports whether an autodrive API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on 127.0.0.1 with a random port
func startInternalAPI(svc service.SimulationService, logger zerolog.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	httpServer := &http.Server{
		Handler: api.NewServer(svc, nil, logger),
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("internal HTTP server error")
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}

	return "http://" + listener.Addr().String(), shutdown, nil
}
