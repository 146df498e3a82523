// Package app wires a host process: configuration, the logging router, the
// simulation loop, the hub and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/config"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/hub"
	servernet "github.com/moonhappy/biophage-xna-2009-sub001/internal/net"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/results"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/sim"
	"github.com/moonhappy/biophage-xna-2009-sub001/internal/telemetry"
	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
	loggingSinks "github.com/moonhappy/biophage-xna-2009-sub001/logging/sinks"
)

const (
	envConfig    = "BIOPHAGE_CONFIG"
	envAddr      = "BIOPHAGE_ADDR"
	envOutputDir = "BIOPHAGE_OUTPUT_DIR"
	envTickRate  = "BIOPHAGE_TICK_RATE"
	envPprof     = "BIOPHAGE_PPROF_TRACE"

	shutdownTimeout = 5 * time.Second

	// recentSink keeps the last events for /diagnostics.
	recentSink = "recent"
)

type Config struct {
	Logger telemetry.Logger
	// ConfigPath is a YAML file layered over the embedded defaults.
	ConfigPath string
	// Addr overrides net.addr when set.
	Addr string
	// OutputDir overrides output.dir when set.
	OutputDir string
	// Console receives the console sink; nil means stdout.
	Console io.Writer
}

// App is a wired host that has not started serving.
type App struct {
	cfg     *config.Config
	logger  telemetry.Logger
	router  *logging.Router
	metrics *logging.Metrics
	output  *results.Writer
	hub     *hub.Hub
	game    *sim.Game
	loop    *sim.Loop
	handler nethttp.Handler
	closers []io.Closer

	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

func Run(ctx context.Context, cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}
	a.Start()

	srv := &nethttp.Server{Addr: a.cfg.Net.Addr, Handler: a.handler}
	errs := make(chan error, 1)
	go func() {
		a.logger.Printf("server listening on %s", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.shutdown(srv)
	case <-a.done:
		a.logger.Printf("match finished, shutting down")
		a.shutdown(srv)
	case err := <-errs:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (a *App) shutdown(srv *nethttp.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Printf("server shutdown: %v", err)
	}
}

// New loads configuration and wires every component.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	applyEnv(&cfg)
	gameCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Addr != "" {
		gameCfg.Net.Addr = cfg.Addr
	}
	if cfg.OutputDir != "" {
		gameCfg.Output.Dir = cfg.OutputDir
	}
	if raw := os.Getenv(envTickRate); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			gameCfg.Sim.TickRate = value
		} else {
			logger.Printf("invalid %s=%q: %v", envTickRate, raw, err)
		}
	}
	if raw := os.Getenv(envPprof); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			gameCfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid %s=%q: %v", envPprof, raw, err)
		}
	}
	if err := gameCfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		cfg:     gameCfg,
		logger:  logger,
		metrics: &logging.Metrics{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	sinks, closers, err := buildSinks(gameCfg, console)
	if err != nil {
		return nil, err
	}
	a.closers = closers
	a.router = logging.NewRouter(logging.SystemClock{}, gameCfg.Logging, fallbackLogger, sinks)

	output, err := results.NewWriter(gameCfg.Output.Dir)
	if err != nil {
		a.closeResources(context.Background())
		return nil, err
	}
	a.output = output
	if err := output.WriteConfig(gameCfg); err != nil {
		logger.Printf("failed to write config.yaml: %v", err)
	}

	metrics := telemetry.WrapMetrics(a.metrics)
	a.hub = hub.New(hub.Config{
		TickRate:     gameCfg.Sim.TickRate,
		SendQueue:    gameCfg.Net.SendQueue,
		PingInterval: gameCfg.Net.PingInterval,
		Logger:       logger,
		Metrics:      metrics,
	})
	deps := sim.Deps{Logger: logger, Metrics: metrics, Clock: logging.SystemClock{}, Publisher: a.router}
	a.game = sim.NewGame(gameCfg, deps, a.hub, sim.Hooks{OnGameOver: a.onGameOver})

	obs := newObserver(a.game, a.router, metrics, output, logger, gameCfg.Output.TelemetryInterval)
	a.loop = sim.NewLoop(a.game, sim.LoopConfig{
		TickRate:        gameCfg.Sim.TickRate,
		CatchupMaxTicks: gameCfg.Sim.MaxCatchUp,
		CommandCapacity: gameCfg.Sim.CommandCapacity,
		PerActorLimit:   gameCfg.Sim.PerActorLimit,
		LingerAfterOver: gameCfg.Sim.LingerAfterOver,
	}, sim.LoopHooks{AfterStep: obs.afterStep})
	a.hub.Bind(a.loop)

	handlerCfg := servernet.HTTPHandlerConfig{
		Logger:        logger,
		Metrics:       a.metrics,
		Publisher:     a.router,
		Status:        a.loop.Status,
		RouterStats:   a.router.Stats,
		TickRate:      gameCfg.Sim.TickRate,
		Observability: gameCfg.Observability,
	}
	if recent, ok := a.router.Sink(recentSink).(*loggingSinks.MemorySink); ok {
		handlerCfg.RecentEvents = recent.Events
	}
	a.handler = servernet.NewHTTPHandler(a.hub, handlerCfg)
	return a, nil
}

func (a *App) Handler() nethttp.Handler { return a.handler }
func (a *App) Config() *config.Config   { return a.cfg }
func (a *App) Hub() *hub.Hub            { return a.hub }
func (a *App) Loop() *sim.Loop          { return a.loop }

// Start runs the simulation loop in the background.
func (a *App) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(a.done)
		a.loop.Run(a.stop)
	}()
}

// Close stops the loop, disconnects every subscriber and flushes output.
func (a *App) Close(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stop) })
	if a.started.Load() {
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a.hub.Close()
	return a.closeResources(ctx)
}

func (a *App) closeResources(ctx context.Context) error {
	var firstErr error
	if err := a.output.Close(); err != nil {
		firstErr = fmt.Errorf("closing telemetry: %w", err)
	}
	if a.router != nil {
		if err := a.router.Close(ctx); err != nil {
			a.logger.Printf("failed to close logging router: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, c := range a.closers {
		c.Close()
	}
	return firstErr
}

// onGameOver runs on the loop goroutine.
func (a *App) onGameOver(reason uint8, standings []sim.Standing) {
	for _, s := range standings {
		a.logger.Printf("[results] #%d virus=%d name=%q bot=%t infection=%.1f%%", s.Rank, s.Virus, s.Name, s.Bot, s.Infection)
	}
	if err := a.output.WriteStandings(reason, standings); err != nil {
		a.logger.Printf("failed to write standings: %v", err)
	}
	if err := a.output.WriteTelemetry(results.SampleOf(a.game)); err != nil {
		a.logger.Printf("failed to write final telemetry: %v", err)
	}
}

// applyEnv fills unset fields from the environment.
func applyEnv(cfg *Config) {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = os.Getenv(envConfig)
	}
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv(envAddr)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.Getenv(envOutputDir)
	}
}

// buildSinks constructs the enabled sinks. The json sink writes to its
// configured file, or events.jsonl in the output directory.
func buildSinks(cfg *config.Config, console io.Writer) ([]logging.NamedSink, []io.Closer, error) {
	var sinks []logging.NamedSink
	var closers []io.Closer
	if cfg.Logging.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(console), MinSeverity: cfg.Logging.SeverityFor("console")})
	}
	if cfg.Logging.HasSink("json") {
		path := cfg.Logging.JSON.FilePath
		if path == "" && cfg.Output.Dir != "" {
			path = filepath.Join(cfg.Output.Dir, "events.jsonl")
		}
		if path == "" {
			return nil, nil, errors.New("json sink enabled without logging.json.file_path or output.dir")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating json sink directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("creating json sink: %w", err)
		}
		closers = append(closers, f)
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, cfg.Logging.JSON.FlushInterval), MinSeverity: cfg.Logging.SeverityFor("json")})
	}
	if cfg.Logging.RecentEvents > 0 {
		sinks = append(sinks, logging.NamedSink{Name: recentSink, Sink: loggingSinks.NewBoundedMemorySink(cfg.Logging.RecentEvents), MinSeverity: cfg.Logging.SeverityFor(recentSink)})
	}
	return sinks, closers, nil
}
