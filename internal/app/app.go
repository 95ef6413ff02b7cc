package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"arena/server/internal/combat"
	"arena/server/internal/config"
	"arena/server/internal/hub"
	servernet "arena/server/internal/net"
	"arena/server/internal/sim"
	"arena/server/internal/telemetry"
	"arena/server/logging"
	loggingSinks "arena/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
	// ConfigPath, when set, is watched and tuning changes are applied live.
	ConfigPath string
	Stdout     io.Writer
	// Listening receives the bound address once the server accepts
	// connections.
	Listening func(addr string)
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	settings := cfg.Settings.Normalized()
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	sinks, err := buildSinks(settings.Logging, stdout)
	if err != nil {
		return err
	}
	router := logging.NewRouter(logging.SystemClock{}, settings.Logging, sinks, fallbackLogger)
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := telemetry.NewCounters()
	deps := sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   counters,
		Publisher: router,
		Clock:     logging.SystemClock{},
	}
	if settings.Seed != 0 {
		deps.RNG = rand.New(rand.NewSource(settings.Seed))
	}
	if settings.DamageScript != "" {
		policy, err := combat.LoadScriptedDamage(settings.DamageScript, func(err error) {
			telemetryLogger.Printf("[combat] damage script: %v", err)
		})
		if err != nil {
			return fmt.Errorf("failed to load damage script: %w", err)
		}
		deps.Damage = policy
	}

	simulation, err := sim.New(settings.World, settings.Tuning, deps)
	if err != nil {
		return fmt.Errorf("failed to construct simulation: %w", err)
	}

	var h *hub.Hub
	loop := sim.NewLoop(simulation, settings.Loop, sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) { h.Broadcast(result) },
	})
	h = hub.New(loop, hub.Config{
		QueueSize: settings.SessionQueue,
		Logger:    telemetryLogger,
		Metrics:   counters,
		Publisher: router,
	})

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	if cfg.ConfigPath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigPath, nil)
		if err != nil {
			telemetryLogger.Printf("config hot reload disabled: %v", err)
		} else {
			go watcher.Run(loopCtx, func(next config.Config) {
				retune(loop, next.Tuning, telemetryLogger)
			}, func(err error) {
				telemetryLogger.Printf("config reload failed: %v", err)
			})
		}
	}

	handler := servernet.NewHTTPHandler(h, servernet.HTTPHandlerConfig{
		Logger:   telemetryLogger,
		Counters: counters,
		TickRate: settings.Loop.TickRate,
	})

	listener, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", settings.Addr, err)
	}
	srv := &http.Server{Handler: handler}
	telemetryLogger.Printf("server listening on %s", listener.Addr())
	if cfg.Listening != nil {
		cfg.Listening(listener.Addr().String())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func retune(loop *sim.Loop, tuning sim.Tuning, logger telemetry.Logger) {
	ok, reason := loop.Enqueue(sim.Command{
		Type:     sim.CommandRetune,
		IssuedAt: time.Now(),
		Retune:   &tuning,
	})
	if !ok {
		logger.Printf("retune dropped: %s", reason)
		return
	}
	logger.Printf("tuning reloaded: cooldown=%s speed=%v", tuning.AttackCooldown, tuning.MoveSpeed)
}

func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(stdout)})
	}
	if cfg.HasSink("json") {
		path := cfg.JSON.FilePath
		if path == "" {
			path = "arena-events.ndjson"
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open json log %s: %w", path, err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}
