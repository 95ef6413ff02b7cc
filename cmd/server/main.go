package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"

	"arena/server/internal/app"
	"arena/server/internal/config"
	"arena/server/internal/telemetry"
)

func main() {
	var (
		configPath  string
		profileMode string
		profileDir  string
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flag.StringVar(&profileMode, "profile", "", "enable profiling: cpu, mem or trace")
	flag.StringVar(&profileDir, "profile-dir", ".", "directory for profile output")
	flag.Parse()

	logger := telemetry.WrapLogger(log.Default())

	settings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		logger.Printf("config: %v", err)
	}
	settings = settings.Normalized()

	if stop := startProfile(profileMode, profileDir); stop != nil {
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, app.Config{Logger: logger, Settings: settings, ConfigPath: configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}

func startProfile(mode, dir string) func() {
	var kind func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		kind = profile.CPUProfile
	case "mem":
		kind = profile.MemProfile
	case "trace":
		kind = profile.TraceProfile
	default:
		log.Fatalf("unknown profile mode %q", mode)
	}
	p := profile.Start(kind, profile.ProfilePath(dir), profile.NoShutdownHook)
	return p.Stop
}
