package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/slab-nesting/internal/application"
	"github.com/eugenenazirov/slab-nesting/internal/config"
	"github.com/eugenenazirov/slab-nesting/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("slab-nesting", "Slab nesting calculator - counts how many copies of each piece fit on a slab")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file (defaults to ./.env when present)").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	slab := kingpinApp.Flag("slab", "Initial slab size as WIDTHxHEIGHT, e.g. 1000x2000").String()
	pieces := kingpinApp.Flag("piece", "Initial piece as NAME:WIDTHxHEIGHT[:#rrggbb] (repeatable)").Strings()
	displayExtent := kingpinApp.Flag("display-extent", "Display length of the slab's longer side").Default("0").Float64()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		Pieces:     *pieces,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *slab != "" {
		overrides.Slab = slab
	}

	if *displayExtent > 0 {
		overrides.DisplayExtent = displayExtent
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(logging.WithLevel(cfg.LogLevel), logging.WithService("slab-nesting"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	logger.Info("session initialised",
		zap.Float64("slab_width", cfg.Slab.Width),
		zap.Float64("slab_height", cfg.Slab.Height),
		zap.Int("configured_pieces", len(cfg.Pieces)),
		zap.Float64("display_extent", cfg.DisplayExtent),
	)

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
