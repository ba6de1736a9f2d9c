// Command robotd runs the robot command control plane's HttpFaçade:
// wires platform config/logging/telemetry, the arm/dispenser/speaker/
// safety/policy/store collaborators, the CommandManager, and the HTTP
// server, then blocks for a shutdown signal — the same
// config-then-signal-handler-then-serve shape examples/basic-agent/main.go
// uses.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HukkaMehu/LePetPal/internal/arm"
	"github.com/HukkaMehu/LePetPal/internal/command"
	"github.com/HukkaMehu/LePetPal/internal/dispenser"
	"github.com/HukkaMehu/LePetPal/internal/httpapi"
	"github.com/HukkaMehu/LePetPal/internal/platform"
	"github.com/HukkaMehu/LePetPal/internal/platform/telemetry"
	"github.com/HukkaMehu/LePetPal/internal/policy"
	"github.com/HukkaMehu/LePetPal/internal/safety"
	"github.com/HukkaMehu/LePetPal/internal/speaker"
	"github.com/HukkaMehu/LePetPal/internal/store"
)

func main() {
	cfg, err := platform.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger("robotd")

	tp, err := telemetry.NewProvider("robotd", cfg.OTelEndpoint, logger.WithComponent("telemetry"))
	if err != nil {
		logger.Error("telemetry init failed, continuing without tracing", map[string]interface{}{"error": err.Error()})
		tp = nil
	}
	var tel platform.Telemetry = platform.NoOpTelemetry{}
	if tp != nil {
		tel = tp
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	var driver arm.Driver
	if cfg.UseHardware {
		driver = arm.NewSerialDriver(os.Getenv("ARM_PORT"), logger.WithComponent("arm"))
	} else {
		driver = arm.NewMockDriver(cfg.JointUnits, logger.WithComponent("arm"))
	}
	if _, err := driver.Connect(context.Background()); err != nil {
		logger.Error("arm connect failed at startup", map[string]interface{}{"error": err.Error()})
	}

	gate := safety.NewJointGate(cfg.CalibrationPath, true, logger.WithComponent("safety"))

	var factory policy.Factory
	switch cfg.ModelMode {
	case "scripted", "":
		factory = policy.NewScriptedFactory()
	default:
		logger.Warn("unrecognized MODEL_MODE, falling back to scripted", map[string]interface{}{"model_mode": cfg.ModelMode})
		factory = policy.NewScriptedFactory()
	}

	var requestStore store.RequestStore
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.NewRedisRequestStore(cfg.RedisURL, cfg.Resilience.CircuitBreakerThreshold, cfg.Resilience.CircuitBreakerTimeout, logger.WithComponent("store"))
		if err != nil {
			logger.Error("redis store unavailable, falling back to in-memory", map[string]interface{}{"error": err.Error()})
			requestStore = store.NewInMemoryStore(logger.WithComponent("store"))
		} else {
			requestStore = rs
			defer rs.Close()
		}
	default:
		requestStore = store.NewInMemoryStore(logger.WithComponent("store"))
	}

	manager := command.New(command.Options{
		Store:     requestStore,
		Driver:    driver,
		Gate:      gate,
		Factory:   factory,
		RateHz:    cfg.InferenceRateHz,
		Logger:    logger.WithComponent("command"),
		Telemetry: tel,
	})

	srv := httpapi.NewServer(cfg.Port, httpapi.Deps{
		Manager:      manager,
		Store:        requestStore,
		Dispenser:    dispenser.NewMockDispenser(logger.WithComponent("dispenser")),
		Speaker:      speaker.NewMockSpeaker(logger.WithComponent("speaker")),
		Video:        nil, // no FrameSource wired: camera capture is out of scope (spec.md §1)
		Logger:       logger.WithComponent("http"),
		CORS:         httpapi.CORSConfig{Enabled: len(cfg.CORSOrigins) > 0, AllowedOrigins: cfg.CORSOrigins},
		Verbose:      cfg.Logging.Level == "debug",
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("robotd stopped", nil)
}
