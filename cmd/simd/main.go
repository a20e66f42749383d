// Package main provides the simulation daemon: it loads effect kinds and
// scripts, resumes saved entities, advances the world one round per interval
// and persists it, serving gRPC health and a websocket notification stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vitals/internal/config"
	"github.com/cory-johannsen/vitals/internal/game/dice"
	"github.com/cory-johannsen/vitals/internal/game/entity"
	"github.com/cory-johannsen/vitals/internal/game/kind"
	"github.com/cory-johannsen/vitals/internal/game/simulation"
	"github.com/cory-johannsen/vitals/internal/notify"
	"github.com/cory-johannsen/vitals/internal/observability"
	"github.com/cory-johannsen/vitals/internal/scripting"
	"github.com/cory-johannsen/vitals/internal/server"
	"github.com/cory-johannsen/vitals/internal/storage/postgres"
	"github.com/cory-johannsen/vitals/internal/storage/sqlite"
)

const (
	healthInterval = 30 * time.Second
	shutdownGrace  = 10 * time.Second
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	rosterPath := flag.String("roster", "", "optional roster YAML of entities to spawn when absent from storage")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "simd")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	roller := dice.NewLoggedRoller(dice.NewSource(cfg.Simulation.Seed), logger)

	// Effect kinds
	registry := kind.NewRegistry(logger)
	if _, err := registry.LoadDirectory(cfg.Simulation.EffectsDir); err != nil {
		logger.Fatal("loading effect kinds", zap.Error(err))
	}

	// Scripts
	var scripts kind.Scripts
	if cfg.Simulation.ScriptsDir != "" {
		mgr := scripting.NewManager(roller, logger)
		if err := mgr.Load(cfg.Simulation.ScriptsDir, cfg.Simulation.InstructionLimit); err != nil {
			logger.Fatal("loading effect scripts", zap.Error(err))
		}
		defer mgr.Close()
		scripts = mgr
	}

	// Notifications
	sinks := notify.Fanout{notify.NewLogSink(logger)}
	var hub *notify.Hub
	if cfg.Notify.Enabled {
		hub = notify.NewHub(cfg.Notify.Buffer, cfg.Notify.OriginPatterns, logger)
		sinks = append(sinks, hub)
	}

	dir := entity.NewDirectory()
	runner := simulation.NewRunner(registry, dir, roller, sinks, scripts, logger)
	world := simulation.NewWorld(dir, runner, logger)

	lifecycle := server.NewLifecycle(logger)
	health := server.NewHealth(cfg.Health.Addr(), healthInterval, logger)

	// Storage
	var store simulation.Store
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.NewSnapshotRepository(pool.DB())
		health.AddProbe("postgres", func(ctx context.Context) error {
			return pool.Health(ctx, healthInterval/2)
		})
	case "sqlite":
		sf, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal("opening save file", zap.Error(err), zap.String("path", cfg.Storage.SQLitePath))
		}
		defer sf.Close()
		store = sf
	}

	var saver *simulation.Saver
	if store != nil {
		saver = simulation.NewSaver(store, world, cfg.Storage.SaveConcurrency, logger)
		loaded, err := saver.LoadAll(ctx)
		if err != nil {
			logger.Fatal("resuming saved entities", zap.Error(err))
		}
		logger.Info("entities resumed", zap.Int("count", loaded))
	}

	if *rosterPath != "" {
		roster, err := simulation.LoadRoster(*rosterPath)
		if err != nil {
			logger.Fatal("loading roster", zap.Error(err))
		}
		spawned, err := roster.Populate(world)
		if err != nil {
			logger.Fatal("populating roster", zap.Error(err))
		}
		logger.Info("roster populated", zap.Int("spawned", spawned))
	}

	stallLimit := max(3*cfg.Simulation.RoundInterval, 2*healthInterval)
	health.AddProbe("simulation", server.StallProbe(world.Round, stallLimit, time.Now))

	if saver != nil {
		saveCtx, cancelSave := context.WithCancel(ctx)
		lifecycle.Add("saver", &server.FuncService{
			StartFn: func() error {
				saver.Run(saveCtx, cfg.Simulation.SaveInterval)
				return nil
			},
			StopFn: func() {
				cancelSave()
				finalCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if _, err := saver.SaveAll(finalCtx); err != nil {
					logger.Error("final save failed", zap.Error(err))
				}
			},
		})
	}

	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/events", hub)
		httpServer := &http.Server{
			Addr:              cfg.Notify.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycle.Add("notify", &server.FuncService{
			StartFn: func() error {
				lis, err := net.Listen("tcp", httpServer.Addr)
				if err != nil {
					return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
				}
				logger.Info("notification stream listening", zap.String("addr", lis.Addr().String()))
				if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			},
		})
	}

	// Stopped before the saver so the final save sees a quiescent world.
	clock := simulation.NewRoundClock(cfg.Simulation.RoundInterval, func() {
		round := world.TickAll()
		logger.Debug("round complete", zap.Uint64("round", round), zap.Int("entities", world.Len()))
	})
	lifecycle.Add("rounds", clock)
	lifecycle.Add("health", health)

	logger.Info("simulation daemon initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("entities", world.Len()),
		zap.Duration("round_interval", cfg.Simulation.RoundInterval),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("health_addr", cfg.Health.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
