package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/skyward/combat-core/internal/cache"
	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/internal/dispatcher"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/influx"
	"github.com/skyward/combat-core/internal/logging"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/monitor"
	intOtel "github.com/skyward/combat-core/internal/otel"
	"github.com/skyward/combat-core/internal/recorder"
	"github.com/skyward/combat-core/internal/sim"
	"github.com/skyward/combat-core/internal/storage"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/util"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// tally counts the outcome of a sortie as events flow to the recorder.
type tally struct {
	*sim.Simulation
	kills, deaths, shots int
}

func (t *tally) DrainEvents() []core.Event {
	events := t.Simulation.DrainEvents()
	for _, e := range events {
		switch e.Kind {
		case core.EventKill:
			if e.SourceID == core.PlayerID {
				t.kills++
			}
		case core.EventPlayerCrashed:
			t.deaths++
		case core.EventFired, core.EventMissileLaunched:
			if e.SourceID == core.PlayerID {
				t.shots++
			}
		}
	}
	return events
}

// run flies one sortie with the configuration currently in viper and returns
// a one-line summary.
func run(ctx context.Context, opts runOptions, console io.Writer) (string, error) {
	session := time.Now().UTC()

	cfgErr := config.Load(opts.ConfigDir)

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, ExtensionName, session))
	if err != nil {
		return "", fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	missionCtx := mission.NewContext()
	level := config.GetString("logLevel")

	// OTel
	otelCfg := config.GetOTelConfig()
	var otelLog, otelMetrics *os.File
	if otelCfg.Enabled {
		if otelLog, err = os.Create(logging.LogFilePath(logsDir, ExtensionName+".otel", session)); err != nil {
			return "", fmt.Errorf("creating otel log file: %w", err)
		}
		defer otelLog.Close()
		if otelMetrics, err = os.Create(logging.LogFilePath(logsDir, ExtensionName+".metrics", session)); err != nil {
			return "", fmt.Errorf("creating otel metrics file: %w", err)
		}
		defer otelMetrics.Close()
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    writerOrNil(otelLog),
		MetricWriter: writerOrNil(otelMetrics),
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return "", fmt.Errorf("setting up otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	logOpts := logging.Options{
		File:     logFile,
		Console:  console,
		Level:    level,
		Provider: provider.LoggerProvider(),
		Context:  logging.SimContext(missionCtx.MissionName, missionCtx.Tick),
		Name:     ExtensionName,
	}
	var gelfErr error
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGELFWriter(config.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			logOpts.GELF = w
		}
	}
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logOpts)
	defer func() { _ = slogManager.Flush(context.Background()) }()
	logger := slogManager.Logger()

	if cfgErr != nil {
		logger.Warn("No config file, using defaults and flags", "error", cfgErr)
	}
	if gelfErr != nil {
		logger.Warn("Graylog disabled", "error", gelfErr)
	}

	simCfg := config.GetSimConfig()
	simulation, world, err := buildSimulation(simCfg, logger)
	if err != nil {
		return "", err
	}
	defer simulation.Close()

	origin, err := geo.NewOrigin(simCfg.OriginLon, simCfg.OriginLat)
	if err != nil {
		return "", fmt.Errorf("mission origin: %w", err)
	}

	// Storage
	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == "sqlite" && storageCfg.SQLite.DumpPath == "" {
		storageCfg.SQLite.DumpPath = filepath.Join(logsDir, util.StampedFileName(ExtensionName, session, ".db"))
	}
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Logger:         logger.With("component", "storage"),
		DBLogger:       logging.NewZerolog(logFile, level, "database"),
		Origin:         origin,
		DB:             config.GetDBConfig(),
		MissionContext: missionCtx,
		BackupDir:      logsDir,
	})
	if err != nil {
		return "", fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return "", fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	// Influx
	var telemetry recorder.TelemetryWriter
	influxManager, err := connectInflux(ctx, logsDir, session, logging.NewZerolog(logFile, level, "influx"))
	switch {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		logger.Warn("Telemetry writer unavailable", "error", err)
	default:
		telemetry = influxManager
		defer influxManager.Close()
	}

	d, err := dispatcher.New(logger.With("component", "dispatcher"))
	if err != nil {
		_ = backend.Close()
		return "", fmt.Errorf("creating dispatcher: %w", err)
	}

	rec := recorder.NewManager(recorder.Dependencies{
		Backend:        backend,
		Dispatcher:     d,
		Cache:          cache.NewEnemyCache(),
		MissionContext: missionCtx,
		Telemetry:      telemetry,
		Logger:         logger.With("component", "recorder"),
		FrameInterval:  simCfg.FrameInterval,
	})

	queues := []monitor.QueueReporter{d}
	if q, ok := backend.(monitor.QueueReporter); ok {
		queues = append(queues, q)
	}
	mon := monitor.NewService(monitor.Dependencies{
		Pools:          simulation,
		Queues:         queues,
		Dispatcher:     d,
		MissionContext: missionCtx,
		Logger:         logger.With("component", "monitor"),
		StatusDir:      logsDir,
		Interval:       simCfg.MonitorEvery,
	})

	m := &core.Mission{
		Name:             simCfg.MissionName,
		Aircraft:         simCfg.Aircraft,
		Difficulty:       simCfg.Difficulty,
		Seed:             simCfg.Seed,
		TickRate:         float64(simCfg.TickRate),
		StartTime:        session,
		ExtensionVersion: CurrentExtensionVersion,
		ExtensionBuild:   BuildDate,
	}
	if err := rec.Start(m, world); err != nil {
		d.Close()
		_ = backend.Close()
		return "", err
	}
	if err := mon.Start(); err != nil {
		logger.Warn("Status monitor not started", "error", err)
	}

	wave := sim.DefaultWave(simCfg.Enemies, simCfg.GroundEnemies)
	wave.Center = vmath.V(0, 0, -5000)
	if ids, err := simulation.SpawnWave(wave); err != nil {
		logger.Warn("Wave partially spawned", "spawned", len(ids), "error", err)
	}

	src := &tally{Simulation: simulation}
	ticks, interrupted := fly(ctx, src, rec, mon, simCfg, opts.Realtime, logger)

	// Drain the pipeline before the backend writes its recording.
	mon.Stop()
	d.Close()
	var errs []error
	if err := rec.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}

	output := "none"
	if up, ok := backend.(storage.Uploadable); ok && up.GetExportedFilePath() != "" {
		output = up.GetExportedFilePath()
	}
	logger.Info("Sortie complete",
		"ticks", ticks,
		"interrupted", interrupted,
		"frames", rec.Frames(),
		"kills", src.kills,
		"deaths", src.deaths,
		"output", output)

	summary := fmt.Sprintf("%s: %d ticks, %d frames, %d kills, %d deaths, %d shots, recording %s",
		m.Name, ticks, rec.Frames(), src.kills, src.deaths, src.shots, output)
	if interrupted {
		summary += " (interrupted)"
	}
	return summary, errors.Join(errs...)
}

// fly runs the tick loop until the configured duration has been simulated
// or ctx is cancelled.
func fly(ctx context.Context, src *tally, rec *recorder.Manager, mon *monitor.Service, cfg config.SimConfig, realtime bool, logger *slog.Logger) (ticks int, interrupted bool) {
	dt := 1 / float64(cfg.TickRate)
	total := int(cfg.Duration.Seconds() * float64(cfg.TickRate))
	pilot := NewAutopilot(src.Player.Position.Y)

	var pace <-chan time.Time
	if realtime {
		t := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer t.Stop()
		pace = t.C
	}

	for ticks < total {
		select {
		case <-ctx.Done():
			return ticks, true
		default:
		}

		start := time.Now()
		src.Tick(pilot.Steer(ViewOf(src.Simulation)), dt)
		mon.ObserveTick(time.Since(start))
		if err := rec.Observe(src); err != nil {
			logger.Debug("Recording incomplete", "tick", ticks, "error", err)
		}
		ticks++

		if pace != nil {
			select {
			case <-ctx.Done():
				return ticks, true
			case <-pace:
			}
		}
	}
	return ticks, false
}

// buildSimulation creates the simulation and the world record it flies in.
func buildSimulation(cfg config.SimConfig, logger *slog.Logger) (*sim.Simulation, *core.World, error) {
	if cfg.TickRate <= 0 || float64(cfg.TickRate) < 1/flight.MaxDt {
		return nil, nil, fmt.Errorf("tick rate %d is below %v Hz", cfg.TickRate, 1/flight.MaxDt)
	}
	difficulty, err := combat.ParseDifficulty(cfg.Difficulty)
	if err != nil {
		return nil, nil, err
	}

	var data *gamedata.Tables
	if cfg.DataFile != "" {
		if data, err = gamedata.Load(cfg.DataFile); err != nil {
			return nil, nil, err
		}
	}

	var ground terrain.Terrain = terrain.Flat{Elevation: cfg.BaseHeight}
	if cfg.TerrainType == "rolling" {
		ground = terrain.NewRolling(cfg.BaseHeight, cfg.Amplitude, cfg.Wavelength)
	}

	spawn := vmath.V(0, ground.HeightAt(0, 0)+1500, 0)
	s, err := sim.New(sim.Config{
		Data:       data,
		Plane:      cfg.Aircraft,
		Difficulty: difficulty,
		Seed:       cfg.Seed,
		Terrain:    ground,
		Bounds: flight.Bounds{
			Radius:  cfg.BoundsRadius,
			Ceiling: cfg.BoundsCeiling,
			Limit:   cfg.BoundsLimit.Seconds(),
		},
		ChaffModel: combat.ParseChaffModel(cfg.ChaffModel),
		Spawn:      spawn,
		SpawnSpeed: 220,
		Logger:     logger.With("component", "sim"),
	})
	if err != nil {
		return nil, nil, err
	}

	world := &core.World{
		Name:        fmt.Sprintf("%s_%.0f_%.0f", cfg.TerrainType, cfg.Amplitude, cfg.Wavelength),
		TerrainType: cfg.TerrainType,
		BaseHeight:  cfg.BaseHeight,
		Amplitude:   cfg.Amplitude,
		Latitude:    cfg.OriginLat,
		Longitude:   cfg.OriginLon,
	}
	return s, world, nil
}

func connectInflux(ctx context.Context, logsDir string, session time.Time, log zerolog.Logger) (*influx.Manager, error) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil, influx.ErrDisabled
	}
	backup := filepath.Join(logsDir, util.StampedFileName("influx_backup", session, ".lp.gz"))
	m := influx.NewManager(cfg, log, backup)
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Connect(connectCtx); err != nil {
		return nil, err
	}
	return m, nil
}

// writerOrNil keeps a nil *os.File from becoming a non-nil io.Writer.
func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
