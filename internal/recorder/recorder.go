// Package recorder turns a running simulation into storage records. The
// runner calls Observe after every tick; events, spawns, frames and
// telemetry travel through the dispatcher to the handlers registered here.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skyward/combat-core/internal/cache"
	"github.com/skyward/combat-core/internal/dispatcher"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/storage"
	"github.com/skyward/combat-core/pkg/core"
)

// DefaultFrameInterval is the simulation time between recorded frames.
const DefaultFrameInterval = 500 * time.Millisecond

var (
	// ErrTooEarlyForStateAssociation is returned when state data arrives before the enemy is registered
	ErrTooEarlyForStateAssociation = errors.New("too early for state association")
	// ErrNotStarted is returned by Observe before Start.
	ErrNotStarted = errors.New("recording not started")
	// ErrBadPayload is returned by a handler given the wrong payload type.
	ErrBadPayload = errors.New("unexpected payload")
)

// Source is the simulation as the recorder sees it.
type Source interface {
	Clock() (tick uint64, simTime float64)
	DrainEvents() []core.Event
	Snapshot() core.Snapshot
	EnemyInfo(id int) (core.Enemy, bool)
	Telemetry() core.Telemetry
}

// TelemetryWriter receives time-series samples, typically *influx.Manager.
type TelemetryWriter interface {
	WriteTelemetry(t core.Telemetry, mission string) error
	WritePerformance(p core.Performance, mission string) error
}

// Dependencies holds all dependencies for the recorder
type Dependencies struct {
	Backend        storage.Backend
	Dispatcher     *dispatcher.Dispatcher
	Cache          *cache.EnemyCache
	MissionContext *mission.Context
	Telemetry      TelemetryWriter // optional
	Logger         *slog.Logger
	FrameInterval  time.Duration
}

// Frame is one recorded sample of the whole world.
type Frame struct {
	Number   uint
	Time     time.Time
	Snapshot core.Snapshot
}

// Manager records one mission at a time.
type Manager struct {
	deps Dependencies

	mu      sync.RWMutex
	mission *core.Mission
	started bool

	// owned by the Observe caller
	frame     uint
	nextFrame float64
}

// NewManager creates a recorder and registers its dispatcher handlers.
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewEnemyCache()
	}
	if deps.MissionContext == nil {
		deps.MissionContext = mission.NewContext()
	}
	if deps.FrameInterval <= 0 {
		deps.FrameInterval = DefaultFrameInterval
	}
	m := &Manager{deps: deps}
	m.RegisterHandlers(deps.Dispatcher)
	return m
}

// Start opens a mission on the backend and resets frame numbering.
func (m *Manager) Start(mission *core.Mission, world *core.World) error {
	if err := m.deps.Backend.StartMission(mission, world); err != nil {
		return fmt.Errorf("starting mission: %w", err)
	}
	m.deps.Cache.Reset()
	m.deps.MissionContext.SetMission(mission, world)

	m.mu.Lock()
	m.mission = mission
	m.started = true
	m.mu.Unlock()

	m.frame = 0
	m.nextFrame = 0
	m.deps.Logger.Info("Recording started", "mission", mission.Name, "frameInterval", m.deps.FrameInterval)
	return nil
}

// Stop ends the mission on the backend. Close the dispatcher first so every
// buffered record reaches the backend.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.mu.Unlock()

	if err := m.deps.Backend.EndMission(); err != nil {
		return fmt.Errorf("ending mission: %w", err)
	}
	m.deps.Logger.Info("Recording stopped", "frames", m.frame, "enemies", m.deps.Cache.Len())
	return nil
}

// Frames is the number of frames recorded so far.
func (m *Manager) Frames() uint {
	return m.frame
}

// at maps simulation seconds onto the mission's wall clock.
func (m *Manager) at(simTime float64) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mission == nil {
		return time.Time{}
	}
	return m.mission.StartTime.Add(time.Duration(simTime * float64(time.Second)))
}

func (m *Manager) missionName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mission == nil {
		return ""
	}
	return m.mission.Name
}

// Observe drains the tick's events and, when a frame is due, records the
// world. Call it between ticks from the goroutine that owns the simulation.
func (m *Manager) Observe(src Source) error {
	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	tick, simTime := src.Clock()
	m.deps.MissionContext.SetTick(tick)

	var errs []error
	for _, ev := range src.DrainEvents() {
		errs = append(errs, m.dispatch(TopicEvent, ev.Tick, ev))
	}

	if simTime+1e-9 < m.nextFrame {
		return errors.Join(errs...)
	}
	interval := m.deps.FrameInterval.Seconds()
	for m.nextFrame <= simTime+1e-9 {
		m.nextFrame += interval
	}

	snap := src.Snapshot()
	at := m.at(snap.Time)
	for _, e := range snap.Enemies {
		if m.deps.Cache.Has(e.ID) {
			continue
		}
		info, ok := src.EnemyInfo(e.ID)
		if !ok {
			continue
		}
		info.JoinTime = at
		errs = append(errs, m.dispatch(TopicSpawn, tick, info))
	}

	m.frame++
	errs = append(errs, m.dispatch(TopicFrame, tick, Frame{Number: m.frame, Time: at, Snapshot: snap}))

	tel := src.Telemetry()
	tel.Time = at
	errs = append(errs, m.dispatch(TopicTelemetry, tick, tel))

	return errors.Join(errs...)
}

func (m *Manager) dispatch(topic string, tick uint64, payload any) error {
	_, err := m.deps.Dispatcher.Dispatch(dispatcher.Event{Topic: topic, Tick: tick, Payload: payload})
	return err
}
