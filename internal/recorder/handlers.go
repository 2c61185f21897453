package recorder

import (
	"errors"
	"fmt"

	"github.com/skyward/combat-core/internal/dispatcher"
	"github.com/skyward/combat-core/internal/storage"
	"github.com/skyward/combat-core/pkg/core"
)

// Dispatcher topics published by Observe and the monitor.
const (
	TopicSpawn       = "spawn"
	TopicFrame       = "frame"
	TopicEvent       = "event"
	TopicTelemetry   = "telemetry"
	TopicPerformance = "performance"
)

// RegisterHandlers registers all recording handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Enemy registration - sync (need to cache before states arrive)
	d.Register(TopicSpawn, m.handleSpawn, dispatcher.Logged())

	// Frames and combat events must not be lost
	d.Register(TopicFrame, m.handleFrame, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(TopicEvent, m.handleEvent, dispatcher.Buffered(5000), dispatcher.Blocking(), dispatcher.Logged())

	// Samples - buffered, dropped under pressure
	d.Register(TopicTelemetry, m.handleTelemetry, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(TopicPerformance, m.handlePerformance, dispatcher.Buffered(100), dispatcher.Logged())
}

func payload[T any](e dispatcher.Event) (T, error) {
	v, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w on %s: %T", ErrBadPayload, e.Topic, e.Payload)
	}
	return v, nil
}

func (m *Manager) handleSpawn(e dispatcher.Event) (any, error) {
	enemy, err := payload[core.Enemy](e)
	if err != nil {
		return nil, err
	}
	if !m.deps.Cache.Add(enemy) {
		return nil, nil
	}
	if err := m.deps.Backend.AddEnemy(&enemy); err != nil {
		return nil, fmt.Errorf("failed to add enemy %d: %w", enemy.ID, err)
	}
	return nil, nil
}

func (m *Manager) handleFrame(e dispatcher.Event) (any, error) {
	f, err := payload[Frame](e)
	if err != nil {
		return nil, err
	}

	ps := core.PlayerState{Time: f.Time, Tick: f.Snapshot.Tick, Frame: f.Number, Player: f.Snapshot.Player}
	errs := []error{m.deps.Backend.RecordPlayerState(&ps)}

	for _, es := range f.Snapshot.Enemies {
		if !m.deps.Cache.Has(es.ID) {
			errs = append(errs, fmt.Errorf("enemy %d: %w", es.ID, ErrTooEarlyForStateAssociation))
			continue
		}
		s := core.EnemyState{Time: f.Time, Tick: f.Snapshot.Tick, Frame: f.Number, Enemy: es}
		errs = append(errs, m.deps.Backend.RecordEnemyState(&s))
	}

	if sink, ok := m.deps.Backend.(storage.SnapshotSink); ok {
		errs = append(errs, sink.RecordSnapshot(&f.Snapshot))
	}
	return nil, errors.Join(errs...)
}

func (m *Manager) handleEvent(e dispatcher.Event) (any, error) {
	ev, err := payload[core.Event](e)
	if err != nil {
		return nil, err
	}
	if err := m.deps.Backend.RecordEvent(&ev); err != nil {
		return nil, fmt.Errorf("failed to record %s event: %w", ev.Kind, err)
	}
	return nil, nil
}

func (m *Manager) handleTelemetry(e dispatcher.Event) (any, error) {
	t, err := payload[core.Telemetry](e)
	if err != nil {
		return nil, err
	}
	errs := []error{m.deps.Backend.RecordTelemetry(&t)}
	if m.deps.Telemetry != nil {
		errs = append(errs, m.deps.Telemetry.WriteTelemetry(t, m.missionName()))
	}
	return nil, errors.Join(errs...)
}

func (m *Manager) handlePerformance(e dispatcher.Event) (any, error) {
	p, err := payload[core.Performance](e)
	if err != nil {
		return nil, err
	}
	errs := []error{m.deps.Backend.RecordPerformance(&p)}
	if m.deps.Telemetry != nil {
		errs = append(errs, m.deps.Telemetry.WritePerformance(p, m.missionName()))
	}
	return nil, errors.Join(errs...)
}
