// Package websocket streams a recording live to a replay or co-op server.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skyward/combat-core/pkg/core"
	"github.com/skyward/combat-core/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams mission data over WebSocket.
// It implements storage.Backend and storage.SnapshotSink but not
// storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped is the number of messages discarded because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMission sends mission and world data and waits for server ack.
func (b *Backend) StartMission(mission *core.Mission, world *core.World) error {
	data, err := marshalEnvelope(streaming.TypeStartMission, streaming.StartMissionPayload{Mission: mission, World: world})
	if err != nil {
		return err
	}

	b.conn.setHeader(data)
	return b.conn.sendAndWait(data, streaming.TypeStartMission, ackTimeout)
}

// EndMission sends end_mission and waits for server ack.
func (b *Backend) EndMission() error {
	data, err := marshalEnvelope(streaming.TypeEndMission, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndMission, ackTimeout)

	b.conn.setHeader(nil)
	return err
}

func (b *Backend) AddEnemy(e *core.Enemy) error {
	return b.sendEnvelope(streaming.TypeAddEnemy, e)
}

func (b *Backend) RecordPlayerState(s *core.PlayerState) error {
	return b.sendEnvelope(streaming.TypePlayerState, s)
}

func (b *Backend) RecordEnemyState(s *core.EnemyState) error {
	return b.sendEnvelope(streaming.TypeEnemyState, s)
}

func (b *Backend) RecordEvent(e *core.Event) error {
	return b.sendEnvelope(streaming.TypeEvent, e)
}

func (b *Backend) RecordTelemetry(t *core.Telemetry) error {
	return b.sendEnvelope(streaming.TypeTelemetry, t)
}

func (b *Backend) RecordPerformance(p *core.Performance) error {
	return b.sendEnvelope(streaming.TypePerformance, p)
}

// RecordSnapshot streams the full post-tick state for co-op mirrors.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	return b.sendEnvelope(streaming.TypeSnapshot, s)
}
