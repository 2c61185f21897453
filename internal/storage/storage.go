// Package storage defines the recording backends a sortie can be written to.
package storage

import "github.com/skyward/combat-core/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Mission management
	StartMission(mission *core.Mission, world *core.World) error
	EndMission() error

	// Enemy registration, once per spawned enemy
	AddEnemy(e *core.Enemy) error

	// State recording
	RecordPlayerState(s *core.PlayerState) error
	RecordEnemyState(s *core.EnemyState) error

	// Event recording
	RecordEvent(e *core.Event) error
	RecordTelemetry(t *core.Telemetry) error
	RecordPerformance(p *core.Performance) error
}

// Uploadable is an optional interface for storage backends that produce
// a recording file when the mission ends.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Discard accepts every record and stores nothing.
type Discard struct{}

func (Discard) Init() error                                   { return nil }
func (Discard) Close() error                                  { return nil }
func (Discard) StartMission(*core.Mission, *core.World) error { return nil }
func (Discard) EndMission() error                             { return nil }
func (Discard) AddEnemy(*core.Enemy) error                    { return nil }
func (Discard) RecordPlayerState(*core.PlayerState) error     { return nil }
func (Discard) RecordEnemyState(*core.EnemyState) error       { return nil }
func (Discard) RecordEvent(*core.Event) error                 { return nil }
func (Discard) RecordTelemetry(*core.Telemetry) error         { return nil }
func (Discard) RecordPerformance(*core.Performance) error     { return nil }

// SnapshotSink is an optional interface for backends that mirror every
// published snapshot, such as a live co-op stream.
type SnapshotSink interface {
	RecordSnapshot(s *core.Snapshot) error
}
