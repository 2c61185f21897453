// Package memory records a sortie in memory and exports it as a JSON
// recording when the mission ends.
package memory

import (
	"sync"

	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/pkg/core"
)

// EnemyRecord groups an enemy with all its time-series data
type EnemyRecord struct {
	Enemy  core.Enemy
	States []core.EnemyState
}

// Backend stores mission data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	mission *core.Mission
	world   *core.World

	playerStates []core.PlayerState
	enemies      map[int]*EnemyRecord // keyed by simulation enemy id
	enemyOrder   []int
	events       []core.Event
	telemetry    []core.Telemetry
	performance  []core.Performance

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		enemies: make(map[int]*EnemyRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMission begins recording a new mission
func (b *Backend) StartMission(mission *core.Mission, world *core.World) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mission = mission
	b.world = world

	// Reset all collections
	b.playerStates = nil
	b.enemies = make(map[int]*EnemyRecord)
	b.enemyOrder = nil
	b.events = nil
	b.telemetry = nil
	b.performance = nil
	b.lastExportPath = ""

	return nil
}

// EndMission finalizes and exports the mission data
func (b *Backend) EndMission() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mission == nil {
		return nil
	}
	return b.exportJSON()
}

// AddEnemy registers a new enemy
func (b *Backend) AddEnemy(e *core.Enemy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.enemies[e.ID]; !ok {
		b.enemyOrder = append(b.enemyOrder, e.ID)
	}
	b.enemies[e.ID] = &EnemyRecord{
		Enemy:  *e,
		States: make([]core.EnemyState, 0),
	}
	return nil
}

// GetEnemy looks up an enemy by its simulation id
func (b *Backend) GetEnemy(id int) (*core.Enemy, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.enemies[id]; ok {
		return &record.Enemy, true
	}
	return nil, false
}

// RecordPlayerState records a player frame
func (b *Backend) RecordPlayerState(s *core.PlayerState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playerStates = append(b.playerStates, *s)
	return nil
}

// RecordEnemyState records an enemy frame
func (b *Backend) RecordEnemyState(s *core.EnemyState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.enemies[s.Enemy.ID]; ok {
		record.States = append(record.States, *s)
	}
	return nil // silently ignore if enemy not registered
}

// RecordEvent records a simulation event
func (b *Backend) RecordEvent(e *core.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// RecordTelemetry records a flight-data sample
func (b *Backend) RecordTelemetry(t *core.Telemetry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, *t)
	return nil
}

// RecordPerformance records a monitor sample
func (b *Backend) RecordPerformance(p *core.Performance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.performance = append(b.performance, *p)
	return nil
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.mission == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		MissionName: b.mission.Name,
		Aircraft:    b.mission.Aircraft,
		Difficulty:  b.mission.Difficulty,
		DurationSec: b.duration(),
		Tag:         b.mission.Tag,
	}
}

// duration is the span from mission start to the last recorded frame.
func (b *Backend) duration() float64 {
	if len(b.playerStates) == 0 {
		return 0
	}
	last := b.playerStates[len(b.playerStates)-1].Time
	return last.Sub(b.mission.StartTime).Seconds()
}
