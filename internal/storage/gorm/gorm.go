// Package gormstorage implements the storage.Backend interface on any gorm
// database with internal queues and a background writer goroutine. The
// postgres and sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyward/combat-core/internal/database"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/model"
	"github.com/skyward/combat-core/internal/model/convert"
	"github.com/skyward/combat-core/internal/queue"
	"github.com/skyward/combat-core/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// ErrNoDatabase is returned by operations that need a connection.
var ErrNoDatabase = errors.New("no database configured")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB             *gorm.DB
	Origin         geo.Origin
	Logger         *slog.Logger
	MissionContext *mission.Context
	FlushInterval  time.Duration
	// SkipMigrate leaves the schema to the caller, e.g. database.Manager.Setup.
	SkipMigrate bool
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Enemies      *queue.Queue[model.Enemy]
	PlayerStates *queue.Queue[model.PlayerState]
	EnemyStates  *queue.Queue[model.EnemyState]
	Events       *queue.Queue[model.CombatEvent]
	Telemetry    *queue.Queue[model.Telemetry]
	Performance  *queue.Queue[model.Performance]
}

func newQueues() *queues {
	return &queues{
		Enemies:      queue.New[model.Enemy](),
		PlayerStates: queue.New[model.PlayerState](),
		EnemyStates:  queue.New[model.EnemyState](),
		Events:       queue.New[model.CombatEvent](),
		Telemetry:    queue.New[model.Telemetry](),
		Performance:  queue.New[model.Performance](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	missionID atomic.Uint64

	mu        sync.Mutex // serialises flushes
	startTime time.Time

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine. Without a DB
// the backend only queues, which tests use.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}
	if !b.deps.SkipMigrate {
		if err := database.Migrate(b.deps.DB); err != nil {
			close(b.done)
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}

	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return nil
}

// StartMission performs world get-or-insert and mission create in the DB.
func (b *Backend) StartMission(coreMission *core.Mission, coreWorld *core.World) error {
	if b.deps.MissionContext != nil {
		b.deps.MissionContext.SetMission(coreMission, coreWorld)
	}
	b.mu.Lock()
	b.startTime = coreMission.StartTime
	b.mu.Unlock()

	if b.deps.DB == nil {
		return nil
	}
	db := b.deps.DB

	gormWorld := convert.CoreToWorld(*coreWorld, b.deps.Origin)
	created, err := gormWorld.GetOrInsert(db)
	if err != nil {
		return fmt.Errorf("failed to get or insert world: %w", err)
	}
	if created {
		b.deps.Logger.Info("World created", "world", gormWorld.Name)
	}

	gormMission := convert.CoreToMission(*coreMission)
	gormMission.WorldID = gormWorld.ID
	if err := db.Create(&gormMission).Error; err != nil {
		return fmt.Errorf("failed to insert new mission: %w", err)
	}

	// Assign DB-generated IDs back to core types
	coreMission.ID = gormMission.ID
	coreMission.WorldID = gormWorld.ID
	coreWorld.ID = gormWorld.ID

	b.missionID.Store(uint64(gormMission.ID))
	b.deps.Logger.Info("Mission started", "mission", coreMission.Name, "missionId", gormMission.ID)
	return nil
}

// SetMissionID sets the current mission ID for the DB writer.
func (b *Backend) SetMissionID(id uint) {
	b.missionID.Store(uint64(id))
}

// MissionID is the id of the mission being recorded.
func (b *Backend) MissionID() uint {
	return uint(b.missionID.Load())
}

// EndMission writes everything still queued.
func (b *Backend) EndMission() error {
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// AddEnemy converts a core enemy to GORM and pushes to the write queue.
func (b *Backend) AddEnemy(e *core.Enemy) error {
	b.queues.Enemies.Push(convert.CoreToEnemy(*e, 0, b.deps.Origin))
	return nil
}

// RecordPlayerState converts and queues a player frame.
func (b *Backend) RecordPlayerState(s *core.PlayerState) error {
	b.queues.PlayerStates.Push(convert.CoreToPlayerState(*s, 0, b.deps.Origin))
	return nil
}

// RecordEnemyState converts and queues an enemy frame.
func (b *Backend) RecordEnemyState(s *core.EnemyState) error {
	b.queues.EnemyStates.Push(convert.CoreToEnemyState(*s, 0, b.deps.Origin))
	return nil
}

// RecordEvent converts and queues a simulation event, timestamped at mission
// start plus the event's simulation time.
func (b *Backend) RecordEvent(e *core.Event) error {
	b.mu.Lock()
	at := b.startTime.Add(time.Duration(e.Time * float64(time.Second)))
	b.mu.Unlock()
	b.queues.Events.Push(convert.CoreToCombatEvent(*e, at, 0, b.deps.Origin))
	return nil
}

// RecordTelemetry converts and queues a flight-data sample.
func (b *Backend) RecordTelemetry(t *core.Telemetry) error {
	b.queues.Telemetry.Push(convert.CoreToTelemetry(*t, 0))
	return nil
}

// RecordPerformance converts and queues a monitor sample.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	b.queues.Performance.Push(convert.CoreToPerformance(*p, 0))
	return nil
}

// QueueSizes reports how many records wait per table.
func (b *Backend) QueueSizes() map[string]int {
	return map[string]int{
		"enemies":       b.queues.Enemies.Len(),
		"player_states": b.queues.PlayerStates.Len(),
		"enemy_states":  b.queues.EnemyStates.Len(),
		"combat_events": b.queues.Events.Len(),
		"telemetry":     b.queues.Telemetry.Len(),
		"performances":  b.queues.Performance.Len(),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating records", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("committing %s: %w", name, err)
	}
	log.Debug("Wrote records", "table", name, "count", len(items))
	return nil
}

// Flush drains every queue into the database, stamping the current mission.
// Enemies are written before their states. Records stay queued until a
// mission has been started.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	missionID := uint(b.missionID.Load())
	if missionID == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	db, log := b.deps.DB, b.deps.Logger

	return errors.Join(
		writeQueue(db, b.queues.Enemies, "enemies", log, func(items []model.Enemy) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
		writeQueue(db, b.queues.PlayerStates, "player states", log, func(items []model.PlayerState) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
		writeQueue(db, b.queues.EnemyStates, "enemy states", log, func(items []model.EnemyState) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
		writeQueue(db, b.queues.Events, "combat events", log, func(items []model.CombatEvent) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
		writeQueue(db, b.queues.Telemetry, "telemetry", log, func(items []model.Telemetry) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
		writeQueue(db, b.queues.Performance, "performance", log, func(items []model.Performance) {
			for i := range items {
				items[i].MissionID = missionID
			}
		}),
	)
}

// writeLoop periodically drains queues into the DB until Close.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Warn("Flush failed, retrying next cycle", "error", err)
			}
		}
	}
}
