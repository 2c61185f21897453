// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the database and the periodic dump.
package sqlitestorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skyward/combat-core/internal/database"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/mission"
	gormstorage "github.com/skyward/combat-core/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
	// DSN overrides the shared in-memory database.
	DSN string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, origin geo.Origin, logger *slog.Logger, missionCtx *mission.Context) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSqlite(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// a single connection keeps the shared-cache database free of table locks
	sqlDB.SetMaxOpenConns(1)

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:             db,
		Origin:         origin,
		Logger:         logger,
		MissionContext: missionCtx,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// EndMission flushes the queues and writes a final dump.
func (b *Backend) EndMission() error {
	if err := b.Backend.EndMission(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// GetExportedFilePath is the last dump location.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.DumpPath
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// releases the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	err := b.Backend.Close()

	sqlDB, dbErr := b.db.DB()
	if dbErr == nil {
		dbErr = sqlDB.Close()
	}
	return errors.Join(err, dbErr)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
