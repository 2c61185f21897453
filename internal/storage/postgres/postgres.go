// Package postgres implements the storage.Backend interface on a PostgreSQL
// server with PostGIS. When the server cannot be reached it records into an
// in-memory SQLite database and dumps it on close.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/internal/database"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/mission"
	gormstorage "github.com/skyward/combat-core/internal/storage/gorm"
	"github.com/skyward/combat-core/internal/util"
)

// Dependencies holds all dependencies for the postgres storage backend.
type Dependencies struct {
	DB             config.DBConfig
	Origin         geo.Origin
	Logger         *slog.Logger
	DBLogger       zerolog.Logger
	MissionContext *mission.Context
	// BackupDir receives the SQLite dump when postgres was unreachable.
	BackupDir string
}

// Backend records through the GORM backend once Init has connected.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new postgres storage backend. Init must be called before any
// recording.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{
		deps:    deps,
		manager: database.NewManager(deps.DBLogger),
	}
}

// Manager exposes the connection state.
func (b *Backend) Manager() *database.Manager {
	return b.manager
}

// Init connects, installs PostGIS, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.deps.DB); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if b.manager.ShouldSaveLocal {
		dir := b.deps.BackupDir
		if dir == "" {
			dir = "."
		}
		b.manager.SqliteFilePath = filepath.Join(dir,
			util.StampedFileName("combatsim", time.Now().UTC(), ".db"))
		b.deps.Logger.Warn("Postgres unreachable, recording to local SQLite",
			"dumpPath", b.manager.SqliteFilePath)
	}
	if err := b.manager.Setup(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:             b.manager.DB,
		Origin:         b.deps.Origin,
		Logger:         b.deps.Logger,
		MissionContext: b.deps.MissionContext,
		SkipMigrate:    true,
	})
	return b.Backend.Init()
}

// GetExportedFilePath is the local dump written when postgres was unreachable.
func (b *Backend) GetExportedFilePath() string {
	if !b.manager.ShouldSaveLocal {
		return ""
	}
	return b.manager.SqliteFilePath
}

// Close flushes, dumps a local fallback database and disconnects.
func (b *Backend) Close() error {
	var errs []error
	if b.Backend != nil {
		errs = append(errs, b.Backend.Close())
	}
	if b.manager.ShouldSaveLocal && b.manager.SqliteFilePath != "" {
		errs = append(errs, b.manager.DumpMemoryToDisk())
	}
	errs = append(errs, b.manager.Close())
	return errors.Join(errs...)
}
