package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/storage/memory"
	"github.com/skyward/combat-core/internal/storage/postgres"
	sqlitestorage "github.com/skyward/combat-core/internal/storage/sqlite"
	"github.com/skyward/combat-core/internal/storage/websocket"
)

// ErrUnknownBackend is returned for an unrecognised storage.type.
var ErrUnknownBackend = errors.New("unknown storage type")

// Dependencies are shared by the backends that need them.
type Dependencies struct {
	Logger         *slog.Logger
	DBLogger       zerolog.Logger
	Origin         geo.Origin
	DB             config.DBConfig
	MissionContext *mission.Context
	BackupDir      string
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, deps.Origin, deps.Logger, deps.MissionContext)
	case "postgres":
		return postgres.New(postgres.Dependencies{
			DB:             deps.DB,
			Origin:         deps.Origin,
			Logger:         deps.Logger,
			DBLogger:       deps.DBLogger,
			MissionContext: deps.MissionContext,
			BackupDir:      deps.BackupDir,
		}), nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, deps.Logger), nil
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
