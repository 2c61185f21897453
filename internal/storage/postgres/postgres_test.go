package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable() config.DBConfig {
	return config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "combatsim",
	}
}

func TestNew(t *testing.T) {
	b := New(Dependencies{DB: unreachable()})
	require.NotNil(t, b)
	assert.NotNil(t, b.Manager())
	assert.Empty(t, b.GetExportedFilePath())
	assert.NoError(t, b.Close(), "close before init is safe")
}

func TestInit_FallsBackToSqlite(t *testing.T) {
	dir := t.TempDir()
	b := New(Dependencies{DB: unreachable(), BackupDir: dir})
	require.NoError(t, b.Init())

	m := b.Manager()
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
	path := b.GetExportedFilePath()
	assert.Contains(t, path, dir)

	require.NoError(t, b.StartMission(
		&core.Mission{Name: "Offline", StartTime: time.Now()},
		&core.World{Name: "flat"},
	))
	require.NoError(t, b.RecordTelemetry(&core.Telemetry{Time: time.Now(), Altitude: 900}))
	require.NoError(t, b.EndMission())
	require.NoError(t, b.Close())

	_, err := os.Stat(path)
	assert.NoError(t, err, "local fallback is dumped on close")
}
