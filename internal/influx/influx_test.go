package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.InfluxConfig {
	return config.InfluxConfig{Enabled: true, Host: "localhost", Port: "8086", Protocol: "http", Org: "combatsim", Bucket: "telemetry"}
}

func TestNewManager_Buckets(t *testing.T) {
	m := NewManager(testConfig(), zerolog.Nop(), "")
	assert.Equal(t, []string{"telemetry", PerformanceBucket}, m.BucketNames)
	assert.False(t, m.IsValid)
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	err := NewManager(cfg, zerolog.Nop(), "").Connect(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(testConfig(), zerolog.Nop(), "")
	err := m.WriteTelemetry(core.Telemetry{Time: at}, "m")
	assert.Error(t, err)
}

func TestTelemetryPoint(t *testing.T) {
	p := TelemetryPoint(core.Telemetry{Time: at, Tick: 30, Altitude: 1500, Speed: 220, ActiveEnemies: 3}, "Red Flag")
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, `flight,mission=Red\ Flag `), line)
	assert.Contains(t, line, "altitude=1500")
	assert.Contains(t, line, "tick=30i")
	assert.Contains(t, line, "enemiesActive=3i")
	assert.Contains(t, line, "speed=220")
}

func TestPerformancePoint(t *testing.T) {
	p := PerformancePoint(core.Performance{
		Time:       at,
		TickRate:   59.5,
		Pools:      map[string]int{"bullets": 12},
		QueueSizes: map[string]int{"frame": 2},
		Goroutines: 9,
	}, "m")
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "sim,mission=m "), line)
	assert.Contains(t, line, "pool_bullets=12i")
	assert.Contains(t, line, "queue_frame=2i")
	assert.Contains(t, line, "tickRate=59.5")
	assert.Contains(t, line, "goroutines=9i")
}

func TestBackupWriter(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(testConfig(), zerolog.Nop(), "")
	m.UseBackup(&buf)

	require.NoError(t, m.WriteTelemetry(core.Telemetry{Time: at, Altitude: 900}, "m"))
	require.NoError(t, m.WritePerformance(core.Performance{Time: at, TickRate: 60}, "m"))
	require.NoError(t, m.Close())

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "flight,"))
	assert.True(t, strings.HasPrefix(lines[1], "sim,"))
}

func TestConnect_UnreachableFallsBackToFile(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "1"
	path := filepath.Join(t.TempDir(), "influx.gz")
	m := NewManager(cfg, zerolog.Nop(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.WriteTelemetry(core.Telemetry{Time: at}, "m"))
	require.NoError(t, m.Close())
	assert.FileExists(t, path)
}
