package memory

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.234))
	assert.Equal(t, 1.24, round2(1.235000001))
	assert.Equal(t, -3.5, round2(-3.5))
}

func TestEventJSON(t *testing.T) {
	pos := core.Position3D{X: 1.004, Y: 2, Z: -3}
	tests := []struct {
		name string
		evt  core.Event
		want []any
	}{
		{
			name: "hit",
			evt:  core.Event{Kind: core.EventHit, Tick: 10, SourceID: 0, TargetID: 4, WeaponID: "cannon", Damage: 8.333},
			want: []any{uint64(10), "hit", 4, []any{0, "cannon"}, 8.33},
		},
		{
			name: "kill",
			evt:  core.Event{Kind: core.EventKill, Tick: 11, SourceID: 0, TargetID: 4, WeaponID: "aim9", Position: pos},
			want: []any{uint64(11), "kill", 4, []any{0, "aim9"}, []float64{1, 2, -3}},
		},
		{
			name: "explosion",
			evt:  core.Event{Kind: core.EventExplosion, Tick: 12, Position: pos, Radius: 25},
			want: []any{uint64(12), "explosion", []float64{1, 2, -3}, 25.0},
		},
		{
			name: "ai mode with detail",
			evt:  core.Event{Kind: core.EventAIModeChanged, Tick: 13, SourceID: 4, TargetID: core.NoTarget, Position: pos, Detail: "engage"},
			want: []any{uint64(13), "ai_mode_changed", 4, -1, []float64{1, 2, -3}, "engage"},
		},
		{
			name: "chaff",
			evt:  core.Event{Kind: core.EventChaffDeployed, Tick: 14, TargetID: core.NoTarget},
			want: []any{uint64(14), "chaff_deployed", 0, -1, []float64{0, 0, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eventJSON(tt.evt))
		})
	}
}

// recordSortie fills b with a short engagement: two frames, one enemy shot
// down, one ground unit untouched.
func recordSortie(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.AddEnemy(&core.Enemy{ID: 1, Kind: "fighter", MaxHealth: 100}))
	require.NoError(t, b.AddEnemy(&core.Enemy{ID: 2, Kind: "aaa", IsGround: true, MaxHealth: 150}))

	for frame := uint(1); frame <= 2; frame++ {
		at := start.Add(time.Duration(frame) * 500 * time.Millisecond)
		require.NoError(t, b.RecordPlayerState(&core.PlayerState{
			Time: at, Tick: uint64(frame * 30), Frame: frame,
			Player: core.PlayerSnapshot{
				Position:    core.Position3D{X: 10, Y: 1500, Z: -20.456},
				Rotation:    core.Rotation{W: 1},
				Speed:       220.123,
				Health:      100,
				Afterburner: frame == 2,
			},
		}))
		require.NoError(t, b.RecordEnemyState(&core.EnemyState{
			Time: at, Frame: frame,
			Enemy: core.EnemySnapshot{ID: 1, Kind: "fighter", Rotation: core.Rotation{W: 1}, Health: 50, AIMode: "engage"},
		}))
	}
	require.NoError(t, b.RecordEnemyState(&core.EnemyState{
		Time: start, Frame: 2,
		Enemy: core.EnemySnapshot{ID: 2, Kind: "aaa", Rotation: core.Rotation{W: 1}, Health: 150, AIMode: "patrol"},
	}))
	require.NoError(t, b.RecordEvent(&core.Event{Kind: core.EventKill, Tick: 60, TargetID: 1, WeaponID: "cannon"}))
	require.NoError(t, b.RecordTelemetry(&core.Telemetry{Tick: 60, Altitude: 1500, Speed: 220, Fuel: 0.5, Health: 100}))
}

func TestExport_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := newStarted(t, config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	recordSortie(t, b)

	require.NoError(t, b.EndMission())
	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Red_Flag__Day_1_20260314_093000.json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = gzip.NewReader(f)
	require.NoError(t, err, "file is gzip")

	rec, err := ReadRecording(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, rec.Version)
	assert.Equal(t, "Red Flag: Day 1", rec.MissionName)
	assert.Equal(t, "viper", rec.Aircraft)
	assert.Equal(t, uint64(42), rec.Seed)
	assert.Equal(t, "2026-03-14T09:30:00Z", rec.StartTime)
	assert.Equal(t, "rolling", rec.WorldName)
	assert.Equal(t, [2]float64{7.45, 46.95}, rec.Origin)
	assert.Equal(t, uint(2), rec.EndFrame)

	assert.Equal(t, "player", rec.Player.Type)
	assert.Equal(t, uint(1), rec.Player.StartFrameNum)
	require.Len(t, rec.Player.Positions, 2)
	first := rec.Player.Positions[0]
	assert.Equal(t, []any{10.0, 1500.0, -20.46}, first[0])
	assert.Equal(t, 220.12, first[2])
	assert.Equal(t, 1.0, first[4], "alive")
	assert.Equal(t, 0.0, first[5])
	assert.Equal(t, 1.0, rec.Player.Positions[1][5], "afterburner lit")

	require.Len(t, rec.Entities, 2)
	assert.Equal(t, 1, rec.Entities[0].ID, "spawn order")
	assert.Equal(t, "air", rec.Entities[0].Type)
	assert.Len(t, rec.Entities[0].Positions, 2)
	assert.Equal(t, "engage", rec.Entities[0].Positions[0][4])
	assert.Equal(t, "ground", rec.Entities[1].Type)
	assert.Equal(t, uint(2), rec.Entities[1].StartFrameNum)

	require.Len(t, rec.Events, 1)
	assert.Equal(t, "kill", rec.Events[0][1])
	require.Len(t, rec.Telemetry, 1)
	assert.Equal(t, 0.5, rec.Telemetry[0][5])

	assert.InDelta(t, 1.0, b.GetExportMetadata().DurationSec, 1e-9)
}

func TestExport_Plain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := newStarted(t, config.MemoryConfig{OutputDir: dir})
	recordSortie(t, b)

	require.NoError(t, b.EndMission())
	path := b.GetExportedFilePath()
	assert.Equal(t, ".json", filepath.Ext(path))

	rec, err := ReadRecording(path)
	require.NoError(t, err)
	assert.Len(t, rec.Entities, 2)
}

func TestExport_EmptyMission(t *testing.T) {
	b := newStarted(t, config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndMission())

	rec, err := ReadRecording(b.GetExportedFilePath())
	require.NoError(t, err)
	assert.Empty(t, rec.Entities)
	assert.Empty(t, rec.Events)
	assert.NotNil(t, rec.Player.Positions)
	assert.Zero(t, rec.EndFrame)
}

func TestReadRecording_Errors(t *testing.T) {
	_, err := ReadRecording(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))
	_, err = ReadRecording(bad)
	assert.ErrorContains(t, err, "gzip")
}
