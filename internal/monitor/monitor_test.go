package monitor

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/skyward/combat-core/internal/dispatcher"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/recorder"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPools map[string]int

func (p staticPools) PoolStats() map[string]int { return p }

type staticQueues map[string]int

func (q staticQueues) QueueSizes() map[string]int { return q }

func TestNewService_Defaults(t *testing.T) {
	s := NewService(Dependencies{})
	assert.Equal(t, 10*time.Second, s.deps.Interval)
	assert.NotNil(t, s.deps.Logger)
	assert.NotNil(t, s.deps.MissionContext)
	assert.False(t, s.IsRunning())
}

func TestSample(t *testing.T) {
	mc := mission.NewContext()
	s := NewService(Dependencies{
		Pools:          staticPools{"enemies": 4, "bullets": 120},
		Queues:         []QueueReporter{staticQueues{"frame": 3}, staticQueues{"telemetry": 1}},
		MissionContext: mc,
	})
	s.ObserveTick(2500 * time.Microsecond)

	t0 := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	first := s.Sample(t0)
	assert.Zero(t, first.TickRate, "no baseline yet")
	assert.Equal(t, t0, first.Time)
	assert.Equal(t, map[string]int{"enemies": 4, "bullets": 120}, first.Pools)
	assert.Equal(t, map[string]int{"frame": 3, "telemetry": 1}, first.QueueSizes)
	assert.InDelta(t, 2.5, first.TickDurationMs, 1e-9)
	assert.Positive(t, first.HeapAllocMB)
	assert.Positive(t, first.Goroutines)

	mc.SetTick(120)
	second := s.Sample(t0.Add(2 * time.Second))
	assert.InDelta(t, 60, second.TickRate, 1e-9)
}

func TestSample_TickReset(t *testing.T) {
	mc := mission.NewContext()
	s := NewService(Dependencies{MissionContext: mc})
	t0 := time.Now()
	mc.SetTick(500)
	s.Sample(t0)
	mc.SetTick(10)
	assert.Zero(t, s.Sample(t0.Add(time.Second)).TickRate, "a new mission restarts the tick counter")
}

func TestGetProgramStatus(t *testing.T) {
	mc := mission.NewContext()
	mc.SetMission(&core.Mission{Name: "Red Flag"}, &core.World{})
	mc.SetTick(42)
	s := NewService(Dependencies{MissionContext: mc})

	lines := s.GetProgramStatus(core.Performance{
		TickRate:   59.5,
		Pools:      map[string]int{"enemies": 2},
		QueueSizes: map[string]int{},
		Goroutines: 9,
	})
	require.Len(t, lines, 4)
	assert.Equal(t, "mission: Red Flag (tick 42)", lines[0])
	assert.Contains(t, lines[1], `"enemies": 2`)
	assert.Equal(t, "{}", lines[2])
	assert.Contains(t, lines[3], "tickRate: 59.5/s")
	assert.Contains(t, lines[3], "goroutines: 9")
}

func TestStartStop_PublishesPerformance(t *testing.T) {
	d, err := dispatcher.New(slog.Default())
	require.NoError(t, err)
	defer d.Close()

	var (
		mu  sync.Mutex
		got []core.Performance
	)
	d.Register(recorder.TopicPerformance, func(e dispatcher.Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Payload.(core.Performance))
		return nil, nil
	})

	mc := mission.NewContext()
	mc.SetMission(&core.Mission{Name: "Red Flag", StartTime: time.Now()}, &core.World{})
	dir := filepath.Join(t.TempDir(), "status")

	s := NewService(Dependencies{
		Pools:          staticPools{"enemies": 1},
		Queues:         []QueueReporter{d},
		Dispatcher:     d,
		MissionContext: mc,
		StatusDir:      dir,
		Interval:       10 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(), "starting twice is harmless")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	mu.Lock()
	assert.Equal(t, 1, got[0].Pools["enemies"])
	mu.Unlock()

	status, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	require.NoError(t, err)
	assert.Contains(t, string(status), "mission: Red Flag")
}

func TestStart_SkipsWithoutMission(t *testing.T) {
	d, err := dispatcher.New(slog.Default())
	require.NoError(t, err)
	defer d.Close()

	var (
		mu    sync.Mutex
		calls int
	)
	d.Register(recorder.TopicPerformance, func(dispatcher.Event) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, nil
	})

	s := NewService(Dependencies{Dispatcher: d, Interval: 5 * time.Millisecond})
	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}
