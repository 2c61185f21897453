// Package monitor samples runtime and pipeline health while a sortie runs
// and publishes it as performance records.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyward/combat-core/internal/dispatcher"
	"github.com/skyward/combat-core/internal/mission"
	"github.com/skyward/combat-core/internal/recorder"
	"github.com/skyward/combat-core/pkg/core"
)

// StatusFileName is rewritten on every sample when a status directory is set.
const StatusFileName = "status.txt"

// PoolReporter reports active slots per entity pool.
type PoolReporter interface {
	PoolStats() map[string]int
}

// QueueReporter reports pending items per queue.
type QueueReporter interface {
	QueueSizes() map[string]int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Pools          PoolReporter
	Queues         []QueueReporter
	Dispatcher     *dispatcher.Dispatcher
	MissionContext *mission.Context
	Logger         *slog.Logger
	StatusDir      string
	Interval       time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup

	tickNanos atomic.Int64
	lastTick  uint64
	lastAt    time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.MissionContext == nil {
		deps.MissionContext = mission.NewContext()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// ObserveTick records how long the last simulation tick took.
func (s *Service) ObserveTick(d time.Duration) {
	s.tickNanos.Store(int64(d))
}

// Sample builds a performance record. The achieved tick rate is measured
// since the previous call; the first call reports zero.
func (s *Service) Sample(now time.Time) core.Performance {
	queues := make(map[string]int)
	for _, q := range s.deps.Queues {
		maps.Copy(queues, q.QueueSizes())
	}
	pools := map[string]int{}
	if s.deps.Pools != nil {
		pools = s.deps.Pools.PoolStats()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	tick := s.deps.MissionContext.Tick()
	s.mu.Lock()
	var rate float64
	if !s.lastAt.IsZero() && now.After(s.lastAt) && tick >= s.lastTick {
		rate = float64(tick-s.lastTick) / now.Sub(s.lastAt).Seconds()
	}
	s.lastTick, s.lastAt = tick, now
	s.mu.Unlock()

	return core.Performance{
		Time:           now,
		TickRate:       rate,
		TickDurationMs: float64(s.tickNanos.Load()) / float64(time.Millisecond),
		Pools:          pools,
		QueueSizes:     queues,
		HeapAllocMB:    float64(mem.HeapAlloc) / (1 << 20),
		Goroutines:     runtime.NumGoroutine(),
	}
}

// GetProgramStatus renders a sample as the lines of the status file.
func (s *Service) GetProgramStatus(perf core.Performance) []string {
	mission := s.deps.MissionContext.GetMission()
	output := []string{
		fmt.Sprintf("mission: %s (tick %d)", mission.Name, s.deps.MissionContext.Tick()),
	}
	for _, section := range []any{perf.Pools, perf.QueueSizes} {
		str, err := json.MarshalIndent(section, "", "  ")
		if err != nil {
			str = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(str))
	}
	output = append(output, fmt.Sprintf("tickRate: %.1f/s tick: %.2fms heap: %.1fMB goroutines: %d",
		perf.TickRate, perf.TickDurationMs, perf.HeapAllocMB, perf.Goroutines))
	return output
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0755); err != nil {
			return fmt.Errorf("creating status dir: %w", err)
		}
		f, err := os.Create(filepath.Join(s.deps.StatusDir, StatusFileName))
		if err != nil {
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				if s.deps.MissionContext.GetMission().StartTime.IsZero() {
					continue
				}
				perf := s.Sample(now)

				if statusFile != nil {
					_ = statusFile.Truncate(0)
					_, _ = statusFile.Seek(0, 0)
					for _, line := range s.GetProgramStatus(perf) {
						_, _ = statusFile.WriteString(line + "\n")
					}
				}

				if s.deps.Dispatcher != nil {
					if _, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
						Topic:   recorder.TopicPerformance,
						Tick:    s.deps.MissionContext.Tick(),
						Payload: perf,
					}); err != nil {
						logger.Debug("Performance sample not published", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the last sample to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
	s.mu.Unlock()
	s.wg.Wait()
}
