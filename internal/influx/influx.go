// Package influx writes flight telemetry and simulator performance samples to
// InfluxDB, falling back to a gzip line-protocol file when the server is
// unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/skyward/combat-core/internal/config"
	"github.com/skyward/combat-core/pkg/core"
)

// PerformanceBucket receives monitor samples; telemetry goes to the
// configured bucket.
const PerformanceBucket = "sim_performance"

// ErrDisabled is returned by Connect when influx is switched off in config.
var ErrDisabled = errors.New("influx disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	mu         sync.Mutex
	backupFile io.Closer
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{cfg.Bucket, PerformanceBucket},
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to the backup file instead and Connect still succeeds.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.IsValid = true
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.UseBackup(file)
	return nil
}

// UseBackup routes every write to w as gzip-compressed line protocol. Close
// closes w when it is an io.Closer.
func (m *Manager) UseBackup(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IsValid = false
	m.BackupWriter = gzip.NewWriter(w)
	if c, ok := w.(io.Closer); ok {
		m.backupFile = c
	}
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", m.cfg.Org, err)
		}
	}

	// buckets keep 30 days of sorties
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, m.Writers[bucket].Errors())
	}
	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteTelemetry stores one flight-data sample.
func (m *Manager) WriteTelemetry(t core.Telemetry, mission string) error {
	return m.WritePoint(m.cfg.Bucket, TelemetryPoint(t, mission))
}

// WritePerformance stores one monitor sample.
func (m *Manager) WritePerformance(p core.Performance, mission string) error {
	return m.WritePoint(PerformanceBucket, PerformancePoint(p, mission))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	m.IsValid = false
	return errors.Join(errs...)
}

// TelemetryPoint builds the "flight" measurement for a sample.
func TelemetryPoint(t core.Telemetry, mission string) *influxdb2_write.Point {
	return influxdb2.NewPoint("flight",
		map[string]string{"mission": mission},
		map[string]any{
			"tick":          int64(t.Tick),
			"altitude":      t.Altitude,
			"speed":         t.Speed,
			"mach":          t.Mach,
			"alpha":         t.Alpha,
			"g":             t.GForce,
			"throttle":      t.Throttle,
			"fuel":          t.Fuel,
			"health":        t.Health,
			"enemiesActive": t.ActiveEnemies,
			"bullets":       t.Bullets,
			"missiles":      t.Missiles,
		},
		t.Time,
	)
}

// PerformancePoint builds the "sim" measurement for a monitor sample. Pool
// and queue sizes become pool_<name> and queue_<name> fields.
func PerformancePoint(p core.Performance, mission string) *influxdb2_write.Point {
	fields := map[string]any{
		"tickRate":       p.TickRate,
		"tickDurationMs": p.TickDurationMs,
		"heapAllocMB":    p.HeapAllocMB,
		"goroutines":     p.Goroutines,
	}
	for name, n := range p.Pools {
		fields["pool_"+name] = n
	}
	for name, n := range p.QueueSizes {
		fields["queue_"+name] = n
	}
	return influxdb2.NewPoint("sim", map[string]string{"mission": mission}, fields, p.Time)
}
