package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/skyward/combat-core/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// pool names used as metric attributes and in PoolStats.
const (
	poolBullets    = "bullets"
	poolMissiles   = "missiles"
	poolEnemies    = "enemies"
	poolExplosions = "explosions"
)

var poolNames = [...]string{poolBullets, poolMissiles, poolEnemies, poolExplosions}

type metrics struct {
	ticks        metric.Int64Counter
	dropped      metric.Int64Counter
	spawnDropped metric.Int64Counter
	tickDuration metric.Float64Histogram
	poolActive   metric.Int64ObservableGauge
	registration metric.Registration

	// occupancy published at the end of each tick for the gauge callback
	active [len(poolNames)]atomic.Int64
	// last seen pool drop totals, for counter deltas
	seenDrops [len(poolNames)]uint64
}

func newMetrics() (*metrics, error) {
	m := meter()
	s := &metrics{}

	var err error
	s.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Ticks integrated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	s.dropped, err = m.Int64Counter(
		"sim.ticks.dropped",
		metric.WithDescription("Ticks ignored because dt was out of range"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped ticks counter: %w", err)
	}

	s.spawnDropped, err = m.Int64Counter(
		"sim.spawn.dropped",
		metric.WithDescription("Spawn requests refused by a full pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawn dropped counter: %w", err)
	}

	s.tickDuration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time spent in one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	s.poolActive, err = m.Int64ObservableGauge(
		"sim.pool.active",
		metric.WithDescription("Active slots per pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pool gauge: %w", err)
	}

	s.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for i, name := range poolNames {
				o.ObserveInt64(s.poolActive, s.active[i].Load(),
					metric.WithAttributes(attribute.String("pool", name)))
			}
			return nil
		},
		s.poolActive,
	)
	if err != nil {
		return nil, fmt.Errorf("registering pool callback: %w", err)
	}

	return s, nil
}

func (s *metrics) close() error {
	if s.registration == nil {
		return nil
	}
	return s.registration.Unregister()
}
