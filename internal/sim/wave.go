package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/skyward/combat-core/internal/vmath"
)

// Wave describes a group of enemies placed around a centre point.
type Wave struct {
	Center vmath.Vec3

	AirKind   string
	AirCount  int
	AirRadius float64 // m from Center
	Altitude  float64 // m above the terrain under each spawn

	GroundKind   string
	GroundCount  int
	GroundRadius float64
}

// DefaultWave is the mission builder's stock wave: fighters on a ring
// 4 km out, AAA sites 2.5 km out.
func DefaultWave(air, ground int) Wave {
	return Wave{
		AirKind:      "fighter",
		AirCount:     air,
		AirRadius:    4000,
		Altitude:     1500,
		GroundKind:   "aaa",
		GroundCount:  ground,
		GroundRadius: 2500,
	}
}

// SpawnWave places a wave. Aircraft are spread evenly on a ring facing the
// centre; ground units are scattered on their ring and skipped when the ground
// there is too steep. It returns the ids spawned and every placement that
// failed.
func (s *Simulation) SpawnWave(w Wave) ([]int, error) {
	var (
		ids  []int
		errs []error
	)
	rng := s.State.Rand

	offset := rng.Float64() * 2 * math.Pi
	for i := range w.AirCount {
		a := offset + float64(i)*2*math.Pi/float64(w.AirCount)
		x := w.Center.X + math.Sin(a)*w.AirRadius
		z := w.Center.Z - math.Cos(a)*w.AirRadius
		pos := vmath.V(x, s.Terrain.HeightAt(x, z)+w.Altitude, z)
		heading := vmath.Heading(w.Center.Sub(pos))
		id, err := s.SpawnEnemy(w.AirKind, pos, heading)
		if err != nil {
			errs = append(errs, fmt.Errorf("air %d: %w", i, err))
			continue
		}
		ids = append(ids, id)
	}

	for i := range w.GroundCount {
		a := rng.Float64() * 2 * math.Pi
		r := w.GroundRadius * (0.6 + 0.4*rng.Float64())
		pos := vmath.V(w.Center.X+math.Sin(a)*r, 0, w.Center.Z-math.Cos(a)*r)
		id, err := s.SpawnEnemy(w.GroundKind, pos, rng.Float64()*2*math.Pi)
		if err != nil {
			errs = append(errs, fmt.Errorf("ground %d: %w", i, err))
			continue
		}
		ids = append(ids, id)
	}

	if len(errs) > 0 {
		s.logger.Warn("wave partially spawned", "spawned", len(ids), "failed", len(errs))
	}
	return ids, errors.Join(errs...)
}
