package combat

import (
	"math"

	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// SpawnExplosion records a burst of FragmentCount fragments flying out from pos
// and emits an explosion event. A full pool drops the visual but still emits.
func (s *State) SpawnExplosion(pos vmath.Vec3, radius float64, sourceID int) bool {
	s.Emit(core.Event{
		Kind:     core.EventExplosion,
		Position: ToPosition(pos),
		SourceID: sourceID,
		TargetID: NoTarget,
		Radius:   radius,
	})
	_, x, ok := s.Explosions.Spawn()
	if !ok {
		return false
	}
	x.Position = pos
	x.Radius = radius
	x.MaxAge = ExplosionLifetime
	x.SourceID = sourceID
	for i := range x.Fragments {
		// uniform direction on the sphere
		y := s.Rand.Float64()*2 - 1
		theta := s.Rand.Float64() * 2 * math.Pi
		r := math.Sqrt(1 - y*y)
		dir := vmath.V(r*math.Cos(theta), y, r*math.Sin(theta))
		speed := radius * (1.5 + s.Rand.Float64()*2.5)
		x.Fragments[i] = Fragment{Position: pos, Velocity: dir.Scale(speed)}
	}
	return true
}

// UpdateExplosions ages explosions and their fragments, releasing expired ones.
func (s *State) UpdateExplosions(dt float64) {
	const fragmentGravity = 9.81
	for i, x := range s.Explosions.All() {
		x.Age += dt
		if x.Age >= x.MaxAge {
			s.Explosions.Release(i)
			continue
		}
		for f := range x.Fragments {
			fr := &x.Fragments[f]
			fr.Velocity.Y -= fragmentGravity * dt
			fr.Velocity = fr.Velocity.Scale(1 - math.Min(1, 1.2*dt))
			fr.Position = fr.Position.Add(fr.Velocity.Scale(dt))
		}
	}
}

// ToPosition converts to the public position type.
func ToPosition(v vmath.Vec3) core.Position3D {
	return core.Position3D{X: v.X, Y: v.Y, Z: v.Z}
}

// ToRotation converts to the public rotation type.
func ToRotation(q vmath.Quat) core.Rotation {
	return core.Rotation{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}
