package guidance

import (
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

const (
	gravity = 9.81
	// SelfDestructRadius is the blast left by a missile that times out or hits terrain.
	SelfDestructRadius = 12.0
)

// LaunchOrder describes a missile launch.
type LaunchOrder struct {
	WeaponID   string
	OwnerID    int
	TargetID   int
	Origin     vmath.Vec3
	Direction  vmath.Vec3
	MinSpeed   float64 // launch platform speed; the missile never starts slower
	DamageMult float64
}

// Launch spawns a missile. Unknown or non-missile weapons, degenerate aim and a
// full pool are no-ops returning false.
func Launch(st *combat.State, o LaunchOrder) bool {
	w, ok := st.Data.Weapon(o.WeaponID)
	if !ok || w.Kind != gamedata.KindMissile {
		return false
	}
	dir, ok := o.Direction.Normalize()
	if !ok {
		return false
	}
	_, m, ok := st.Missiles.Spawn()
	if !ok {
		return false
	}
	mult := o.DamageMult
	if mult <= 0 {
		mult = 1
	}
	m.Position = o.Origin
	m.Previous = o.Origin
	m.Speed = math.Max(w.Speed, o.MinSpeed)
	m.Velocity = dir.Scale(m.Speed)
	m.Rotation = vmath.LookRotation(dir, vmath.Up)
	m.MaxAge = w.MaxAge
	m.TurnRate = w.TurnRate
	m.GLimit = w.GLimit
	m.Damage = w.Damage * mult
	m.TargetID = o.TargetID
	m.OwnerID = o.OwnerID
	m.WeaponID = o.WeaponID

	st.Emit(core.Event{
		Kind:     core.EventMissileLaunched,
		Position: combat.ToPosition(o.Origin),
		SourceID: o.OwnerID,
		TargetID: o.TargetID,
		WeaponID: o.WeaponID,
	})
	return true
}

// MaxTurn is the largest heading change a missile may make in dt: its turn rate
// capped by the lateral acceleration its G limit allows at its speed.
func MaxTurn(m *combat.Missile, dt float64) float64 {
	rate := m.TurnRate
	if m.GLimit > 0 && m.Speed > vmath.Epsilon {
		rate = math.Min(rate, m.GLimit*gravity/m.Speed)
	}
	return math.Max(rate, 0) * dt
}

// BreakChance converts a per-second break probability into a per-tick one.
func BreakChance(model combat.ChaffModel, perSecond, dt float64) float64 {
	if model == combat.ChaffExact {
		return 1 - math.Pow(1-vmath.Clamp(perSecond, 0, 1), dt)
	}
	return perSecond * dt
}

// targetPosition resolves a missile's live target; ok is false once the target
// is gone.
func targetPosition(st *combat.State, p *flight.Player, id int) (vmath.Vec3, bool) {
	if id == combat.PlayerID {
		if p == nil || p.IsDead() {
			return vmath.Vec3{}, false
		}
		return p.Position, true
	}
	e, ok := st.FindEnemy(id)
	if !ok || !e.Alive() {
		return vmath.Vec3{}, false
	}
	return e.Position, true
}

// UpdateMissiles advances every missile: homing, chaff, ageing and terrain impact.
func UpdateMissiles(st *combat.State, p *flight.Player, ter terrain.Terrain, dt float64) {
	for i, m := range st.Missiles.All() {
		m.Previous = m.Position
		m.Age += dt
		m.LastTurn = 0
		if m.MaxAge > 0 && m.Age >= m.MaxAge {
			st.SpawnExplosion(m.Position, SelfDestructRadius, m.OwnerID)
			st.Missiles.Release(i)
			continue
		}

		if m.Guided() && m.OwnerID != combat.PlayerID && m.TargetID == combat.PlayerID && st.Chaff.Effective() {
			if st.Rand.Float64() < BreakChance(st.ChaffModel, st.Chaff.BreakChance, dt) {
				m.Distracted = true
			}
		}

		if m.Guided() {
			if target, ok := targetPosition(st, p, m.TargetID); ok {
				m.Rotation, m.LastTurn = vmath.RotateToward(m.Rotation, target.Sub(m.Position), MaxTurn(m, dt))
				m.Velocity = m.Rotation.Forward().Scale(m.Speed)
			} else {
				m.TargetID = combat.NoTarget
			}
		}
		if !m.Guided() {
			m.Velocity = m.Velocity.Add(vmath.V(0, -gravity*dt, 0))
			m.Rotation, _ = vmath.RotateToward(m.Rotation, m.Velocity, math.Pi)
		}

		m.Position = m.Position.Add(m.Velocity.Scale(dt))
		if ter != nil && m.Position.Y <= ter.HeightAt(m.Position.X, m.Position.Z) {
			st.SpawnExplosion(m.Position, SelfDestructRadius, m.OwnerID)
			st.Missiles.Release(i)
		}
	}
}

// Incoming reports whether a guided player missile is tracking the enemy.
func Incoming(st *combat.State, enemyID int) bool {
	for _, m := range st.Missiles.All() {
		if m.OwnerID == combat.PlayerID && m.TargetID == enemyID && m.Guided() {
			return true
		}
	}
	return false
}

// Decoy gives every player missile tracking the enemy one chance to be
// distracted. It returns how many lost lock.
func Decoy(st *combat.State, enemyID int, chance float64) int {
	n := 0
	for _, m := range st.Missiles.All() {
		if m.OwnerID != combat.PlayerID || m.TargetID != enemyID || !m.Guided() {
			continue
		}
		if st.Rand.Float64() < chance {
			m.Distracted = true
			n++
		}
	}
	return n
}
