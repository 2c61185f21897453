// Package damage resolves projectile and missile hits against the player and the
// enemies, applies damage and turns destroyed entities into explosions.
package damage

import (
	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/internal/weapons"
	"github.com/skyward/combat-core/pkg/core"
)

const (
	// ProximityFuse extends a target's radius for missile detonation.
	ProximityFuse = 8.0
	// HitFlash is how long a hit tints the target.
	HitFlash = 0.15
	// WreckDuration keeps destroyed enemies visible before their slot is freed.
	WreckDuration = 5.0

	MissileBlastRadius = 20.0
	KillBlastRadius    = 30.0
	// CollisionDamage is applied to both parties of a mid-air collision.
	CollisionDamage = 1000.0
)

// DefaultPlayerRadius is used when an airframe does not set one.
const DefaultPlayerRadius = 10.0

// Resolve runs one collision pass over the pools.
func Resolve(st *combat.State, p *flight.Player, ter terrain.Terrain, dt float64) {
	resolveBullets(st, p)
	resolveMissiles(st, p)
	resolveBodies(st, p, ter)
	decay(st, dt)
}

func playerRadius(p *flight.Player) float64 {
	if p.Plane.Radius > 0 {
		return p.Plane.Radius
	}
	return DefaultPlayerRadius
}

func resolveBullets(st *combat.State, p *flight.Player) {
	for i, b := range st.Bullets.All() {
		if b.OwnerID == combat.PlayerID {
			for _, e := range st.Enemies.All() {
				if !e.Alive() {
					continue
				}
				if hit, _ := weapons.SegmentHitsSphere(b.Previous, b.Position, e.Position, e.Radius); hit {
					HitEnemy(st, e, b.Damage, combat.PlayerID, b.WeaponID, b.Position)
					st.Bullets.Release(i)
					break
				}
			}
		} else if !p.IsDead() {
			if hit, _ := weapons.SegmentHitsSphere(b.Previous, b.Position, p.Position, playerRadius(p)); hit {
				HitPlayer(st, p, b.Damage, b.OwnerID, b.WeaponID, b.Position)
				st.Bullets.Release(i)
			}
		}
		if b.Grounded {
			st.Bullets.Release(i)
		}
	}
}

func resolveMissiles(st *combat.State, p *flight.Player) {
	for i, m := range st.Missiles.All() {
		if m.OwnerID == combat.PlayerID {
			for _, e := range st.Enemies.All() {
				if !e.Alive() {
					continue
				}
				if hit, _ := weapons.SegmentHitsSphere(m.Previous, m.Position, e.Position, e.Radius+ProximityFuse); hit {
					st.SpawnExplosion(m.Position, MissileBlastRadius, m.OwnerID)
					HitEnemy(st, e, m.Damage, combat.PlayerID, m.WeaponID, m.Position)
					st.Missiles.Release(i)
					break
				}
			}
			continue
		}
		if p.IsDead() {
			continue
		}
		if hit, _ := weapons.SegmentHitsSphere(m.Previous, m.Position, p.Position, playerRadius(p)+ProximityFuse); hit {
			st.SpawnExplosion(m.Position, MissileBlastRadius, m.OwnerID)
			HitPlayer(st, p, m.Damage, m.OwnerID, m.WeaponID, m.Position)
			st.Missiles.Release(i)
		}
	}
}

// resolveBodies handles air enemies flying into terrain and mid-air collisions.
func resolveBodies(st *combat.State, p *flight.Player, ter terrain.Terrain) {
	for _, e := range st.Enemies.All() {
		if !e.Alive() {
			continue
		}
		if !e.IsGround && ter != nil && e.Position.Y <= ter.HeightAt(e.Position.X, e.Position.Z) {
			HitEnemy(st, e, e.Health, combat.NoTarget, "terrain", e.Position)
			continue
		}
		if p.IsDead() {
			continue
		}
		reach := playerRadius(p) + e.Radius
		if p.Position.Sub(e.Position).LenSq() < reach*reach {
			HitEnemy(st, e, CollisionDamage, combat.PlayerID, "collision", e.Position)
			HitPlayer(st, p, CollisionDamage, e.ID, "collision", p.Position)
		}
	}
}

// HitEnemy applies damage to an enemy and destroys it at zero health.
func HitEnemy(st *combat.State, e *combat.Enemy, amount float64, sourceID int, weaponID string, at vmath.Vec3) {
	if !e.Alive() || amount <= 0 {
		return
	}
	e.Health = max(e.Health-amount, 0)
	e.HitFlash = HitFlash
	st.Emit(core.Event{
		Kind:     core.EventHit,
		Position: combat.ToPosition(at),
		SourceID: sourceID,
		TargetID: e.ID,
		WeaponID: weaponID,
		Damage:   amount,
	})
	if e.Health > 0 {
		return
	}
	e.Mode = combat.AIDestroyed
	e.WreckTimer = 0
	e.Velocity = vmath.Vec3{}
	e.Speed = 0
	st.SpawnExplosion(e.Position, KillBlastRadius, e.ID)
	st.Emit(core.Event{
		Kind:     core.EventKill,
		Position: combat.ToPosition(e.Position),
		SourceID: sourceID,
		TargetID: e.ID,
		WeaponID: weaponID,
		Detail:   e.Kind,
	})
}

// HitPlayer applies damage to the player.
func HitPlayer(st *combat.State, p *flight.Player, amount float64, sourceID int, weaponID string, at vmath.Vec3) {
	if p.IsDead() || amount <= 0 {
		return
	}
	st.Emit(core.Event{
		Kind:     core.EventHit,
		Position: combat.ToPosition(at),
		SourceID: sourceID,
		TargetID: combat.PlayerID,
		WeaponID: weaponID,
		Damage:   amount,
	})
	if p.Damage(st, amount, weaponID) {
		st.Emit(core.Event{
			Kind:     core.EventKill,
			Position: combat.ToPosition(p.Position),
			SourceID: sourceID,
			TargetID: combat.PlayerID,
			WeaponID: weaponID,
		})
	}
}

// decay ages hit flashes and clears out old wrecks.
func decay(st *combat.State, dt float64) {
	for i, e := range st.Enemies.All() {
		e.HitFlash = max(e.HitFlash-dt, 0)
		if e.Alive() {
			continue
		}
		e.WreckTimer += dt
		if e.WreckTimer >= WreckDuration {
			st.Enemies.Release(i)
		}
	}
}
