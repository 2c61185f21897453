package ai

import (
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/guidance"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/internal/weapons"
)

// patrolPoint is the ground position on the patrol circle at the current angle.
func (c *Controller) patrolPoint(e *combat.Enemy) vmath.Vec3 {
	x := e.PatrolCenter.X + math.Cos(e.PatrolAngle)*e.PatrolRadius
	z := e.PatrolCenter.Z + math.Sin(e.PatrolAngle)*e.PatrolRadius
	return vmath.V(x, c.Terrain.HeightAt(x, z), z)
}

// updateGround drives a ground unit. The hull only follows its patrol circle;
// the turret tracks the player and fires inside the engagement range.
func (c *Controller) updateGround(st *combat.State, e *combat.Enemy, p *flight.Player, dt float64) {
	if e.CanMove && e.PatrolRadius > 0 {
		e.PatrolAngle = math.Mod(e.PatrolAngle+e.Speed/e.PatrolRadius*dt, 2*math.Pi)
		next := c.patrolPoint(e)
		e.Velocity = next.Sub(e.Position).Scale(1 / dt)
		e.Position = next
	}

	toPlayer := p.Position.Sub(e.Position)
	dist := toPlayer.Len()
	alive := !p.IsDead()

	switch {
	case alive && dist < e.EngageRange:
		c.setMode(st, e, combat.AIFire)
	case alive && dist < e.EngageRange*1.5:
		c.setMode(st, e, combat.AIEngage)
	default:
		c.setMode(st, e, combat.AIPatrol)
	}

	var aim vmath.Vec3
	if e.Mode == combat.AIPatrol {
		aim = e.Velocity
		if e.Velocity.LenSq() < vmath.Epsilon {
			return
		}
	} else {
		aim = toPlayer
	}
	q, _ := vmath.RotateToward(e.Rotation, aim, e.TurnRate*e.ManeuverMult*dt)
	e.Rotation = q

	if e.Mode != combat.AIFire || vmath.AngleBetween(e.Forward(), toPlayer) > FireCone {
		return
	}
	if e.GunID != "" && weapons.Ready(e.FireTimer) {
		if gun, ok := st.Data.Weapon(e.GunID); ok {
			weapons.FireGun(st, weapons.Shot{
				WeaponID:  e.GunID,
				OwnerID:   e.ID,
				Origin:    e.Position.Add(vmath.V(0, 2, 0)),
				Direction: leadPoint(e, p).Sub(e.Position),
			})
			e.FireTimer = gun.Interval() / e.FireRateMult
		}
	}
	if e.HasMissiles && e.MissileAmmo > 0 && weapons.Ready(e.MissileTimer) {
		if w, ok := st.Data.Weapon(e.MissileID); ok && guidance.Launch(st, guidance.LaunchOrder{
			WeaponID:  e.MissileID,
			OwnerID:   e.ID,
			TargetID:  combat.PlayerID,
			Origin:    e.Position.Add(vmath.V(0, 4, 0)),
			Direction: e.Forward(),
		}) {
			e.MissileAmmo--
			e.MissileTimer = w.Cooldown / e.FireRateMult
		}
	}
}
