package ai

import (
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/guidance"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/internal/weapons"
	"github.com/skyward/combat-core/pkg/core"
)

func (c *Controller) updateAir(st *combat.State, e *combat.Enemy, p *flight.Player, dt float64) {
	toPlayer := p.Position.Sub(e.Position)
	dist := toPlayer.Len()
	alive := !p.IsDead()
	offBore := vmath.AngleBetween(e.Forward(), toPlayer)

	c.decideAir(st, e, dist, offBore, alive)

	dir := c.desiredAir(e, p)
	dir = c.avoidTerrain(e, dir)
	c.steer(e, dir, dt)

	if alive {
		c.fireAir(st, e, p, dist, vmath.AngleBetween(e.Forward(), toPlayer))
	}
}

// decideAir runs the mode transitions. Evade overrides everything while a player
// missile is tracking this enemy.
func (c *Controller) decideAir(st *combat.State, e *combat.Enemy, dist, offBore float64, playerAlive bool) {
	incoming := guidance.Incoming(st, e.ID)
	if incoming {
		if e.Mode != combat.AIEvade {
			e.EvadeTimer = EvadeDuration
			e.EvadeSign = 1
			if st.Rand.Float64() < 0.5 {
				e.EvadeSign = -1
			}
			c.setMode(st, e, combat.AIEvade)
		}
		c.maybeChaff(st, e)
		return
	}

	switch e.Mode {
	case combat.AIEvade:
		if e.EvadeTimer > 0 {
			return
		}
		if playerAlive && dist < DisengageRange {
			c.setMode(st, e, combat.AIEngage)
		} else {
			c.setMode(st, e, combat.AIPatrol)
		}
	case combat.AIPatrol:
		if playerAlive && dist < EngageRange {
			c.setMode(st, e, combat.AIEngage)
		}
	case combat.AIEngage:
		switch {
		case !playerAlive || dist > DisengageRange:
			c.setMode(st, e, combat.AIPatrol)
		case dist < FireRange && offBore < FireCone:
			c.setMode(st, e, combat.AIFire)
		}
	case combat.AIFire:
		switch {
		case !playerAlive || dist > DisengageRange:
			c.setMode(st, e, combat.AIPatrol)
		case dist > FireRange*1.1 || offBore > FireCone*1.5:
			c.setMode(st, e, combat.AIEngage)
		}
	}
}

// maybeChaff dispenses a countermeasure against incoming missiles when the
// dispenser is ready and the roll succeeds.
func (c *Controller) maybeChaff(st *combat.State, e *combat.Enemy) {
	if e.ChaffAmmo <= 0 || !weapons.Ready(e.ChaffTimer) {
		return
	}
	e.ChaffTimer = ChaffInterval
	if st.Rand.Float64() >= ChaffChance {
		return
	}
	e.ChaffAmmo--
	st.Emit(core.Event{
		Kind:     core.EventChaffDeployed,
		Position: combat.ToPosition(e.Position),
		SourceID: e.ID,
		TargetID: combat.NoTarget,
	})
	guidance.Decoy(st, e.ID, DecoyChance)
}

// desiredAir picks the heading the enemy wants this tick.
func (c *Controller) desiredAir(e *combat.Enemy, p *flight.Player) vmath.Vec3 {
	switch e.Mode {
	case combat.AIEngage, combat.AIFire:
		if !p.IsDead() {
			return leadPoint(e, p).Sub(e.Position)
		}
	case combat.AIEvade:
		fwd := e.Forward()
		side := fwd.Cross(vmath.Up)
		if s, ok := side.Normalize(); ok {
			side = s
		} else {
			side = vmath.Right
		}
		return side.Scale(e.EvadeSign).Add(fwd.Scale(0.4)).Add(vmath.V(0, -0.15, 0))
	}
	if len(e.Waypoints) == 0 {
		return e.Forward()
	}
	wp := e.Waypoints[e.WaypointIndex%len(e.Waypoints)]
	if e.Position.HorizontalDist(wp) < WaypointReach {
		e.WaypointIndex = (e.WaypointIndex + 1) % len(e.Waypoints)
		wp = e.Waypoints[e.WaypointIndex]
	}
	return wp.Sub(e.Position)
}

// avoidTerrain samples the ground under the nose a few seconds ahead. Too little
// clearance now forces a pull-up; too little ahead forces a climb.
func (c *Controller) avoidTerrain(e *combat.Enemy, dir vmath.Vec3) vmath.Vec3 {
	fwd := e.Forward()
	ahead := e.Position.Add(fwd.Scale(math.Max(e.Speed, 50) * LookAhead))
	now := e.Position.Y - c.Terrain.HeightAt(e.Position.X, e.Position.Z)
	later := ahead.Y - c.Terrain.HeightAt(ahead.X, ahead.Z)

	if now < MinClearance*0.5 || later < MinClearance {
		e.TerrainAvoidTimer = AvoidHold
	}
	if e.TerrainAvoidTimer <= 0 {
		return dir
	}
	level := vmath.V(dir.X, 0, dir.Z)
	if l, ok := level.Normalize(); ok {
		level = l
	} else {
		level = vmath.V(fwd.X, 0, fwd.Z).Unit()
	}
	if now < MinClearance*0.5 {
		return level.Scale(0.3).Add(vmath.Up)
	}
	return level.Add(vmath.V(0, 0.6, 0))
}

// steer turns toward dir at the enemy's maneuver-scaled rate, keeps the wings
// level, and flies forward.
func (c *Controller) steer(e *combat.Enemy, dir vmath.Vec3, dt float64) {
	maxTurn := e.TurnRate * e.ManeuverMult * dt
	q, _ := vmath.RotateToward(e.Rotation, dir, maxTurn)
	fwd := q.Forward()
	if math.Abs(fwd.Y) < 0.99 {
		q = vmath.LookRotation(fwd, vmath.Up)
	}
	e.Rotation = q.Normalize()

	target := e.BaseSpeed
	switch e.Mode {
	case combat.AIEngage, combat.AIFire:
		target *= 1.15
	case combat.AIEvade:
		target *= 1.25
	}
	e.Speed = vmath.MoveToward(e.Speed, target, 20*dt)
	e.Velocity = e.Rotation.Forward().Scale(e.Speed)
	e.Position = e.Position.Add(e.Velocity.Scale(dt))
}

// fireAir pulls the trigger and launches missiles when the geometry allows.
func (c *Controller) fireAir(st *combat.State, e *combat.Enemy, p *flight.Player, dist, offBore float64) {
	if e.Mode == combat.AIFire && offBore < FireCone && e.GunID != "" && weapons.Ready(e.FireTimer) {
		if gun, ok := st.Data.Weapon(e.GunID); ok {
			weapons.FireGun(st, weapons.Shot{
				WeaponID:  e.GunID,
				OwnerID:   e.ID,
				Origin:    e.Position,
				Direction: leadPoint(e, p).Sub(e.Position),
				Inherit:   e.Velocity,
			})
			e.FireTimer = gun.Interval() / e.FireRateMult
		}
	}

	armed := e.Mode == combat.AIEngage || e.Mode == combat.AIFire
	if !armed || !e.HasMissiles || e.MissileAmmo <= 0 || !weapons.Ready(e.MissileTimer) {
		return
	}
	if dist > MissileRange || dist < MissileMinimum || offBore > 2*FireCone {
		return
	}
	w, ok := st.Data.Weapon(e.MissileID)
	if !ok {
		return
	}
	if guidance.Launch(st, guidance.LaunchOrder{
		WeaponID:  e.MissileID,
		OwnerID:   e.ID,
		TargetID:  combat.PlayerID,
		Origin:    e.Position,
		Direction: e.Forward(),
		MinSpeed:  e.Speed,
	}) {
		e.MissileAmmo--
		e.MissileTimer = w.Cooldown / e.FireRateMult
	}
}
