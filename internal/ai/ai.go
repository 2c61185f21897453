// Package ai drives enemy behaviour: a patrol/engage/fire/evade state machine for
// aircraft and a turret tracker for ground units. Enemies act only through the
// weapons and guidance packages.
package ai

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// Engagement geometry.
const (
	EngageRange    = 1200.0
	DisengageRange = 2000.0
	FireRange      = 800.0
	MissileRange   = 2500.0
	MissileMinimum = 400.0

	// MaxGroundSlope rejects ground spawns on steeper terrain, degrees.
	MaxGroundSlope = 25.0

	PatrolRadius  = 2000.0
	WaypointReach = 250.0

	LookAhead      = 3.0   // s of flight sampled ahead for terrain
	MinClearance   = 150.0 // m
	AvoidHold      = 1.5   // s a pull-up is held once triggered
	EvadeDuration  = 3.0
	ChaffInterval  = 2.0
	ChaffChance    = 0.5 // chance to dispense when a check comes up
	DecoyChance    = 0.6 // chance each tracking missile is decoyed
	DefaultEngage  = 1500.0
	bulletLeadTime = 1.0 / 900 // s per metre for lead pursuit
)

// FireCone is the half-angle inside which enemies open fire.
var FireCone = vmath.Deg(15)

// Controller updates every enemy each tick.
type Controller struct {
	Terrain terrain.Terrain
	Logger  *slog.Logger
}

// NewController returns a controller over the given terrain.
func NewController(t terrain.Terrain, logger *slog.Logger) *Controller {
	if t == nil {
		t = terrain.Flat{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{Terrain: t, Logger: logger}
}

// Spawn places an enemy of the given kind, scaled by the state's difficulty.
// Ground units snap to the terrain and are refused on slopes over
// MaxGroundSlope. Unknown kinds and a full pool return an error and change
// nothing.
func (c *Controller) Spawn(st *combat.State, kind string, pos vmath.Vec3, heading float64) (*combat.Enemy, error) {
	t, ok := st.Data.Enemy(kind)
	if !ok {
		return nil, fmt.Errorf("spawning %q: unknown enemy type", kind)
	}
	if t.Ground {
		if slope := c.Terrain.SlopeAt(pos.X, pos.Z); slope > MaxGroundSlope {
			return nil, fmt.Errorf("spawning %q: slope %.1f° too steep", kind, slope)
		}
		pos.Y = c.Terrain.HeightAt(pos.X, pos.Z)
	}
	_, e, ok := st.Enemies.Spawn()
	if !ok {
		return nil, fmt.Errorf("spawning %q: enemy pool full", kind)
	}

	prof := st.Difficulty.Profile()
	e.ID = st.NextEnemyID()
	e.Kind = kind
	e.Position = pos
	e.Rotation = vmath.HeadingRotation(heading)
	e.BaseSpeed = t.Speed
	e.TurnRate = t.TurnRate
	e.MaxHealth = t.Health * prof.Health
	e.Health = e.MaxHealth
	e.Radius = t.Radius
	e.Mode = combat.AIPatrol
	e.IsGround = t.Ground
	e.CanMove = t.CanMove
	e.EngageRange = t.EngageRange
	if e.EngageRange <= 0 {
		e.EngageRange = DefaultEngage
	}
	e.ManeuverMult = prof.Maneuver
	e.FireRateMult = prof.FireRate
	e.GunID = t.Gun
	e.MissileID = t.Missile
	e.Score = t.Score
	if w, ok := st.Data.Weapon(t.Missile); ok && prof.Missiles {
		e.HasMissiles = true
		e.MissileAmmo = w.Ammo
		e.MissileTimer = w.Cooldown / prof.FireRate
	}
	if gun, ok := st.Data.Weapon(t.Gun); ok {
		e.FireTimer = st.Rand.Float64() * gun.Interval()
	}

	if t.Ground {
		e.PatrolCenter = pos
		e.PatrolRadius = t.PatrolRadius
		e.PatrolAngle = st.Rand.Float64() * 2 * math.Pi
		e.Speed = 0
		if e.CanMove && e.PatrolRadius > 0 {
			e.Speed = t.Speed
			e.Position = c.patrolPoint(e)
		}
	} else {
		e.ChaffAmmo = prof.ChaffAmmo
		e.Speed = t.Speed
		e.Velocity = e.Forward().Scale(e.Speed)
		e.Waypoints = make([]vmath.Vec3, 4)
		for i := range e.Waypoints {
			a := heading + float64(i)*math.Pi/2
			e.Waypoints[i] = vmath.V(pos.X+math.Sin(a)*PatrolRadius, pos.Y, pos.Z-math.Cos(a)*PatrolRadius)
		}
	}
	return e, nil
}

// Update runs one tick of behaviour for every live enemy.
func (c *Controller) Update(st *combat.State, p *flight.Player, dt float64) {
	for _, e := range st.Enemies.All() {
		if !e.Alive() {
			continue
		}
		tickTimers(e, dt)
		if e.IsGround {
			c.updateGround(st, e, p, dt)
		} else {
			c.updateAir(st, e, p, dt)
		}
	}
}

func tickTimers(e *combat.Enemy, dt float64) {
	e.FireTimer = max(e.FireTimer-dt, 0)
	e.MissileTimer = max(e.MissileTimer-dt, 0)
	e.ChaffTimer = max(e.ChaffTimer-dt, 0)
	e.EvadeTimer = max(e.EvadeTimer-dt, 0)
	e.TerrainAvoidTimer = max(e.TerrainAvoidTimer-dt, 0)
}

// setMode switches mode and reports the transition.
func (c *Controller) setMode(st *combat.State, e *combat.Enemy, m combat.AIMode) {
	if e.Mode == m {
		return
	}
	from := e.Mode
	e.Mode = m
	c.Logger.Debug("enemy mode changed", "enemy", e.ID, "from", from.String(), "to", m.String())
	st.Emit(core.Event{
		Kind:     core.EventAIModeChanged,
		Position: combat.ToPosition(e.Position),
		SourceID: e.ID,
		TargetID: combat.NoTarget,
		Detail:   from.String() + "->" + m.String(),
	})
}

// leadPoint predicts where the player will be when a round fired now arrives.
func leadPoint(e *combat.Enemy, p *flight.Player) vmath.Vec3 {
	dist := p.Position.Dist(e.Position)
	return p.Position.Add(p.Velocity.Scale(dist * bulletLeadTime))
}
