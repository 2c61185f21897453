package flight

import (
	"log/slog"
	"math"

	"github.com/skyward/combat-core/internal/atmosphere"
	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/control"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// Flight model constants.
const (
	Gravity = 9.81
	// MaxDt is the largest tick the integrator will take; longer frames are dropped.
	MaxDt = 0.1

	CrashVerticalSpeed = 15.0  // m/s descending
	CrashTotalSpeed    = 120.0 // m/s
	GroundClearance    = 3.0   // m
	RespawnDelay       = 3.0   // s
	ExplosionRadius    = 25.0
	HitFlashDuration   = 0.15

	DefaultThrottle = 0.7
	ThrottleRate    = 0.5 // per second
	MouseAimGain    = 1.0

	FuelBurnRate  = 1.0 / 40 // full tank per 40 s of reheat
	FuelRegenRate = 1.0 / 90

	groundFriction  = 0.8 // per second while rolling on the ground
	thrustLapse     = 0.7 // thrust scales with density ratio to this power
	seaLevelDensity = 1.225
)

// RateLimits are hard body-rate limits in rad/s (pitch, yaw, roll).
var RateLimits = vmath.V(1.6, 0.8, 4.0)

// Bounds is the mission play volume centred on the origin.
type Bounds struct {
	Radius  float64 // horizontal, m; 0 disables
	Ceiling float64 // m; 0 disables
	Limit   float64 // seconds allowed outside
}

// Contains reports whether pos is inside the volume.
func (b Bounds) Contains(pos vmath.Vec3) bool {
	if b.Radius > 0 && math.Hypot(pos.X, pos.Z) > b.Radius {
		return false
	}
	if b.Ceiling > 0 && pos.Y > b.Ceiling {
		return false
	}
	return true
}

// Integrator advances the player each tick.
type Integrator struct {
	Terrain terrain.Terrain
	Bounds  Bounds
	Logger  *slog.Logger
}

// NewIntegrator returns an integrator over the given terrain.
func NewIntegrator(t terrain.Terrain, b Bounds, logger *slog.Logger) *Integrator {
	if t == nil {
		t = terrain.Flat{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{Terrain: t, Bounds: b, Logger: logger}
}

// ValidDt reports whether a frame time is integrable.
func ValidDt(dt float64) bool {
	return dt > 0 && dt <= MaxDt
}

// Step advances the player by dt. Ticks with dt outside (0, MaxDt] are ignored
// and Step returns false.
func (ig *Integrator) Step(p *Player, st *combat.State, in Input, dt float64) bool {
	if !ValidDt(dt) {
		return false
	}
	if p.HitFlash > 0 {
		p.HitFlash = max(p.HitFlash-dt, 0)
	}

	switch p.Phase {
	case Flying:
		if p.Health <= 0 {
			p.Kill(st, "damage", false)
			return true
		}
		ig.fly(p, st, in, dt)
	case Crashing:
		ig.fall(p, st, dt)
	case Dead:
		p.CrashTimer += dt
	}

	if p.Phase == Dead && p.CrashTimer >= RespawnDelay {
		p.Respawn(st)
		ig.Logger.Info("player respawned", "position", p.Position)
	}
	return true
}

func (ig *Integrator) fly(p *Player, st *combat.State, in Input, dt float64) {
	ig.engine(p, in, dt)

	cmd := control.Command{Pitch: in.Pitch, Yaw: in.Yaw, Roll: in.Roll}
	if in.UseMouseAim {
		aim := control.AimCommand(in.MouseX, in.MouseY, MouseAimGain)
		cmd = control.Command{Pitch: cmd.Pitch + aim.Pitch, Yaw: cmd.Yaw + aim.Yaw, Roll: cmd.Roll + aim.Roll}
	}
	p.Command = cmd.Clamp()
	p.Surfaces.Update(p.Control, p.Command, dt)

	atm := atmosphere.At(p.Position.Y)
	forces := p.Aero.Forces(p.Velocity, p.Rotation, atm)
	p.Forces = forces
	p.Alpha, p.Beta, p.Mach, p.Stall = forces.Alpha, forces.Beta, forces.Mach, forces.Stall

	mass := p.Plane.Mass
	fwd := p.Rotation.Forward()
	thrust := fwd.Scale(p.thrust(atm.Density))
	specific := forces.Total().Add(thrust).Scale(1 / mass)
	accel := specific.Add(vmath.V(0, -Gravity, 0))
	p.GForce = specific.Dot(p.Rotation.Up()) / Gravity

	p.Velocity = p.Velocity.Add(accel.Scale(dt)).ClampLen(p.speedCap())

	alphaRate := (p.Alpha - p.prevAlpha) / dt
	p.prevAlpha = p.Alpha
	_, angAccel := p.Control.Moments(p.Surfaces, p.Aero.WingArea, control.MomentInput{
		Flow:      forces.Flow,
		AlphaRate: alphaRate,
		Omega:     p.AngularVelocity,
		GForce:    p.GForce,
	})
	w := p.AngularVelocity.Add(angAccel.Scale(dt))
	p.AngularVelocity = vmath.V(
		vmath.Clamp(w.X, -RateLimits.X, RateLimits.X),
		vmath.Clamp(w.Y, -RateLimits.Y, RateLimits.Y),
		vmath.Clamp(w.Z, -RateLimits.Z, RateLimits.Z),
	)

	q := p.Rotation
	q = q.Mul(vmath.AxisAngle(vmath.Right, p.AngularVelocity.X*dt))
	q = q.Mul(vmath.AxisAngle(vmath.Up, p.AngularVelocity.Y*dt))
	q = q.Mul(vmath.AxisAngle(vmath.V(0, 0, 1), p.AngularVelocity.Z*dt))
	p.Rotation = q.Normalize()

	if !p.Rotation.IsFinite() || !p.Velocity.IsFinite() || !p.AngularVelocity.IsFinite() {
		ig.recover(p)
	}

	p.Position = p.Position.Add(p.Velocity.Scale(dt))
	if !p.Position.IsFinite() {
		p.Position = p.SpawnPosition
		ig.recover(p)
	}

	ig.ground(p, st, dt)
	if p.Phase == Flying {
		ig.bounds(p, st, dt)
	}
}

// engine handles throttle, reheat and fuel.
func (ig *Integrator) engine(p *Player, in Input, dt float64) {
	if in.ThrottleUp {
		p.Throttle += ThrottleRate * dt
	}
	if in.ThrottleDown {
		p.Throttle -= ThrottleRate * dt
	}
	p.Throttle = vmath.Clamp(p.Throttle, 0, 1)

	if in.AfterburnerToggle && !p.prevABToggle {
		p.Afterburner = !p.Afterburner && p.Fuel > 0
	}
	p.prevABToggle = in.AfterburnerToggle

	if p.Afterburner {
		p.Fuel -= FuelBurnRate * dt
		if p.Fuel <= 0 {
			p.Fuel = 0
			p.Afterburner = false
		}
	} else {
		p.Fuel = min(p.Fuel+FuelRegenRate*dt, 1)
	}
}

func (p *Player) thrust(density float64) float64 {
	var t float64
	if p.Afterburner {
		t = p.Plane.Thrust(true)
	} else {
		t = p.Plane.Thrust(false) * p.Throttle
	}
	return t * math.Pow(density/seaLevelDensity, thrustLapse)
}

func (p *Player) speedCap() float64 {
	limit := p.Plane.MaxSpeed
	if limit <= 0 {
		limit = 600
	}
	if p.Afterburner {
		return limit * 1.2
	}
	return limit * (0.55 + 0.45*p.Throttle)
}

// recover puts the aircraft back on a sane attitude after a numerical blow-up.
func (ig *Integrator) recover(p *Player) {
	ig.Logger.Warn("non-finite flight state, resetting kinematics",
		"rotation", p.Rotation, "velocity", p.Velocity)
	p.Rotation = vmath.Identity
	if dir, ok := vmath.V(p.Velocity.X, 0, p.Velocity.Z).Normalize(); ok && dir.IsFinite() {
		p.Rotation = vmath.LookRotation(dir, vmath.Up)
	}
	p.Velocity = p.Rotation.Forward().Scale(p.SpawnSpeed)
	p.AngularVelocity = vmath.Vec3{}
	p.Surfaces.Reset()
	p.prevAlpha = 0
}

// GroundLevel is the lowest altitude the airframe may occupy at x,z.
func (ig *Integrator) GroundLevel(x, z float64) float64 {
	return max(ig.Terrain.HeightAt(x, z), 0) + GroundClearance
}

func (ig *Integrator) ground(p *Player, st *combat.State, dt float64) {
	floor := ig.GroundLevel(p.Position.X, p.Position.Z)
	if p.Position.Y >= floor {
		return
	}
	descent := -p.Velocity.Y
	speed := p.Velocity.Len()
	if descent > CrashVerticalSpeed || speed > CrashTotalSpeed {
		p.Position.Y = floor
		ig.Logger.Info("player crashed", "descent", descent, "speed", speed, "position", p.Position)
		p.Kill(st, "terrain", true)
		return
	}
	p.Position.Y = floor
	if p.Velocity.Y < 0 {
		p.Velocity.Y = 0
	}
	k := math.Max(0, 1-groundFriction*dt)
	p.Velocity.X *= k
	p.Velocity.Z *= k
	p.AngularVelocity = vmath.Vec3{}
}

// fall drops the wreck until it hits the ground. The respawn delay starts at
// impact.
func (ig *Integrator) fall(p *Player, st *combat.State, dt float64) {
	p.Velocity = p.Velocity.Add(vmath.V(0, -Gravity*dt, 0)).Scale(1 - math.Min(1, 0.1*dt))
	p.Position = p.Position.Add(p.Velocity.Scale(dt))
	floor := ig.GroundLevel(p.Position.X, p.Position.Z)
	if p.Position.Y <= floor {
		p.Position.Y = floor
		p.Velocity = vmath.Vec3{}
		p.Phase = Dead
		p.CrashTimer = 0
		st.SpawnExplosion(p.Position, ExplosionRadius, combat.PlayerID)
	}
}

func (ig *Integrator) bounds(p *Player, st *combat.State, dt float64) {
	oob := &st.OOB
	if ig.Bounds.Contains(p.Position) {
		oob.Out = false
		oob.Timer = 0
		return
	}
	if !oob.Out {
		oob.Out = true
		oob.Limit = ig.Bounds.Limit
		st.Emit(core.Event{
			Kind:     core.EventOutOfBounds,
			Position: combat.ToPosition(p.Position),
			SourceID: combat.PlayerID,
			TargetID: combat.NoTarget,
		})
	}
	oob.Timer += dt
	if ig.Bounds.Limit > 0 && oob.Timer >= ig.Bounds.Limit {
		ig.Logger.Info("player left the play area", "seconds", oob.Timer)
		p.Kill(st, "out of bounds", false)
	}
}
