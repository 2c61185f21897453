// Package flight owns the player aircraft: its kinematic state, the
// Flying/Crashing/Dead life cycle and the per-tick flight dynamics integration.
package flight

import (
	"fmt"

	"github.com/skyward/combat-core/internal/aero"
	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/control"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// Phase is the player life-cycle state.
type Phase uint8

const (
	// Flying is normal controllable flight.
	Flying Phase = iota
	// Crashing is an uncontrolled wreck falling after being shot down.
	Crashing
	// Dead waits out the respawn delay on the ground.
	Dead
)

func (p Phase) String() string {
	switch p {
	case Flying:
		return "flying"
	case Crashing:
		return "crashing"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Input is the normalized command vector sampled once per tick.
type Input struct {
	Pitch float64
	Yaw   float64
	Roll  float64

	ThrottleUp        bool
	ThrottleDown      bool
	AfterburnerToggle bool

	Fire                 bool
	DeployCountermeasure bool
	SeekerEngage         bool

	UseMouseAim bool
	MouseX      float64
	MouseY      float64

	// SelectSlot picks a weapon slot; -1 leaves the selection unchanged.
	SelectSlot int
}

// NoInput is a neutral command.
func NoInput() Input { return Input{SelectSlot: -1} }

// Player is the player aircraft.
type Player struct {
	Plane   gamedata.Plane
	Aero    aero.Params
	Control control.Params

	Position        vmath.Vec3
	Velocity        vmath.Vec3
	Rotation        vmath.Quat
	AngularVelocity vmath.Vec3 // body rates: X pitch, Y yaw, Z roll

	Throttle    float64
	Afterburner bool
	Fuel        float64

	Command  control.Command // raw stick command after mouse aim blending
	Surfaces control.Surfaces

	Alpha  float64
	Beta   float64
	Mach   float64
	GForce float64
	Stall  float64
	Forces aero.Result

	Health     float64
	MaxHealth  float64
	HitFlash   float64
	Phase      Phase
	CrashTimer float64

	SpawnPosition vmath.Vec3
	SpawnRotation vmath.Quat
	SpawnSpeed    float64

	prevAlpha    float64
	prevABToggle bool
}

// NewPlayer puts a fresh airframe at its spawn point.
func NewPlayer(plane gamedata.Plane, spawn vmath.Vec3, heading, speed float64) *Player {
	p := &Player{
		Plane:         plane,
		Aero:          plane.AeroParams(),
		Control:       plane.ControlParams(),
		MaxHealth:     plane.Health,
		SpawnPosition: spawn,
		SpawnRotation: vmath.HeadingRotation(heading),
		SpawnSpeed:    speed,
	}
	p.reset()
	return p
}

func (p *Player) reset() {
	p.Position = p.SpawnPosition
	p.Rotation = p.SpawnRotation
	p.Velocity = p.SpawnRotation.Forward().Scale(p.SpawnSpeed)
	p.AngularVelocity = vmath.Vec3{}
	p.Throttle = DefaultThrottle
	p.Afterburner = false
	p.Fuel = 1
	p.Command = control.Command{}
	p.Surfaces.Reset()
	p.Alpha, p.Beta, p.Mach, p.GForce, p.Stall = 0, 0, 0, 1, 0
	p.Forces = aero.Result{}
	p.Health = p.MaxHealth
	p.HitFlash = 0
	p.Phase = Flying
	p.CrashTimer = 0
	p.prevAlpha = 0
}

// IsDead reports whether the player is out of the fight.
func (p *Player) IsDead() bool { return p.Phase != Flying }

// Speed is the airspeed magnitude.
func (p *Player) Speed() float64 { return p.Velocity.Len() }

// Forward is the nose direction.
func (p *Player) Forward() vmath.Vec3 { return p.Rotation.Forward() }

// Respawn restores the spawn state and reloads weapons, seeker, chaff and
// boundary state.
func (p *Player) Respawn(st *combat.State) {
	p.reset()
	st.LoadPlane(p.Plane)
	st.Emit(core.Event{
		Kind:     core.EventPlayerRespawned,
		Position: combat.ToPosition(p.Position),
		SourceID: combat.PlayerID,
		TargetID: combat.NoTarget,
	})
}

// Kill destroys the aircraft. An airborne wreck keeps falling; a ground impact
// stops dead.
func (p *Player) Kill(st *combat.State, cause string, onGround bool) {
	if p.Phase != Flying {
		return
	}
	p.Health = 0
	p.CrashTimer = 0
	p.Afterburner = false
	p.AngularVelocity = vmath.Vec3{}
	st.Seeker = combat.Seeker{TargetID: combat.NoTarget}
	if onGround {
		p.Phase = Dead
		p.Velocity = vmath.Vec3{}
	} else {
		p.Phase = Crashing
	}
	st.SpawnExplosion(p.Position, ExplosionRadius, combat.PlayerID)
	st.Emit(core.Event{
		Kind:     core.EventPlayerCrashed,
		Position: combat.ToPosition(p.Position),
		SourceID: combat.PlayerID,
		TargetID: combat.NoTarget,
		Detail:   cause,
	})
}

// Damage applies a hit. It returns true when the hit was fatal.
func (p *Player) Damage(st *combat.State, amount float64, cause string) bool {
	if p.Phase != Flying || amount <= 0 {
		return false
	}
	p.Health = max(p.Health-amount, 0)
	p.HitFlash = HitFlashDuration
	if p.Health == 0 {
		p.Kill(st, cause, false)
		return true
	}
	return false
}

// Snapshot converts to the public contract.
func (p *Player) Snapshot() core.PlayerSnapshot {
	return core.PlayerSnapshot{
		Position:    combat.ToPosition(p.Position),
		Rotation:    combat.ToRotation(p.Rotation),
		Velocity:    combat.ToPosition(p.Velocity),
		Speed:       p.Speed(),
		Throttle:    p.Throttle,
		Afterburner: p.Afterburner,
		Fuel:        p.Fuel,
		Alpha:       p.Alpha,
		Beta:        p.Beta,
		Mach:        p.Mach,
		GForce:      p.GForce,
		Health:      p.Health,
		IsDead:      p.IsDead(),
		Stalled:     p.Stall > 0.5,
	}
}
