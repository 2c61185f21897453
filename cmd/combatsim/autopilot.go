package main

import (
	"math"

	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/sim"
	"github.com/skyward/combat-core/internal/vmath"
)

// View is what the autopilot reads from the simulation each tick.
type View struct {
	Position    vmath.Vec3
	Rotation    vmath.Quat
	Speed       float64
	Dead        bool
	Targets     []vmath.Vec3
	Selected    gamedata.WeaponKind
	MissileSlot int // first missile slot with ammo, -1 when none
}

// ViewOf samples the player and every live enemy.
func ViewOf(s *sim.Simulation) View {
	v := View{
		Position:    s.Player.Position,
		Rotation:    s.Player.Rotation,
		Speed:       s.Player.Speed(),
		Dead:        s.Player.IsDead(),
		MissileSlot: -1,
	}
	for _, e := range s.State.Enemies.All() {
		if e.Alive() {
			v.Targets = append(v.Targets, e.Position)
		}
	}
	if slot := s.State.SelectedSlot(); slot != nil {
		v.Selected = slot.Kind
	}
	for i, slot := range s.State.Slots {
		if slot.Kind == gamedata.KindMissile && slot.Ammo != 0 {
			v.MissileSlot = i
			break
		}
	}
	return v
}

// Autopilot flies a scripted sortie: hold altitude, turn toward the nearest
// enemy, fire the gun when aligned and switch to missiles at range.
type Autopilot struct {
	Altitude     float64 // m
	CruiseSpeed  float64 // m/s
	GunRange     float64 // m
	GunCone      float64 // rad
	MissileRange float64 // m
	MissileCone  float64 // rad

	firedLast bool
}

// NewAutopilot holds the given altitude with gun and seeker envelopes matching
// the enemy AI's fire rules.
func NewAutopilot(altitude float64) *Autopilot {
	return &Autopilot{
		Altitude:     altitude,
		CruiseSpeed:  230,
		GunRange:     800,
		GunCone:      vmath.Deg(4),
		MissileRange: 3000,
		MissileCone:  vmath.Deg(20),
	}
}

// Steer produces one tick of input.
func (a *Autopilot) Steer(v View) flight.Input {
	in := flight.NoInput()
	if v.Dead {
		a.firedLast = false
		return in
	}

	forward := v.Rotation.Forward()
	var (
		target    vmath.Vec3
		dist      = math.Inf(1)
		hasTarget bool
	)
	for _, t := range v.Targets {
		if d := v.Position.Dist(t); d < dist {
			target, dist, hasTarget = t, d, true
		}
	}

	// Desired direction: toward the target in the horizontal plane, climbing or
	// descending gently back to the held altitude.
	desired := forward
	desired.Y = 0
	if hasTarget {
		desired = target.Sub(v.Position)
		desired.Y = 0
	}
	desired = desired.Unit()
	desired.Y = vmath.Clamp((a.Altitude-v.Position.Y)/1000, -0.3, 0.3)
	desired = desired.Unit()

	local := v.Rotation.InverseRotate(desired)
	in.Pitch = vmath.Clamp(local.Y*4, -1, 1)
	in.Yaw = vmath.Clamp(local.X*2, -1, 1)

	// Bank into the turn, wings level when on course.
	bank := math.Asin(vmath.Clamp(-v.Rotation.Right().Y, -1, 1))
	wantBank := vmath.Clamp(local.X*2, -1, 1) * vmath.Deg(60)
	if local.Z > 0 {
		// target behind: hard turn toward whichever side it is on
		wantBank = vmath.Sign(local.X) * vmath.Deg(70)
		if local.X == 0 {
			wantBank = vmath.Deg(70)
		}
	}
	in.Roll = vmath.Clamp((wantBank-bank)*2, -1, 1)

	in.ThrottleUp = v.Speed < a.CruiseSpeed
	in.ThrottleDown = v.Speed > a.CruiseSpeed*1.3

	if !hasTarget {
		a.firedLast = false
		return in
	}
	off := vmath.AngleBetween(forward, target.Sub(v.Position))

	switch {
	case dist > a.GunRange*1.5 && v.MissileSlot >= 0 && v.Selected != gamedata.KindMissile:
		in.SelectSlot = v.MissileSlot
	case dist <= a.GunRange*1.5 && v.Selected != gamedata.KindGun:
		in.SelectSlot = 0
	}

	switch v.Selected {
	case gamedata.KindGun:
		in.Fire = dist <= a.GunRange && off <= a.GunCone
		a.firedLast = false
	case gamedata.KindMissile:
		in.SeekerEngage = dist <= a.MissileRange && off <= a.MissileCone
		// missile launches are edge-triggered; pulse the trigger
		in.Fire = in.SeekerEngage && !a.firedLast
		a.firedLast = in.Fire
	}
	return in
}
