package main

import (
	"math"
	"testing"

	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/sim"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(pos vmath.Vec3, targets ...vmath.Vec3) View {
	return View{
		Position:    pos,
		Rotation:    vmath.Identity,
		Speed:       230,
		Targets:     targets,
		Selected:    gamedata.KindGun,
		MissileSlot: -1,
	}
}

func TestSteer_Dead(t *testing.T) {
	v := level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -500))
	v.Dead = true
	assert.Equal(t, flight.NoInput(), NewAutopilot(1500).Steer(v))
}

func TestSteer_HoldsAltitude(t *testing.T) {
	ap := NewAutopilot(1500)

	low := ap.Steer(level(vmath.V(0, 1000, 0)))
	assert.Positive(t, low.Pitch, "climb back up")
	assert.False(t, low.Fire)

	high := ap.Steer(level(vmath.V(0, 2000, 0)))
	assert.Negative(t, high.Pitch)

	on := ap.Steer(level(vmath.V(0, 1500, 0)))
	assert.InDelta(t, 0, on.Pitch, 1e-9)
	assert.InDelta(t, 0, on.Roll, 1e-9)
	assert.Equal(t, -1, on.SelectSlot)
}

func TestSteer_TurnsTowardTarget(t *testing.T) {
	ap := NewAutopilot(1500)

	right := ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(3000, 1500, -3000)))
	assert.Positive(t, right.Roll)
	assert.Positive(t, right.Yaw)

	left := ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(-3000, 1500, -3000)))
	assert.Negative(t, left.Roll)
	assert.Negative(t, left.Yaw)

	behind := ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(-10, 1500, 3000)))
	assert.Equal(t, -1.0, behind.Roll, "hard turn for a target astern")
}

func TestSteer_PicksNearestTarget(t *testing.T) {
	ap := NewAutopilot(1500)
	in := ap.Steer(level(vmath.V(0, 1500, 0),
		vmath.V(-5000, 1500, -5000),
		vmath.V(400, 1500, -400),
	))
	assert.Positive(t, in.Yaw)
}

func TestSteer_GunWhenAligned(t *testing.T) {
	ap := NewAutopilot(1500)

	in := ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -600)))
	assert.True(t, in.Fire)
	assert.False(t, in.SeekerEngage)

	in = ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(300, 1500, -600)))
	assert.False(t, in.Fire, "outside the gun cone")

	in = ap.Steer(level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -1000)))
	assert.False(t, in.Fire, "outside gun range")
}

func TestSteer_SwitchesWeapons(t *testing.T) {
	ap := NewAutopilot(1500)

	far := level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -2500))
	far.MissileSlot = 1
	assert.Equal(t, 1, ap.Steer(far).SelectSlot)

	near := level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -500))
	near.Selected = gamedata.KindMissile
	near.MissileSlot = 1
	assert.Equal(t, 0, ap.Steer(near).SelectSlot)

	far.MissileSlot = -1
	assert.Equal(t, -1, ap.Steer(far).SelectSlot, "no missiles left")
}

func TestSteer_MissilePulsesTrigger(t *testing.T) {
	ap := NewAutopilot(1500)
	v := level(vmath.V(0, 1500, 0), vmath.V(0, 1500, -2500))
	v.Selected = gamedata.KindMissile
	v.MissileSlot = 1

	first := ap.Steer(v)
	assert.True(t, first.SeekerEngage)
	assert.True(t, first.Fire)

	second := ap.Steer(v)
	assert.True(t, second.SeekerEngage)
	assert.False(t, second.Fire, "trigger released between launches")

	assert.True(t, ap.Steer(v).Fire)
}

func TestViewOf(t *testing.T) {
	s, err := sim.New(sim.DefaultConfig())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.SpawnWave(sim.DefaultWave(2, 1))
	require.NoError(t, err)

	v := ViewOf(s)
	assert.Equal(t, s.Player.Position, v.Position)
	assert.Len(t, v.Targets, 3)
	assert.Equal(t, gamedata.KindGun, v.Selected)
	assert.Equal(t, 1, v.MissileSlot)
	assert.False(t, v.Dead)
}

func TestAutopilot_FliesSortie(t *testing.T) {
	s, err := sim.New(sim.DefaultConfig())
	require.NoError(t, err)
	defer s.Close()
	wave := sim.DefaultWave(2, 0)
	wave.Center = vmath.V(0, 0, -5000)
	_, err = s.SpawnWave(wave)
	require.NoError(t, err)

	ap := NewAutopilot(1500)
	for range 600 {
		require.True(t, s.Tick(ap.Steer(ViewOf(s)), 1.0/60))
		s.DrainEvents()
	}
	assert.False(t, math.IsNaN(s.Player.Position.Y))
	assert.True(t, s.Player.Rotation.IsFinite())
}
