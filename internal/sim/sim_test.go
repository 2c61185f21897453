package sim

import (
	"math"
	"testing"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

func newSim(t *testing.T, mutate ...func(*Config)) *Simulation {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_UnknownPlane(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plane = "biplane"
	_, err := New(cfg)
	assert.ErrorIs(t, err, gamedata.ErrUnknownPlane)
}

func TestNew_LoadsPlane(t *testing.T) {
	s := newSim(t)
	require.NotEmpty(t, s.State.Slots)
	assert.Equal(t, gamedata.KindGun, s.State.Slots[0].Kind)
	assert.Equal(t, 0, s.State.Selected)
	assert.Equal(t, vmath.V(0, 1500, 0), s.Player.Position)
	assert.InDelta(t, 220, s.Player.Speed(), 1e-9)
}

func TestTick_RejectsBadDt(t *testing.T) {
	s := newSim(t)
	before := s.Player.Position
	for _, dt := range []float64{0, -tick, 0.5, math.NaN()} {
		assert.False(t, s.Tick(flight.NoInput(), dt))
	}
	assert.Zero(t, s.State.Tick)
	assert.Zero(t, s.State.Time)
	assert.Equal(t, before, s.Player.Position)
}

func TestTick_AdvancesClock(t *testing.T) {
	s := newSim(t)
	for range 60 {
		require.True(t, s.Tick(flight.NoInput(), tick))
	}
	assert.Equal(t, uint64(60), s.State.Tick)
	assert.InDelta(t, 1.0, s.State.Time, 1e-9)
}

func TestTick_GunFiresWhileHeld(t *testing.T) {
	s := newSim(t)
	in := flight.NoInput()
	in.Fire = true
	s.Tick(in, tick)

	fired := 0
	for _, ev := range s.DrainEvents() {
		if ev.Kind == core.EventFired {
			fired++
			assert.Equal(t, uint64(0), ev.Tick, "events carry the tick they happened in")
			assert.Equal(t, combat.PlayerID, ev.SourceID)
		}
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, s.State.Bullets.Len())
	assert.Empty(t, s.DrainEvents())
}

func TestTick_MissileFireIsEdgeTriggered(t *testing.T) {
	s := newSim(t)
	in := flight.NoInput()
	in.SelectSlot = 1
	s.Tick(in, tick)
	require.Equal(t, gamedata.KindMissile, s.State.SelectedSlot().Kind)
	ammo := s.State.SelectedSlot().Ammo

	in = flight.NoInput()
	in.Fire = true
	for range 120 {
		s.Tick(in, tick)
	}
	assert.Equal(t, 1, s.State.Missiles.Len(), "holding fire launches once")
	assert.Equal(t, ammo-1, s.State.SelectedSlot().Ammo)
	assert.Zero(t, s.State.Bullets.Len(), "gun is not selected")

	s.Tick(flight.NoInput(), tick)
	s.Tick(in, tick)
	assert.Equal(t, 2, s.State.Missiles.Len())
}

func TestTick_ChaffIsEdgeTriggered(t *testing.T) {
	s := newSim(t)
	ammo := s.State.Chaff.Ammo
	require.Positive(t, ammo)

	in := flight.NoInput()
	in.DeployCountermeasure = true
	for range 180 {
		s.Tick(in, tick)
	}
	assert.Equal(t, ammo-1, s.State.Chaff.Ammo)
}

func TestSpawnEnemy(t *testing.T) {
	s := newSim(t)
	id, err := s.SpawnEnemy("fighter", vmath.V(0, 1500, -3000), math.Pi)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, 1, s.PoolStats()[poolEnemies])

	_, err = s.SpawnEnemy("zeppelin", vmath.Vec3{}, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, s.PoolStats()[poolEnemies])
}

func TestSpawnWave(t *testing.T) {
	s := newSim(t)
	w := DefaultWave(4, 3)
	ids, err := s.SpawnWave(w)
	require.NoError(t, err)
	require.Len(t, ids, 7)
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	air, ground := 0, 0
	for _, e := range s.State.Enemies.All() {
		if e.IsGround {
			ground++
			assert.Zero(t, e.Position.Y)
			assert.LessOrEqual(t, e.Position.HorizontalDist(w.Center), w.GroundRadius+1e-6)
			continue
		}
		air++
		assert.InDelta(t, w.Altitude, e.Position.Y, 1e-9)
		assert.InDelta(t, w.AirRadius, e.Position.HorizontalDist(w.Center), 1e-6)
		toCenter := w.Center.Sub(e.Position)
		toCenter.Y = 0
		assert.Less(t, vmath.AngleBetween(e.Forward(), toCenter), 1e-6, "aircraft face the centre")
	}
	assert.Equal(t, 4, air)
	assert.Equal(t, 3, ground)
}

type steepTerrain struct{}

func (steepTerrain) HeightAt(x, _ float64) float64 { return x }
func (steepTerrain) SlopeAt(_, _ float64) float64  { return 45 }

func TestSpawnWave_SteepGroundRejected(t *testing.T) {
	s := newSim(t, func(c *Config) { c.Terrain = steepTerrain{} })
	ids, err := s.SpawnWave(DefaultWave(2, 2))
	assert.Len(t, ids, 2)
	require.Error(t, err)
	assert.ErrorContains(t, err, "ground 0")
	assert.ErrorContains(t, err, "ground 1")
}

func TestSnapshot(t *testing.T) {
	s := newSim(t)
	a, err := s.SpawnEnemy("fighter", vmath.V(0, 1500, -5000), 0)
	require.NoError(t, err)
	b, err := s.SpawnEnemy("aaa", vmath.V(3000, 0, 3000), 0)
	require.NoError(t, err)
	s.Tick(flight.NoInput(), tick)

	e, ok := s.State.FindEnemy(a)
	require.True(t, ok)
	e.Mode = combat.AIDestroyed

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.InDelta(t, tick, snap.Time, 1e-12)
	assert.False(t, snap.Player.IsDead)
	require.Len(t, snap.Enemies, 1, "destroyed enemies are not published")
	assert.Equal(t, b, snap.Enemies[0].ID)
	assert.Equal(t, "aaa", snap.Enemies[0].Kind)
	assert.True(t, snap.Enemies[0].IsGround)
	assert.Equal(t, "patrol", snap.Enemies[0].AIMode)
}

func TestApplyEnemySnapshots(t *testing.T) {
	s := newSim(t)
	id, err := s.SpawnEnemy("fighter", vmath.V(0, 1500, -5000), 0)
	require.NoError(t, err)

	n := s.ApplyEnemySnapshots([]core.EnemySnapshot{
		{
			ID:       id,
			Position: core.Position3D{X: 10, Y: 2000, Z: -400},
			Rotation: core.Rotation{W: 2},
			Velocity: core.Position3D{Z: -250},
			Speed:    250,
			Health:   40,
			AIMode:   "engage",
		},
		{ID: 999, Health: 1},
	})
	assert.Equal(t, 1, n)

	e, ok := s.State.FindEnemy(id)
	require.True(t, ok)
	assert.Equal(t, vmath.V(10, 2000, -400), e.Position)
	assert.Equal(t, vmath.Identity, e.Rotation, "rotation is renormalised")
	assert.Equal(t, 250.0, e.Speed)
	assert.Equal(t, 40.0, e.Health)
	assert.Equal(t, combat.AIEngage, e.Mode)

	for _, hp := range []float64{0, -5} {
		n = s.ApplyEnemySnapshots([]core.EnemySnapshot{{ID: id, Health: hp, AIMode: "destroyed"}})
		assert.Equal(t, 1, n)
		assert.Equal(t, 40.0, e.Health, "health %v is ignored", hp)
		assert.True(t, e.Alive())
	}
}

// Runs a busy mission and checks the invariants every pool and every
// orientation must hold after each tick.
func TestInvariantsUnderLoad(t *testing.T) {
	s := newSim(t, func(c *Config) {
		c.Difficulty = combat.Ace
		c.Terrain = terrain.NewRolling(0, 150, 6000)
		c.Spawn = vmath.V(0, 2000, 0)
	})
	_, err := s.SpawnWave(DefaultWave(8, 4))
	require.NoError(t, err)

	checkQuat := func(what string, q vmath.Quat) {
		require.InDelta(t, 1, q.Len(), 1e-6, what)
	}
	for i := range 1800 {
		in := flight.NoInput()
		in.Fire = i%90 < 45
		in.SeekerEngage = i > 600
		in.Pitch = 0.3 * math.Sin(float64(i)/70)
		in.Roll = 0.5 * math.Sin(float64(i)/110)
		in.DeployCountermeasure = i%240 == 0
		if i == 600 {
			in.SelectSlot = 1
		}
		require.True(t, s.Tick(in, tick))

		checkQuat("player", s.Player.Rotation)
		for _, e := range s.State.Enemies.All() {
			checkQuat("enemy", e.Rotation)
		}
		for _, m := range s.State.Missiles.All() {
			checkQuat("missile", m.Rotation)
		}
		assertPool(t, s.State.Bullets)
		assertPool(t, s.State.Missiles)
		assertPool(t, s.State.Enemies)
		assertPool(t, s.State.Explosions)
		s.DrainEvents()
	}
}

func assertPool[T any](t *testing.T, p *combat.Pool[T]) {
	t.Helper()
	n := 0
	for range p.All() {
		n++
	}
	require.Equal(t, p.Len(), n)
	require.LessOrEqual(t, p.Len(), p.Cap())
}

func TestDeterministicForSeed(t *testing.T) {
	run := func() core.Snapshot {
		s := newSim(t, func(c *Config) { c.Seed = 42 })
		_, err := s.SpawnWave(DefaultWave(3, 2))
		require.NoError(t, err)
		in := flight.NoInput()
		in.Fire = true
		in.Roll = 0.2
		for range 600 {
			s.Tick(in, tick)
		}
		return s.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestEnemyInfo(t *testing.T) {
	s := newSim(t)
	id, err := s.SpawnEnemy("fighter", vmath.V(100, 1500, -3000), 0)
	require.NoError(t, err)
	s.Tick(flight.NoInput(), tick)

	info, ok := s.EnemyInfo(id)
	require.True(t, ok)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, "fighter", info.Kind)
	assert.False(t, info.IsGround)
	assert.Positive(t, info.MaxHealth)
	assert.Equal(t, uint64(1), info.JoinTick)

	_, ok = s.EnemyInfo(id + 100)
	assert.False(t, ok)
}

func TestTelemetry(t *testing.T) {
	s := newSim(t)
	_, err := s.SpawnWave(DefaultWave(2, 1))
	require.NoError(t, err)
	in := flight.NoInput()
	in.Fire = true
	s.Tick(in, tick)

	tel := s.Telemetry()
	assert.Equal(t, uint64(1), tel.Tick)
	assert.InDelta(t, s.Player.Position.Y, tel.Altitude, 1e-9)
	assert.InDelta(t, s.Player.Speed(), tel.Speed, 1e-9)
	assert.Equal(t, 3, tel.ActiveEnemies)
	assert.Equal(t, s.State.Bullets.Len(), tel.Bullets)
	assert.Positive(t, tel.Bullets)
	assert.Positive(t, tel.Health)
}
