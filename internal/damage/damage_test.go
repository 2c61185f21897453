package damage

import (
	"testing"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/internal/weapons"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

func rig(t *testing.T) (*combat.State, *flight.Player) {
	t.Helper()
	data := gamedata.Default()
	plane, err := data.Plane("viper")
	require.NoError(t, err)
	st := combat.NewState(data, combat.Normal, nil)
	st.LoadPlane(plane)
	return st, flight.NewPlayer(plane, vmath.V(0, 1000, 0), 0, 200)
}

func enemyAt(st *combat.State, pos vmath.Vec3, health float64) *combat.Enemy {
	_, e, _ := st.Enemies.Spawn()
	e.ID = st.NextEnemyID()
	e.Kind = "fighter"
	e.Position = pos
	e.Rotation = vmath.Identity
	e.Health, e.MaxHealth, e.Radius = health, health, 12
	return e
}

func bullet(st *combat.State, owner int, from, to vmath.Vec3, dmg float64) {
	_, b, _ := st.Bullets.Spawn()
	b.OwnerID = owner
	b.Previous, b.Position = from, to
	b.Damage = dmg
	b.WeaponID = "m61"
}

func kinds(events []core.Event) []core.EventKind {
	out := make([]core.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestPlayerBulletHitsEnemy(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 100)
	bullet(st, combat.PlayerID, vmath.V(0, 1000, -480), vmath.V(0, 1000, -520), 30)

	Resolve(st, p, nil, tick)

	assert.Equal(t, 70.0, e.Health)
	assert.Equal(t, HitFlash, e.HitFlash)
	assert.Zero(t, st.Bullets.Len(), "bullet consumed")
	assert.Equal(t, []core.EventKind{core.EventHit}, kinds(st.Events.GetAndEmpty()))
}

func TestTunnellingPrevented(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 100)
	// a fast round that starts in front of and ends behind the target in one tick
	bullet(st, combat.PlayerID, vmath.V(0, 1000, -400), vmath.V(0, 1000, -600), 10)
	Resolve(st, p, nil, tick)
	assert.Equal(t, 90.0, e.Health)
}

// A strafing round that passes through a ground target and into the ground in
// the same tick still scores.
func TestStrafingRoundHitsBeforeGround(t *testing.T) {
	st, p := rig(t)
	ground := terrain.Flat{}
	e := enemyAt(st, vmath.V(0, 5, -500), 100)
	e.IsGround = true
	_, b, _ := st.Bullets.Spawn()
	b.OwnerID = combat.PlayerID
	b.Position = vmath.V(0, 20, -460)
	b.Velocity = vmath.V(0, -30, -80).Scale(1 / tick)
	b.Damage = 25
	b.WeaponID = "m61"

	weapons.UpdateBullets(st, ground, tick)
	require.True(t, st.Bullets.At(0).Grounded)
	Resolve(st, p, ground, tick)

	assert.Equal(t, 75.0, e.Health)
	assert.Zero(t, st.Bullets.Len())
}

func TestGroundedRoundReleasedOnMiss(t *testing.T) {
	st, p := rig(t)
	ground := terrain.Flat{}
	e := enemyAt(st, vmath.V(400, 5, -500), 100)
	e.IsGround = true
	_, b, _ := st.Bullets.Spawn()
	b.OwnerID = combat.PlayerID
	b.Position = vmath.V(0, 20, -460)
	b.Velocity = vmath.V(0, -30, -80).Scale(1 / tick)
	b.Damage = 25

	weapons.UpdateBullets(st, ground, tick)
	Resolve(st, p, ground, tick)

	assert.Equal(t, 100.0, e.Health)
	assert.Zero(t, st.Bullets.Len())
}

func TestEnemyBulletIgnoresEnemies(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 100)
	bullet(st, e.ID, vmath.V(0, 1000, -480), vmath.V(0, 1000, -520), 30)
	Resolve(st, p, nil, tick)
	assert.Equal(t, 100.0, e.Health)
	assert.Equal(t, 1, st.Bullets.Len())
}

func TestEnemyBulletHitsPlayer(t *testing.T) {
	st, p := rig(t)
	bullet(st, 3, vmath.V(0, 1000, -20), vmath.V(0, 1000, 20), 25)
	Resolve(st, p, nil, tick)
	assert.Equal(t, 75.0, p.Health)
	assert.Equal(t, flight.HitFlashDuration, p.HitFlash)
	assert.Zero(t, st.Bullets.Len())
}

func TestKillSpawnsExplosion(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 20)
	bullet(st, combat.PlayerID, vmath.V(0, 1000, -480), vmath.V(0, 1000, -520), 30)

	Resolve(st, p, nil, tick)

	assert.Equal(t, combat.AIDestroyed, e.Mode)
	assert.Zero(t, e.Health)
	require.Equal(t, 1, st.Explosions.Len())
	assert.Equal(t, e.Position, st.Explosions.At(0).Position)
	assert.Len(t, st.Explosions.At(0).Fragments, combat.FragmentCount)

	events := st.Events.GetAndEmpty()
	assert.Equal(t, []core.EventKind{core.EventHit, core.EventExplosion, core.EventKill}, kinds(events))
	assert.Equal(t, "fighter", events[2].Detail)

	// destroyed enemies absorb nothing
	bullet(st, combat.PlayerID, vmath.V(0, 1000, -480), vmath.V(0, 1000, -520), 30)
	Resolve(st, p, nil, tick)
	assert.Equal(t, 1, st.Bullets.Len())
}

func TestWreckReleasedAfterDuration(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 10)
	HitEnemy(st, e, 50, combat.PlayerID, "m61", e.Position)
	_, destroyed := st.CountEnemies()
	assert.Equal(t, 1, destroyed)

	for range int(WreckDuration/tick) + 1 {
		Resolve(st, p, nil, tick)
	}
	assert.Zero(t, st.Enemies.Len())
}

func TestMissileProximityFuse(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 100)
	_, m, _ := st.Missiles.Spawn()
	m.OwnerID, m.TargetID, m.Damage, m.WeaponID = combat.PlayerID, e.ID, 80, "aim9"
	// passes 15 m off centre: outside the body, inside body+fuse
	m.Previous, m.Position = vmath.V(15, 1000, -480), vmath.V(15, 1000, -520)

	Resolve(st, p, nil, tick)

	assert.Equal(t, 20.0, e.Health)
	assert.Zero(t, st.Missiles.Len())
	assert.Equal(t, 1, st.Explosions.Len())
}

func TestEnemyMissileKillsPlayer(t *testing.T) {
	st, p := rig(t)
	p.Health = 10
	_, m, _ := st.Missiles.Spawn()
	m.OwnerID, m.TargetID, m.Damage = 4, combat.PlayerID, 35
	m.Previous, m.Position = vmath.V(0, 1000, 30), vmath.V(0, 1000, 5)

	Resolve(st, p, nil, tick)

	assert.True(t, p.IsDead())
	assert.Equal(t, flight.Crashing, p.Phase)
	events := kinds(st.Events.GetAndEmpty())
	assert.Contains(t, events, core.EventPlayerCrashed)
	assert.Contains(t, events, core.EventKill)
}

func TestDeadPlayerIsNotHit(t *testing.T) {
	st, p := rig(t)
	p.Kill(st, "test", false)
	st.Events.Clear()
	bullet(st, 3, vmath.V(0, 1000, -20), vmath.V(0, 1000, 20), 25)
	Resolve(st, p, nil, tick)
	assert.Equal(t, 1, st.Bullets.Len())
	assert.Empty(t, st.Events.GetAndEmpty())
}

func TestAirEnemyHitsTerrain(t *testing.T) {
	st, p := rig(t)
	air := enemyAt(st, vmath.V(3000, -1, 0), 100)
	ground := enemyAt(st, vmath.V(-3000, -1, 0), 100)
	ground.IsGround = true

	Resolve(st, p, terrain.Flat{}, tick)

	assert.Equal(t, combat.AIDestroyed, air.Mode)
	assert.True(t, ground.Alive())
}

func TestMidAirCollision(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, p.Position.Add(vmath.V(5, 0, 0)), 100)
	Resolve(st, p, nil, tick)
	assert.False(t, e.Alive())
	assert.True(t, p.IsDead())
}

func TestHitFlashDecays(t *testing.T) {
	st, p := rig(t)
	e := enemyAt(st, vmath.V(0, 1000, -500), 100)
	HitEnemy(st, e, 1, combat.PlayerID, "m61", e.Position)
	for range 20 {
		Resolve(st, p, nil, tick)
	}
	assert.Zero(t, e.HitFlash)
}
