package ai

import (
	"math"
	"math/rand/v2"
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

func rig(t *testing.T, diff combat.Difficulty, ter terrain.Terrain) (*Controller, *combat.State, *flight.Player) {
	t.Helper()
	data := gamedata.Default()
	plane, err := data.Plane("viper")
	require.NoError(t, err)
	st := combat.NewState(data, diff, rand.New(rand.NewPCG(3, 5)))
	st.LoadPlane(plane)
	p := flight.NewPlayer(plane, vmath.V(0, 1000, 0), 0, 200)
	return NewController(ter, nil), st, p
}

func TestSpawn_DifficultyScaling(t *testing.T) {
	tests := []struct {
		diff     combat.Difficulty
		health   float64
		missiles bool
		chaff    int
	}{
		{combat.Easy, 70, false, 0},
		{combat.Normal, 100, true, 2},
		{combat.Hard, 130, true, 4},
		{combat.Ace, 160, true, 6},
	}
	for _, tt := range tests {
		t.Run(tt.diff.String(), func(t *testing.T) {
			c, st, _ := rig(t, tt.diff, nil)
			e, err := c.Spawn(st, "fighter", vmath.V(0, 1500, -3000), 0)
			require.NoError(t, err)
			assert.InDelta(t, tt.health, e.MaxHealth, 1e-9)
			assert.InDelta(t, tt.health, e.Health, 1e-9)
			assert.Equal(t, tt.missiles, e.HasMissiles)
			assert.Equal(t, tt.chaff, e.ChaffAmmo)
			assert.Equal(t, tt.diff.Profile().Maneuver, e.ManeuverMult)
			assert.Equal(t, combat.AIPatrol, e.Mode)
			assert.Len(t, e.Waypoints, 4)
		})
	}
}

func TestSpawn_Errors(t *testing.T) {
	c, st, _ := rig(t, combat.Normal, nil)
	_, err := c.Spawn(st, "ufo", vmath.Vec3{}, 0)
	assert.Error(t, err)
	assert.Zero(t, st.Enemies.Len())

	c.Terrain = rampTerrain{grade: math.Tan(vmath.Deg(30))}
	_, err = c.Spawn(st, "aaa", vmath.V(100, 0, 100), 0)
	assert.ErrorContains(t, err, "too steep")

	c.Terrain = rampTerrain{grade: math.Tan(vmath.Deg(10))}
	e, err := c.Spawn(st, "aaa", vmath.V(100, 0, 100), 0)
	require.NoError(t, err)
	assert.InDelta(t, 100*math.Tan(vmath.Deg(10)), e.Position.Y, 1e-9, "ground units sit on the terrain")

	for st.Enemies.Len() < combat.MaxEnemies {
		_, err := c.Spawn(st, "fighter", vmath.V(0, 1000, 0), 0)
		require.NoError(t, err)
	}
	_, err = c.Spawn(st, "fighter", vmath.V(0, 1000, 0), 0)
	assert.ErrorContains(t, err, "pool full")
}

func TestSpawn_IDsNeverReused(t *testing.T) {
	c, st, _ := rig(t, combat.Normal, nil)
	first, err := c.Spawn(st, "fighter", vmath.V(0, 1000, 0), 0)
	require.NoError(t, err)
	firstID := first.ID
	st.Enemies.Release(0)
	second, err := c.Spawn(st, "fighter", vmath.V(0, 1000, 0), 0)
	require.NoError(t, err)
	assert.Greater(t, second.ID, firstID)
}

// The engagement walk-through: patrol outside engage range, engage inside it,
// fire once close and on the nose, and a round in the pool at the next trigger.
func TestAirEngagementScenario(t *testing.T) {
	c, st, p := rig(t, combat.Normal, nil)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 1000, -1900), 0)
	require.NoError(t, err)

	c.Update(st, p, tick)
	assert.Equal(t, combat.AIPatrol, e.Mode, "1900 m is outside engage range")

	e.Position = vmath.V(0, 1000, -1000)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIEngage, e.Mode)

	e.Position = vmath.V(0, 1000, -500)
	e.Rotation = vmath.LookRotation(p.Position.Sub(e.Position), vmath.Up)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIFire, e.Mode)

	fired := false
	for range 30 {
		if st.Bullets.Len() > 0 {
			fired = true
			break
		}
		c.Update(st, p, tick)
	}
	require.True(t, fired, "gun fires on the next fire-timer expiry")
	for _, b := range st.Bullets.All() {
		assert.Equal(t, e.ID, b.OwnerID)
	}

	var modes []string
	for _, ev := range st.Events.GetAndEmpty() {
		if ev.Kind == core.EventAIModeChanged {
			modes = append(modes, ev.Detail)
		}
	}
	assert.Equal(t, []string{"patrol->engage", "engage->fire"}, modes)
}

func TestAir_DisengagesBeyondRange(t *testing.T) {
	c, st, p := rig(t, combat.Normal, nil)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 1000, -1000), 0)
	require.NoError(t, err)
	c.Update(st, p, tick)
	require.Equal(t, combat.AIEngage, e.Mode)

	e.Position = vmath.V(0, 1000, -2500)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIPatrol, e.Mode)
}

func TestAir_PlayerDeadReturnsToPatrol(t *testing.T) {
	c, st, p := rig(t, combat.Normal, nil)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 1000, -1000), 0)
	require.NoError(t, err)
	c.Update(st, p, tick)
	require.Equal(t, combat.AIEngage, e.Mode)

	p.Kill(st, "test", false)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIPatrol, e.Mode)
}

func TestAir_EvadesIncomingMissile(t *testing.T) {
	c, st, p := rig(t, combat.Normal, nil)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 1000, -1500), 0)
	require.NoError(t, err)
	_, m, _ := st.Missiles.Spawn()
	m.OwnerID, m.TargetID = combat.PlayerID, e.ID

	c.Update(st, p, tick)
	assert.Equal(t, combat.AIEvade, e.Mode)
	assert.Contains(t, []float64{-1, 1}, e.EvadeSign)

	st.Missiles.Release(0)
	for range int(EvadeDuration/tick) + 2 {
		c.Update(st, p, tick)
	}
	assert.NotEqual(t, combat.AIEvade, e.Mode)
}

func TestAir_ChaffDeployedProbabilistically(t *testing.T) {
	c, st, p := rig(t, combat.Normal, nil)
	const n = 60
	for i := range n {
		e, err := c.Spawn(st, "fighter", vmath.V(float64(i)*100, 3000, -2000), 0)
		require.NoError(t, err)
		_, m, ok := st.Missiles.Spawn()
		require.True(t, ok)
		m.OwnerID, m.TargetID = combat.PlayerID, e.ID
	}
	c.Update(st, p, tick)

	deployed := 0
	for _, ev := range st.Events.GetAndEmpty() {
		if ev.Kind == core.EventChaffDeployed {
			deployed++
		}
	}
	assert.InDelta(t, n*ChaffChance, deployed, 15)
	for _, e := range st.Enemies.All() {
		assert.Equal(t, combat.AIEvade, e.Mode)
		assert.Equal(t, ChaffInterval, e.ChaffTimer)
	}
}

func TestAir_PullsUpNearGround(t *testing.T) {
	c, st, p := rig(t, combat.Normal, terrain.Flat{})
	p.Position = vmath.V(0, 1000, 50000)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 60, 0), 0)
	require.NoError(t, err)

	for range 120 {
		c.Update(st, p, tick)
		require.Greater(t, e.Position.Y, 0.0)
	}
	assert.Greater(t, e.Position.Y, 60.0)
}

func TestAir_ClimbsOverRisingTerrain(t *testing.T) {
	cliff := stepTerrain{edge: -1000, high: 900}
	c, st, p := rig(t, combat.Normal, cliff)
	p.Position = vmath.V(0, 1000, 50000)
	e, err := c.Spawn(st, "fighter", vmath.V(0, 1000, 0), 0)
	require.NoError(t, err)

	for range 600 {
		c.Update(st, p, tick)
		require.Greater(t, e.Position.Y, cliff.HeightAt(e.Position.X, e.Position.Z)+50)
	}
}

func TestAir_QuaternionStaysUnit(t *testing.T) {
	c, st, p := rig(t, combat.Ace, nil)
	e, err := c.Spawn(st, "fighter", vmath.V(300, 1200, -900), 2)
	require.NoError(t, err)
	for i := range 1200 {
		p.Position = vmath.V(math.Sin(float64(i)/50)*800, 1000, math.Cos(float64(i)/70)*800)
		c.Update(st, p, tick)
		require.InDelta(t, 1, e.Rotation.Len(), 1e-6)
	}
}

func TestGround_TracksAndFires(t *testing.T) {
	c, st, p := rig(t, combat.Normal, terrain.Flat{})
	e, err := c.Spawn(st, "aaa", vmath.V(0, 0, -1000), math.Pi/2)
	require.NoError(t, err)

	for range 180 {
		c.Update(st, p, tick)
	}
	assert.Equal(t, combat.AIFire, e.Mode)
	assert.Less(t, vmath.AngleBetween(e.Forward(), p.Position.Sub(e.Position)), FireCone)
	assert.Positive(t, st.Bullets.Len())
	assert.Equal(t, vmath.V(0, 0, -1000), e.Position, "static site never moves")
}

func TestGround_ModesByRange(t *testing.T) {
	c, st, p := rig(t, combat.Normal, terrain.Flat{})
	e, err := c.Spawn(st, "aaa", vmath.V(0, 0, -1000), 0)
	require.NoError(t, err)

	p.Position = vmath.V(0, 500, -2500) // 1581 m: inside 1.5x engage range
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIEngage, e.Mode)

	p.Position = vmath.V(0, 500, -5000)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIPatrol, e.Mode)

	p.Position = vmath.V(0, 500, -1200)
	c.Update(st, p, tick)
	assert.Equal(t, combat.AIFire, e.Mode)
}

func TestGround_SAMLaunches(t *testing.T) {
	c, st, p := rig(t, combat.Normal, terrain.Flat{})
	e, err := c.Spawn(st, "sam_site", vmath.V(0, 0, -2000), 0)
	require.NoError(t, err)
	e.MissileTimer = 0
	e.Rotation = vmath.LookRotation(p.Position.Sub(e.Position), vmath.Up)

	c.Update(st, p, tick)
	require.Equal(t, 1, st.Missiles.Len())
	m := st.Missiles.At(0)
	assert.Equal(t, combat.PlayerID, m.TargetID)
	assert.Equal(t, e.ID, m.OwnerID)
	assert.Equal(t, 3, e.MissileAmmo)
}

func TestGround_ConvoyPatrolsCircle(t *testing.T) {
	c, st, p := rig(t, combat.Normal, terrain.Flat{Elevation: 20})
	p.Position = vmath.V(0, 1000, 60000)
	e, err := c.Spawn(st, "convoy", vmath.V(500, 0, 500), 0)
	require.NoError(t, err)
	start := e.Position

	for range 600 {
		c.Update(st, p, tick)
		assert.InDelta(t, e.PatrolRadius, e.Position.HorizontalDist(e.PatrolCenter), 1e-6)
		assert.Equal(t, 20.0, e.Position.Y)
	}
	assert.InDelta(t, 12*10, start.Dist(e.Position), 5, "arc length of 10 s at 12 m/s")
	assert.Equal(t, combat.AIPatrol, e.Mode)
}

type rampTerrain struct{ grade float64 }

func (r rampTerrain) HeightAt(x, _ float64) float64 { return x * r.grade }
func (r rampTerrain) SlopeAt(x, z float64) float64  { return terrain.SlopeByDifference(r, x, z, 1) }

type stepTerrain struct{ edge, high float64 }

func (s stepTerrain) HeightAt(_, z float64) float64 {
	if z <= s.edge {
		return s.high
	}
	return 0
}
func (s stepTerrain) SlopeAt(_, _ float64) float64 { return 0 }
