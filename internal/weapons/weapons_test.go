package weapons

import (
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

func rig(t *testing.T) (*combat.State, *flight.Player) {
	t.Helper()
	data := gamedata.Default()
	plane, err := data.Plane("viper")
	require.NoError(t, err)
	st := combat.NewState(data, combat.Normal, nil)
	st.LoadPlane(plane)
	return st, flight.NewPlayer(plane, vmath.V(0, 1000, 0), 0, 200)
}

func TestFireGun(t *testing.T) {
	st, _ := rig(t)
	ok := FireGun(st, Shot{
		WeaponID:   "enemy_cannon",
		OwnerID:    7,
		Origin:     vmath.V(0, 500, 0),
		Direction:  vmath.V(0, 0, -2),
		Inherit:    vmath.V(0, 0, -100),
		DamageMult: 1.5,
	})
	require.True(t, ok)
	require.Equal(t, 1, st.Bullets.Len())

	b := st.Bullets.At(0)
	assert.Equal(t, 7, b.OwnerID)
	assert.InDelta(t, 7.5, b.Damage, 1e-9)
	assert.InDelta(t, 1000, b.Velocity.Len(), 25, "muzzle plus inherited velocity")
	assert.Less(t, b.Position.Z, 0.0)

	events := st.Events.GetAndEmpty()
	require.Len(t, events, 1)
	assert.Equal(t, core.EventFired, events[0].Kind)
	assert.Equal(t, 7, events[0].SourceID)
}

func TestFireGun_NoOps(t *testing.T) {
	st, _ := rig(t)
	tests := []struct {
		name string
		shot Shot
	}{
		{"unknown weapon", Shot{WeaponID: "railgun", Direction: vmath.Forward}},
		{"missile is not a gun", Shot{WeaponID: "aim9", Direction: vmath.Forward}},
		{"degenerate aim", Shot{WeaponID: "m61"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, FireGun(st, tt.shot))
			assert.Zero(t, st.Bullets.Len())
		})
	}
}

func TestFireGun_PoolFullDropsSilently(t *testing.T) {
	st, _ := rig(t)
	shot := Shot{WeaponID: "m61", Direction: vmath.Forward, Origin: vmath.V(0, 500, 0)}
	for range combat.MaxBullets {
		require.True(t, FireGun(st, shot))
	}
	assert.False(t, FireGun(st, shot))
	assert.Equal(t, combat.MaxBullets, st.Bullets.Len())
	assert.Equal(t, uint64(1), st.Bullets.Dropped())
}

func TestPlayerGun_RateOfFire(t *testing.T) {
	st, p := rig(t)
	fired := 0
	for range 60 {
		TickCooldowns(st, tick)
		if PlayerGun(st, p, true) {
			fired++
		}
	}
	// 20 rounds/s at 60 Hz fires every third tick
	assert.Equal(t, 20, fired)
	assert.Equal(t, -1, st.Slots[0].Ammo)

	assert.False(t, PlayerGun(st, p, false))
}

func TestPlayerGun_WrongSlotOrEmpty(t *testing.T) {
	st, p := rig(t)
	st.Select(1)
	assert.False(t, PlayerGun(st, p, true), "missile slot does not fire the gun")

	st.Select(0)
	st.Slots[0].Ammo = 0
	assert.False(t, PlayerGun(st, p, true), "empty slot jams")

	st.Slots[0].Ammo = 2
	assert.True(t, PlayerGun(st, p, true))
	assert.Equal(t, 1, st.Slots[0].Ammo)
}

func TestDeployChaff(t *testing.T) {
	st, p := rig(t)
	require.True(t, DeployChaff(st, p, true))
	assert.Equal(t, 29, st.Chaff.Ammo)
	assert.True(t, st.Chaff.Effective())
	assert.False(t, DeployChaff(st, p, true), "cooldown")

	for range 60 {
		TickCooldowns(st, tick)
	}
	assert.True(t, DeployChaff(st, p, true))

	st.Chaff.Ammo = 0
	st.Chaff.Cooldown = 0
	assert.False(t, DeployChaff(st, p, true))

	for range 300 {
		TickCooldowns(st, tick)
	}
	assert.False(t, st.Chaff.Effective())
}

func TestUpdateBullets_Expiry(t *testing.T) {
	st, _ := rig(t)
	ground := terrain.Flat{Elevation: 0}

	// age
	_, b, _ := st.Bullets.Spawn()
	b.Position, b.Velocity, b.MaxAge = vmath.V(0, 1000, 0), vmath.V(10, 0, 0), 0.5
	// range
	_, b, _ = st.Bullets.Spawn()
	b.Position, b.Velocity, b.Range = vmath.V(0, 1000, 0), vmath.V(1000, 0, 0), 100
	// terrain
	_, b, _ = st.Bullets.Spawn()
	b.Position, b.Velocity = vmath.V(0, 5, 0), vmath.V(0, -600, 0)
	// survivor
	_, b, _ = st.Bullets.Spawn()
	b.Position, b.Velocity, b.MaxAge, b.Range = vmath.V(0, 1000, 0), vmath.V(100, 0, 0), 5, 5000

	UpdateBullets(st, ground, tick)
	assert.True(t, st.Bullets.Active(0))
	assert.True(t, st.Bullets.Active(1))
	require.True(t, st.Bullets.Active(2))
	assert.True(t, st.Bullets.At(2).Grounded, "terrain hit")
	assert.InDelta(t, 0, st.Bullets.At(2).Position.Y, 1e-9, "clipped to the impact point")
	assert.InDelta(t, 5, st.Bullets.At(2).Previous.Y, 1e-9)

	for range 7 {
		UpdateBullets(st, ground, tick)
	}
	assert.False(t, st.Bullets.Active(2), "grounded round retired")
	assert.False(t, st.Bullets.Active(1), "range exceeded")
	assert.True(t, st.Bullets.Active(0))

	for range 30 {
		UpdateBullets(st, ground, tick)
	}
	assert.False(t, st.Bullets.Active(0), "max age")
	assert.True(t, st.Bullets.Active(3))
	assert.InDelta(t, 100*38*tick, st.Bullets.At(3).Position.X, 1e-9)
}

func TestSegmentHitsSphere(t *testing.T) {
	centre := vmath.V(0, 0, -50)
	tests := []struct {
		name string
		a, b vmath.Vec3
		hit  bool
	}{
		{"passes through", vmath.V(0, 0, 0), vmath.V(0, 0, -100), true},
		{"grazes", vmath.V(4.9, 0, 0), vmath.V(4.9, 0, -100), true},
		{"misses wide", vmath.V(6, 0, 0), vmath.V(6, 0, -100), false},
		{"stops short", vmath.V(0, 0, 0), vmath.V(0, 0, -40), false},
		{"starts inside", vmath.V(0, 0, -52), vmath.V(0, 0, -200), true},
		{"zero length inside", vmath.V(1, 1, -50), vmath.V(1, 1, -50), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, _ := SegmentHitsSphere(tt.a, tt.b, centre, 5)
			assert.Equal(t, tt.hit, hit)
		})
	}
}
