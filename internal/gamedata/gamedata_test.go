package gamedata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skyward/combat-core/internal/aero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := Default()

	viper, err := tables.Plane("viper")
	require.NoError(t, err)
	assert.Equal(t, "viper", viper.ID)
	assert.Equal(t, "m61", viper.Gun)
	assert.InDelta(t, 80000, viper.Thrust(false), 1e-9)
	assert.InDelta(t, 130000, viper.Thrust(true), 1e-9)
	assert.Equal(t, aero.DefaultParams(), viper.AeroParams())

	eagle, err := tables.Plane("eagle")
	require.NoError(t, err)
	assert.InDelta(t, 210000, eagle.Thrust(true), 1e-9)

	gun, ok := tables.Weapon("m61")
	require.True(t, ok)
	assert.Equal(t, KindGun, gun.Kind)
	assert.InDelta(t, 0.05, gun.Interval(), 1e-12)

	chaff, ok := tables.Weapon("chaff")
	require.True(t, ok)
	assert.Equal(t, KindCountermeasure, chaff.Kind)
	assert.InDelta(t, 0.85, chaff.BreakChance, 1e-12)

	sam, ok := tables.Enemy("sam_site")
	require.True(t, ok)
	assert.True(t, sam.Ground)
	assert.False(t, sam.CanMove)
	assert.Equal(t, "sam", sam.Missile)
}

func TestPlaneUnknown(t *testing.T) {
	_, err := Default().Plane("zeppelin")
	assert.ErrorIs(t, err, ErrUnknownPlane)
}

func TestParseRejectsUnknownWeaponReference(t *testing.T) {
	data := []byte(`
weapons:
  gun: {kind: gun, damage: 1, fire_rate: 10}
planes:
  p:
    health: 10
    mass: 1000
    gun: gun
    weapons: [rocket]
    engines: [{thrust: 1000}]
`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownWeapon)
	assert.Contains(t, err.Error(), "rocket")
}

func TestParseRejectsBadKind(t *testing.T) {
	_, err := Parse([]byte("weapons:\n  x: {kind: laser}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laser")
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"massless plane", "planes:\n  p: {health: 1, engines: [{thrust: 1}]}\n", "mass must be positive"},
		{"engineless plane", "planes:\n  p: {health: 1, mass: 10}\n", "no engines"},
		{"dead enemy", "enemies:\n  e: {health: 0}\n", "health must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, defaultTables, 0o644))

	tables, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, tables.Planes, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
