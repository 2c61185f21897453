package combat

import (
	"fmt"
	"strings"

	"github.com/skyward/combat-core/internal/vmath"
)

// AIMode is the enemy behaviour state.
type AIMode uint8

const (
	AIPatrol AIMode = iota
	AIEngage
	AIFire
	AIEvade
	AIDestroyed
)

func (m AIMode) String() string {
	switch m {
	case AIPatrol:
		return "patrol"
	case AIEngage:
		return "engage"
	case AIFire:
		return "fire"
	case AIEvade:
		return "evade"
	case AIDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("AIMode(%d)", uint8(m))
	}
}

// ParseAIMode is the inverse of String.
func ParseAIMode(s string) (AIMode, bool) {
	for m := AIPatrol; m <= AIDestroyed; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return AIPatrol, false
}

// Enemy is a pooled air or ground enemy.
type Enemy struct {
	ID   int
	Kind string

	Position  vmath.Vec3
	Rotation  vmath.Quat
	Velocity  vmath.Vec3
	Speed     float64
	BaseSpeed float64
	TurnRate  float64

	Health    float64
	MaxHealth float64
	Radius    float64
	HitFlash  float64

	Mode              AIMode
	FireTimer         float64
	MissileTimer      float64
	ChaffTimer        float64
	EvadeTimer        float64
	TerrainAvoidTimer float64
	WreckTimer        float64
	EvadeSign         float64

	Waypoints     []vmath.Vec3
	WaypointIndex int

	IsGround     bool
	CanMove      bool
	PatrolCenter vmath.Vec3
	PatrolRadius float64
	PatrolAngle  float64
	EngageRange  float64

	ManeuverMult float64
	FireRateMult float64
	HasMissiles  bool
	MissileAmmo  int
	ChaffAmmo    int

	GunID     string
	MissileID string
	Score     int
}

// Alive reports whether the enemy can still act and be hit.
func (e *Enemy) Alive() bool { return e.Mode != AIDestroyed }

// Forward is the nose direction.
func (e *Enemy) Forward() vmath.Vec3 { return e.Rotation.Forward() }

// Difficulty scales enemies at spawn time.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Normal
	Hard
	Ace
)

// DifficultyProfile is the per-difficulty multiplier set.
type DifficultyProfile struct {
	Health    float64
	Maneuver  float64
	FireRate  float64
	Missiles  bool
	ChaffAmmo int
}

var profiles = [...]DifficultyProfile{
	Easy:   {Health: 0.7, Maneuver: 0.7, FireRate: 0.6, Missiles: false, ChaffAmmo: 0},
	Normal: {Health: 1.0, Maneuver: 1.0, FireRate: 1.0, Missiles: true, ChaffAmmo: 2},
	Hard:   {Health: 1.3, Maneuver: 1.2, FireRate: 1.3, Missiles: true, ChaffAmmo: 4},
	Ace:    {Health: 1.6, Maneuver: 1.5, FireRate: 1.6, Missiles: true, ChaffAmmo: 6},
}

// Profile looks up the multiplier set.
func (d Difficulty) Profile() DifficultyProfile {
	if int(d) >= len(profiles) {
		return profiles[Normal]
	}
	return profiles[d]
}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Normal:
		return "normal"
	case Hard:
		return "hard"
	case Ace:
		return "ace"
	default:
		return fmt.Sprintf("Difficulty(%d)", uint8(d))
	}
}

// ParseDifficulty accepts a case-insensitive difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	for d := Easy; d <= Ace; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return Normal, fmt.Errorf("unknown difficulty %q", s)
}
