// Package gamedata holds the static weapon, aircraft and enemy tables the
// simulation reads. Tables load from YAML; a built-in set ships with the binary.
package gamedata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/skyward/combat-core/internal/aero"
	"github.com/skyward/combat-core/internal/control"
	"github.com/skyward/combat-core/internal/vmath"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTables []byte

var (
	ErrUnknownWeapon = errors.New("unknown weapon")
	ErrUnknownPlane  = errors.New("unknown plane")
	ErrUnknownEnemy  = errors.New("unknown enemy type")
)

// WeaponKind selects discharge behaviour.
type WeaponKind uint8

const (
	KindGun WeaponKind = iota
	KindMissile
	KindCountermeasure
)

func (k WeaponKind) String() string {
	switch k {
	case KindGun:
		return "gun"
	case KindMissile:
		return "missile"
	case KindCountermeasure:
		return "countermeasure"
	default:
		return fmt.Sprintf("WeaponKind(%d)", k)
	}
}

// UnmarshalYAML accepts the kind by name.
func (k *WeaponKind) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "gun":
		*k = KindGun
	case "missile":
		*k = KindMissile
	case "countermeasure", "chaff", "flare":
		*k = KindCountermeasure
	default:
		return fmt.Errorf("line %d: unknown weapon kind %q", node.Line, node.Value)
	}
	return nil
}

// Weapon describes a gun, missile or countermeasure dispenser.
type Weapon struct {
	ID       string     `yaml:"-" json:"id"`
	Name     string     `yaml:"name" json:"name"`
	Kind     WeaponKind `yaml:"kind" json:"kind"`
	Damage   float64    `yaml:"damage" json:"damage"`
	Speed    float64    `yaml:"speed" json:"speed"`        // muzzle or cruise speed, m/s
	TurnRate float64    `yaml:"turn_rate" json:"turnRate"` // rad/s
	GLimit   float64    `yaml:"g_limit" json:"gLimit"`     // g
	Cooldown float64    `yaml:"cooldown" json:"cooldown"`  // s between launches
	FireRate float64    `yaml:"fire_rate" json:"fireRate"` // rounds/s, guns only
	Ammo     int        `yaml:"ammo" json:"ammo"`          // -1 infinite
	MaxAge   float64    `yaml:"max_age" json:"maxAge"`     // s
	Range    float64    `yaml:"range" json:"range"`        // m, guns only
	Spread   float64    `yaml:"spread" json:"spread"`      // rad cone half-angle, guns only

	EffectDuration float64 `yaml:"effect_duration" json:"effectDuration"` // countermeasures
	BreakChance    float64 `yaml:"break_chance" json:"breakChance"`       // countermeasures
}

// Interval is the time between successive shots.
func (w Weapon) Interval() float64 {
	if w.FireRate > 0 {
		return 1 / w.FireRate
	}
	return w.Cooldown
}

// Engine is one powerplant on an airframe. Offsets are body-space and exist for the
// renderer's afterburner plumes.
type Engine struct {
	Offset            vmath.Vec3 `yaml:"offset" json:"offset"`
	Thrust            float64    `yaml:"thrust" json:"thrust"`                        // N at full military power
	AfterburnerThrust float64    `yaml:"afterburner_thrust" json:"afterburnerThrust"` // N with reheat
}

// Plane is a player airframe.
type Plane struct {
	ID             string          `yaml:"-" json:"id"`
	Name           string          `yaml:"name" json:"name"`
	Health         float64         `yaml:"health" json:"health"`
	Mass           float64         `yaml:"mass" json:"mass"`
	MaxSpeed       float64         `yaml:"max_speed" json:"maxSpeed"`
	Radius         float64         `yaml:"radius" json:"radius"`
	Gun            string          `yaml:"gun" json:"gun"`
	Weapons        []string        `yaml:"weapons" json:"weapons"`
	Countermeasure string          `yaml:"countermeasure" json:"countermeasure"`
	Engines        []Engine        `yaml:"engines" json:"engines"`
	Aero           *aero.Params    `yaml:"aero" json:"aero,omitempty"`
	Control        *control.Params `yaml:"control" json:"control,omitempty"`
}

// Thrust sums the engines.
func (p Plane) Thrust(afterburner bool) float64 {
	var t float64
	for _, e := range p.Engines {
		if afterburner && e.AfterburnerThrust > 0 {
			t += e.AfterburnerThrust
		} else {
			t += e.Thrust
		}
	}
	return t
}

// AeroParams returns the airframe's aerodynamics, defaulting when unset.
func (p Plane) AeroParams() aero.Params {
	if p.Aero != nil {
		return *p.Aero
	}
	return aero.DefaultParams()
}

// ControlParams returns the airframe's control model, defaulting when unset.
func (p Plane) ControlParams() control.Params {
	if p.Control != nil {
		return *p.Control
	}
	return control.DefaultParams()
}

// EnemyType is the template an enemy is spawned from.
type EnemyType struct {
	ID           string  `yaml:"-" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	Ground       bool    `yaml:"ground" json:"ground"`
	CanMove      bool    `yaml:"can_move" json:"canMove"`
	Health       float64 `yaml:"health" json:"health"`
	Speed        float64 `yaml:"speed" json:"speed"`        // m/s; patrol speed for ground movers
	TurnRate     float64 `yaml:"turn_rate" json:"turnRate"` // rad/s, body or turret
	Radius       float64 `yaml:"radius" json:"radius"`      // collision radius
	Gun          string  `yaml:"gun" json:"gun"`
	Missile      string  `yaml:"missile" json:"missile"`
	EngageRange  float64 `yaml:"engage_range" json:"engageRange"` // ground units only
	PatrolRadius float64 `yaml:"patrol_radius" json:"patrolRadius"`
	Score        int     `yaml:"score" json:"score"`
}

// Tables is the full static data set.
type Tables struct {
	Weapons map[string]Weapon    `yaml:"weapons"`
	Planes  map[string]Plane     `yaml:"planes"`
	Enemies map[string]EnemyType `yaml:"enemies"`
}

// Default returns the built-in tables.
func Default() *Tables {
	t, err := Parse(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("gamedata: built-in tables invalid: %v", err))
	}
	return t
}

// Load reads tables from a YAML file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading game data: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates YAML tables.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	for id, w := range t.Weapons {
		w.ID = id
		t.Weapons[id] = w
	}
	for id, p := range t.Planes {
		p.ID = id
		t.Planes[id] = p
	}
	for id, e := range t.Enemies {
		e.ID = id
		t.Enemies[id] = e
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) validate() error {
	var errs []error
	for id, p := range t.Planes {
		if p.Mass <= 0 {
			errs = append(errs, fmt.Errorf("plane %s: mass must be positive", id))
		}
		if len(p.Engines) == 0 {
			errs = append(errs, fmt.Errorf("plane %s: no engines", id))
		}
		for _, w := range append([]string{p.Gun, p.Countermeasure}, p.Weapons...) {
			if w == "" {
				continue
			}
			if _, ok := t.Weapons[w]; !ok {
				errs = append(errs, fmt.Errorf("plane %s: %w %q", id, ErrUnknownWeapon, w))
			}
		}
	}
	for id, e := range t.Enemies {
		if e.Health <= 0 {
			errs = append(errs, fmt.Errorf("enemy %s: health must be positive", id))
		}
		for _, w := range []string{e.Gun, e.Missile} {
			if w == "" {
				continue
			}
			if _, ok := t.Weapons[w]; !ok {
				errs = append(errs, fmt.Errorf("enemy %s: %w %q", id, ErrUnknownWeapon, w))
			}
		}
	}
	return errors.Join(errs...)
}

// Weapon looks up a weapon by id.
func (t *Tables) Weapon(id string) (Weapon, bool) {
	w, ok := t.Weapons[id]
	return w, ok
}

// Plane looks up an airframe by id.
func (t *Tables) Plane(id string) (Plane, error) {
	p, ok := t.Planes[id]
	if !ok {
		return Plane{}, fmt.Errorf("%w: %s", ErrUnknownPlane, id)
	}
	return p, nil
}

// Enemy looks up an enemy template by id.
func (t *Tables) Enemy(id string) (EnemyType, bool) {
	e, ok := t.Enemies[id]
	return e, ok
}
