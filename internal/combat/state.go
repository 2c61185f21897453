// Package combat holds the combat state shared by every simulation system: the
// fixed-capacity entity pools, the player's weapon, seeker, countermeasure and
// boundary sub-state, and the per-tick event queue.
package combat

import (
	"math/rand/v2"

	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/queue"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// Pool capacities.
const (
	MaxBullets    = 512
	MaxMissiles   = 64
	MaxEnemies    = 64
	MaxExplosions = 32
)

// Entity ids.
const (
	PlayerID = core.PlayerID
	NoTarget = core.NoTarget
)

// Explosion parameters.
const (
	FragmentCount     = 12
	ExplosionLifetime = 1.5
)

// Bullet is a pooled gun round.
type Bullet struct {
	Position vmath.Vec3
	Previous vmath.Vec3 // position at the start of the tick
	Velocity vmath.Vec3
	Age      float64
	MaxAge   float64
	Range    float64
	Traveled float64
	Damage   float64
	OwnerID  int
	WeaponID string
	// Grounded marks a round that struck the terrain this tick. Its segment
	// ends at the impact point and it is released after hit resolution.
	Grounded bool
}

// Missile is a pooled guided missile.
type Missile struct {
	Position   vmath.Vec3
	Previous   vmath.Vec3
	Velocity   vmath.Vec3
	Rotation   vmath.Quat
	Age        float64
	MaxAge     float64
	Speed      float64
	TurnRate   float64 // rad/s
	GLimit     float64 // g
	Damage     float64
	TargetID   int
	OwnerID    int
	Distracted bool
	WeaponID   string
	LastTurn   float64 // heading change applied on the latest tick, rad
}

// Guided reports whether the missile is still homing.
func (m *Missile) Guided() bool {
	return m.TargetID != NoTarget && !m.Distracted
}

// Fragment is one piece of an explosion burst.
type Fragment struct {
	Position vmath.Vec3
	Velocity vmath.Vec3
}

// Explosion is a pooled visual/audio record.
type Explosion struct {
	Position  vmath.Vec3
	Radius    float64
	Age       float64
	MaxAge    float64
	SourceID  int
	Fragments [FragmentCount]Fragment
}

// WeaponSlot is one selectable player weapon.
type WeaponSlot struct {
	Index    int
	WeaponID string
	Kind     gamedata.WeaponKind
	Ammo     int // -1 infinite
	Cooldown float64
}

// Empty reports a jammed slot.
func (w *WeaponSlot) Empty() bool { return w.Ammo == 0 }

// Seeker is the player's hold-to-lock missile seeker.
type Seeker struct {
	Active       bool
	Locked       bool
	SeekTimer    float64
	LockTimer    float64
	SeekDuration float64
	TargetID     int
	// NeedsRelease is set on timeout; the engage input must be released before
	// the seeker can start again.
	NeedsRelease bool
}

// Chaff is the player's countermeasure dispenser.
type Chaff struct {
	Ammo           int
	Cooldown       float64
	Interval       float64
	ActiveTimer    float64
	EffectDuration float64
	BreakChance    float64
}

// Effective reports whether deployed chaff can currently break locks.
func (c *Chaff) Effective() bool { return c.ActiveTimer > 0 }

// OOB tracks time spent outside the play volume.
type OOB struct {
	Out   bool
	Timer float64
	Limit float64
}

// ChaffModel selects how a per-second break chance becomes a per-tick one.
type ChaffModel uint8

const (
	// ChaffLinear uses p*dt, accurate only for small dt.
	ChaffLinear ChaffModel = iota
	// ChaffExact uses 1-(1-p)^dt.
	ChaffExact
)

// ParseChaffModel maps a config string to a ChaffModel. Unknown names select linear.
func ParseChaffModel(s string) ChaffModel {
	if s == "exact" {
		return ChaffExact
	}
	return ChaffLinear
}

func (m ChaffModel) String() string {
	if m == ChaffExact {
		return "exact"
	}
	return "linear"
}

// State owns every pool and the player's combat sub-state.
type State struct {
	Bullets    *Pool[Bullet]
	Missiles   *Pool[Missile]
	Enemies    *Pool[Enemy]
	Explosions *Pool[Explosion]

	Slots    []WeaponSlot
	Selected int
	Seeker   Seeker
	Chaff    Chaff
	OOB      OOB

	Data       *gamedata.Tables
	Difficulty Difficulty
	ChaffModel ChaffModel
	Rand       *rand.Rand
	Events     *queue.Queue[core.Event]

	Tick uint64
	Time float64

	nextEnemyID int
}

// NewState allocates pools at their fixed capacities.
func NewState(data *gamedata.Tables, diff Difficulty, rng *rand.Rand) *State {
	if data == nil {
		data = gamedata.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &State{
		Bullets:     NewPool[Bullet](MaxBullets),
		Missiles:    NewPool[Missile](MaxMissiles),
		Enemies:     NewPool[Enemy](MaxEnemies),
		Explosions:  NewPool[Explosion](MaxExplosions),
		Data:        data,
		Difficulty:  diff,
		Rand:        rng,
		Events:      queue.NewBounded[core.Event](4096),
		Seeker:      Seeker{TargetID: NoTarget},
		nextEnemyID: 1,
	}
}

// NextEnemyID hands out monotonically increasing enemy ids.
func (s *State) NextEnemyID() int {
	id := s.nextEnemyID
	s.nextEnemyID++
	return id
}

// Emit stamps an event with the current tick and queues it.
func (s *State) Emit(e core.Event) {
	e.Tick = s.Tick
	e.Time = s.Time
	s.Events.Push(e)
}

// FindEnemy returns the live enemy with the given id.
func (s *State) FindEnemy(id int) (*Enemy, bool) {
	if id <= 0 {
		return nil, false
	}
	for _, e := range s.Enemies.All() {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// SelectedSlot returns the selected weapon slot, or nil when none is loaded.
func (s *State) SelectedSlot() *WeaponSlot {
	if s.Selected < 0 || s.Selected >= len(s.Slots) {
		return nil
	}
	return &s.Slots[s.Selected]
}

// LoadPlane fills weapon slots and the countermeasure dispenser from an airframe.
// Slot 0 is always the gun.
func (s *State) LoadPlane(p gamedata.Plane) {
	s.Slots = s.Slots[:0]
	add := func(id string) {
		w, ok := s.Data.Weapon(id)
		if !ok {
			return
		}
		s.Slots = append(s.Slots, WeaponSlot{Index: len(s.Slots), WeaponID: id, Kind: w.Kind, Ammo: w.Ammo})
	}
	add(p.Gun)
	for _, id := range p.Weapons {
		add(id)
	}
	s.Selected = 0
	s.Seeker = Seeker{TargetID: NoTarget}
	s.Chaff = Chaff{}
	if cm, ok := s.Data.Weapon(p.Countermeasure); ok {
		s.Chaff = Chaff{
			Ammo:           cm.Ammo,
			Interval:       cm.Cooldown,
			EffectDuration: cm.EffectDuration,
			BreakChance:    cm.BreakChance,
		}
	}
	s.OOB.Out = false
	s.OOB.Timer = 0
}

// Select switches weapon slot; out-of-range indices are ignored. Changing slot
// drops the seeker.
func (s *State) Select(slot int) {
	if slot < 0 || slot >= len(s.Slots) || slot == s.Selected {
		return
	}
	s.Selected = slot
	s.Seeker = Seeker{TargetID: NoTarget}
}

// Reset clears every pool and the event queue for a new mission.
func (s *State) Reset() {
	s.Bullets.Reset()
	s.Missiles.Reset()
	s.Enemies.Reset()
	s.Explosions.Reset()
	s.Events.Clear()
}

// CountEnemies returns live and destroyed enemy counts.
func (s *State) CountEnemies() (alive, destroyed int) {
	for _, e := range s.Enemies.All() {
		if e.Mode == AIDestroyed {
			destroyed++
		} else {
			alive++
		}
	}
	return alive, destroyed
}
