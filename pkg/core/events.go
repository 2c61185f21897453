package core

import "fmt"

// EventKind identifies a simulation event.
type EventKind uint8

const (
	EventFired EventKind = iota + 1
	EventMissileLaunched
	EventHit
	EventKill
	EventExplosion
	EventChaffDeployed
	EventPlayerCrashed
	EventPlayerRespawned
	EventAIModeChanged
	EventLockAcquired
	EventOutOfBounds
)

var eventKindNames = map[EventKind]string{
	EventFired:           "fired",
	EventMissileLaunched: "missile_launched",
	EventHit:             "hit",
	EventKill:            "kill",
	EventExplosion:       "explosion",
	EventChaffDeployed:   "chaff_deployed",
	EventPlayerCrashed:   "player_crashed",
	EventPlayerRespawned: "player_respawned",
	EventAIModeChanged:   "ai_mode_changed",
	EventLockAcquired:    "lock_acquired",
	EventOutOfBounds:     "out_of_bounds",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EventKind) UnmarshalText(b []byte) error {
	for kind, name := range eventKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// Event is something that happened during a tick. SourceID and TargetID use
// PlayerID for the player, enemy ids otherwise, NoTarget when absent.
type Event struct {
	Kind     EventKind  `json:"kind"`
	Tick     uint64     `json:"tick"`
	Time     float64    `json:"time"` // simulation seconds
	Position Position3D `json:"position"`
	SourceID int        `json:"sourceId"`
	TargetID int        `json:"targetId"`
	WeaponID string     `json:"weaponId,omitempty"`
	Damage   float64    `json:"damage,omitempty"`
	Radius   float64    `json:"radius,omitempty"`
	Detail   string     `json:"detail,omitempty"`
}
