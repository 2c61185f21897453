// Package convert maps the public simulation records in pkg/core onto the
// gorm schema and back.
package convert

import (
	"encoding/json"
	"math"
	"time"

	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/model"
	"github.com/skyward/combat-core/pkg/core"
	"gorm.io/datatypes"
)

// bearing returns the compass heading of an orientation in whole degrees.
func bearing(r core.Rotation) uint16 {
	return uint16(math.Round(r.Bearing())) % 360
}

// toJSON marshals v, falling back to an empty object.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToWorld converts a core.World to a GORM model.World anchored at o.
func CoreToWorld(w core.World, o geo.Origin) model.World {
	gw := model.World{
		Name:        w.Name,
		TerrainType: w.TerrainType,
		BaseHeight:  float32(w.BaseHeight),
		Amplitude:   float32(w.Amplitude),
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
		Location:    o.Location(),
	}
	gw.ID = w.ID
	return gw
}

// CoreToMission converts a core.Mission to a GORM model.Mission.
func CoreToMission(m core.Mission) model.Mission {
	gm := model.Mission{
		Name:             m.Name,
		Aircraft:         m.Aircraft,
		Difficulty:       m.Difficulty,
		Seed:             int64(m.Seed),
		TickRate:         float32(m.TickRate),
		StartTime:        m.StartTime,
		WorldID:          m.WorldID,
		ExtensionVersion: m.ExtensionVersion,
		ExtensionBuild:   m.ExtensionBuild,
		Tag:              m.Tag,
	}
	gm.ID = m.ID
	return gm
}

// CoreToEnemy converts a core.Enemy to a GORM model.Enemy.
// core.Enemy.ID maps to GORM Enemy.ObjectID.
func CoreToEnemy(e core.Enemy, missionID uint, o geo.Origin) model.Enemy {
	return model.Enemy{
		MissionID:    missionID,
		ObjectID:     e.ID,
		JoinTime:     e.JoinTime,
		JoinTick:     e.JoinTick,
		Kind:         e.Kind,
		IsGround:     e.IsGround,
		MaxHealth:    float32(e.MaxHealth),
		Position:     o.Point(e.Position),
		ElevationASL: float32(e.Position.Y),
	}
}

// CoreToPlayerState converts a recorded player frame.
func CoreToPlayerState(s core.PlayerState, missionID uint, o geo.Origin) model.PlayerState {
	p := s.Player
	return model.PlayerState{
		Time:         s.Time,
		MissionID:    missionID,
		Tick:         s.Tick,
		CaptureFrame: s.Frame,
		Position:     o.Point(p.Position),
		ElevationASL: float32(p.Position.Y),
		Bearing:      bearing(p.Rotation),
		Attitude: model.Attitude{
			X: float32(p.Rotation.X),
			Y: float32(p.Rotation.Y),
			Z: float32(p.Rotation.Z),
			W: float32(p.Rotation.W),
		},
		Speed:       float32(p.Speed),
		Throttle:    float32(p.Throttle),
		Afterburner: p.Afterburner,
		Fuel:        float32(p.Fuel),
		Mach:        float32(p.Mach),
		GForce:      float32(p.GForce),
		Health:      float32(p.Health),
		IsDead:      p.IsDead,
		Stalled:     p.Stalled,
	}
}

// CoreToEnemyState converts a recorded enemy frame.
func CoreToEnemyState(s core.EnemyState, missionID uint, o geo.Origin) model.EnemyState {
	e := s.Enemy
	return model.EnemyState{
		Time:          s.Time,
		MissionID:     missionID,
		Tick:          s.Tick,
		CaptureFrame:  s.Frame,
		EnemyObjectID: e.ID,
		Position:      o.Point(e.Position),
		ElevationASL:  float32(e.Position.Y),
		Bearing:       bearing(e.Rotation),
		Speed:         float32(e.Speed),
		Health:        float32(e.Health),
		AIMode:        e.AIMode,
	}
}

// eventExtra holds the Event fields without a dedicated column.
type eventExtra struct {
	Radius float64 `json:"radius,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// CoreToCombatEvent converts a simulation event. at is the wall time the
// event was recorded.
func CoreToCombatEvent(e core.Event, at time.Time, missionID uint, o geo.Origin) model.CombatEvent {
	return model.CombatEvent{
		Time:         at,
		MissionID:    missionID,
		Tick:         e.Tick,
		SimTime:      e.Time,
		Kind:         e.Kind.String(),
		SourceID:     e.SourceID,
		TargetID:     e.TargetID,
		Position:     o.Point(e.Position),
		ElevationASL: float32(e.Position.Y),
		WeaponID:     e.WeaponID,
		Damage:       float32(e.Damage),
		Extra:        toJSON(eventExtra{Radius: e.Radius, Detail: e.Detail}),
	}
}

// CoreToTelemetry converts a flight-data sample.
func CoreToTelemetry(t core.Telemetry, missionID uint) model.Telemetry {
	return model.Telemetry{
		Time:          t.Time,
		MissionID:     missionID,
		Tick:          t.Tick,
		Altitude:      float32(t.Altitude),
		Speed:         float32(t.Speed),
		Mach:          float32(t.Mach),
		Alpha:         float32(t.Alpha),
		GForce:        float32(t.GForce),
		Throttle:      float32(t.Throttle),
		Fuel:          float32(t.Fuel),
		Health:        float32(t.Health),
		ActiveEnemies: uint16(t.ActiveEnemies),
		Bullets:       uint16(t.Bullets),
		Missiles:      uint16(t.Missiles),
	}
}

// CoreToPerformance converts a monitor sample.
func CoreToPerformance(p core.Performance, missionID uint) model.Performance {
	return model.Performance{
		Time:           p.Time,
		MissionID:      missionID,
		TickRate:       float32(p.TickRate),
		TickDurationMs: float32(p.TickDurationMs),
		Pools:          toJSON(p.Pools),
		QueueSizes:     toJSON(p.QueueSizes),
		HeapAllocMB:    float32(p.HeapAllocMB),
		Goroutines:     uint16(min(p.Goroutines, math.MaxUint16)),
	}
}
