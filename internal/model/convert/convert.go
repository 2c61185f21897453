package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/skyward/combat-core/internal/geo"
	"github.com/skyward/combat-core/internal/model"
	"github.com/skyward/combat-core/pkg/core"
)

// pointToPosition converts a stored 3857 point back to simulation metres.
func pointToPosition(p geom.Point, o geo.Origin) core.Position3D {
	c, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return o.Local(c.XY, c.Z)
}

// WorldToCore converts a GORM World to a core.World.
func WorldToCore(w model.World) core.World {
	return core.World{
		ID:          w.ID,
		Name:        w.Name,
		TerrainType: w.TerrainType,
		BaseHeight:  float64(w.BaseHeight),
		Amplitude:   float64(w.Amplitude),
		Latitude:    w.Latitude,
		Longitude:   w.Longitude,
	}
}

// MissionToCore converts a GORM Mission to a core.Mission.
func MissionToCore(m model.Mission) core.Mission {
	return core.Mission{
		ID:               m.ID,
		Name:             m.Name,
		Aircraft:         m.Aircraft,
		Difficulty:       m.Difficulty,
		Seed:             uint64(m.Seed),
		TickRate:         float64(m.TickRate),
		StartTime:        m.StartTime,
		WorldID:          m.WorldID,
		ExtensionVersion: m.ExtensionVersion,
		ExtensionBuild:   m.ExtensionBuild,
		Tag:              m.Tag,
	}
}

// EnemyToCore converts a GORM Enemy to a core.Enemy.
// GORM Enemy.ObjectID maps to core Enemy.ID.
func EnemyToCore(e model.Enemy, o geo.Origin) core.Enemy {
	return core.Enemy{
		ID:        e.ObjectID,
		JoinTime:  e.JoinTime,
		JoinTick:  e.JoinTick,
		Kind:      e.Kind,
		IsGround:  e.IsGround,
		MaxHealth: float64(e.MaxHealth),
		Position:  pointToPosition(e.Position, o),
	}
}

// CombatEventToCore converts a stored event back to a core.Event. Rows with
// an unknown kind keep a zero Kind.
func CombatEventToCore(e model.CombatEvent, o geo.Origin) core.Event {
	var kind core.EventKind
	_ = kind.UnmarshalText([]byte(e.Kind))

	var extra eventExtra
	if len(e.Extra) > 0 {
		_ = json.Unmarshal(e.Extra, &extra)
	}

	return core.Event{
		Kind:     kind,
		Tick:     e.Tick,
		Time:     e.SimTime,
		Position: pointToPosition(e.Position, o),
		SourceID: e.SourceID,
		TargetID: e.TargetID,
		WeaponID: e.WeaponID,
		Damage:   float64(e.Damage),
		Radius:   extra.Radius,
		Detail:   extra.Detail,
	}
}
