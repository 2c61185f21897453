// Package model holds the gorm schema a recorded sortie is written to.
package model

import (
	"errors"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&World{},
	&Mission{},
	&Enemy{},
	&PlayerState{},
	&EnemyState{},
	&CombatEvent{},
	&Telemetry{},
	&Performance{},
}

////////////////////////
// RECORDING MODELS
////////////////////////

// World is the terrain a mission is flown over, anchored at a geodetic origin.
type World struct {
	gorm.Model
	Name        string     `json:"name" gorm:"size:127;uniqueIndex"`
	TerrainType string     `json:"terrainType" gorm:"size:32"`
	BaseHeight  float32    `json:"baseHeight"`
	Amplitude   float32    `json:"amplitude"`
	Latitude    float64    `json:"latitude" gorm:"-"`
	Longitude   float64    `json:"longitude" gorm:"-"`
	Location    geom.Point `json:"location"`
	Missions    []Mission
}

func (*World) TableName() string {
	return "worlds"
}

// GetOrInsert loads the world with the same name, inserting w when none exists.
func (w *World) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing World
	err = db.Where("name = ?", w.Name).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, db.Create(w).Error
		}
		return false, err
	}
	*w = existing
	return false, nil
}

// Mission is one simulation run.
type Mission struct {
	gorm.Model
	Name             string    `json:"name" gorm:"size:200"`
	Aircraft         string    `json:"aircraft" gorm:"size:64"`
	Difficulty       string    `json:"difficulty" gorm:"size:16"`
	Seed             int64     `json:"seed"`
	TickRate         float32   `json:"tickRate" gorm:"default:60"`
	StartTime        time.Time `json:"missionStart" gorm:"type:timestamptz;index:idx_mission_start"`
	WorldID          uint
	World            World  `gorm:"foreignkey:WorldID"`
	ExtensionVersion string `json:"extensionVersion" gorm:"size:64"`
	ExtensionBuild   string `json:"extensionBuild" gorm:"size:64"`
	Tag              string `json:"tag" gorm:"size:127"`

	Enemies      []Enemy
	CombatEvents []CombatEvent
}

func (*Mission) TableName() string {
	return "missions"
}

// Enemy is registered once when it spawns.
// Uses composite primary key (MissionID, ObjectID); ObjectID is the simulation enemy id.
type Enemy struct {
	MissionID    uint       `json:"missionId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID     int        `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Mission      Mission    `gorm:"foreignkey:MissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	JoinTime     time.Time  `json:"joinTime" gorm:"type:timestamptz;NOT NULL"`
	JoinTick     uint64     `json:"joinTick"`
	Kind         string     `json:"kind" gorm:"size:32"`
	IsGround     bool       `json:"isGround" gorm:"default:false"`
	MaxHealth    float32    `json:"maxHealth"`
	Position     geom.Point `json:"position"`
	ElevationASL float32    `json:"elevationASL"`
}

func (*Enemy) TableName() string {
	return "enemies"
}

// Attitude is an orientation quaternion stored inline.
type Attitude struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// PlayerState is a recorded player frame.
type PlayerState struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	MissionID    uint      `json:"missionId" gorm:"index:idx_playerstate_mission_id"`
	Mission      Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Tick         uint64    `json:"tick"`
	CaptureFrame uint      `json:"captureFrame" gorm:"index:idx_playerstate_capture_frame"`

	Position     geom.Point `json:"position"`
	ElevationASL float32    `json:"elevationASL"`
	Bearing      uint16     `json:"bearing"`
	Attitude     Attitude   `json:"attitude" gorm:"embedded;embeddedPrefix:attitude_"`
	Speed        float32    `json:"speed"`
	Throttle     float32    `json:"throttle"`
	Afterburner  bool       `json:"afterburner"`
	Fuel         float32    `json:"fuel"`
	Mach         float32    `json:"mach"`
	GForce       float32    `json:"gForce"`
	Health       float32    `json:"health"`
	IsDead       bool       `json:"isDead"`
	Stalled      bool       `json:"stalled"`
}

func (*PlayerState) TableName() string {
	return "player_states"
}

// EnemyState is a recorded enemy frame.
// References Enemy by (MissionID, EnemyObjectID) composite FK.
type EnemyState struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time" gorm:"type:timestamptz;"`
	MissionID     uint      `json:"missionId" gorm:"index:idx_enemystate_mission_id"`
	Mission       Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Tick          uint64    `json:"tick"`
	CaptureFrame  uint      `json:"captureFrame" gorm:"index:idx_enemystate_capture_frame"`
	EnemyObjectID int       `json:"enemyId" gorm:"index:idx_enemystate_enemy_id"`
	Enemy         Enemy     `gorm:"foreignkey:MissionID,EnemyObjectID;references:MissionID,ObjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Position     geom.Point `json:"position"`
	ElevationASL float32    `json:"elevationASL"`
	Bearing      uint16     `json:"bearing"`
	Speed        float32    `json:"speed"`
	Health       float32    `json:"health"`
	AIMode       string     `json:"aiMode" gorm:"size:16"`
}

func (*EnemyState) TableName() string {
	return "enemy_states"
}

// CombatEvent is one simulation event. Fields that only some kinds use are
// kept in Extra.
type CombatEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	MissionID uint      `json:"missionId" gorm:"index:idx_combatevent_mission_id"`
	Mission   Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_combatevent_tick"`
	SimTime   float64   `json:"simTime"`
	Kind      string    `json:"kind" gorm:"size:32;index:idx_combatevent_kind"`
	SourceID  int       `json:"sourceId"`
	TargetID  int       `json:"targetId"`

	Position     geom.Point     `json:"position"`
	ElevationASL float32        `json:"elevationASL"`
	WeaponID     string         `json:"weaponId" gorm:"size:64"`
	Damage       float32        `json:"damage"`
	Extra        datatypes.JSON `json:"extra" gorm:"default:'{}'"`
}

func (*CombatEvent) TableName() string {
	return "combat_events"
}

// Telemetry is a periodic flight-data sample.
type Telemetry struct {
	Time          time.Time `json:"time" gorm:"type:timestamptz;index:idx_telemetry_time"`
	MissionID     uint      `json:"missionId" gorm:"index:idx_telemetry_mission_id"`
	Mission       Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Tick          uint64    `json:"tick"`
	Altitude      float32   `json:"altitude"`
	Speed         float32   `json:"speed"`
	Mach          float32   `json:"mach"`
	Alpha         float32   `json:"alpha"`
	GForce        float32   `json:"gForce"`
	Throttle      float32   `json:"throttle"`
	Fuel          float32   `json:"fuel"`
	Health        float32   `json:"health"`
	ActiveEnemies uint16    `json:"activeEnemies"`
	Bullets       uint16    `json:"bullets"`
	Missiles      uint16    `json:"missiles"`
}

func (*Telemetry) TableName() string {
	return "telemetry"
}

// Performance is the model for simulator performance samples.
type Performance struct {
	Time           time.Time      `json:"time" gorm:"type:timestamptz;index:idx_performance_time"`
	MissionID      uint           `json:"missionId" gorm:"index:idx_performance_mission_id"`
	Mission        Mission        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	TickRate       float32        `json:"tickRate"`
	TickDurationMs float32        `json:"tickDurationMs"`
	Pools          datatypes.JSON `json:"pools"`
	QueueSizes     datatypes.JSON `json:"queueSizes"`
	HeapAllocMB    float32        `json:"heapAllocMB"`
	Goroutines     uint16         `json:"goroutines"`
}

func (*Performance) TableName() string {
	return "performances"
}
