package core

import "time"

// World describes the terrain a mission is flown over.
type World struct {
	ID          uint
	Name        string
	TerrainType string
	BaseHeight  float64
	Amplitude   float64
	Latitude    float64 // geodetic origin of simulation (0,0,0)
	Longitude   float64
}

// Mission describes one simulation run.
type Mission struct {
	ID               uint
	Name             string
	Aircraft         string
	Difficulty       string
	Seed             uint64
	TickRate         float64
	StartTime        time.Time
	WorldID          uint
	ExtensionVersion string
	ExtensionBuild   string
	Tag              string
}

// Enemy is the registration record written when an enemy spawns.
type Enemy struct {
	ID        int // simulation enemy id
	JoinTime  time.Time
	JoinTick  uint64
	Kind      string
	IsGround  bool
	MaxHealth float64
	Position  Position3D
}

// PlayerState is a recorded player frame.
type PlayerState struct {
	Time   time.Time
	Tick   uint64
	Frame  uint
	Player PlayerSnapshot
}

// EnemyState is a recorded enemy frame.
type EnemyState struct {
	Time  time.Time
	Tick  uint64
	Frame uint
	Enemy EnemySnapshot
}

// Telemetry is a periodic flight-data sample.
type Telemetry struct {
	Time          time.Time
	Tick          uint64
	Altitude      float64
	Speed         float64
	Mach          float64
	Alpha         float64
	GForce        float64
	Throttle      float64
	Fuel          float64
	Health        float64
	ActiveEnemies int
	Bullets       int
	Missiles      int
}

// Performance is a periodic runtime sample produced by the monitor.
type Performance struct {
	Time           time.Time
	TickRate       float64 // achieved ticks per wall second
	TickDurationMs float64
	Pools          map[string]int
	QueueSizes     map[string]int
	HeapAllocMB    float64
	Goroutines     int
}
