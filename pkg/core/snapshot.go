package core

// PlayerSnapshot is the serialisable player state after a tick.
type PlayerSnapshot struct {
	Position    Position3D `json:"position"`
	Rotation    Rotation   `json:"rotation"`
	Velocity    Position3D `json:"velocity"`
	Speed       float64    `json:"speed"`
	Throttle    float64    `json:"throttle"`
	Afterburner bool       `json:"afterburner"`
	Fuel        float64    `json:"fuel"`
	Alpha       float64    `json:"alpha"` // rad
	Beta        float64    `json:"beta"`  // rad
	Mach        float64    `json:"mach"`
	GForce      float64    `json:"gForce"`
	Health      float64    `json:"health"`
	IsDead      bool       `json:"isDead"`
	Stalled     bool       `json:"stalled"`
}

// EnemySnapshot is one non-destroyed enemy.
type EnemySnapshot struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Position Position3D `json:"position"`
	Rotation Rotation   `json:"rotation"`
	Velocity Position3D `json:"velocity"`
	Speed    float64    `json:"speed"`
	Health   float64    `json:"health"`
	AIMode   string     `json:"aiMode"`
	IsGround bool       `json:"isGround"`
}

// Snapshot is the complete network-facing state after one tick.
type Snapshot struct {
	Tick    uint64          `json:"tick"`
	Time    float64         `json:"time"`
	Player  PlayerSnapshot  `json:"player"`
	Enemies []EnemySnapshot `json:"enemies"`
}
