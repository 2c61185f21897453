// Package sim owns the simulation context and runs the fixed-order tick:
// input, flight, guns, missiles, AI, damage, explosions. Callers read snapshots
// and drain events only between ticks.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/skyward/combat-core/internal/ai"
	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/damage"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/guidance"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/internal/weapons"
	"github.com/skyward/combat-core/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config describes one mission's simulation.
type Config struct {
	Data       *gamedata.Tables // nil uses the built-in tables
	Plane      string
	Difficulty combat.Difficulty
	Seed       uint64
	Terrain    terrain.Terrain // nil is flat ground at sea level
	Bounds     flight.Bounds
	ChaffModel combat.ChaffModel

	Spawn      vmath.Vec3
	Heading    float64 // rad
	SpawnSpeed float64 // m/s

	Logger *slog.Logger
}

// DefaultConfig is a viper mission over flat ground.
func DefaultConfig() Config {
	return Config{
		Plane:      "viper",
		Difficulty: combat.Normal,
		Seed:       1,
		Bounds:     flight.Bounds{Radius: 20000, Ceiling: 15000, Limit: 10},
		Spawn:      vmath.V(0, 1500, 0),
		SpawnSpeed: 220,
	}
}

// Simulation is the single owner of all mutable combat state.
type Simulation struct {
	State   *combat.State
	Player  *flight.Player
	Terrain terrain.Terrain

	integrator *flight.Integrator
	ai         *ai.Controller
	logger     *slog.Logger
	metrics    *metrics

	prevFire  bool
	prevChaff bool
}

// New builds a simulation and places the player at the configured spawn.
func New(cfg Config) (*Simulation, error) {
	if cfg.Data == nil {
		cfg.Data = gamedata.Default()
	}
	if cfg.Terrain == nil {
		cfg.Terrain = terrain.Flat{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	plane, err := cfg.Data.Plane(cfg.Plane)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating simulation metrics: %w", err)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	st := combat.NewState(cfg.Data, cfg.Difficulty, rng)
	st.ChaffModel = cfg.ChaffModel
	st.LoadPlane(plane)

	s := &Simulation{
		State:      st,
		Player:     flight.NewPlayer(plane, cfg.Spawn, cfg.Heading, cfg.SpawnSpeed),
		Terrain:    cfg.Terrain,
		integrator: flight.NewIntegrator(cfg.Terrain, cfg.Bounds, cfg.Logger),
		ai:         ai.NewController(cfg.Terrain, cfg.Logger),
		logger:     cfg.Logger,
		metrics:    m,
	}
	s.publishPools()
	cfg.Logger.Info("simulation created",
		"plane", plane.ID,
		"difficulty", cfg.Difficulty.String(),
		"seed", cfg.Seed,
		"chaffModel", cfg.ChaffModel.String())
	return s, nil
}

// Close releases the metric callback.
func (s *Simulation) Close() error {
	return s.metrics.close()
}

// Tick advances the world by dt. A dt outside (0, flight.MaxDt] is ignored
// entirely and Tick returns false.
func (s *Simulation) Tick(in flight.Input, dt float64) bool {
	ctx := context.Background()
	if !flight.ValidDt(dt) {
		s.metrics.dropped.Add(ctx, 1)
		s.logger.Debug("tick dropped", "dt", dt, "tick", s.State.Tick)
		return false
	}
	start := time.Now()
	st, p := s.State, s.Player

	// input
	if in.SelectSlot >= 0 {
		st.Select(in.SelectSlot)
	}
	fireEdge := in.Fire && !s.prevFire
	chaffEdge := in.DeployCountermeasure && !s.prevChaff
	s.prevFire, s.prevChaff = in.Fire, in.DeployCountermeasure

	s.integrator.Step(p, st, in, dt)

	weapons.TickCooldowns(st, dt)
	weapons.PlayerGun(st, p, in.Fire)
	weapons.DeployChaff(st, p, chaffEdge)
	weapons.UpdateBullets(st, s.Terrain, dt)

	guidance.UpdateSeeker(st, p, in.SeekerEngage, dt)
	guidance.PlayerLaunch(st, p, fireEdge)
	guidance.UpdateMissiles(st, p, s.Terrain, dt)

	s.ai.Update(st, p, dt)
	damage.Resolve(st, p, s.Terrain, dt)
	st.UpdateExplosions(dt)

	st.Tick++
	st.Time += dt

	s.publishPools()
	s.metrics.ticks.Add(ctx, 1)
	s.metrics.tickDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	return true
}

// publishPools stores occupancy for the gauge and turns new pool drops into
// counter increments.
func (s *Simulation) publishPools() {
	st := s.State
	active := [len(poolNames)]int{st.Bullets.Len(), st.Missiles.Len(), st.Enemies.Len(), st.Explosions.Len()}
	drops := [len(poolNames)]uint64{st.Bullets.Dropped(), st.Missiles.Dropped(), st.Enemies.Dropped(), st.Explosions.Dropped()}
	for i, name := range poolNames {
		s.metrics.active[i].Store(int64(active[i]))
		if d := drops[i] - s.metrics.seenDrops[i]; d > 0 {
			s.metrics.spawnDropped.Add(context.Background(), int64(d),
				metric.WithAttributes(attribute.String("pool", name)))
			s.logger.Debug("pool full, spawn dropped", "pool", name, "dropped", d, "total", drops[i])
			s.metrics.seenDrops[i] = drops[i]
		}
	}
}

// DrainEvents returns everything emitted since the last drain.
func (s *Simulation) DrainEvents() []core.Event {
	return s.State.Events.GetAndEmpty()
}

// Snapshot captures the player and every non-destroyed enemy.
func (s *Simulation) Snapshot() core.Snapshot {
	snap := core.Snapshot{
		Tick:    s.State.Tick,
		Time:    s.State.Time,
		Player:  s.Player.Snapshot(),
		Enemies: make([]core.EnemySnapshot, 0, s.State.Enemies.Len()),
	}
	for _, e := range s.State.Enemies.All() {
		if !e.Alive() {
			continue
		}
		snap.Enemies = append(snap.Enemies, EnemySnapshot(e))
	}
	return snap
}

// EnemySnapshot converts one enemy to its public form.
func EnemySnapshot(e *combat.Enemy) core.EnemySnapshot {
	return core.EnemySnapshot{
		ID:       e.ID,
		Kind:     e.Kind,
		Position: combat.ToPosition(e.Position),
		Rotation: combat.ToRotation(e.Rotation),
		Velocity: combat.ToPosition(e.Velocity),
		Speed:    e.Speed,
		Health:   e.Health,
		AIMode:   e.Mode.String(),
		IsGround: e.IsGround,
	}
}

// ApplyEnemySnapshots mirrors authoritative enemy kinematics received from a
// host. Unknown ids and destroyed enemies are skipped. It returns how many
// enemies were updated.
func (s *Simulation) ApplyEnemySnapshots(snaps []core.EnemySnapshot) int {
	n := 0
	for _, snap := range snaps {
		e, ok := s.State.FindEnemy(snap.ID)
		if !ok || !e.Alive() {
			continue
		}
		e.Position = vmath.V(snap.Position.X, snap.Position.Y, snap.Position.Z)
		e.Velocity = vmath.V(snap.Velocity.X, snap.Velocity.Y, snap.Velocity.Z)
		e.Rotation = vmath.Quat{X: snap.Rotation.X, Y: snap.Rotation.Y, Z: snap.Rotation.Z, W: snap.Rotation.W}.Normalize()
		e.Speed = snap.Speed
		// destruction is resolved locally, so a non-positive health is ignored
		if snap.Health > 0 {
			e.Health = min(snap.Health, e.MaxHealth)
		}
		if m, ok := combat.ParseAIMode(snap.AIMode); ok && m != combat.AIDestroyed {
			e.Mode = m
		}
		n++
	}
	return n
}

// SpawnEnemy places one enemy and returns its id.
func (s *Simulation) SpawnEnemy(kind string, pos vmath.Vec3, heading float64) (int, error) {
	e, err := s.ai.Spawn(s.State, kind, pos, heading)
	if err != nil {
		s.publishPools()
		return 0, err
	}
	s.logger.Debug("enemy spawned", "enemy", e.ID, "kind", kind, "ground", e.IsGround)
	s.publishPools()
	return e.ID, nil
}

// PoolStats reports active slots per pool.
func (s *Simulation) PoolStats() map[string]int {
	stats := make(map[string]int, len(poolNames))
	for i, name := range poolNames {
		stats[name] = int(s.metrics.active[i].Load())
	}
	return stats
}

// EnemyInfo is the registration record of a live enemy.
func (s *Simulation) EnemyInfo(id int) (core.Enemy, bool) {
	e, ok := s.State.FindEnemy(id)
	if !ok {
		return core.Enemy{}, false
	}
	return core.Enemy{
		ID:        e.ID,
		JoinTick:  s.State.Tick,
		Kind:      e.Kind,
		IsGround:  e.IsGround,
		MaxHealth: e.MaxHealth,
		Position:  combat.ToPosition(e.Position),
	}, true
}

// Telemetry samples the player's flight data and pool occupancy.
func (s *Simulation) Telemetry() core.Telemetry {
	p := s.Player.Snapshot()
	return core.Telemetry{
		Tick:          s.State.Tick,
		Altitude:      p.Position.Y,
		Speed:         p.Speed,
		Mach:          p.Mach,
		Alpha:         p.Alpha,
		GForce:        p.GForce,
		Throttle:      p.Throttle,
		Fuel:          p.Fuel,
		Health:        p.Health,
		ActiveEnemies: s.State.Enemies.Len(),
		Bullets:       s.State.Bullets.Len(),
		Missiles:      s.State.Missiles.Len(),
	}
}

// Clock returns the tick counter and simulation seconds elapsed.
func (s *Simulation) Clock() (uint64, float64) {
	return s.State.Tick, s.State.Time
}
