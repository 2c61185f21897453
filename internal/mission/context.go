// Package mission holds the mission currently being flown so that loggers,
// storage backends and the recorder agree on what they are attached to.
package mission

import (
	"sync"
	"sync/atomic"

	"github.com/skyward/combat-core/pkg/core"
)

// Context holds the current mission and world state
type Context struct {
	mu      sync.RWMutex
	Mission *core.Mission
	World   *core.World

	tick atomic.Uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Mission: &core.Mission{Name: "No mission loaded"},
		World:   &core.World{Name: "No world loaded"},
	}
}

// GetMission returns the current mission
func (mc *Context) GetMission() *core.Mission {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.Mission
}

// GetWorld returns the current world
func (mc *Context) GetWorld() *core.World {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.World
}

// SetMission sets the current mission and world and resets the tick.
func (mc *Context) SetMission(mission *core.Mission, world *core.World) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.Mission = mission
	mc.World = world
	mc.tick.Store(0)
}

// MissionName is shaped for logging.SimContext.
func (mc *Context) MissionName() string {
	return mc.GetMission().Name
}

// SetTick records the last completed simulation tick.
func (mc *Context) SetTick(tick uint64) {
	mc.tick.Store(tick)
}

// Tick returns the last completed simulation tick.
func (mc *Context) Tick() uint64 {
	return mc.tick.Load()
}
