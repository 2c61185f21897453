// Package weapons discharges guns and countermeasures and advances the bullet
// pool. Entity hit resolution lives in package damage; the geometry it needs is
// here.
package weapons

import (
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/terrain"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

const (
	// MuzzleOffset is how far ahead of the shooter rounds appear.
	MuzzleOffset = 6.0
	// Cooldowns below this count as expired; repeated dt subtraction leaves dust.
	cooldownEpsilon = 1e-9
)

// Ready reports whether a cooldown has run out.
func Ready(cooldown float64) bool { return cooldown <= cooldownEpsilon }

// Shot describes one gun discharge.
type Shot struct {
	WeaponID   string
	OwnerID    int
	Origin     vmath.Vec3
	Direction  vmath.Vec3
	Inherit    vmath.Vec3 // shooter velocity
	DamageMult float64
}

// FireGun spawns one round. Unknown weapons, non-gun weapons, degenerate aim and
// a full pool are all no-ops returning false.
func FireGun(st *combat.State, s Shot) bool {
	w, ok := st.Data.Weapon(s.WeaponID)
	if !ok || w.Kind != gamedata.KindGun {
		return false
	}
	dir, ok := s.Direction.Normalize()
	if !ok {
		return false
	}
	if w.Spread > 0 {
		dir = scatter(st, dir, w.Spread)
	}
	_, b, ok := st.Bullets.Spawn()
	if !ok {
		return false
	}
	mult := s.DamageMult
	if mult <= 0 {
		mult = 1
	}
	b.Position = s.Origin.Add(dir.Scale(MuzzleOffset))
	b.Previous = b.Position
	b.Velocity = s.Inherit.Add(dir.Scale(w.Speed))
	b.MaxAge = w.MaxAge
	b.Range = w.Range
	b.Damage = w.Damage * mult
	b.OwnerID = s.OwnerID
	b.WeaponID = s.WeaponID

	st.Emit(core.Event{
		Kind:     core.EventFired,
		Position: combat.ToPosition(b.Position),
		SourceID: s.OwnerID,
		TargetID: combat.NoTarget,
		WeaponID: s.WeaponID,
	})
	return true
}

// scatter perturbs dir uniformly inside a cone of half-angle spread.
func scatter(st *combat.State, dir vmath.Vec3, spread float64) vmath.Vec3 {
	ref := vmath.Up
	if math.Abs(dir.Dot(ref)) > 0.99 {
		ref = vmath.Right
	}
	u := dir.Cross(ref).Unit()
	v := dir.Cross(u)
	a := st.Rand.Float64() * 2 * math.Pi
	r := spread * math.Sqrt(st.Rand.Float64())
	return dir.Add(u.Scale(math.Cos(a) * r)).Add(v.Scale(math.Sin(a) * r)).Unit()
}

// TickCooldowns counts down every player weapon slot and the chaff dispenser.
func TickCooldowns(st *combat.State, dt float64) {
	for i := range st.Slots {
		st.Slots[i].Cooldown = max(st.Slots[i].Cooldown-dt, 0)
	}
	c := &st.Chaff
	c.Cooldown = max(c.Cooldown-dt, 0)
	c.ActiveTimer = max(c.ActiveTimer-dt, 0)
}

// PlayerGun fires the selected gun slot while the trigger is held.
func PlayerGun(st *combat.State, p *flight.Player, trigger bool) bool {
	slot := st.SelectedSlot()
	if !trigger || p.IsDead() || slot == nil || slot.Kind != gamedata.KindGun {
		return false
	}
	if !Ready(slot.Cooldown) || slot.Empty() {
		return false
	}
	w, ok := st.Data.Weapon(slot.WeaponID)
	if !ok {
		return false
	}
	if !FireGun(st, Shot{
		WeaponID:  slot.WeaponID,
		OwnerID:   combat.PlayerID,
		Origin:    p.Position,
		Direction: p.Forward(),
		Inherit:   p.Velocity,
	}) {
		return false
	}
	slot.Cooldown = w.Interval()
	if slot.Ammo > 0 {
		slot.Ammo--
	}
	return true
}

// DeployChaff releases one countermeasure charge if the dispenser is ready.
func DeployChaff(st *combat.State, p *flight.Player, pressed bool) bool {
	c := &st.Chaff
	if !pressed || p.IsDead() || c.Ammo <= 0 || !Ready(c.Cooldown) {
		return false
	}
	c.Ammo--
	c.Cooldown = c.Interval
	c.ActiveTimer = c.EffectDuration
	st.Emit(core.Event{
		Kind:     core.EventChaffDeployed,
		Position: combat.ToPosition(p.Position),
		SourceID: combat.PlayerID,
		TargetID: combat.NoTarget,
	})
	return true
}

// UpdateBullets advances every round and retires those past their age or
// range. A round that reaches the terrain is clipped to the impact point and
// marked Grounded so hit resolution still sees the segment it flew; it is
// released on the next update if nothing else consumed it.
func UpdateBullets(st *combat.State, ter terrain.Terrain, dt float64) {
	for i, b := range st.Bullets.All() {
		if b.Grounded {
			st.Bullets.Release(i)
			continue
		}
		b.Previous = b.Position
		step := b.Velocity.Scale(dt)
		b.Position = b.Position.Add(step)
		b.Age += dt
		b.Traveled += step.Len()
		switch {
		case b.MaxAge > 0 && b.Age >= b.MaxAge:
			st.Bullets.Release(i)
		case b.Range > 0 && b.Traveled >= b.Range:
			st.Bullets.Release(i)
		case ter != nil && b.Position.Y <= ter.HeightAt(b.Position.X, b.Position.Z):
			b.Position = terrainImpact(ter, b.Previous, b.Position)
			b.Grounded = true
		}
	}
}

// terrainImpact interpolates where the segment from (above ground) to (below
// ground) meets the height field.
func terrainImpact(ter terrain.Terrain, from, to vmath.Vec3) vmath.Vec3 {
	above := from.Y - ter.HeightAt(from.X, from.Z)
	below := ter.HeightAt(to.X, to.Z) - to.Y
	if above <= 0 || above+below < vmath.Epsilon {
		return from
	}
	return from.Lerp(to, above/(above+below))
}

// SegmentHitsSphere reports whether the segment a->b passes within radius of
// centre, and the fraction along the segment of the closest approach.
func SegmentHitsSphere(a, b, centre vmath.Vec3, radius float64) (bool, float64) {
	ab := b.Sub(a)
	l2 := ab.LenSq()
	t := 0.0
	if l2 > vmath.Epsilon {
		t = vmath.Clamp(centre.Sub(a).Dot(ab)/l2, 0, 1)
	}
	closest := a.Add(ab.Scale(t))
	return closest.Sub(centre).LenSq() <= radius*radius, t
}
