// Package guidance runs the player's missile seeker, launches missiles into the
// pool and flies them with a G-limited homing law.
package guidance

import (
	"math"

	"github.com/skyward/combat-core/internal/combat"
	"github.com/skyward/combat-core/internal/flight"
	"github.com/skyward/combat-core/internal/gamedata"
	"github.com/skyward/combat-core/internal/vmath"
	"github.com/skyward/combat-core/pkg/core"
)

// Seeker tuning.
const (
	LockRange    = 3000.0
	LockTime     = 1.5
	SeekDuration = 8.0
	// stickiness keeps the seeker from flicking between similar targets.
	stickiness = 0.1
	timerSlack = 1e-9
)

// LockCone is the seeker half-angle.
var LockCone = vmath.Deg(30)

func resetSeeker(s *combat.Seeker) {
	*s = combat.Seeker{TargetID: combat.NoTarget, SeekDuration: SeekDuration, NeedsRelease: s.NeedsRelease}
}

// UpdateSeeker advances the hold-to-lock seeker. It runs only while a missile
// slot is selected and engage is held; a seeker that times out stays off until
// engage is released.
func UpdateSeeker(st *combat.State, p *flight.Player, engage bool, dt float64) {
	s := &st.Seeker
	slot := st.SelectedSlot()
	if p.IsDead() || slot == nil || slot.Kind != gamedata.KindMissile {
		s.NeedsRelease = false
		resetSeeker(s)
		return
	}
	if !engage {
		s.NeedsRelease = false
		resetSeeker(s)
		return
	}
	if s.NeedsRelease {
		return
	}
	if !s.Active {
		resetSeeker(s)
		s.Active = true
	}

	s.SeekTimer += dt
	target := BestTarget(st, p.Position, p.Forward(), s.TargetID)
	if target != s.TargetID {
		s.TargetID = target
		s.LockTimer = 0
		s.Locked = false
	}
	if s.TargetID != combat.NoTarget {
		s.LockTimer += dt
		if !s.Locked && s.LockTimer >= LockTime-timerSlack {
			s.Locked = true
			st.Emit(core.Event{
				Kind:     core.EventLockAcquired,
				Position: combat.ToPosition(p.Position),
				SourceID: combat.PlayerID,
				TargetID: s.TargetID,
			})
		}
	}
	if !s.Locked && s.SeekTimer >= s.SeekDuration-timerSlack {
		resetSeeker(s)
		s.NeedsRelease = true
	}
}

// BestTarget returns the id of the highest scoring live enemy within lock range
// and the forward cone, favouring on-axis and near targets. current gets a small
// bonus so a held lock is not lost to a marginally better candidate.
func BestTarget(st *combat.State, from, forward vmath.Vec3, current int) int {
	best, bestScore := combat.NoTarget, math.Inf(-1)
	for _, e := range st.Enemies.All() {
		if !e.Alive() {
			continue
		}
		to := e.Position.Sub(from)
		dist := to.Len()
		if dist > LockRange || dist < vmath.Epsilon {
			continue
		}
		angle := vmath.AngleBetween(forward, to)
		if angle > LockCone {
			continue
		}
		score := 0.6*(1-angle/LockCone) + 0.4*(1-dist/LockRange)
		if e.ID == current {
			score += stickiness
		}
		if score > bestScore {
			best, bestScore = e.ID, score
		}
	}
	return best
}

// PlayerLaunch fires the selected missile slot. It is edge triggered by the
// caller. Without a lock the missile flies unguided. After launch the seeker
// starts a fresh search.
func PlayerLaunch(st *combat.State, p *flight.Player, pressed bool) bool {
	slot := st.SelectedSlot()
	if !pressed || p.IsDead() || slot == nil || slot.Kind != gamedata.KindMissile {
		return false
	}
	if slot.Cooldown > timerSlack || slot.Empty() {
		return false
	}
	w, ok := st.Data.Weapon(slot.WeaponID)
	if !ok {
		return false
	}
	target := combat.NoTarget
	if st.Seeker.Locked {
		target = st.Seeker.TargetID
	}
	fwd := p.Forward()
	if !Launch(st, LaunchOrder{
		WeaponID:  slot.WeaponID,
		OwnerID:   combat.PlayerID,
		TargetID:  target,
		Origin:    p.Position.Sub(p.Rotation.Up().Scale(2)),
		Direction: fwd,
		MinSpeed:  p.Speed(),
	}) {
		return false
	}
	slot.Cooldown = w.Interval()
	if slot.Ammo > 0 {
		slot.Ammo--
	}
	if st.Seeker.Active {
		st.Seeker.Locked = false
		st.Seeker.LockTimer = 0
		st.Seeker.SeekTimer = 0
		st.Seeker.TargetID = combat.NoTarget
	}
	return true
}
