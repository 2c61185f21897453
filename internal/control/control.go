// Package control turns normalized pilot commands into rate-limited control-surface
// deflections and the aerodynamic moments they produce.
package control

import (
	"math"

	"github.com/skyward/combat-core/internal/aero"
	"github.com/skyward/combat-core/internal/vmath"
)

// Command is a normalized stick/pedal input. Pitch > 0 pulls the nose up, Yaw > 0
// swings it right and Roll > 0 drops the right wing. Each axis is in [-1, 1].
type Command struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Clamp bounds every axis to [-1, 1].
func (c Command) Clamp() Command {
	return Command{
		Pitch: vmath.Clamp(c.Pitch, -1, 1),
		Yaw:   vmath.Clamp(c.Yaw, -1, 1),
		Roll:  vmath.Clamp(c.Roll, -1, 1),
	}
}

// AimCommand derives a stick command from a pointer offset in [-1, 1] screen units,
// rolling into the turn so mouse flying feels coordinated.
func AimCommand(mouseX, mouseY, gain float64) Command {
	return Command{
		Pitch: -mouseY * gain,
		Yaw:   mouseX * gain * 0.5,
		Roll:  mouseX * gain,
	}.Clamp()
}

// Params tunes the actuators and the moment model.
type Params struct {
	SmoothingTau float64 `yaml:"smoothing_tau" json:"smoothingTau"` // s
	SlewRate     float64 `yaml:"slew_rate" json:"slewRate"`         // deflection units per s

	QRef           float64 `yaml:"q_ref" json:"qRef"`                     // Pa at which authority is full
	AuthorityFloor float64 `yaml:"authority_floor" json:"authorityFloor"` // minimum authority
	ReversalQ      float64 `yaml:"reversal_q" json:"reversalQ"`           // Pa beyond which authority fades
	ReversalMin    float64 `yaml:"reversal_min" json:"reversalMin"`
	GOnset         float64 `yaml:"g_onset" json:"gOnset"`
	GLimit         float64 `yaml:"g_limit" json:"gLimit"`

	Chord float64 `yaml:"chord" json:"chord"` // m
	Span  float64 `yaml:"span" json:"span"`   // m

	CmElevator float64 `yaml:"cm_elevator" json:"cmElevator"`
	CnRudder   float64 `yaml:"cn_rudder" json:"cnRudder"`
	ClAileron  float64 `yaml:"cl_aileron" json:"clAileron"`
	CmAlpha    float64 `yaml:"cm_alpha" json:"cmAlpha"`        // static pitch stability
	CnBeta     float64 `yaml:"cn_beta" json:"cnBeta"`          // weathervane
	CmQ        float64 `yaml:"cm_q" json:"cmQ"`                // pitch rate damping
	CnR        float64 `yaml:"cn_r" json:"cnR"`                // yaw rate damping
	ClP        float64 `yaml:"cl_p" json:"clP"`                // roll rate damping
	CmAlphaDot float64 `yaml:"cm_alpha_dot" json:"cmAlphaDot"` // AoA rate damping
	MachTuck   float64 `yaml:"mach_tuck" json:"machTuck"`      // nose-down per Mach past onset
	MachTuckOn float64 `yaml:"mach_tuck_onset" json:"machTuckOnset"`

	Inertia vmath.Vec3 `yaml:"inertia" json:"inertia"` // principal moments about body X (pitch), Y (yaw), Z (roll)
}

// DefaultParams matches aero.DefaultParams.
func DefaultParams() Params {
	return Params{
		SmoothingTau:   0.08,
		SlewRate:       4,
		QRef:           0.5 * 1.225 * 150 * 150,
		AuthorityFloor: 0.2,
		ReversalQ:      0.5 * 1.225 * 380 * 380,
		ReversalMin:    0.5,
		GOnset:         7,
		GLimit:         9,
		Chord:          5,
		Span:           10.7,
		CmElevator:     0.6,
		CnRudder:       0.25,
		ClAileron:      0.35,
		CmAlpha:        0.8,
		CnBeta:         0.6,
		CmQ:            12,
		CnR:            6,
		ClP:            4,
		CmAlphaDot:     4,
		MachTuck:       0.3,
		MachTuckOn:     0.92,
		Inertia:        vmath.V(100000, 120000, 25000),
	}
}

// Surfaces is the actuator state carried between ticks.
type Surfaces struct {
	Smoothed   Command // filtered pilot command
	Deflection Command // actual surface position after slew limiting
}

// Update filters cmd and slews the surfaces toward it.
func (s *Surfaces) Update(p Params, cmd Command, dt float64) {
	cmd = cmd.Clamp()
	k := vmath.ExpSmooth(dt, p.SmoothingTau)
	s.Smoothed.Pitch += (cmd.Pitch - s.Smoothed.Pitch) * k
	s.Smoothed.Yaw += (cmd.Yaw - s.Smoothed.Yaw) * k
	s.Smoothed.Roll += (cmd.Roll - s.Smoothed.Roll) * k

	maxStep := p.SlewRate * dt
	s.Deflection.Pitch = vmath.MoveToward(s.Deflection.Pitch, s.Smoothed.Pitch, maxStep)
	s.Deflection.Yaw = vmath.MoveToward(s.Deflection.Yaw, s.Smoothed.Yaw, maxStep)
	s.Deflection.Roll = vmath.MoveToward(s.Deflection.Roll, s.Smoothed.Roll, maxStep)
}

// Reset centres the surfaces.
func (s *Surfaces) Reset() { *s = Surfaces{} }

// Authority returns the control effectiveness multiplier for dynamic pressure q.
func (p Params) Authority(q float64) float64 {
	a := 1.0
	if p.QRef > 0 {
		a = vmath.Clamp(q/p.QRef, p.AuthorityFloor, 1)
	}
	if p.ReversalQ > 0 && q > p.ReversalQ {
		fade := 1 - 0.5*(q-p.ReversalQ)/p.ReversalQ
		a *= math.Max(p.ReversalMin, fade)
	}
	return a
}

// GDamping scales pitch authority down as the load approaches the G limit.
func (p Params) GDamping(g float64) float64 {
	g = math.Abs(g)
	if g <= p.GOnset || p.GLimit <= p.GOnset {
		return 1
	}
	return vmath.Clamp(1-(g-p.GOnset)/(p.GLimit-p.GOnset), 0.1, 1)
}

// MomentInput is the flight state the moment model needs.
type MomentInput struct {
	Flow      aero.Flow
	AlphaRate float64    // rad/s
	Omega     vmath.Vec3 // body rates about X (pitch), Y (yaw), Z (roll)
	GForce    float64
}

// Moments returns body moments (N m) and the resulting angular acceleration.
func (p Params) Moments(s Surfaces, wingArea float64, in MomentInput) (moment, angAccel vmath.Vec3) {
	f := in.Flow
	auth := p.Authority(f.Q)
	// Surface moments scale with authority against the reference pressure, so the
	// floor keeps the aircraft controllable at low speed.
	ctrlQS := p.QRef * wingArea
	qs := f.Q * wingArea

	// Non-dimensional rate terms need a speed; below 1 m/s they vanish.
	var cBar, bBar float64
	if f.Speed > 1 {
		cBar = p.Chord / (2 * f.Speed)
		bBar = p.Span / (2 * f.Speed)
	}

	pitch := p.CmElevator*s.Deflection.Pitch*auth*p.GDamping(in.GForce)*ctrlQS*p.Chord -
		p.CmAlpha*f.Alpha*qs*p.Chord -
		p.CmQ*in.Omega.X*cBar*qs*p.Chord -
		p.CmAlphaDot*in.AlphaRate*cBar*qs*p.Chord
	if f.Mach > p.MachTuckOn {
		pitch -= p.MachTuck * (f.Mach - p.MachTuckOn) * qs * p.Chord
	}

	yaw := -p.CnRudder*s.Deflection.Yaw*auth*ctrlQS*p.Span -
		p.CnBeta*f.Beta*qs*p.Span -
		p.CnR*in.Omega.Y*bBar*qs*p.Span

	roll := -p.ClAileron*s.Deflection.Roll*auth*ctrlQS*p.Span -
		p.ClP*in.Omega.Z*bBar*qs*p.Span

	// Euler's equations: gyroscopic cross-coupling between the axes.
	I := p.Inertia
	w := in.Omega
	pitch += (I.Y - I.Z) * w.Y * w.Z
	yaw += (I.Z - I.X) * w.Z * w.X
	roll += (I.X - I.Y) * w.X * w.Y

	moment = vmath.V(pitch, yaw, roll)
	if I.X > 0 && I.Y > 0 && I.Z > 0 {
		angAccel = vmath.V(pitch/I.X, yaw/I.Y, roll/I.Z)
	}
	return moment, angAccel
}
