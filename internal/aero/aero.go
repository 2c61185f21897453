// Package aero computes lift, drag and side force for an airframe from its
// velocity, orientation and the local atmosphere.
package aero

import (
	"math"

	"github.com/skyward/combat-core/internal/atmosphere"
	"github.com/skyward/combat-core/internal/vmath"
)

// Params is the aerodynamic description of one airframe.
type Params struct {
	WingArea     float64 `yaml:"wing_area" json:"wingArea"`         // m^2
	AspectRatio  float64 `yaml:"aspect_ratio" json:"aspectRatio"`   // span^2 / area
	Oswald       float64 `yaml:"oswald" json:"oswald"`              // span efficiency e
	CL0          float64 `yaml:"cl0" json:"cl0"`                    // lift at zero alpha
	CLAlpha      float64 `yaml:"cl_alpha" json:"clAlpha"`           // per radian
	StallAlpha   float64 `yaml:"stall_alpha" json:"stallAlpha"`     // radians
	StallBlend   float64 `yaml:"stall_blend" json:"stallBlend"`     // radians over which lift blends to flat plate
	FlatPlateCL  float64 `yaml:"flat_plate_cl" json:"flatPlateCl"`  // peak of the sin(2a) regime
	CD0          float64 `yaml:"cd0" json:"cd0"`                    // parasitic
	CriticalMach float64 `yaml:"critical_mach" json:"criticalMach"` // wave drag onset
	WaveDragK    float64 `yaml:"wave_drag_k" json:"waveDragK"`
	WaveDragMax  float64 `yaml:"wave_drag_max" json:"waveDragMax"`
	FormDrag     float64 `yaml:"form_drag" json:"formDrag"` // post-stall, scaled by sin^2(a)
	SideForce    float64 `yaml:"side_force" json:"sideForce"`
}

// DefaultParams is a generic light fighter.
func DefaultParams() Params {
	return Params{
		WingArea:     38,
		AspectRatio:  3.0,
		Oswald:       0.8,
		CL0:          0.2,
		CLAlpha:      4.5,
		StallAlpha:   vmath.Deg(15),
		StallBlend:   vmath.Deg(10),
		FlatPlateCL:  1.0,
		CD0:          0.022,
		CriticalMach: 0.85,
		WaveDragK:    2.5,
		WaveDragMax:  0.12,
		FormDrag:     1.2,
		SideForce:    1.1,
	}
}

// StallFraction is 0 in attached flow and 1 once fully separated.
func (p Params) StallFraction(alpha float64) float64 {
	return vmath.Smoothstep(p.StallAlpha, p.StallAlpha+p.StallBlend, math.Abs(alpha))
}

// LiftCoefficient blends the linear pre-stall curve into the flat-plate regime so
// the stall is a steep loss of lift with no discontinuity.
func (p Params) LiftCoefficient(alpha float64) float64 {
	linear := p.CL0 + p.CLAlpha*alpha
	plate := p.FlatPlateCL * math.Sin(2*alpha)
	return vmath.Lerp(linear, plate, p.StallFraction(alpha))
}

// DragCoefficient is parasitic + induced + transonic wave + post-stall form drag.
func (p Params) DragCoefficient(cl, alpha, mach float64) float64 {
	cd := p.CD0
	if k := math.Pi * p.Oswald * p.AspectRatio; k > 0 {
		cd += cl * cl / k
	}
	if mach > p.CriticalMach {
		d := mach - p.CriticalMach
		cd += math.Min(p.WaveDragK*d*d, p.WaveDragMax)
	}
	s := math.Sin(alpha)
	cd += p.StallFraction(alpha) * p.FormDrag * s * s
	return cd
}

// Flow describes the relative wind in the body frame.
type Flow struct {
	Speed float64
	Alpha float64 // angle of attack, positive nose above the flight path
	Beta  float64 // sideslip, positive wind from the right
	Mach  float64
	Q     float64 // dynamic pressure
}

// FlowAt resolves velocity against the body orientation.
func FlowAt(vel vmath.Vec3, rot vmath.Quat, atm atmosphere.State) Flow {
	speed := vel.Len()
	f := Flow{Speed: speed, Mach: atm.Mach(speed), Q: atm.DynamicPressure(speed)}
	if speed < vmath.Epsilon {
		return f
	}
	vb := rot.InverseRotate(vel)
	f.Alpha = math.Atan2(-vb.Y, -vb.Z)
	f.Beta = math.Atan2(vb.X, -vb.Z)
	return f
}

// Result holds coefficients and world-space forces for one evaluation.
type Result struct {
	Flow
	CL    float64
	CD    float64
	Stall float64
	Lift  vmath.Vec3
	Drag  vmath.Vec3
	Side  vmath.Vec3
}

// Total is the net aerodynamic force.
func (r Result) Total() vmath.Vec3 { return r.Lift.Add(r.Drag).Add(r.Side) }

// Forces evaluates the airframe in the given state.
func (p Params) Forces(vel vmath.Vec3, rot vmath.Quat, atm atmosphere.State) Result {
	flow := FlowAt(vel, rot, atm)
	r := Result{Flow: flow}
	vDir, ok := vel.Normalize()
	if !ok {
		return r
	}

	r.CL = p.LiftCoefficient(flow.Alpha)
	r.CD = p.DragCoefficient(r.CL, flow.Alpha, flow.Mach)
	r.Stall = p.StallFraction(flow.Alpha)
	qs := flow.Q * p.WingArea

	right := rot.Right()
	if liftDir, ok := right.Cross(vDir).Normalize(); ok {
		r.Lift = liftDir.Scale(r.CL * qs)
	}
	r.Drag = vDir.Scale(-r.CD * qs)
	r.Side = right.Scale(-p.SideForce * flow.Beta * qs)
	return r
}
