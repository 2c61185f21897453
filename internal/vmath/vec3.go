// Package vmath holds the small vector and quaternion toolkit used by the flight
// model, guidance and AI. World space is Y-up; aircraft bodies look down -Z with +X
// to the right.
package vmath

import "math"

// Epsilon is the length below which a vector is treated as degenerate.
const Epsilon = 1e-9

// Vec3 is a world- or body-space vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Body-frame basis vectors.
var (
	Right   = Vec3{X: 1}
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: -1}
)

// V is shorthand for constructing a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) LenSq() float64 { return v.Dot(v) }

func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }

// Dist returns the distance between two points.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// HorizontalDist ignores the vertical axis.
func (v Vec3) HorizontalDist(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Normalize returns the unit vector and false when v is too short to have a direction.
func (v Vec3) Normalize() (Vec3, bool) {
	l := v.Len()
	if l < Epsilon {
		return Vec3{}, false
	}
	return v.Scale(1 / l), true
}

// Unit is Normalize without the ok flag; degenerate input yields the zero vector.
func (v Vec3) Unit() Vec3 {
	u, _ := v.Normalize()
	return u
}

// ClampLen scales v down so its length does not exceed limit.
func (v Vec3) ClampLen(limit float64) Vec3 {
	if !(limit > 0) {
		return v
	}
	l2 := v.LenSq()
	if l2 <= limit*limit || l2 == 0 {
		return v
	}
	return v.Scale(limit / math.Sqrt(l2))
}

// Lerp interpolates from v to o by t.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// IsFinite reports whether every component is a real number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// AngleBetween returns the angle in radians between two non-zero vectors.
func AngleBetween(a, b Vec3) float64 {
	if a.LenSq() < Epsilon*Epsilon || b.LenSq() < Epsilon*Epsilon {
		return 0
	}
	// atan2 stays accurate for nearly parallel vectors where acos does not.
	return math.Atan2(a.Cross(b).Len(), a.Dot(b))
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
