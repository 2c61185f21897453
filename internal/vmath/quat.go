package vmath

import "math"

// Quat is a rotation quaternion. Every quaternion stored in simulation state is
// renormalized after composition.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity is the no-rotation quaternion.
var Identity = Quat{W: 1}

// AxisAngle builds a rotation of angle radians about axis. A degenerate axis
// yields Identity.
func AxisAngle(axis Vec3, angle float64) Quat {
	u, ok := axis.Normalize()
	if !ok {
		return Identity
	}
	s := math.Sin(angle / 2)
	return Quat{X: u.X * s, Y: u.Y * s, Z: u.Z * s, W: math.Cos(angle / 2)}
}

// Mul composes q then r applied in q's local frame (q*r).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

func (q Quat) Conj() Quat { return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W} }

func (q Quat) Len() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalize returns the unit quaternion. A zero or non-finite quaternion yields Identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < Epsilon || !isFinite(l) {
		return Identity
	}
	inv := 1 / l
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// IsFinite reports whether every component is a real number.
func (q Quat) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// InverseRotate maps a world vector into q's body frame.
func (q Quat) InverseRotate(v Vec3) Vec3 { return q.Conj().Rotate(v) }

// Forward is the body nose direction in world space.
func (q Quat) Forward() Vec3 { return q.Rotate(Forward) }

// Up is the body up direction in world space.
func (q Quat) Up() Vec3 { return q.Rotate(Up) }

// Right is the body right-wing direction in world space.
func (q Quat) Right() Vec3 { return q.Rotate(Right) }

// LookRotation returns the orientation whose forward axis points along dir with the
// given world up hint. Falls back to Identity for a degenerate dir.
func LookRotation(dir, upHint Vec3) Quat {
	f, ok := dir.Normalize()
	if !ok {
		return Identity
	}
	r, ok := f.Cross(upHint).Normalize()
	if !ok {
		// dir parallel to the hint; any perpendicular right axis will do.
		r, _ = f.Cross(Vec3{Z: 1}).Normalize()
		if r.LenSq() == 0 {
			r = Right
		}
	}
	u := r.Cross(f)
	// Columns of the rotation matrix are right, up, back(-f).
	b := f.Neg()
	m00, m01, m02 := r.X, u.X, b.X
	m10, m11, m12 := r.Y, u.Y, b.Y
	m20, m21, m22 := r.Z, u.Z, b.Z

	var q Quat
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = Quat{W: 0.25 / s, X: (m21 - m12) * s, Y: (m02 - m20) * s, Z: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = Quat{W: (m21 - m12) / s, X: 0.25 * s, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = Quat{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: 0.25 * s, Z: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = Quat{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: 0.25 * s}
	}
	return q.Normalize()
}

// RotateToward turns orientation q so its forward axis moves toward dir by at most
// maxAngle radians. The turn is about the world axis between the current heading and
// dir. It reports the angle actually turned; a degenerate dir leaves q unchanged.
func RotateToward(q Quat, dir Vec3, maxAngle float64) (Quat, float64) {
	want, ok := dir.Normalize()
	if !ok || maxAngle <= 0 {
		return q, 0
	}
	fwd := q.Forward()
	angle := math.Acos(Clamp(fwd.Dot(want), -1, 1))
	if angle < 1e-6 {
		return q, 0
	}
	axis, ok := fwd.Cross(want).Normalize()
	if !ok {
		// Target directly behind; break the tie about the body up axis.
		axis = q.Up()
	}
	step := math.Min(angle, maxAngle)
	return AxisAngle(axis, step).Mul(q).Normalize(), step
}

// HeadingRotation faces the forward axis along a compass heading in radians,
// measured clockwise from -Z toward +X.
func HeadingRotation(heading float64) Quat {
	return AxisAngle(Up, -heading)
}

// Heading returns the compass heading of a direction, ignoring its vertical part.
func Heading(dir Vec3) float64 {
	return math.Atan2(dir.X, -dir.Z)
}
