package vmath

import "math"

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Smoothstep is the cubic Hermite ramp from 0 at edge0 to 1 at edge1.
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Deg converts degrees to radians.
func Deg(d float64) float64 { return d * math.Pi / 180 }

// ToDeg converts radians to degrees.
func ToDeg(r float64) float64 { return r * 180 / math.Pi }

// ExpSmooth returns the blend factor for exponential smoothing with time constant tau.
func ExpSmooth(dt, tau float64) float64 {
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-dt/tau)
}

// MoveToward moves current toward target by at most maxDelta.
func MoveToward(current, target, maxDelta float64) float64 {
	d := target - current
	if math.Abs(d) <= maxDelta {
		return target
	}
	return current + Sign(d)*maxDelta
}
