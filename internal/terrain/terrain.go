// Package terrain provides height-field queries for collision, AI avoidance and
// spawn placement.
package terrain

import "math"

// Terrain answers height and slope queries at a horizontal position.
type Terrain interface {
	// HeightAt returns ground elevation in metres.
	HeightAt(x, z float64) float64
	// SlopeAt returns the ground slope in degrees.
	SlopeAt(x, z float64) float64
}

// Flat is a level plane at a fixed elevation.
type Flat struct {
	Elevation float64
}

func (f Flat) HeightAt(_, _ float64) float64 { return f.Elevation }

func (f Flat) SlopeAt(_, _ float64) float64 { return 0 }

// Rolling is a sum of sine ridges. It is smooth, cheap and deterministic.
type Rolling struct {
	Base      float64 `json:"base"`
	Amplitude float64 `json:"amplitude"`
	Scale     float64 `json:"scale"` // horizontal wavelength of the primary ridge, m
}

// NewRolling returns a rolling terrain with sane defaults for zero fields.
func NewRolling(base, amplitude, scale float64) Rolling {
	if scale <= 0 {
		scale = 4000
	}
	return Rolling{Base: base, Amplitude: amplitude, Scale: scale}
}

func (r Rolling) HeightAt(x, z float64) float64 {
	k := 2 * math.Pi / r.Scale
	h := math.Sin(x*k)*math.Cos(z*k) +
		0.5*math.Sin(x*k*2.3+1.7)*math.Sin(z*k*1.9+0.4) +
		0.25*math.Cos(x*k*5.1-z*k*4.3)
	return r.Base + r.Amplitude*(h+1.75)/3.5
}

func (r Rolling) SlopeAt(x, z float64) float64 {
	return SlopeByDifference(r, x, z, 1)
}

// SlopeByDifference estimates slope in degrees from central differences of HeightAt.
func SlopeByDifference(t Terrain, x, z, step float64) float64 {
	dx := (t.HeightAt(x+step, z) - t.HeightAt(x-step, z)) / (2 * step)
	dz := (t.HeightAt(x, z+step) - t.HeightAt(x, z-step)) / (2 * step)
	return math.Atan(math.Hypot(dx, dz)) * 180 / math.Pi
}

// Ray marches from origin along dir for up to maxDist metres and reports the
// first point at or below the surface.
func Ray(t Terrain, ox, oy, oz, dx, dy, dz, maxDist, step float64) (dist float64, hit bool) {
	if step <= 0 {
		step = 25
	}
	for d := step; d <= maxDist; d += step {
		x, y, z := ox+dx*d, oy+dy*d, oz+dz*d
		if y <= t.HeightAt(x, z) {
			return d, true
		}
	}
	return 0, false
}
