// Package core defines the public data contract of the combat simulation: the
// snapshot, event and mission records exchanged with renderers, network layers
// and storage backends.
package core

import "math"

// Position3D is a world-space point in metres. Y is up.
type Position3D struct {
	X float64 `json:"x"` // east
	Y float64 `json:"y"` // altitude
	Z float64 `json:"z"` // south
}

// Rotation is a unit quaternion.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Owner ids used in Event.SourceID and Event.TargetID.
const (
	PlayerID = 0
	NoTarget = -1
)

// Bearing is the compass heading of the body's nose in degrees [0, 360),
// clockwise from north (-Z).
func (r Rotation) Bearing() float64 {
	fx := -2 * (r.X*r.Z + r.W*r.Y)
	fz := -(1 - 2*(r.X*r.X+r.Y*r.Y))
	deg := math.Atan2(fx, -fz) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
