package model

import (
	"math"
	"time"
)

// Cartesian3 is a coordinate triple. Depending on the reference frame it
// holds either ECEF metres (X, Y, Z) or cartographic components
// (longitude, latitude, height, in that order, matching the renderer's
// array layout).
type Cartesian3 struct {
	X float64
	Y float64
	Z float64
}

// IsFinite reports whether all three components are finite numbers.
func (c Cartesian3) IsFinite() bool {
	return isFinite(c.X) && isFinite(c.Y) && isFinite(c.Z)
}

// Quaternion is a rotation sample component set (X, Y, Z, W). The renderer
// normalises on its side; we only require finite, not-all-zero components.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

// IsFinite reports whether all four components are finite numbers.
func (q Quaternion) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

// IsZero reports whether all four components are exactly zero.
func (q Quaternion) IsZero() bool {
	return q.X == 0 && q.Y == 0 && q.Z == 0 && q.W == 0
}

// Sample is one time-tagged state of a trackable object. Orientation is
// optional; most sources provide position only.
type Sample struct {
	Time        time.Time
	Position    Cartesian3
	Orientation *Quaternion
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
